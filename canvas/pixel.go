// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package canvas

import (
	"fmt"

	"github.com/holiman/uint256"
)

// AccountId identifies a pixel's owner by their BTC address.
type AccountId = string

// Rgb888 is a 24-bit color, packed as 0xRRGGBB.
type Rgb888 uint32

// String renders the color as "#RRGGBB".
func (c Rgb888) String() string {
	return fmt.Sprintf("#%06X", uint32(c)&0x00FFFFFF)
}

// Pixel is a single cell of the canvas.
type Pixel struct {
	Owner *AccountId    // nil means unowned; proceeds accrue to the project.
	Price *uint256.Int  // current asking price, in the smallest priced unit.
	Color Rgb888
}
