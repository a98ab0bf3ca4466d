// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package canvas implements the pixel-canvas side model: ownership and
// recolor-on-purchase over a fixed grid. It is a standalone collaborator —
// the exchange state machine in package exchange never calls it (see
// SPEC_FULL.md §4.H and §9's "pixel canvas linkage" open question).
package canvas

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrOutOfBounds is returned for any (x, y) outside the canvas.
var ErrOutOfBounds = errors.New("canvas: coordinate out of bounds")

// ErrPriceTooLow is returned when a purchase bid is below the pixel's
// current asking price.
type ErrPriceTooLow struct{ Required *uint256.Int }

func (e *ErrPriceTooLow) Error() string {
	return "canvas: price too low, required " + e.Required.String()
}

// Canvas is a row-major grid of pixels: idx = x + y*width.
type Canvas struct {
	width, height int
	pixels        []Pixel
}

// New creates a canvas where every pixel starts unowned, priced at
// initialPrice, and colored white (#FFFFFF).
func New(width, height int, initialPrice *uint256.Int) *Canvas {
	pixels := make([]Pixel, width*height)
	for i := range pixels {
		pixels[i] = Pixel{Price: new(uint256.Int).Set(initialPrice), Color: 0xFFFFFF}
	}
	return &Canvas{width: width, height: height, pixels: pixels}
}

func (c *Canvas) idx(x, y int) (int, error) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return 0, ErrOutOfBounds
	}
	return x + y*c.width, nil
}

// Pixel returns a copy of the pixel at (x, y).
func (c *Canvas) Pixel(x, y int) (Pixel, error) {
	i, err := c.idx(x, y)
	if err != nil {
		return Pixel{}, err
	}
	return c.pixels[i], nil
}

// SetColor recolors a pixel without touching ownership or price.
func (c *Canvas) SetColor(x, y int, color Rgb888) error {
	i, err := c.idx(x, y)
	if err != nil {
		return err
	}
	c.pixels[i].Color = color
	return nil
}

// BuyPixel transfers ownership of (x, y) to buyer if amountPaid meets the
// current price, recolors it, and doubles the asking price for the next
// buyer. Balance deduction/asset transfer is the caller's responsibility;
// this only updates the canvas model.
func (c *Canvas) BuyPixel(x, y int, buyer AccountId, amountPaid *uint256.Int, newColor Rgb888) error {
	i, err := c.idx(x, y)
	if err != nil {
		return err
	}
	pix := &c.pixels[i]
	if amountPaid.Cmp(pix.Price) < 0 {
		return &ErrPriceTooLow{Required: new(uint256.Int).Set(pix.Price)}
	}
	owner := buyer
	pix.Owner = &owner
	pix.Color = newColor
	pix.Price = nextPrice(pix.Price)
	return nil
}

// nextPrice doubles the current price, saturating at the uint256 maximum.
func nextPrice(current *uint256.Int) *uint256.Int {
	doubled, overflow := new(uint256.Int).MulOverflow(current, uint256.NewInt(2))
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return doubled
}
