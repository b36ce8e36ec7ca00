// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package geometry provides the pixel-space primitives shared by the
// recognizer, pipeline, and recorder: detection boxes, the ROI rectangle,
// and the anchor-point test that decides whether a detection counts.
package geometry

import "image"

// Point is a position in full-frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox is an axis-aligned detection box [X1,Y1,X2,Y2] in full-frame pixel
// coordinates, as reported by the inference sidecar.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// FromSlice builds a BBox from a [x1, y1, x2, y2] slice.
// Returns a zero box if the slice does not have exactly four elements.
func FromSlice(b []float64) BBox {
	if len(b) != 4 {
		return BBox{}
	}
	return BBox{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3]}
}

// Width returns the box width in pixels.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height in pixels.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Empty reports whether the box has no area.
func (b BBox) Empty() bool { return b.X2 <= b.X1 || b.Y2 <= b.Y1 }

// Anchor returns the point used to decide ROI membership: the top-center
// of the box. A person's head position, not their full extent, determines
// whether they are inside the watched region.
func (b BBox) Anchor() Point {
	return Point{X: b.X1 + b.Width()/2, Y: b.Y1}
}

// Pad expands the box by the given fractions of its own width and height
// on each side. Used to give face crops breathing room before capture.
func (b BBox) Pad(fracX, fracY float64) BBox {
	padX := b.Width() * fracX
	padY := b.Height() * fracY
	return BBox{
		X1: b.X1 - padX,
		Y1: b.Y1 - padY,
		X2: b.X2 + padX,
		Y2: b.Y2 + padY,
	}
}

// Clamp clips the box to the frame bounds [0,width]x[0,height].
func (b BBox) Clamp(width, height int) BBox {
	return BBox{
		X1: clamp(b.X1, 0, float64(width)),
		Y1: clamp(b.Y1, 0, float64(height)),
		X2: clamp(b.X2, 0, float64(width)),
		Y2: clamp(b.Y2, 0, float64(height)),
	}
}

// Rect converts the box to an image.Rectangle for cropping.
func (b BBox) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ROI is the watched region of the frame as an [X,Y,W,H] rectangle.
// A zero-area ROI matches nothing.
type ROI struct {
	X int `json:"x" validate:"gte=0"`
	Y int `json:"y" validate:"gte=0"`
	W int `json:"w" validate:"gt=0"`
	H int `json:"h" validate:"gt=0"`
}

// Empty reports whether the ROI has no area.
func (r ROI) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether the point lies inside the rectangle.
// Bounds are inclusive on the top-left edge and exclusive on the
// bottom-right, matching pixel-grid semantics.
func (r ROI) Contains(p Point) bool {
	if r.Empty() {
		return false
	}
	return p.X >= float64(r.X) && p.X < float64(r.X+r.W) &&
		p.Y >= float64(r.Y) && p.Y < float64(r.Y+r.H)
}
