/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Basic 2D geometry for the canvas and the exporters. Coordinates are canvas
// pixels with the origin at the top-left.

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

// Center returns the rectangle midpoint, the pivot for item rotation.
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInto moves r so that it lies within bounds. When r is larger than
// bounds on an axis, the min edge wins (position pinned to the bounds origin).
func ClampInto(r Rect, bounds Size) Rect {
	r.X = Clamp(r.X, 0, math.Max(0, bounds.W-r.W))
	r.Y = Clamp(r.Y, 0, math.Max(0, bounds.H-r.H))
	return r
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// RotateAbout rotates p around pivot by the given angle in radians.
func RotateAbout(p, pivot Pt, rad float64) Pt {
	s, c := math.Sincos(rad)
	dx, dy := p.X-pivot.X, p.Y-pivot.Y
	return Pt{
		X: pivot.X + dx*c - dy*s,
		Y: pivot.Y + dx*s + dy*c,
	}
}

// RotatedBounds returns the axis-aligned bounding box of r rotated about its
// center by the given angle in radians.
func RotatedBounds(r Rect, rad float64) Rect {
	pivot := r.Center()
	corners := []Pt{
		r.Min(),
		{r.X + r.W, r.Y},
		r.Max(),
		{r.X, r.Y + r.H},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		p := RotateAbout(c, pivot, rad)
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
