// Package geometry normalizes the coordinate conventions returned by vision
// models into one canonical unit-square representation. It is pure: no
// network, no storage.
package geometry

import "github.com/tidwall/gjson"

// scaledRange is the coordinate convention some models emit bounding boxes
// in: integers on a 0-1000 grid regardless of page size.
const scaledRange = 1000.0

// Box is a bounding box in the unit square: 0 <= X0 <= X1 <= 1 and
// 0 <= Y0 <= Y1 <= 1 for any Box produced by this package.
type Box struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// FromPixelCorners normalizes a {x0,y0,x1,y1} pixel box against page pixel
// dimensions (w, h). Raw coordinates are clamped to [0,w]/[0,h] first, then
// inverted corners are swapped, then each axis is divided by its dimension.
// When dimensions are unknown (<= 0) the coordinates are assumed to already
// be unit-square and are clamped to [0,1].
func FromPixelCorners(x0, y0, x1, y1, w, h float64) Box {
	if w <= 0 || h <= 0 {
		return orient(Box{clamp(x0, 1), clamp(y0, 1), clamp(x1, 1), clamp(y1, 1)})
	}
	x0, x1 = clamp(x0, w), clamp(x1, w)
	y0, y1 = clamp(y0, h), clamp(y1, h)
	return orient(Box{x0 / w, y0 / h, x1 / w, y1 / h})
}

// FromPixelRect normalizes a {x,y,width,height} pixel box.
func FromPixelRect(x, y, width, height, w, h float64) Box {
	return FromPixelCorners(x, y, x+width, y+height, w, h)
}

// FromScaledArray normalizes a [x0,y0,x1,y1] array. Components greater than
// one indicate the 0-1000 scaled convention and are divided by 1000;
// otherwise the array is already unit-square. Missing components default
// to zero.
func FromScaledArray(vals []float64) Box {
	var v [4]float64
	copy(v[:], vals)

	scaled := false
	for _, c := range v {
		if c > 1 {
			scaled = true
			break
		}
	}
	if scaled {
		for i := range v {
			v[i] /= scaledRange
		}
	}
	for i := range v {
		v[i] = clamp(v[i], 1)
	}
	return orient(Box{v[0], v[1], v[2], v[3]})
}

// FromValue dispatches on the shape of a raw bbox value: a 4-element array,
// a {x0,y0,x1,y1} pixel dict, or a {x,y,width,height} pixel dict. The page
// pixel dimensions (w, h) interpret the pixel encodings. The second return
// is false when the value has none of the supported shapes.
func FromValue(v gjson.Result, w, h float64) (Box, bool) {
	switch {
	case v.IsArray():
		arr := v.Array()
		vals := make([]float64, 0, len(arr))
		for _, a := range arr {
			vals = append(vals, a.Float())
		}
		return FromScaledArray(vals), true

	case v.IsObject():
		if v.Get("x1").Exists() || v.Get("x0").Exists() {
			return FromPixelCorners(
				v.Get("x0").Float(), v.Get("y0").Float(),
				v.Get("x1").Float(), v.Get("y1").Float(),
				w, h,
			), true
		}
		if v.Get("width").Exists() || v.Get("height").Exists() {
			return FromPixelRect(
				v.Get("x").Float(), v.Get("y").Float(),
				v.Get("width").Float(), v.Get("height").Float(),
				w, h,
			), true
		}
	}
	return Box{}, false
}

func clamp(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func orient(b Box) Box {
	if b.X1 < b.X0 {
		b.X0, b.X1 = b.X1, b.X0
	}
	if b.Y1 < b.Y0 {
		b.Y0, b.Y1 = b.Y1, b.Y0
	}
	return b
}
