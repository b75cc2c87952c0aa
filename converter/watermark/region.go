package watermark

import "image"

// Regions splits bounds into four quadrants: top-left, top-right,
// bottom-left, bottom-right. The quadrants tile bounds exactly. With a side
// of one pixel some quadrants are empty.
func Regions(bounds image.Rectangle) [4]image.Rectangle {
	midX := bounds.Min.X + bounds.Dx()/2
	midY := bounds.Min.Y + bounds.Dy()/2

	return [4]image.Rectangle{
		image.Rect(bounds.Min.X, bounds.Min.Y, midX, midY),
		image.Rect(midX, bounds.Min.Y, bounds.Max.X, midY),
		image.Rect(bounds.Min.X, midY, midX, bounds.Max.Y),
		image.Rect(midX, midY, bounds.Max.X, bounds.Max.Y),
	}
}
