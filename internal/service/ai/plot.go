package ai

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const boxThickness = 2

// palette cycles per class id so one class keeps one colour across a frame.
var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 100, G: 115, B: 255, A: 255},
	{R: 0, G: 24, B: 236, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
	{R: 82, G: 0, B: 133, A: 255},
	{R: 203, G: 56, B: 255, A: 255},
	{R: 255, G: 149, B: 200, A: 255},
	{R: 255, G: 55, B: 199, A: 255},
}

// ColorFor returns the box colour of a class.
func ColorFor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// Plot returns a copy of frame with every detection drawn as a box and a
// "label 0.87" caption. frame is not modified.
func Plot(frame image.Image, detections []Detection) *image.RGBA {
	b := frame.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, frame, b.Min, draw.Src)

	for _, d := range detections {
		box := ClampBox(d.Box, b)
		if box.Empty() {
			continue
		}
		c := ColorFor(d.ClassID)
		drawBox(out, box, c)
		drawCaption(out, box, fmt.Sprintf("%s %.2f", d.Label, d.Confidence), c)
	}
	return out
}

func drawBox(img *image.RGBA, box image.Rectangle, c color.RGBA) {
	src := image.NewUniform(c)
	t := boxThickness
	edges := []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+t),
		image.Rect(box.Min.X, box.Max.Y-t, box.Max.X, box.Max.Y),
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+t, box.Max.Y),
		image.Rect(box.Max.X-t, box.Min.Y, box.Max.X, box.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(box), src, image.Point{}, draw.Src)
	}
}

// drawCaption puts the text on a filled bar above the box, or inside its top
// edge when the box touches the top of the frame.
func drawCaption(img *image.RGBA, box image.Rectangle, text string, bg color.RGBA) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	textWidth := font.MeasureString(face, text).Ceil()

	const pad = 2
	barHeight := textHeight + 2*pad
	top := box.Min.Y - barHeight
	if top < img.Bounds().Min.Y {
		top = box.Min.Y
	}
	bar := image.Rect(box.Min.X, top, box.Min.X+textWidth+2*pad, top+barHeight).Intersect(img.Bounds())
	if bar.Empty() {
		return
	}
	draw.Draw(img, bar, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor(bg)),
		Face: face,
		Dot:  fixed.P(bar.Min.X+pad, top+pad+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
}

// textColor picks black or white, whichever reads better on bg.
func textColor(bg color.RGBA) color.Color {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma > 150 {
		return color.Black
	}
	return color.White
}
