package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// placeholderSize is the fixed resolution of the "no preview" artifact.
const placeholderSize = 512

const placeholderText = "NO PREVIEW"

var (
	placeholderBackground = color.NRGBA{R: 225, G: 227, B: 232, A: 255}
	placeholderBorder     = color.NRGBA{R: 176, G: 180, B: 189, A: 255}
	placeholderInk        = color.NRGBA{R: 112, G: 117, B: 128, A: 255}
)

// placeholderPNG renders the fixed fallback artifact. The image is fully
// deterministic: two calls always produce byte-identical encodings.
func placeholderPNG() ([]byte, error) {
	img := imaging.New(placeholderSize, placeholderSize, placeholderBackground)

	const inset = 24
	drawRect(img, inset, inset, placeholderSize-inset, placeholderSize-inset, 3, placeholderBorder)

	// The font face is a fixed bitmap font, so text metrics are stable.
	face := basicfont.Face7x13
	width := font.MeasureString(face, placeholderText).Ceil()
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(placeholderInk),
		Face: face,
		Dot: fixed.P(
			(placeholderSize-width)/2,
			placeholderSize/2+face.Metrics().Ascent.Ceil()/2,
		),
	}
	d.DrawString(placeholderText)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// drawRect draws an axis-aligned rectangle outline of the given thickness.
func drawRect(img *image.NRGBA, x0, y0, x1, y1, thickness int, c color.NRGBA) {
	for t := 0; t < thickness; t++ {
		for x := x0 + t; x <= x1-t; x++ {
			img.SetNRGBA(x, y0+t, c)
			img.SetNRGBA(x, y1-t, c)
		}
		for y := y0 + t; y <= y1-t; y++ {
			img.SetNRGBA(x0+t, y, c)
			img.SetNRGBA(x1-t, y, c)
		}
	}
}
