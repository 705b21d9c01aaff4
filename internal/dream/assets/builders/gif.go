package builders

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"

	"github.com/fogleman/gg"
)

const ContentTypeGIF = "image/gif"

// GIFOptions sizes the animated placeholder. Zero values take the defaults
// (12 frames, 1024px, 80ms per frame).
type GIFOptions struct {
	Size   int
	Frames int
	Delay  int // hundredths of a second
}

func (o GIFOptions) withDefaults() GIFOptions {
	if o.Size <= 0 {
		o.Size = 1024
	}
	if o.Frames <= 0 {
		o.Frames = 12
	}
	if o.Delay <= 0 {
		o.Delay = 8
	}
	return o
}

var (
	gifBackground = color.RGBA{10, 10, 20, 255}
	gifOuter      = color.RGBA{10, 150, 230, 255}
	gifInner      = color.RGBA{120, 80, 255, 255}
	gifPalette    = color.Palette{gifBackground, gifOuter, gifInner, color.White}
)

// PlaceholderGIF renders two drifting ellipses on a dark background, looping forever.
func PlaceholderGIF(opts GIFOptions) ([]byte, error) {
	opts = opts.withDefaults()
	s := float64(opts.Size)
	unit := s / 1024

	anim := &gif.GIF{LoopCount: 0}
	for i := 0; i < opts.Frames; i++ {
		shift := float64(i*2) * unit

		dc := gg.NewContext(opts.Size, opts.Size)
		dc.SetColor(gifBackground)
		dc.Clear()

		drawBoxEllipse(dc, 112*unit+shift, 112*unit, 912*unit, 912*unit, gifOuter)
		drawBoxEllipse(dc, 212*unit, 212*unit, 812*unit-shift, 812*unit, gifInner)

		frame := image.NewPaletted(image.Rect(0, 0, opts.Size, opts.Size), gifPalette)
		draw.Draw(frame, frame.Bounds(), dc.Image(), image.Point{}, draw.Src)
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, opts.Delay)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBoxEllipse fills the ellipse inscribed in the box (x0,y0)-(x1,y1).
func drawBoxEllipse(dc *gg.Context, x0, y0, x1, y1 float64, c color.Color) {
	dc.DrawEllipse((x0+x1)/2, (y0+y1)/2, (x1-x0)/2, (y1-y0)/2)
	dc.SetColor(c)
	dc.Fill()
}
