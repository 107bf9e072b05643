// Package imageio loads the inputs of a density run: an image split into
// channel planes, an optional evidence mask, and scribble annotations.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Channel names, in plane order.
const (
	ChannelRed   = "r"
	ChannelGreen = "g"
	ChannelBlue  = "b"
)

// ChannelNames lists the channels produced by SplitChannels.
var ChannelNames = []string{ChannelRed, ChannelGreen, ChannelBlue}

// Planes holds the row-major 8-bit channels of an image. Pixel (x, y) of a
// plane is at index Width*y + x.
type Planes struct {
	Width  int
	Height int
	R      []uint8
	G      []uint8
	B      []uint8
}

// Channel returns the plane with the given name, or nil.
func (p *Planes) Channel(name string) []uint8 {
	switch name {
	case ChannelRed:
		return p.R
	case ChannelGreen:
		return p.G
	case ChannelBlue:
		return p.B
	}
	return nil
}

// LoadImage decodes the image at path. PNG, JPEG, GIF, BMP, TIFF and WebP
// are recognised.
func LoadImage(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, format, nil
}

// SplitChannels converts img to non-premultiplied RGB planes. Alpha is
// dropped.
func SplitChannels(img image.Image) *Planes {
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(nrgba, nrgba.Bounds(), img, b.Min, xdraw.Src)

	w, h := b.Dx(), b.Dy()
	p := &Planes{
		Width:  w,
		Height: h,
		R:      make([]uint8, w*h),
		G:      make([]uint8, w*h),
		B:      make([]uint8, w*h),
	}
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+4*w]
		for x := 0; x < w; x++ {
			i := y*w + x
			p.R[i] = row[4*x]
			p.G[i] = row[4*x+1]
			p.B[i] = row[4*x+2]
		}
	}
	return p
}

// MaskFromImage returns a row-major mask with 1 wherever img is not black
// once converted to gray, and 0 elsewhere.
func MaskFromImage(img image.Image) (mask []uint8, width, height int) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	mask = make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y != 0 {
				mask[y*width+x] = 1
			}
		}
	}
	return mask, width, height
}
