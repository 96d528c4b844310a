package builder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png" // Register decoders
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is an image XObject. Data holds raw samples, or JPEG bytes when
// Filter is DCTDecode.
type Image struct {
	Width            int
	Height           int
	ColorSpace       string
	BitsPerComponent int
	Data             []byte
	Filter           string
	SMask            *Image

	objNum int
}

// ObjectNumber is 0 until the image is added to a document.
func (img *Image) ObjectNumber() int { return img.objNum }

// DecodeImage reads PNG, JPEG, BMP, TIFF or WebP data. JPEG data is kept
// as is and written with DCTDecode; the other formats are decoded to
// samples.
func DecodeImage(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > 2 && data[0] == 0xFF && data[1] == 0xD8 {
		return jpegImage(data)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(src), nil
}

func jpegImage(data []byte) (*Image, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg header: %w", err)
	}
	cs := "DeviceRGB"
	switch cfg.ColorModel {
	case color.GrayModel:
		cs = "DeviceGray"
	case color.CMYKModel:
		cs = "DeviceCMYK"
	}
	return &Image{
		Width:            cfg.Width,
		Height:           cfg.Height,
		ColorSpace:       cs,
		BitsPerComponent: 8,
		Data:             data,
		Filter:           "DCTDecode",
	}, nil
}

// FromImage converts src to 8-bit samples. Gray images stay gray; others
// become RGB with an alpha channel split off into a soft mask when any
// pixel is not opaque.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if src.ColorModel() == color.GrayModel {
		gray := image.NewGray(image.Rect(0, 0, w, h))
		draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)
		return &Image{Width: w, Height: h, ColorSpace: "DeviceGray", BitsPerComponent: 8, Data: gray.Pix}
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	pixels := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false
	for i := 0; i < w*h; i++ {
		px := nrgba.Pix[i*4 : i*4+4]
		pixels = append(pixels, px[0], px[1], px[2])
		alpha = append(alpha, px[3])
		if px[3] < 255 {
			hasAlpha = true
		}
	}

	img := &Image{Width: w, Height: h, ColorSpace: "DeviceRGB", BitsPerComponent: 8, Data: pixels}
	if hasAlpha {
		img.SMask = &Image{Width: w, Height: h, ColorSpace: "DeviceGray", BitsPerComponent: 8, Data: alpha}
	}
	return img
}
