// Package codec turns encoded image bytes into straight-alpha pixel buffers
// and back.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/dblezek/tga"
	"golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/erinpentecost/maskcut/internal/dds"
)

var (
	// ErrEmpty is returned for missing input bytes or an empty image.
	ErrEmpty = errors.New("codec: no image data")
	// ErrUnsupportedFormat is returned for data or format names that no codec
	// handles.
	ErrUnsupportedFormat = errors.New("codec: unsupported format")
)

// Format is an output encoding.
type Format int

const (
	PNG Format = iota
	BMP
	TGA
	// DDS is written uncompressed so alpha is exact.
	DDS
)

var formatNames = map[Format]string{
	PNG: "png",
	BMP: "bmp",
	TGA: "tga",
	DDS: "dds",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// MIMEType is the media type used in data URLs.
func (f Format) MIMEType() string {
	switch f {
	case PNG:
		return "image/png"
	case BMP:
		return "image/bmp"
	case TGA:
		return "image/x-tga"
	case DDS:
		return "image/vnd-ms.dds"
	default:
		return "application/octet-stream"
	}
}

// Ext is the file extension, with the leading dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// ParseFormat accepts a format name or file extension, case insensitive.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Decode returns the image in raw as a tightly packed NRGBA starting at (0,0),
// along with the name of the detected format.
func Decode(raw []byte) (*image.NRGBA, string, error) {
	if len(raw) == 0 {
		return nil, "", ErrEmpty
	}
	if dds.IsDDS(raw) {
		img, err := dds.Decode(raw)
		if err != nil {
			return nil, "dds", err
		}
		return img, "dds", nil
	}

	img, name, err := image.Decode(bytes.NewReader(raw))
	if err != nil && (name == "" || name == "tga") {
		// TGA has no magic number, so it is the last resort.
		if img, err = tga.Decode(bytes.NewReader(raw)); err != nil {
			return nil, "", fmt.Errorf("%w: unrecognized image data", ErrUnsupportedFormat)
		}
		name = "tga"
	}
	if err != nil {
		return nil, name, fmt.Errorf("decode %s: %w", name, err)
	}
	out := ToNRGBA(img)
	if name == "bmp" {
		restoreBMPAlpha(raw, out)
	}
	return out, name, nil
}

// ToNRGBA converts img to a tightly packed, straight-alpha NRGBA with its
// origin at (0,0). The result never shares pixels with img.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		rowBytes := b.Dx() * 4
		for y := 0; y < b.Dy(); y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:], src.Pix[off:off+rowBytes])
		}
		return out
	}
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img *image.NRGBA, f Format) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmpty
	}
	var err error
	switch f {
	case PNG:
		err = png.Encode(w, img)
	case BMP:
		err = bmp.Encode(w, img)
	case TGA:
		err = tga.Encode(w, img)
	case DDS:
		err = dds.Encode(w, img)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return fmt.Errorf("encode %v: %w", f, err)
	}
	return nil
}

// EncodeBytes is Encode into a new byte slice.
func EncodeBytes(img *image.NRGBA, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURL wraps already encoded bytes as a base64 data URL.
func DataURL(data []byte, f Format) string {
	return "data:" + f.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EncodeDataURL encodes img in format f and returns it as a data URL.
func EncodeDataURL(img *image.NRGBA, f Format) (string, error) {
	data, err := EncodeBytes(img, f)
	if err != nil {
		return "", err
	}
	return DataURL(data, f), nil
}
