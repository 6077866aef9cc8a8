// Package dds reads and writes DirectDraw Surface textures.
//
// Writing always produces an uncompressed 32-bit texture with straight alpha
// so a mask cut-out survives without block compression artifacts. Reading
// supports DXT1, DXT3, DXT5 and uncompressed 24/32-bit RGB(A).
package dds

import (
	"encoding/binary"
	"errors"
	"image"
	"image/draw"
	"io"
)

const (
	magic = "DDS "

	headerSize      = 124
	pixelFormatSize = 32
	// pixelFormatOffset is where DDS_PIXELFORMAT starts inside the header,
	// counted after the 4-byte magic.
	pixelFormatOffset = 72
	capsOffset        = 104

	// DDSD flags
	flagCaps        = 0x1
	flagHeight      = 0x2
	flagWidth       = 0x4
	flagPitch       = 0x8
	flagPixelFormat = 0x1000

	// Pixel format flags
	pfAlphaPixels = 0x1
	pfFourCC      = 0x4
	pfRGB         = 0x40

	capsTexture = 0x1000
)

// ErrEmpty is returned when asked to encode an image with no pixels.
var ErrEmpty = errors.New("dds: empty image")

// Encode writes m as an uncompressed 32-bit DDS. Bytes are stored R, G, B, A
// per pixel with straight alpha.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	if b.Empty() {
		return ErrEmpty
	}
	nrgba, ok := m.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(b)
		draw.Draw(nrgba, b, m, b.Min, draw.Src)
	}

	width, height := b.Dx(), b.Dy()
	rowBytes := width * 4

	var header [headerSize]byte
	put := func(off int, v uint32) {
		binary.LittleEndian.PutUint32(header[off:], v)
	}
	put(0, headerSize)
	put(4, flagCaps|flagHeight|flagWidth|flagPitch|flagPixelFormat)
	put(8, uint32(height))
	put(12, uint32(width))
	put(16, uint32(rowBytes))

	pf := pixelFormatOffset
	put(pf+0, pixelFormatSize)
	put(pf+4, pfRGB|pfAlphaPixels)
	put(pf+12, 32)
	// Little endian: mask 0x000000FF is the first byte on disk.
	put(pf+16, 0x000000FF)
	put(pf+20, 0x0000FF00)
	put(pf+24, 0x00FF0000)
	put(pf+28, 0xFF000000)

	put(capsOffset, capsTexture)

	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if nrgba.Stride == rowBytes {
		off := nrgba.PixOffset(b.Min.X, b.Min.Y)
		_, err := w.Write(nrgba.Pix[off : off+rowBytes*height])
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := nrgba.PixOffset(b.Min.X, y)
		if _, err := w.Write(nrgba.Pix[off : off+rowBytes]); err != nil {
			return err
		}
	}
	return nil
}
