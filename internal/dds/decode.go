package dds

import (
	"encoding/binary"
	"fmt"
	"image"
	"math/bits"

	"github.com/mauserzjeh/dxt"
)

// MaxPixels bounds width*height of a texture accepted by Decode.
const MaxPixels = 1 << 28

// IsDDS reports whether raw starts with the DDS magic.
func IsDDS(raw []byte) bool {
	return len(raw) >= len(magic) && string(raw[:len(magic)]) == magic
}

// Decode parses a DDS texture. Only the top mip level is read.
func Decode(raw []byte) (*image.NRGBA, error) {
	const dataOffset = len(magic) + headerSize

	if len(raw) < dataOffset {
		return nil, fmt.Errorf("dds: data too short for header: %d < %d", len(raw), dataOffset)
	}
	if !IsDDS(raw) {
		return nil, fmt.Errorf("dds: missing magic %q", magic)
	}

	hdr := raw[len(magic):dataOffset]
	height := binary.LittleEndian.Uint32(hdr[8:12])
	width := binary.LittleEndian.Uint32(hdr[12:16])
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("dds: empty %dx%d texture", width, height)
	}
	if uint64(width)*uint64(height) > MaxPixels {
		return nil, fmt.Errorf("dds: %dx%d texture exceeds %d pixels", width, height, MaxPixels)
	}

	pf := hdr[pixelFormatOffset : pixelFormatOffset+pixelFormatSize]
	pfFlags := binary.LittleEndian.Uint32(pf[4:8])
	fourCC := string(pf[8:12])
	bitCount := binary.LittleEndian.Uint32(pf[12:16])

	data := raw[dataOffset:]
	if len(data) == 0 {
		return nil, fmt.Errorf("dds: no image data")
	}

	need, err := dataSize(pfFlags, fourCC, bitCount, width, height)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) < need {
		return nil, fmt.Errorf("dds: %dx%d texture needs %d data bytes, have %d", width, height, need, len(data))
	}

	var pix []byte
	if pfFlags&pfFourCC != 0 {
		switch fourCC {
		case "DXT1":
			pix, err = dxt.DecodeDXT1(data, uint(width), uint(height))
		case "DXT3":
			pix, err = dxt.DecodeDXT3(data, uint(width), uint(height))
		case "DXT5":
			pix, err = dxt.DecodeDXT5(data, uint(width), uint(height))
		default:
			return nil, fmt.Errorf("dds: unsupported FourCC %q", fourCC)
		}
	} else {
		masks := [4]uint32{
			binary.LittleEndian.Uint32(pf[16:20]),
			binary.LittleEndian.Uint32(pf[20:24]),
			binary.LittleEndian.Uint32(pf[24:28]),
			0,
		}
		if pfFlags&pfAlphaPixels != 0 {
			masks[3] = binary.LittleEndian.Uint32(pf[28:32])
		}
		pix, err = decodeUncompressed(data, int(width), int(height), int(bitCount/8), masks)
	}
	if err != nil {
		return nil, fmt.Errorf("dds: decode %dx%d: %w", width, height, err)
	}

	want := int(width) * int(height) * 4
	if len(pix) < want {
		return nil, fmt.Errorf("dds: unexpected decoded byte length %d, want %d", len(pix), want)
	}
	img := image.NewNRGBA(image.Rect(0, 0, int(width), int(height)))
	copy(img.Pix, pix[:want])
	return img, nil
}

// dataSize is the number of bytes the top mip level of a width x height
// texture occupies. Width and height are already capped by MaxPixels.
func dataSize(pfFlags uint32, fourCC string, bitCount, width, height uint32) (uint64, error) {
	if pfFlags&pfFourCC != 0 {
		var blockBytes uint64
		switch fourCC {
		case "DXT1":
			blockBytes = 8
		case "DXT3", "DXT5":
			blockBytes = 16
		default:
			return 0, fmt.Errorf("dds: unsupported FourCC %q", fourCC)
		}
		blocks := (uint64(width) + 3) / 4 * ((uint64(height) + 3) / 4)
		return blocks * blockBytes, nil
	}
	if bitCount != 24 && bitCount != 32 {
		return 0, fmt.Errorf("dds: unsupported pixel format, flags=%#x bits=%d", pfFlags, bitCount)
	}
	return uint64(width) * uint64(height) * uint64(bitCount/8), nil
}

// decodeUncompressed unpacks 24 or 32-bit pixels using the channel masks from
// the pixel format. A zero alpha mask means the texture is opaque. Rows are
// assumed to be tightly packed.
func decodeUncompressed(data []byte, width, height, bytesPerPixel int, masks [4]uint32) ([]byte, error) {
	if masks[0]|masks[1]|masks[2] == 0 {
		// No masks at all: assume the common B, G, R(, A) byte order.
		masks = [4]uint32{0x00FF0000, 0x0000FF00, 0x000000FF, masks[3]}
		if bytesPerPixel == 4 && masks[3] == 0 {
			masks[3] = 0xFF000000
		}
	}
	need := width * height * bytesPerPixel
	if len(data) < need {
		return nil, fmt.Errorf("data too small (%d < %d)", len(data), need)
	}

	out := make([]byte, width*height*4)
	for i, o := 0, 0; i < need; i, o = i+bytesPerPixel, o+4 {
		var v uint32
		for k := 0; k < bytesPerPixel; k++ {
			v |= uint32(data[i+k]) << (8 * k)
		}
		for c := 0; c < 3; c++ {
			out[o+c] = channel(v, masks[c])
		}
		if masks[3] == 0 {
			out[o+3] = 0xFF
		} else {
			out[o+3] = channel(v, masks[3])
		}
	}
	return out, nil
}

// channel extracts the bits selected by mask and scales them to 8 bits.
func channel(v, mask uint32) uint8 {
	if mask == 0 {
		return 0
	}
	shift := bits.TrailingZeros32(mask)
	width := bits.OnesCount32(mask)
	c := (v & mask) >> shift
	switch {
	case width == 8:
		return uint8(c)
	case width > 8:
		return uint8(c >> (width - 8))
	default:
		top := uint32(1)<<width - 1
		return uint8((c*255 + top/2) / top)
	}
}
