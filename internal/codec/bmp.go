package codec

import (
	"encoding/binary"
	"image"
)

const (
	bmpFileHeaderLen = 14
	bmpInfoHeaderLen = 40
)

// restoreBMPAlpha copies the fourth byte of every pixel of a 32bpp BMP with a
// plain BITMAPINFOHEADER into the alpha channel of out. Such files carry no
// alpha mask, so one whose fourth bytes are all zero stays opaque.
func restoreBMPAlpha(raw []byte, out *image.NRGBA) {
	if len(raw) < bmpFileHeaderLen+bmpInfoHeaderLen || string(raw[:2]) != "BM" {
		return
	}
	le := binary.LittleEndian
	if le.Uint32(raw[14:18]) != bmpInfoHeaderLen || le.Uint16(raw[28:30]) != 32 || le.Uint32(raw[30:34]) != 0 {
		return
	}

	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	rowBytes := 4 * w
	offset := uint64(le.Uint32(raw[10:14]))
	if offset+uint64(rowBytes)*uint64(h) > uint64(len(raw)) {
		return
	}
	pix := raw[offset : offset+uint64(rowBytes*h)]

	used := false
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0 {
			used = true
			break
		}
	}
	if !used {
		return
	}

	topDown := int32(le.Uint32(raw[22:26])) < 0
	for y := 0; y < h; y++ {
		row := h - 1 - y
		if topDown {
			row = y
		}
		src := pix[row*rowBytes : (row+1)*rowBytes]
		dst := out.Pix[y*out.Stride : y*out.Stride+rowBytes]
		for i := 3; i < rowBytes; i += 4 {
			dst[i] = src[i]
		}
	}
}
