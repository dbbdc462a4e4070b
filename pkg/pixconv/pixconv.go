// Package pixconv converts raw host frames into planar 4:2:0 images.
package pixconv

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/user/webmio/pkg/media"
)

var (
	// ErrUnsupportedFormat is returned for pixel layouts other than I420, BGRA8 and BGRA16.
	ErrUnsupportedFormat = errors.New("pixconv: unsupported pixel format")

	// ErrShortBuffer is returned when a plane is smaller than its stride and height imply.
	ErrShortBuffer = errors.New("pixconv: buffer too small")

	// ErrSizeMismatch is returned when the destination does not match the source size.
	ErrSizeMismatch = errors.New("pixconv: size mismatch")
)

// Fixed-point RGB to YUV constants. Coefficients are scaled by 1000 and the
// biases carry the +16/+128 offsets plus a rounding half.
const (
	lumaBias8    = 16500
	chromaBias8  = 128500
	lumaBias16   = 2056500
	chromaBias16 = 16449500
)

// Convert16to8 maps a 0..32768 sample to 0..255 with rounding.
func Convert16to8(v int) uint8 {
	return uint8((v*255 + 16384) / 32768)
}

// Convert renders src into a newly allocated Image.
func Convert(src media.RawFrame) (*media.Image, error) {
	dst := media.NewImage(src.Width, src.Height)
	if err := ConvertInto(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}

// ConvertInto renders src into dst, which must have the same dimensions.
func ConvertInto(dst *media.Image, src media.RawFrame) error {
	if dst.Width != src.Width || dst.Height != src.Height {
		return fmt.Errorf("%w: %dx%d into %dx%d", ErrSizeMismatch, src.Width, src.Height, dst.Width, dst.Height)
	}
	switch src.Format {
	case media.FormatI420:
		return copyPlanar(dst, src)
	case media.FormatBGRA8:
		return convertBGRA8(dst, src)
	case media.FormatBGRA16:
		return convertBGRA16(dst, src)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, src.Format)
	}
}

func checkPlane(buf []byte, stride, rowBytes, rows int) error {
	if stride < rowBytes || rows > 0 && len(buf) < stride*(rows-1)+rowBytes {
		return fmt.Errorf("%w: %d bytes for %d rows of stride %d", ErrShortBuffer, len(buf), rows, stride)
	}
	return nil
}

// sourceRow maps an output row to the row in memory.
func sourceRow(y, height int, bottomUp bool) int {
	if bottomUp {
		return height - 1 - y
	}
	return y
}

func copyPlanar(dst *media.Image, src media.RawFrame) error {
	if len(src.Planes) != 3 || len(src.Strides) != 3 {
		return fmt.Errorf("%w: planar frame needs 3 planes", ErrShortBuffer)
	}
	w, h := src.Width, src.Height
	cw, ch := media.ChromaSize(w, h)

	if err := checkPlane(src.Planes[0], src.Strides[0], w, h); err != nil {
		return fmt.Errorf("luma plane: %w", err)
	}
	for p := 1; p < 3; p++ {
		if err := checkPlane(src.Planes[p], src.Strides[p], cw, ch); err != nil {
			return fmt.Errorf("chroma plane %d: %w", p, err)
		}
	}

	for y := 0; y < h; y++ {
		sy := sourceRow(y, h, src.BottomUp)
		copy(dst.Y[y*dst.YStride:y*dst.YStride+w], src.Planes[0][sy*src.Strides[0]:])
	}
	for y := 0; y < ch; y++ {
		sy := sourceRow(y, ch, src.BottomUp)
		copy(dst.U[y*dst.CStride:y*dst.CStride+cw], src.Planes[1][sy*src.Strides[1]:])
		copy(dst.V[y*dst.CStride:y*dst.CStride+cw], src.Planes[2][sy*src.Strides[2]:])
	}
	return nil
}

// Packed sources are always bottom-up; BottomUp is implied.
func convertBGRA8(dst *media.Image, src media.RawFrame) error {
	if len(src.Planes) < 1 || len(src.Strides) < 1 {
		return fmt.Errorf("%w: packed frame needs 1 plane", ErrShortBuffer)
	}
	w, h := src.Width, src.Height
	buf, stride := src.Planes[0], src.Strides[0]
	if err := checkPlane(buf, stride, w*4, h); err != nil {
		return err
	}

	for y := 0; y < h; y++ {
		row := buf[(h-1-y)*stride:]
		yRow := dst.Y[y*dst.YStride:]
		uRow := dst.U[(y/2)*dst.CStride:]
		vRow := dst.V[(y/2)*dst.CStride:]

		for x := 0; x < w; x++ {
			b := int(row[x*4+0])
			g := int(row[x*4+1])
			r := int(row[x*4+2])

			yRow[x] = uint8((257*r + 504*g + 98*b + lumaBias8) / 1000)

			if y%2 == 0 && x%2 == 0 {
				vRow[x/2] = uint8((439*r - 368*g - 71*b + chromaBias8) / 1000)
				uRow[x/2] = uint8((-148*r - 291*g + 439*b + chromaBias8) / 1000)
			}
		}
	}
	return nil
}

func convertBGRA16(dst *media.Image, src media.RawFrame) error {
	if len(src.Planes) < 1 || len(src.Strides) < 1 {
		return fmt.Errorf("%w: packed frame needs 1 plane", ErrShortBuffer)
	}
	w, h := src.Width, src.Height
	buf, stride := src.Planes[0], src.Strides[0]
	if err := checkPlane(buf, stride, w*8, h); err != nil {
		return err
	}

	for y := 0; y < h; y++ {
		row := buf[(h-1-y)*stride:]
		yRow := dst.Y[y*dst.YStride:]
		uRow := dst.U[(y/2)*dst.CStride:]
		vRow := dst.V[(y/2)*dst.CStride:]

		for x := 0; x < w; x++ {
			px := row[x*8:]
			b := int(binary.NativeEndian.Uint16(px[0:]))
			g := int(binary.NativeEndian.Uint16(px[2:]))
			r := int(binary.NativeEndian.Uint16(px[4:]))

			yRow[x] = Convert16to8(clamp16((257*r + 504*g + 98*b + lumaBias16) / 1000))

			if y%2 == 0 && x%2 == 0 {
				vRow[x/2] = Convert16to8(clamp16((439*r - 368*g - 71*b + chromaBias16) / 1000))
				uRow[x/2] = Convert16to8(clamp16((-148*r - 291*g + 439*b + chromaBias16) / 1000))
			}
		}
	}
	return nil
}

// clamp16 keeps an intermediate inside the unsigned 16-bit range.
func clamp16(v int) int {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return v
}
