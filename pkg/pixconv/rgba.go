package pixconv

import (
	"encoding/binary"
	"image"
	"image/draw"

	"github.com/user/webmio/pkg/media"
)

// ToRGBA converts a planar image back to RGBA for display and PNG output.
func ToRGBA(img *media.Image) *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			yVal := int(img.Y[y*img.YStride+x])
			uVal := int(img.U[(y/2)*img.CStride+x/2])
			vVal := int(img.V[(y/2)*img.CStride+x/2])

			c := yVal - 16
			d := uVal - 128
			e := vVal - 128

			r := clamp((298*c + 409*e + 128) >> 8)
			g := clamp((298*c - 100*d - 208*e + 128) >> 8)
			b := clamp((298*c + 516*d + 128) >> 8)

			idx := y*rgba.Stride + x*4
			rgba.Pix[idx] = uint8(r)
			rgba.Pix[idx+1] = uint8(g)
			rgba.Pix[idx+2] = uint8(b)
			rgba.Pix[idx+3] = 255
		}
	}

	return rgba
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// PackBGRA8 lays out an image the way the host delivers 8-bit frames:
// BGRA byte order, bottom row first.
func PackBGRA8(src image.Image) media.RawFrame {
	rgba := toRGBA(src)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	stride := w * 4
	buf := make([]byte, stride*h)

	for y := 0; y < h; y++ {
		row := buf[(h-1-y)*stride:]
		for x := 0; x < w; x++ {
			px := rgba.Pix[y*rgba.Stride+x*4:]
			row[x*4+0] = px[2]
			row[x*4+1] = px[1]
			row[x*4+2] = px[0]
			row[x*4+3] = px[3]
		}
	}

	return media.RawFrame{
		Format:   media.FormatBGRA8,
		Width:    w,
		Height:   h,
		Planes:   [][]byte{buf},
		Strides:  []int{stride},
		BottomUp: true,
	}
}

// PackBGRA16 lays out an image as 16-bit BGRA with samples in 0..32768, bottom row first.
func PackBGRA16(src image.Image) media.RawFrame {
	rgba := toRGBA(src)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	stride := w * 8
	buf := make([]byte, stride*h)

	to16 := func(v uint8) uint16 {
		return uint16((int(v)*32768 + 127) / 255)
	}

	for y := 0; y < h; y++ {
		row := buf[(h-1-y)*stride:]
		for x := 0; x < w; x++ {
			px := rgba.Pix[y*rgba.Stride+x*4:]
			out := row[x*8:]
			binary.NativeEndian.PutUint16(out[0:], to16(px[2]))
			binary.NativeEndian.PutUint16(out[2:], to16(px[1]))
			binary.NativeEndian.PutUint16(out[4:], to16(px[0]))
			binary.NativeEndian.PutUint16(out[6:], to16(px[3]))
		}
	}

	return media.RawFrame{
		Format:   media.FormatBGRA16,
		Width:    w,
		Height:   h,
		Planes:   [][]byte{buf},
		Strides:  []int{stride},
		BottomUp: true,
	}
}

// PlanarFrame wraps an Image as a raw I420 host frame.
func PlanarFrame(img *media.Image) media.RawFrame {
	return media.RawFrame{
		Format:  media.FormatI420,
		Width:   img.Width,
		Height:  img.Height,
		Planes:  [][]byte{img.Y, img.U, img.V},
		Strides: []int{img.YStride, img.CStride, img.CStride},
	}
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, src, b.Min, draw.Src)
	return rgba
}
