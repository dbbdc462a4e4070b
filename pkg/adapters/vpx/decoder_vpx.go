//go:build vpx && cgo

package vpx

/*
#cgo pkg-config: vpx
#include <vpx/vpx_decoder.h>
#include <vpx/vp8dx.h>
#include <stdlib.h>
#include <string.h>

static vpx_codec_iface_t* decoder_iface(int vp9) {
    return vp9 ? vpx_codec_vp9_dx() : vpx_codec_vp8_dx();
}

static vpx_codec_err_t init_decoder(vpx_codec_ctx_t *ctx, vpx_codec_iface_t *iface,
                                    unsigned int threads, unsigned int w, unsigned int h, int frame_threading) {
    vpx_codec_dec_cfg_t cfg;
    cfg.threads = threads;
    cfg.w = w;
    cfg.h = h;
    vpx_codec_flags_t flags = 0;
    if (frame_threading && (vpx_codec_get_caps(iface) & VPX_CODEC_CAP_FRAME_THREADING)) {
        flags |= VPX_CODEC_USE_FRAME_THREADING;
    }
    return vpx_codec_dec_init(ctx, iface, &cfg, flags);
}

static unsigned char* dec_plane(vpx_image_t *img, int plane) { return img->planes[plane]; }
static int dec_stride(vpx_image_t *img, int plane) { return img->stride[plane]; }
static unsigned int dec_width(vpx_image_t *img) { return img->d_w; }
static unsigned int dec_height(vpx_image_t *img) { return img->d_h; }
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// Decoder implements ports.VideoDecoder using libvpx.
type Decoder struct {
	codec *C.vpx_codec_ctx_t
}

// NewDecoder creates a new VP8/VP9 decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Begin initializes the decoder.
func (d *Decoder) Begin(cfg ports.VideoDecoderConfig) error {
	if !Handles(cfg.Codec) {
		return fmt.Errorf("%w: %s", ErrCodecMismatch, cfg.Codec)
	}
	d.End()

	d.codec = (*C.vpx_codec_ctx_t)(C.malloc(C.sizeof_vpx_codec_ctx_t))
	if d.codec == nil {
		return fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_vpx_codec_ctx_t)

	vp9 := 0
	if cfg.Codec == media.CodecVP9 {
		vp9 = 1
	}
	ft := 0
	if cfg.FrameThreading {
		ft = 1
	}
	iface := C.decoder_iface(C.int(vp9))
	if res := C.init_decoder(d.codec, iface, C.uint(cfg.Threads), C.uint(cfg.Width), C.uint(cfg.Height), C.int(ft)); res != C.VPX_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return fmt.Errorf("failed to initialize decoder: %d", res)
	}
	return nil
}

// Decode feeds one frame and returns every picture ready.
func (d *Decoder) Decode(data []byte) ([]*media.Image, error) {
	if d.codec == nil {
		return nil, ErrNotInitialized
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}

	res := C.vpx_codec_decode(d.codec, (*C.uint8_t)(unsafe.Pointer(&data[0])), C.uint(len(data)), nil, 0)
	if res != C.VPX_CODEC_OK {
		return nil, fmt.Errorf("decode failed: %d", res)
	}

	var out []*media.Image
	var iter C.vpx_codec_iter_t
	for {
		img := C.vpx_codec_get_frame(d.codec, &iter)
		if img == nil {
			break
		}
		out = append(out, toImage(img))
	}
	return out, nil
}

func toImage(img *C.vpx_image_t) *media.Image {
	w := int(C.dec_width(img))
	h := int(C.dec_height(img))
	out := media.NewImage(w, h)
	cw, ch := media.ChromaSize(w, h)

	dst := [3][]byte{out.Y, out.U, out.V}
	widths := [3]int{w, cw, cw}
	heights := [3]int{h, ch, ch}
	for p := 0; p < 3; p++ {
		src := unsafe.Pointer(C.dec_plane(img, C.int(p)))
		stride := int(C.dec_stride(img, C.int(p)))
		for y := 0; y < heights[p]; y++ {
			row := unsafe.Slice((*byte)(unsafe.Add(src, y*stride)), widths[p])
			copy(dst[p][y*widths[p]:], row)
		}
	}
	return out
}

// End releases decoder resources.
func (d *Decoder) End() {
	if d.codec != nil {
		C.vpx_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

var _ ports.VideoDecoder = (*Decoder)(nil)
