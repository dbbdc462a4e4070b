//go:build vpx && cgo

package vpx

/*
#cgo pkg-config: vpx
#include <vpx/vpx_encoder.h>
#include <vpx/vp8cx.h>
#include <stdlib.h>
#include <string.h>

static vpx_codec_iface_t* encoder_iface(int vp9) {
    return vp9 ? vpx_codec_vp9_cx() : vpx_codec_vp8_cx();
}

static vpx_codec_err_t init_encoder(vpx_codec_ctx_t *ctx, vpx_codec_iface_t *iface,
                                    vpx_codec_enc_cfg_t *cfg) {
    return vpx_codec_enc_init(ctx, iface, cfg, 0);
}

static vpx_codec_err_t set_cpu_used(vpx_codec_ctx_t *ctx, int value) {
    return vpx_codec_control(ctx, VP8E_SET_CPUUSED, value);
}

static vpx_codec_err_t set_control(vpx_codec_ctx_t *ctx, int id, int value) {
    return vpx_codec_control_(ctx, id, value);
}

static vpx_codec_err_t set_cq_level(vpx_codec_ctx_t *ctx, int value) {
    return vpx_codec_control(ctx, VP8E_SET_CQ_LEVEL, value);
}

static void set_stats(vpx_codec_enc_cfg_t *cfg, void *buf, size_t sz) {
    cfg->rc_twopass_stats_in.buf = buf;
    cfg->rc_twopass_stats_in.sz = sz;
}

static int pkt_kind(const vpx_codec_cx_pkt_t *pkt) { return pkt->kind; }
static void* frame_buf(const vpx_codec_cx_pkt_t *pkt) { return pkt->data.frame.buf; }
static size_t frame_sz(const vpx_codec_cx_pkt_t *pkt) { return pkt->data.frame.sz; }
static vpx_codec_pts_t frame_pts(const vpx_codec_cx_pkt_t *pkt) { return pkt->data.frame.pts; }
static unsigned long frame_duration(const vpx_codec_cx_pkt_t *pkt) { return pkt->data.frame.duration; }
static int frame_is_key(const vpx_codec_cx_pkt_t *pkt) { return (pkt->data.frame.flags & VPX_FRAME_IS_KEY) != 0; }
static void* stats_buf(const vpx_codec_cx_pkt_t *pkt) { return pkt->data.twopass_stats.buf; }
static size_t stats_sz(const vpx_codec_cx_pkt_t *pkt) { return pkt->data.twopass_stats.sz; }

static unsigned char* img_plane(vpx_image_t *img, int plane) { return img->planes[plane]; }
static int img_stride(vpx_image_t *img, int plane) { return img->stride[plane]; }
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// Encoder implements ports.VideoEncoder using libvpx.
type Encoder struct {
	mu sync.Mutex

	codec    *C.vpx_codec_ctx_t
	cfg      *C.vpx_codec_enc_cfg_t
	rawFrame *C.vpx_image_t
	stats    unsafe.Pointer

	width    int
	height   int
	pass     ports.EncodePass
	deadline C.ulong
}

// controlIDs maps control names onto libvpx control ids.
var controlIDs = map[string]C.int{
	"arnr-maxframes":    C.VP8E_SET_ARNR_MAXFRAMES,
	"arnr-strength":     C.VP8E_SET_ARNR_STRENGTH,
	"auto-alt-ref":      C.VP8E_SET_ENABLEAUTOALTREF,
	"cpu-used":          C.VP8E_SET_CPUUSED,
	"max-intra-rate":    C.VP8E_SET_MAX_INTRA_BITRATE_PCT,
	"noise-sensitivity": C.VP8E_SET_NOISE_SENSITIVITY,
	"sharpness":         C.VP8E_SET_SHARPNESS,
	"static-thresh":     C.VP8E_SET_STATIC_THRESHOLD,
	"tile-columns":      C.VP9E_SET_TILE_COLUMNS,
}

// New creates a new VP8/VP9 encoder.
func New() *Encoder {
	return &Encoder{}
}

// Available reports whether libvpx is linked in.
func Available() bool {
	return true
}

// Begin initializes the encoder for one pass.
func (e *Encoder) Begin(cfg ports.VideoEncoderConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !Handles(cfg.Codec) {
		return fmt.Errorf("%w: %s", ErrCodecMismatch, cfg.Codec)
	}
	if err := ValidateControls(cfg.Codec, cfg.Controls); err != nil {
		return err
	}
	e.cleanup()

	e.width = cfg.Width
	e.height = cfg.Height
	e.pass = cfg.Pass
	e.deadline = C.ulong(DeadlineMicros(cfg.Deadline))

	e.codec = (*C.vpx_codec_ctx_t)(C.malloc(C.sizeof_vpx_codec_ctx_t))
	if e.codec == nil {
		return fmt.Errorf("failed to allocate codec context")
	}
	C.memset(unsafe.Pointer(e.codec), 0, C.sizeof_vpx_codec_ctx_t)

	e.cfg = (*C.vpx_codec_enc_cfg_t)(C.malloc(C.sizeof_vpx_codec_enc_cfg_t))
	if e.cfg == nil {
		e.cleanup()
		return fmt.Errorf("failed to allocate encoder config")
	}

	vp9 := 0
	if cfg.Codec == media.CodecVP9 {
		vp9 = 1
	}
	iface := C.encoder_iface(C.int(vp9))

	if res := C.vpx_codec_enc_config_default(iface, e.cfg, 0); res != C.VPX_CODEC_OK {
		e.cleanup()
		return fmt.Errorf("failed to get default config: %d", res)
	}

	e.cfg.g_w = C.uint(cfg.Width)
	e.cfg.g_h = C.uint(cfg.Height)
	e.cfg.g_timebase.num = C.int(cfg.Timebase.Num)
	e.cfg.g_timebase.den = C.int(cfg.Timebase.Den)
	if cfg.Threads > 0 {
		e.cfg.g_threads = C.uint(cfg.Threads)
	}

	switch cfg.RateControl {
	case ports.RateCBR:
		e.cfg.rc_end_usage = C.VPX_CBR
	case ports.RateVBR:
		e.cfg.rc_end_usage = C.VPX_VBR
	default:
		e.cfg.rc_end_usage = C.VPX_CQ
	}
	if cfg.BitrateKbps > 0 {
		e.cfg.rc_target_bitrate = C.uint(cfg.BitrateKbps)
	}
	if cfg.MaxQuantizer > 0 {
		e.cfg.rc_min_quantizer = C.uint(cfg.MinQuantizer)
		e.cfg.rc_max_quantizer = C.uint(cfg.MaxQuantizer)
	}
	if cfg.KeyframeMaxDist > 0 {
		e.cfg.kf_max_dist = C.uint(cfg.KeyframeMaxDist)
	}

	switch cfg.Pass {
	case ports.PassFirst:
		e.cfg.g_pass = C.VPX_RC_FIRST_PASS
	case ports.PassLast:
		e.cfg.g_pass = C.VPX_RC_LAST_PASS
		e.stats = C.CBytes(cfg.Stats)
		C.set_stats(e.cfg, e.stats, C.size_t(len(cfg.Stats)))
	default:
		e.cfg.g_pass = C.VPX_RC_ONE_PASS
	}

	if res := C.init_encoder(e.codec, iface, e.cfg); res != C.VPX_CODEC_OK {
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
		e.cleanup()
		return fmt.Errorf("failed to initialize encoder: %d", res)
	}

	C.set_cpu_used(e.codec, 4)
	if cfg.RateControl == ports.RateCQ {
		C.set_cq_level(e.codec, C.int(cfg.Quantizer))
	}
	for name, value := range cfg.Controls {
		if res := C.set_control(e.codec, controlIDs[name], C.int(value)); res != C.VPX_CODEC_OK {
			e.cleanup()
			return fmt.Errorf("set control %s=%d: %d", name, value, res)
		}
	}

	e.rawFrame = (*C.vpx_image_t)(C.malloc(C.sizeof_vpx_image_t))
	if e.rawFrame == nil {
		e.cleanup()
		return fmt.Errorf("failed to allocate raw frame")
	}
	if C.vpx_img_alloc(e.rawFrame, C.VPX_IMG_FMT_I420, C.uint(cfg.Width), C.uint(cfg.Height), 32) == nil {
		C.free(unsafe.Pointer(e.rawFrame))
		e.rawFrame = nil
		e.cleanup()
		return fmt.Errorf("failed to allocate image buffer")
	}

	return nil
}

// Encode submits a frame, or flushes with a nil image, and drains output.
func (e *Encoder) Encode(img *media.Image, pts, duration int64) ([]media.Packet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec == nil {
		return nil, ErrNotInitialized
	}

	var res C.vpx_codec_err_t
	if img == nil {
		res = C.vpx_codec_encode(e.codec, nil, 0, 1, 0, e.deadline)
	} else {
		e.copyImage(img)
		res = C.vpx_codec_encode(e.codec, e.rawFrame, C.vpx_codec_pts_t(pts), C.ulong(duration), 0, e.deadline)
	}
	if res != C.VPX_CODEC_OK {
		return nil, fmt.Errorf("encoding failed: %d", res)
	}

	return e.drain(), nil
}

func (e *Encoder) drain() []media.Packet {
	var out []media.Packet
	var iter C.vpx_codec_iter_t
	for {
		pkt := C.vpx_codec_get_cx_data(e.codec, &iter)
		if pkt == nil {
			break
		}
		switch C.pkt_kind(pkt) {
		case C.VPX_CODEC_CX_FRAME_PKT:
			out = append(out, media.Packet{
				Kind:     media.PacketFrame,
				Data:     C.GoBytes(C.frame_buf(pkt), C.int(C.frame_sz(pkt))),
				PTS:      int64(C.frame_pts(pkt)),
				Duration: int64(C.frame_duration(pkt)),
				Keyframe: C.frame_is_key(pkt) != 0,
			})
		case C.VPX_CODEC_STATS_PKT:
			out = append(out, media.Packet{
				Kind: media.PacketStats,
				Data: C.GoBytes(C.stats_buf(pkt), C.int(C.stats_sz(pkt))),
			})
		}
	}
	return out
}

func (e *Encoder) copyImage(img *media.Image) {
	planes := [3][]byte{img.Y, img.U, img.V}
	strides := [3]int{img.YStride, img.CStride, img.CStride}
	cw, ch := media.ChromaSize(img.Width, img.Height)
	widths := [3]int{img.Width, cw, cw}
	heights := [3]int{img.Height, ch, ch}

	for p := 0; p < 3; p++ {
		dst := C.img_plane(e.rawFrame, C.int(p))
		dstStride := int(C.img_stride(e.rawFrame, C.int(p)))
		for y := 0; y < heights[p]; y++ {
			row := planes[p][y*strides[p] : y*strides[p]+widths[p]]
			C.memcpy(unsafe.Pointer(uintptr(unsafe.Pointer(dst))+uintptr(y*dstStride)), unsafe.Pointer(&row[0]), C.size_t(widths[p]))
		}
	}
}

// End releases the encoder.
func (e *Encoder) End() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cleanup()
	return nil
}

func (e *Encoder) cleanup() {
	if e.rawFrame != nil {
		C.vpx_img_free(e.rawFrame)
		C.free(unsafe.Pointer(e.rawFrame))
		e.rawFrame = nil
	}
	if e.codec != nil {
		C.vpx_codec_destroy(e.codec)
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
	}
	if e.cfg != nil {
		C.free(unsafe.Pointer(e.cfg))
		e.cfg = nil
	}
	if e.stats != nil {
		C.free(e.stats)
		e.stats = nil
	}
}

// Ensure Encoder implements ports.VideoEncoder
var _ ports.VideoEncoder = (*Encoder)(nil)
