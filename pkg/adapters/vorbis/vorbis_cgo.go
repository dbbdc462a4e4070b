//go:build vorbis && cgo

package vorbis

/*
#cgo pkg-config: vorbisenc vorbis ogg
#include <vorbis/codec.h>
#include <vorbis/vorbisenc.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
    vorbis_info      vi;
    vorbis_comment   vc;
    vorbis_dsp_state vd;
    vorbis_block     vb;
    ogg_packet       op;
} vstate;

static vstate* vstate_new() {
    vstate *s = (vstate*)calloc(1, sizeof(vstate));
    return s;
}

static int enc_init(vstate *s, int channels, long rate, float quality, long bitrate) {
    vorbis_info_init(&s->vi);
    int ret;
    if (bitrate > 0) {
        ret = vorbis_encode_init(&s->vi, channels, rate, -1, bitrate, -1);
    } else {
        ret = vorbis_encode_init_vbr(&s->vi, channels, rate, quality);
    }
    if (ret != 0) {
        vorbis_info_clear(&s->vi);
        return ret;
    }
    vorbis_comment_init(&s->vc);
    vorbis_comment_add_tag(&s->vc, "ENCODER", "webmio");
    vorbis_analysis_init(&s->vd, &s->vi);
    vorbis_block_init(&s->vd, &s->vb);
    return 0;
}

static int enc_headers(vstate *s, ogg_packet *h, ogg_packet *hc, ogg_packet *hs) {
    return vorbis_analysis_headerout(&s->vd, &s->vc, h, hc, hs);
}

static float* enc_buffer(vstate *s, int n, int ch) {
    float **buf = vorbis_analysis_buffer(&s->vd, n);
    return buf[ch];
}

static void enc_wrote(vstate *s, int n) { vorbis_analysis_wrote(&s->vd, n); }

// enc_next returns 1 and fills s->op with the next packet, analyzing
// blocks only until one is flushed.
static int enc_next(vstate *s) {
    for (;;) {
        if (vorbis_bitrate_flushpacket(&s->vd, &s->op)) {
            return 1;
        }
        if (vorbis_analysis_blockout(&s->vd, &s->vb) != 1) {
            return 0;
        }
        vorbis_analysis(&s->vb, NULL);
        vorbis_bitrate_addblock(&s->vb);
    }
}

static int enc_blocksize(vstate *s) { return vorbis_info_blocksize(&s->vi, 0); }

static void vstate_clear(vstate *s) {
    vorbis_block_clear(&s->vb);
    vorbis_dsp_clear(&s->vd);
    vorbis_comment_clear(&s->vc);
    vorbis_info_clear(&s->vi);
}

static int dec_init(vstate *s, unsigned char *p0, long n0, unsigned char *p1, long n1, unsigned char *p2, long n2) {
    vorbis_info_init(&s->vi);
    vorbis_comment_init(&s->vc);
    unsigned char *parts[3] = {p0, p1, p2};
    long sizes[3] = {n0, n1, n2};
    for (int i = 0; i < 3; i++) {
        ogg_packet op;
        memset(&op, 0, sizeof(op));
        op.packet = parts[i];
        op.bytes = sizes[i];
        op.b_o_s = i == 0;
        op.packetno = i;
        int ret = vorbis_synthesis_headerin(&s->vi, &s->vc, &op);
        if (ret != 0) {
            vorbis_comment_clear(&s->vc);
            vorbis_info_clear(&s->vi);
            return ret;
        }
    }
    if (vorbis_synthesis_init(&s->vd, &s->vi) != 0) {
        vorbis_comment_clear(&s->vc);
        vorbis_info_clear(&s->vi);
        return -1;
    }
    vorbis_block_init(&s->vd, &s->vb);
    return 0;
}

static int dec_channels(vstate *s) { return s->vi.channels; }

static int dec_packet(vstate *s, unsigned char *data, long n, long packetno) {
    ogg_packet op;
    memset(&op, 0, sizeof(op));
    op.packet = data;
    op.bytes = n;
    op.packetno = packetno;
    op.granulepos = -1;
    int ret = vorbis_synthesis(&s->vb, &op);
    if (ret != 0) {
        return ret;
    }
    return vorbis_synthesis_blockin(&s->vd, &s->vb);
}

static int dec_pcm(vstate *s, float ***pcm) { return vorbis_synthesis_pcmout(&s->vd, pcm); }
static float* dec_channel(float **pcm, int ch) { return pcm[ch]; }
static void dec_read(vstate *s, int n) { vorbis_synthesis_read(&s->vd, n); }
static int dec_restart(vstate *s) { return vorbis_synthesis_restart(&s->vd); }
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// Available reports whether libvorbis is linked in.
func Available() bool {
	return true
}

// Encoder implements ports.AudioEncoder using libvorbisenc.
type Encoder struct {
	s        *C.vstate
	channels int
	granule  int64
	finished bool
}

// New creates a new Vorbis encoder.
func New() *Encoder {
	return &Encoder{}
}

// Begin initializes the encoder and returns its three header packets.
func (e *Encoder) Begin(cfg ports.AudioEncoderConfig) (ports.AudioHeaders, error) {
	if cfg.Codec != media.CodecVorbis {
		return ports.AudioHeaders{}, fmt.Errorf("%w: %s", ErrCodecMismatch, cfg.Codec)
	}
	e.End()

	e.s = C.vstate_new()
	if e.s == nil {
		return ports.AudioHeaders{}, fmt.Errorf("failed to allocate encoder state")
	}
	if ret := C.enc_init(e.s, C.int(cfg.Channels), C.long(cfg.SampleRate), C.float(cfg.Quality), C.long(cfg.BitrateKbps*1000)); ret != 0 {
		C.free(unsafe.Pointer(e.s))
		e.s = nil
		return ports.AudioHeaders{}, fmt.Errorf("failed to initialize encoder: %d", ret)
	}
	e.channels = cfg.Channels
	e.granule = 0
	e.finished = false

	var h, hc, hs C.ogg_packet
	if ret := C.enc_headers(e.s, &h, &hc, &hs); ret != 0 {
		e.End()
		return ports.AudioHeaders{}, fmt.Errorf("failed to build headers: %d", ret)
	}
	return ports.AudioHeaders{packetBytes(&h), packetBytes(&hc), packetBytes(&hs)}, nil
}

func packetBytes(op *C.ogg_packet) []byte {
	return C.GoBytes(unsafe.Pointer(op.packet), C.int(op.bytes))
}

// FrameSize returns the short block size.
func (e *Encoder) FrameSize() int {
	if e.s == nil {
		return 0
	}
	return int(C.enc_blocksize(e.s))
}

// Write submits planar samples to the analysis buffer.
func (e *Encoder) Write(samples [][]float32) error {
	if e.s == nil || e.finished {
		return ErrNotInitialized
	}
	if len(samples) != e.channels {
		return fmt.Errorf("vorbis: %d channels, expected %d", len(samples), e.channels)
	}
	n := len(samples[0])
	if n == 0 {
		return nil
	}
	for ch, s := range samples {
		buf := unsafe.Slice((*float32)(unsafe.Pointer(C.enc_buffer(e.s, C.int(n), C.int(ch)))), n)
		copy(buf, s)
	}
	C.enc_wrote(e.s, C.int(n))
	return nil
}

// Next analyzes blocks only until one packet is ready.
func (e *Encoder) Next() (media.AudioPacket, bool, error) {
	if e.s == nil {
		return media.AudioPacket{}, false, ErrNotInitialized
	}
	if C.enc_next(e.s) != 1 {
		return media.AudioPacket{}, false, nil
	}
	op := &e.s.op
	granule := int64(op.granulepos)
	pkt := media.AudioPacket{
		Data:    packetBytes(op),
		Granule: granule,
		Samples: int(granule - e.granule),
	}
	e.granule = granule
	return pkt, true, nil
}

// Finish marks end of stream.
func (e *Encoder) Finish() error {
	if e.s == nil {
		return ErrNotInitialized
	}
	if !e.finished {
		e.finished = true
		C.enc_wrote(e.s, 0)
	}
	return nil
}

// End releases the encoder.
func (e *Encoder) End() error {
	if e.s != nil {
		C.vstate_clear(e.s)
		C.free(unsafe.Pointer(e.s))
		e.s = nil
	}
	return nil
}

// Decoder implements ports.AudioDecoder using libvorbis.
type Decoder struct {
	s        *C.vstate
	channels int
	packetNo int64
}

// NewDecoder creates a new Vorbis decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Begin parses the three header packets.
func (d *Decoder) Begin(cfg ports.AudioDecoderConfig) error {
	if cfg.Codec != media.CodecVorbis {
		return fmt.Errorf("%w: %s", ErrCodecMismatch, cfg.Codec)
	}
	for i, h := range cfg.Headers {
		if len(h) == 0 {
			return fmt.Errorf("vorbis: header %d is empty", i)
		}
	}
	d.End()

	d.s = C.vstate_new()
	if d.s == nil {
		return fmt.Errorf("failed to allocate decoder state")
	}
	h0 := C.CBytes(cfg.Headers[0])
	h1 := C.CBytes(cfg.Headers[1])
	h2 := C.CBytes(cfg.Headers[2])
	defer C.free(h0)
	defer C.free(h1)
	defer C.free(h2)

	ret := C.dec_init(d.s,
		(*C.uchar)(h0), C.long(len(cfg.Headers[0])),
		(*C.uchar)(h1), C.long(len(cfg.Headers[1])),
		(*C.uchar)(h2), C.long(len(cfg.Headers[2])))
	if ret != 0 {
		C.free(unsafe.Pointer(d.s))
		d.s = nil
		return fmt.Errorf("failed to parse headers: %d", ret)
	}
	d.channels = int(C.dec_channels(d.s))
	d.packetNo = 3
	return nil
}

// Decode feeds one packet and returns the planar samples it completes.
func (d *Decoder) Decode(data []byte) ([][]float32, error) {
	if d.s == nil {
		return nil, ErrNotInitialized
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty packet")
	}

	buf := C.CBytes(data)
	defer C.free(buf)
	if ret := C.dec_packet(d.s, (*C.uchar)(buf), C.long(len(data)), C.long(d.packetNo)); ret != 0 {
		return nil, fmt.Errorf("decode failed: %d", ret)
	}
	d.packetNo++

	out := make([][]float32, d.channels)
	for {
		var pcm **C.float
		n := int(C.dec_pcm(d.s, &pcm))
		if n <= 0 {
			break
		}
		for ch := range out {
			src := unsafe.Slice((*float32)(unsafe.Pointer(C.dec_channel(pcm, C.int(ch)))), n)
			out[ch] = append(out[ch], src...)
		}
		C.dec_read(d.s, C.int(n))
	}
	return out, nil
}

// Reset discards overlap state after a seek.
func (d *Decoder) Reset() error {
	if d.s == nil {
		return ErrNotInitialized
	}
	if ret := C.dec_restart(d.s); ret != 0 {
		return fmt.Errorf("restart failed: %d", ret)
	}
	return nil
}

// End releases decoder resources.
func (d *Decoder) End() {
	if d.s != nil {
		C.vstate_clear(d.s)
		C.free(unsafe.Pointer(d.s))
		d.s = nil
	}
}

var (
	_ ports.AudioEncoder = (*Encoder)(nil)
	_ ports.AudioDecoder = (*Decoder)(nil)
)
