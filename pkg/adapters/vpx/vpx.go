// Package vpx provides VP8 and VP9 video codecs using libvpx.
//
// The cgo implementation is compiled with the vpx build tag. Without it the
// package builds stubs that report the codecs as unavailable.
package vpx

import (
	"errors"
	"fmt"
	"sort"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

var (
	// ErrUnavailable is returned when the package was built without libvpx.
	ErrUnavailable = errors.New("vpx: libvpx support not compiled in")

	// ErrNotInitialized is returned when a codec is used before Begin.
	ErrNotInitialized = errors.New("vpx: codec not initialized")

	// ErrCodecMismatch is returned when Begin is asked for a codec other than VP8 or VP9.
	ErrCodecMismatch = errors.New("vpx: codec not handled")

	// ErrUnknownControl is returned for a control name the encoder does not map.
	ErrUnknownControl = errors.New("vpx: unknown control")
)

// Deadlines in microseconds, as vpx_codec_encode takes them.
const (
	deadlineBest     = 0
	deadlineRealtime = 1
	deadlineGood     = 1000000
)

// DeadlineMicros maps a deadline onto the libvpx value.
func DeadlineMicros(d ports.Deadline) uint64 {
	switch d {
	case ports.DeadlineRealtime:
		return deadlineRealtime
	case ports.DeadlineBest:
		return deadlineBest
	default:
		return deadlineGood
	}
}

// vp9Only lists controls VP8 rejects.
var vp9Only = map[string]bool{"tile-columns": true}

// controlNames are the encoder controls accepted in
// ports.VideoEncoderConfig.Controls.
var controlNames = []string{
	"arnr-maxframes",
	"arnr-strength",
	"auto-alt-ref",
	"cpu-used",
	"max-intra-rate",
	"noise-sensitivity",
	"sharpness",
	"static-thresh",
	"tile-columns",
}

// ControlNames returns the supported control names in sorted order.
func ControlNames() []string {
	return append([]string(nil), controlNames...)
}

// ValidateControls checks every name against the controls codecID takes.
func ValidateControls(codecID string, controls map[string]int) error {
	names := make([]string, 0, len(controls))
	for name := range controls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		i := sort.SearchStrings(controlNames, name)
		if i == len(controlNames) || controlNames[i] != name {
			return fmt.Errorf("%w: %s", ErrUnknownControl, name)
		}
		if vp9Only[name] && codecID != media.CodecVP9 {
			return fmt.Errorf("%w: %s needs %s", ErrUnknownControl, name, media.CodecVP9)
		}
	}
	return nil
}

// Handles reports whether codecID is one of the libvpx codecs.
func Handles(codecID string) bool {
	return codecID == media.CodecVP8 || codecID == media.CodecVP9
}
