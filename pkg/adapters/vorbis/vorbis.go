// Package vorbis provides a Vorbis audio codec using libvorbis.
//
// The cgo implementation is compiled with the vorbis build tag. Without it
// the package builds stubs that report the codec as unavailable.
package vorbis

import "errors"

var (
	// ErrUnavailable is returned when the package was built without libvorbis.
	ErrUnavailable = errors.New("vorbis: libvorbis support not compiled in")

	// ErrNotInitialized is returned when a codec is used before Begin.
	ErrNotInitialized = errors.New("vorbis: codec not initialized")

	// ErrCodecMismatch is returned when Begin is asked for another codec.
	ErrCodecMismatch = errors.New("vorbis: codec not handled")
)
