package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
// It allows saving intermediate processing results for debugging purposes.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveStats saves the first-pass rate-control statistics.
	SaveStats(data []byte) error

	// SaveFrame saves a rendered or decoded frame.
	SaveFrame(index int, img image.Image) error

	// SaveReportJSON saves the export or import report.
	SaveReportJSON(data []byte) error
}
