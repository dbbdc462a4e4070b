package summarizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
)

// Option configures a formatter.
type Option func(*options)

type options struct {
	tr      func(string) string
	version string
}

// WithTranslator replaces go-l10n for labels.
func WithTranslator(tr func(key string) string) Option {
	return func(o *options) {
		o.tr = tr
	}
}

// WithVersion adds the webmio version to the footer.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
	}
}

func newOptions(opts []Option) options {
	o := options{tr: l10n.T}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// row is one labelled value of a section.
type row struct {
	label string
	value string
}

type section struct {
	title string
	rows  []row
}

// sections lays out the summary once for every formatter.
func sections(s *Summary, tr func(string) string) []section {
	file := section{title: tr("Container")}
	file.rows = append(file.rows,
		row{tr("File"), s.File.Path},
		row{tr("File Size"), FormatBytes(s.File.Size)},
		row{tr("Duration"), FormatDuration(s.File.DurationMs)},
		row{tr("Clusters"), fmt.Sprint(s.File.Clusters)},
	)
	if s.File.DocType != "" {
		file.rows = append(file.rows, row{tr("Doc Type"), s.File.DocType})
	}
	if s.File.WritingApp != "" {
		file.rows = append(file.rows, row{tr("Writing App"), s.File.WritingApp})
	}
	if s.File.CuePoints > 0 {
		file.rows = append(file.rows, row{tr("Cue Points"), fmt.Sprint(s.File.CuePoints)})
	}
	if s.File.CueTrack != "" {
		file.rows = append(file.rows, row{tr("Cue Track"), s.File.CueTrack})
	}
	if s.File.Passes > 0 {
		file.rows = append(file.rows, row{tr("Passes"), fmt.Sprint(s.File.Passes)})
	}
	out := []section{file}

	if v := s.Video; v != nil {
		video := section{title: tr("Video")}
		video.rows = append(video.rows,
			row{tr("Codec"), v.Codec},
			row{tr("Frame Size"), fmt.Sprintf("%dx%d", v.Width, v.Height)},
			row{tr("Frame Rate"), v.FrameRate},
			row{tr("Frame Count"), fmt.Sprint(v.Frames)},
		)
		if v.RateControl != "" {
			video.rows = append(video.rows, row{tr("Rate Control"), v.RateControl})
		}
		out = append(out, video)
	}

	if a := s.Audio; a != nil {
		audio := section{title: tr("Audio")}
		audio.rows = append(audio.rows,
			row{tr("Codec"), a.Codec},
			row{tr("Sample Rate"), fmt.Sprintf("%d Hz", a.SampleRate)},
			row{tr("Channels"), fmt.Sprint(a.Channels)},
			row{tr("Samples"), fmt.Sprint(a.Samples)},
		)
		if a.Packets > 0 {
			audio.rows = append(audio.rows, row{tr("Packets"), fmt.Sprint(a.Packets)})
		}
		out = append(out, audio)
	}
	return out
}

func (o options) title(s *Summary) string {
	if s.Title != "" {
		return s.Title
	}
	return o.tr("WebM Summary")
}

// NewMarkdownFormatter returns a Formatter producing Markdown tables.
func NewMarkdownFormatter(opts ...Option) Formatter {
	o := newOptions(opts)
	return FormatFunc(func(s *Summary) string {
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", o.title(s))
		fmt.Fprintf(&b, "%s: %s\n", o.tr("Generated"), s.GeneratedAt.Format(time.RFC3339))

		for _, sec := range sections(s, o.tr) {
			fmt.Fprintf(&b, "\n## %s\n\n", sec.title)
			fmt.Fprintf(&b, "| %s | %s |\n", o.tr("Item"), o.tr("Value"))
			b.WriteString("|------|-------|\n")
			for _, r := range sec.rows {
				fmt.Fprintf(&b, "| %s | %s |\n", r.label, r.value)
			}
		}

		fmt.Fprintf(&b, "\n---\n%s webmio", o.tr("Generated by"))
		if o.version != "" {
			fmt.Fprintf(&b, " %s", o.version)
		}
		b.WriteString("\n")
		return b.String()
	})
}

// NewTextFormatter returns a Formatter producing aligned plain text.
func NewTextFormatter(opts ...Option) Formatter {
	o := newOptions(opts)
	return FormatFunc(func(s *Summary) string {
		var b strings.Builder
		b.WriteString(o.title(s))
		b.WriteString("\n")

		for _, sec := range sections(s, o.tr) {
			width := 0
			for _, r := range sec.rows {
				if n := len([]rune(r.label)); n > width {
					width = n
				}
			}
			fmt.Fprintf(&b, "\n%s\n", sec.title)
			for _, r := range sec.rows {
				pad := width - len([]rune(r.label))
				fmt.Fprintf(&b, "  %s%s  %s\n", r.label, strings.Repeat(" ", pad), r.value)
			}
		}
		return b.String()
	})
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// FormatDuration renders milliseconds as h:mm:ss.mmm, dropping a zero hour.
func FormatDuration(ms int64) string {
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	sec := ms / 1000 % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, sec, ms%1000)
	}
	return fmt.Sprintf("%d:%02d.%03d", m, sec, ms%1000)
}
