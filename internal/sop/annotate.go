package sop

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kothari1/NuFleet-AI-SOP/internal/infra"
)

// timestampTag matches the tag grammar the prompt mandates: [TIMESTAMP: MM:SS]
// or [TIMESTAMP: HH:MM:SS], digits only. Anything else is ordinary text.
var timestampTag = regexp.MustCompile(`\[TIMESTAMP:\s*(\d{1,2}:\d{2}(?::\d{2})?)\]`)

// FrameExtractor produces a self-contained inline image reference (a JPEG data
// URI) for the frame at the given offset into the video.
type FrameExtractor interface {
	Snapshot(ctx context.Context, videoPath string, seconds int) (string, error)
}

// Annotator substitutes timestamp tags in generated documents with inline
// video-frame snapshots.
type Annotator struct {
	extractor FrameExtractor
	logger    *infra.Logger
}

// NewAnnotator builds an Annotator around the given extractor.
func NewAnnotator(extractor FrameExtractor, logger *infra.Logger) *Annotator {
	if logger == nil {
		discard := zerolog.Nop()
		l := infra.Logger(discard)
		logger = &l
	}
	return &Annotator{extractor: extractor, logger: logger}
}

// Annotate performs a single left-to-right pass over text, replacing each
// timestamp tag with a markdown image embedding the frame at that offset.
// A tag whose frame cannot be extracted is left verbatim; annotation never
// fails the document as a whole. Every tag resolves to exactly one
// substitution or stays untouched.
func (a *Annotator) Annotate(ctx context.Context, text, videoPath string) string {
	return timestampTag.ReplaceAllStringFunc(text, func(tag string) string {
		clock := timestampTag.FindStringSubmatch(tag)[1]
		seconds := parseClock(clock)

		uri, err := a.extractor.Snapshot(ctx, videoPath, seconds)
		if err != nil {
			a.logger.Warn().
				Err(err).
				Str("clock", clock).
				Msg("sop: frame extraction failed; leaving tag verbatim")
			return tag
		}
		return fmt.Sprintf("\n![Snapshot at %s](%s)\n", clock, uri)
	})
}

// parseClock converts MM:SS or HH:MM:SS to seconds. Malformed input yields 0
// rather than an error; a bad clock must not abort the annotation pass.
func parseClock(clock string) int {
	fields := strings.Split(clock, ":")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0
		}
		parts = append(parts, n)
	}
	switch len(parts) {
	case 2:
		return parts[0]*60 + parts[1]
	case 3:
		return parts[0]*3600 + parts[1]*60 + parts[2]
	}
	return 0
}
