// Package media reads playback metadata from staged video files.
package media

import (
	"errors"
	"fmt"
	"io"
	"time"

	mp4 "github.com/abema/go-mp4"
)

// ErrUnsupported is returned for files that are not ISO-BMFF containers or lack a movie header.
var ErrUnsupported = errors.New("unsupported media container")

var movieHeaderPath = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()}

// sourceReader remembers the last read failure of the underlying file.
// Running out of bytes is a malformed container, not a failure.
type sourceReader struct {
	io.ReadSeeker
	err error
}

func (r *sourceReader) Read(p []byte) (int, error) {
	n, err := r.ReadSeeker.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		r.err = err
	}
	return n, err
}

// ProbeDuration returns the duration recorded in the moov/mvhd box of an .mp4 or .mov file.
func ProbeDuration(r io.ReaderAt, size int64) (time.Duration, error) {
	src := &sourceReader{ReadSeeker: io.NewSectionReader(r, 0, size)}
	boxes, err := mp4.ExtractBoxWithPayload(src, nil, movieHeaderPath)
	if src.err != nil {
		return 0, fmt.Errorf("read media: %w", src.err)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if len(boxes) == 0 {
		return 0, ErrUnsupported
	}
	mvhd, ok := boxes[0].Payload.(*mp4.Mvhd)
	if !ok || mvhd.Timescale == 0 {
		return 0, ErrUnsupported
	}

	duration := uint64(mvhd.DurationV0)
	if mvhd.GetVersion() == 1 {
		duration = mvhd.DurationV1
	}
	timescale := uint64(mvhd.Timescale)
	seconds := duration / timescale
	remainder := duration % timescale
	return time.Duration(seconds)*time.Second + time.Duration(remainder)*time.Second/time.Duration(timescale), nil
}

// FormatDuration renders d as MM:SS, or H:MM:SS from one hour up. Fractions of a second are dropped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
