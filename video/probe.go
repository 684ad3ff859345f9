package video

import (
	"io"

	"github.com/pkg/errors"
)

// Probe returns the first sample at or after the given second, or the last
// sample when the video is shorter. Earlier samples are released.
//
// Arguments:
//   - sampler: The sampler to read from.
//   - at: The requested timestamp in seconds.
//
// Returns:
//   - FrameSample: The probe frame, owned by the caller.
//   - error: An error if the video has no frames at all.
func Probe(sampler *Sampler, at float64) (FrameSample, error) {
	var last FrameSample
	found := false

	for {
		sample, err := sampler.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if found {
				last.Close()
			}
			return FrameSample{}, err
		}

		if found {
			last.Close()
		}
		last, found = sample, true

		if sample.Timestamp >= at {
			break
		}
	}

	if !found {
		return FrameSample{}, errors.New("video has no frames to probe")
	}
	return last, nil
}
