package deepgram

import (
	"errors"
	"fmt"

	"github.com/koscakluka/ema-interview/core/audio"
)

var errUnsupportedEncoding = errors.New("unsupported encoding")

type encodingInfo struct {
	SampleRate int
	Format     string
}

// convertEncoding maps the capture encoding onto the subset deepgram's
// listen endpoint accepts for raw audio.
func convertEncoding(encoding audio.EncodingInfo) (encodingInfo, error) {
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
	default:
		return encodingInfo{}, fmt.Errorf("%w: sample rate %d", errUnsupportedEncoding, encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
	case audio.EncodingALaw, audio.EncodingMulaw:
		if encoding.SampleRate != 8000 {
			return encodingInfo{}, fmt.Errorf("%w: %s requires 8000Hz, got %d", errUnsupportedEncoding, encoding.Format.Name(), encoding.SampleRate)
		}
	default:
		return encodingInfo{}, fmt.Errorf("%w: format %q", errUnsupportedEncoding, encoding.Format.Name())
	}

	return encodingInfo{SampleRate: encoding.SampleRate, Format: encoding.Format.Name()}, nil
}
