package audio

import "testing"

func TestEncodingInfo(t *testing.T) {
	testCases := []struct {
		name           string
		encoding       EncodingInfo
		zero           bool
		bytesPerSecond int
		silence        byte
	}{
		{name: "default", encoding: GetDefaultEncodingInfo(), bytesPerSecond: 32000, silence: 0},
		{name: "mulaw", encoding: EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}, bytesPerSecond: 8000, silence: 0xFF},
		{name: "alaw", encoding: EncodingInfo{SampleRate: 8000, Format: EncodingALaw}, bytesPerSecond: 8000, silence: 0x55},
		{name: "missing format", encoding: EncodingInfo{SampleRate: 8000}, zero: true},
		{name: "missing sample rate", encoding: EncodingInfo{Format: EncodingLinear16}, zero: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.encoding.IsZero(); got != testCase.zero {
				t.Fatalf("expected IsZero %v, got %v", testCase.zero, got)
			}
			if got := testCase.encoding.BytesPerSecond(); got != testCase.bytesPerSecond {
				t.Fatalf("expected %d bytes per second, got %d", testCase.bytesPerSecond, got)
			}
			if got := testCase.encoding.SilenceValue(); got != testCase.silence {
				t.Fatalf("expected silence %#x, got %#x", testCase.silence, got)
			}
		})
	}
}
