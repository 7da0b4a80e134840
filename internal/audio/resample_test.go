package audio

import "testing"

func TestResampleSameRatePassthrough(t *testing.T) {
	pcm := SamplesToBytes([]int16{100, 200, 300, 400})
	out, err := Resample(pcm, 24000, 24000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if len(out) != len(pcm) {
		t.Fatalf("expected passthrough length %d, got %d", len(pcm), len(out))
	}
	for i := range pcm {
		if out[i] != pcm[i] {
			t.Fatalf("byte %d altered by passthrough", i)
		}
	}
}

func TestResampleDoublesLength(t *testing.T) {
	// 100ms at 24kHz
	in := make([]int16, 2400)
	for i := range in {
		in[i] = int16(i % 500)
	}

	out, err := Resample(SamplesToBytes(in), 24000, 48000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}

	gotSamples := len(out) / BytesPerSample
	want := len(in) * 2
	// linear interpolation may trim a few boundary samples
	if gotSamples < want-16 || gotSamples > want+16 {
		t.Errorf("expected ~%d samples at 48kHz, got %d", want, gotSamples)
	}
}

func TestResampleRejectsOddInput(t *testing.T) {
	if _, err := Resample([]byte{1, 2, 3}, 24000, 48000); err == nil {
		t.Error("expected error for odd byte count")
	}
}

func TestResampleRejectsBadRates(t *testing.T) {
	if _, err := Resample(nil, 0, 24000); err == nil {
		t.Error("expected error for zero rate")
	}
}
