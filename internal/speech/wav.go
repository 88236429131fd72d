package speech

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// DecodeWAV decodes a WAV stream into mono float32 samples in [-1, 1] at
// SampleRate. Multi-channel input is averaged; other rates are resampled.
func DecodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, ErrNoSpeech
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	channels := int(dec.NumChans)
	if channels <= 0 && buf.Format != nil {
		channels = buf.Format.NumChannels
	}
	if channels <= 0 {
		channels = 1
	}
	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, ErrNoSpeech
	}
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]) / scale
		}
		mono[i] = sum / float32(channels)
	}

	rate := int(dec.SampleRate)
	if rate == 0 && buf.Format != nil {
		rate = buf.Format.SampleRate
	}
	if rate == 0 {
		rate = SampleRate
	}
	return resampleLinear(mono, rate, SampleRate), nil
}

// resampleLinear resamples PCM32F from inRate to outRate using linear interpolation.
func resampleLinear(samples []float32, inRate, outRate int) []float32 {
	if inRate <= 0 || outRate <= 0 || inRate == outRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen <= 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(src - float64(i0))
		out[i] = samples[i0] + (samples[i0+1]-samples[i0])*frac
	}
	return out
}
