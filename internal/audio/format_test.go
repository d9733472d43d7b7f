package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, ok := ParseFormat(string(f))
		assert.True(t, ok)
		assert.Equal(t, f, got)
	}

	// Case and whitespace tolerant
	got, ok := ParseFormat(" flac ")
	assert.True(t, ok)
	assert.Equal(t, FormatFLAC, got)

	_, ok = ParseFormat("MP4")
	assert.False(t, ok)
	_, ok = ParseFormat("")
	assert.False(t, ok)
}

func TestLossless(t *testing.T) {
	assert.True(t, FormatWAV.Lossless())
	assert.True(t, FormatFLAC.Lossless())
	assert.True(t, FormatAIFF.Lossless())
	assert.False(t, FormatMP3.Lossless())
	assert.False(t, FormatOGG.Lossless())
	assert.False(t, FormatM4A.Lossless())
}

func TestOutputFor(t *testing.T) {
	assert.Equal(t, "/tmp/conv/abc_out.flac", OutputFor("/tmp/conv/abc_in.mp3", FormatFLAC))
	assert.Equal(t, "/tmp/conv/abc_out.wav", OutputFor("/tmp/conv/abc_in.ogg", FormatWAV))
}
