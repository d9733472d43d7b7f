package audio

import "strings"

// Format is one of the fixed output variants offered to users.
type Format string

const (
	FormatMP3  Format = "MP3"
	FormatWAV  Format = "WAV"
	FormatFLAC Format = "FLAC"
	FormatOGG  Format = "OGG"
	FormatM4A  Format = "M4A"
	FormatAIFF Format = "AIFF"
)

// Formats lists all output variants in presentation order.
func Formats() []Format {
	return []Format{FormatMP3, FormatWAV, FormatFLAC, FormatOGG, FormatM4A, FormatAIFF}
}

// ParseFormat matches s against the closed variant set.
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FormatMP3, FormatWAV, FormatFLAC, FormatOGG, FormatM4A, FormatAIFF:
		return f, true
	}
	return "", false
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	return strings.ToLower(string(f))
}

// Lossless reports whether the format gets uncompressed PCM encoding.
func (f Format) Lossless() bool {
	return f == FormatWAV || f == FormatFLAC || f == FormatAIFF
}
