package workflow

import "path/filepath"

// Kind is the closed set of accepted upload content types.
type Kind int

const (
	KindAudio Kind = iota
	KindVoice
	KindVideo
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVoice:
		return "voice"
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	}
	return "unknown"
}

// Attachment identifies an uploaded artifact to be fetched from the transport.
type Attachment struct {
	Kind     Kind
	FileID   string
	FileName string // declared filename, may be empty
}

// Ext returns the input file extension (with dot), inferred from the declared
// filename or falling back to a type-specific default.
func (a Attachment) Ext() string {
	if ext := filepath.Ext(a.FileName); ext != "" {
		return ext
	}

	switch a.Kind {
	case KindVoice:
		return ".ogg"
	case KindVideo:
		return ".mp4"
	case KindAudio:
		return ".mp3"
	default:
		return ".dat"
	}
}
