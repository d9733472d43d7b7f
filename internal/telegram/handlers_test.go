package telegram

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/workflow"
)

func TestExtractAttachment(t *testing.T) {
	tests := []struct {
		name     string
		msg      *models.Message
		wantKind workflow.Kind
		wantID   string
	}{
		{
			name:     "audio",
			msg:      &models.Message{Audio: &models.Audio{FileID: "a1", FileName: "song.flac"}},
			wantKind: workflow.KindAudio,
			wantID:   "a1",
		},
		{
			name:     "voice",
			msg:      &models.Message{Voice: &models.Voice{FileID: "v1"}},
			wantKind: workflow.KindVoice,
			wantID:   "v1",
		},
		{
			name:     "video",
			msg:      &models.Message{Video: &models.Video{FileID: "vid1", FileName: "clip.mp4"}},
			wantKind: workflow.KindVideo,
			wantID:   "vid1",
		},
		{
			name:     "document",
			msg:      &models.Message{Document: &models.Document{FileID: "d1", FileName: "track.wav"}},
			wantKind: workflow.KindDocument,
			wantID:   "d1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att, err := extractAttachment(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, att.Kind)
			assert.Equal(t, tt.wantID, att.FileID)
		})
	}
}

func TestExtractAttachmentAudioWinsOverDocument(t *testing.T) {
	msg := &models.Message{
		Audio:    &models.Audio{FileID: "a1"},
		Document: &models.Document{FileID: "d1"},
	}

	att, err := extractAttachment(msg)
	require.NoError(t, err)
	assert.Equal(t, workflow.KindAudio, att.Kind)
	assert.Equal(t, "a1", att.FileID)
}

func TestExtractAttachmentUnsupported(t *testing.T) {
	_, err := extractAttachment(&models.Message{Text: "hello"})
	assert.ErrorIs(t, err, workflow.ErrUnsupportedType)
}
