package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/audio"
)

// Download fetches a telegram file by its file id into destPath.
func (b *Bot) Download(ctx context.Context, fileID, destPath string) error {
	file, err := b.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return fmt.Errorf("get file %s: %w", fileID, err)
	}

	link := b.bot.FileDownloadLink(file)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", destPath, err)
	}

	return out.Close()
}

// Deliver sends a produced file back to the user. OGG goes as a document
// so telegram does not re-encode it into a voice message.
func (b *Bot) Deliver(ctx context.Context, userID int64, path string, format audio.Format, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	upload := &models.InputFileUpload{
		Filename: filepath.Base(path),
		Data:     f,
	}

	if format == audio.FormatOGG {
		_, err = b.bot.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:   userID,
			Document: upload,
			Caption:  caption,
		})
	} else {
		_, err = b.bot.SendAudio(ctx, &bot.SendAudioParams{
			ChatID:  userID,
			Audio:   upload,
			Caption: caption,
			Title:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		})
	}
	if err != nil {
		return fmt.Errorf("send %s: %w", format, err)
	}

	if b.cfg.StickerID != "" {
		_, err := b.bot.SendSticker(ctx, &bot.SendStickerParams{
			ChatID:  userID,
			Sticker: &models.InputFileString{Data: b.cfg.StickerID},
		})
		if err != nil {
			b.log.Warn("send sticker", "user_id", userID, "error", err)
		}
	}

	return nil
}
