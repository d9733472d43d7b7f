// Package audio wraps the ffmpeg/ffprobe binaries behind small interfaces.
// Requires ffmpeg to be installed: apt-get install ffmpeg
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Prober measures the playable duration of a media file.
type Prober interface {
	// ProbeDuration returns the duration in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Transcoder converts a media file into a target format.
type Transcoder interface {
	// Transcode produces an output file next to the input and returns its path.
	Transcode(ctx context.Context, inputPath string, format Format) (string, error)
}

// FFmpeg implements Prober and Transcoder over the ffmpeg/ffprobe CLIs.
type FFmpeg struct {
	// FFmpegPath is the ffmpeg command to execute. Defaults to "ffmpeg".
	FFmpegPath string

	// FFprobePath is the ffprobe command to execute. Defaults to "ffprobe".
	FFprobePath string

	// AACBitrate constrains the M4A encoder. Defaults to "192k".
	AACBitrate string
}

// NewFFmpeg creates an FFmpeg with default command names.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		AACBitrate:  "192k",
	}
}

// ProbeDuration runs ffprobe against path.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", stdout.String(), err)
	}

	return dur, nil
}

// Transcode converts inputPath into format. Lossless targets request
// uncompressed PCM; M4A requests bitrate-constrained AAC; other containers
// use ffmpeg's default codec.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath string, format Format) (string, error) {
	outputPath := OutputFor(inputPath, format)

	args := []string{"-y", "-i", inputPath, "-vn"}
	switch {
	case format.Lossless():
		args = append(args, "-acodec", "pcm_s16le")
	case format == FormatM4A:
		args = append(args, "-acodec", "aac", "-b:a", f.AACBitrate)
	}
	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, f.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}

	return outputPath, nil
}

// Available checks that both binaries are installed and accessible.
func (f *FFmpeg) Available() bool {
	if _, err := exec.LookPath(f.FFmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(f.FFprobePath)
	return err == nil
}

// OutputFor derives the output path for an input artifact: the "_in" stem
// becomes "_out" with the target extension, in the same directory.
func OutputFor(inputPath string, format Format) string {
	dir := filepath.Dir(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	stem = strings.TrimSuffix(stem, "_in")
	return filepath.Join(dir, stem+"_out."+format.Ext())
}
