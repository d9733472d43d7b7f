// Package workflow drives the per-user conversion state machine:
// upload, validation, variant choice, production, delivery, cleanup.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/audio"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/metrics"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/quota"
)

// Downloader fetches an uploaded artifact from the transport to a local path.
type Downloader interface {
	Download(ctx context.Context, fileID, destPath string) error
}

// Transport delivers produced artifacts back to the user.
type Transport interface {
	Deliver(ctx context.Context, userID int64, path string, format audio.Format, caption string) error
}

const lockStripes = 64

// Workflow orchestrates conversion sessions over the collaborating services.
// Operations for the same user are serialized through striped locks; the
// state machine is not re-entrant per user id.
type Workflow struct {
	sessions   *Sessions
	quota      *quota.Engine
	prober     audio.Prober
	transcoder audio.Transcoder
	downloader Downloader
	transport  Transport
	baseDir    string
	log        *slog.Logger

	locks [lockStripes]sync.Mutex
}

// New creates a Workflow storing temp artifacts under baseDir.
func New(q *quota.Engine, prober audio.Prober, transcoder audio.Transcoder, downloader Downloader, transport Transport, baseDir string, log *slog.Logger) *Workflow {
	return &Workflow{
		sessions:   NewSessions(),
		quota:      q,
		prober:     prober,
		transcoder: transcoder,
		downloader: downloader,
		transport:  transport,
		baseDir:    baseDir,
		log:        log,
	}
}

func (w *Workflow) lockFor(userID int64) *sync.Mutex {
	idx := userID % lockStripes
	if idx < 0 {
		idx = -idx
	}
	return &w.locks[idx]
}

// SessionState exposes the user's current state for routing decisions.
func (w *Workflow) SessionState(userID int64) State {
	return w.sessions.Get(userID).State
}

// Begin enters the workflow for a user: the quota gate is checked and a
// fresh session replaces any prior one, whose artifacts are discarded.
// On exhausted quota a QuotaExceededError is returned and no session starts.
func (w *Workflow) Begin(userID int64) (quota.Status, error) {
	mu := w.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	st, err := w.quota.ResolveStatus(userID)
	if err != nil {
		return quota.Status{}, fmt.Errorf("resolve status: %w", err)
	}
	if st.Exhausted {
		return st, &QuotaExceededError{Usage: st.DailyUsage, Limit: st.DailyLimit}
	}

	prior := w.sessions.Begin(userID)
	if prior.State != StateIdle {
		w.log.Info("replacing live session", "user_id", userID, "prior_state", prior.State.String())
		w.removeScratch(userID, prior.ScratchDir)
	}

	return st, nil
}

// Reset discards the user's session and its artifacts, if any.
func (w *Workflow) Reset(userID int64) {
	mu := w.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	if sess, ok := w.sessions.End(userID); ok {
		w.removeScratch(userID, sess.ScratchDir)
	}
}

// Receive accepts an uploaded artifact for a user awaiting one: the file is
// fetched into a scoped scratch dir, probed, and checked against the
// currently resolved tier's duration cap. On any failure the scratch dir is
// deleted and the session ends.
func (w *Workflow) Receive(ctx context.Context, userID int64, att Attachment) error {
	mu := w.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	if _, ok := w.sessions.Transition(userID, StateAwaitingArtifact, StateValidating); !ok {
		return ErrNoActiveSession
	}

	scratch := filepath.Join(w.baseDir, uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		w.fail(userID, "")
		return fmt.Errorf("create scratch dir: %w", err)
	}
	w.sessions.Update(userID, func(s *Session) { s.ScratchDir = scratch })

	inputPath := filepath.Join(scratch, att.FileID+"_in"+att.Ext())
	if err := w.downloader.Download(ctx, att.FileID, inputPath); err != nil {
		w.fail(userID, scratch)
		return fmt.Errorf("download artifact: %w", err)
	}

	dur, err := w.prober.ProbeDuration(ctx, inputPath)
	if err != nil {
		w.log.Info("probe failed", "user_id", userID, "error", err)
		w.fail(userID, scratch)
		return ErrCorruptInput
	}

	// Re-resolve the tier here: a subscription expiring mid-flow lowers
	// the cap for this very upload.
	st, err := w.quota.ResolveStatus(userID)
	if err != nil {
		w.fail(userID, scratch)
		return fmt.Errorf("resolve status: %w", err)
	}
	if dur > float64(st.DurationCap) {
		w.fail(userID, scratch)
		return &DurationExceededError{CapSeconds: st.DurationCap, Seconds: dur}
	}

	w.sessions.Update(userID, func(s *Session) { s.InputPath = inputPath })
	if _, ok := w.sessions.Transition(userID, StateValidating, StateAwaitingChoice); !ok {
		w.removeScratch(userID, scratch)
		return ErrNoActiveSession
	}

	return nil
}

// Choose selects the output variant and runs the session to completion:
// produce, deliver, record usage, clean up. A string outside the variant set
// returns ErrUnknownFormat and leaves the session untouched.
func (w *Workflow) Choose(ctx context.Context, userID int64, formatStr string) error {
	format, ok := audio.ParseFormat(formatStr)
	if !ok {
		return ErrUnknownFormat
	}

	mu := w.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	sess, ok := w.sessions.Transition(userID, StateAwaitingChoice, StateProducing)
	if !ok {
		return ErrNoActiveSession
	}
	w.sessions.Update(userID, func(s *Session) { s.Format = format })

	outputPath, err := w.transcoder.Transcode(ctx, sess.InputPath, format)
	if err != nil {
		w.log.Error("transcode", "user_id", userID, "format", format, "error", err)
		metrics.ConversionsTotal.WithLabelValues(string(format), "conversion_error").Inc()
		w.fail(userID, sess.ScratchDir)
		return ErrConversionFailed
	}

	w.sessions.Transition(userID, StateProducing, StateDelivering)

	caption := "✅ " + string(format)
	if err := w.transport.Deliver(ctx, userID, outputPath, format, caption); err != nil {
		w.log.Error("deliver", "user_id", userID, "format", format, "error", err)
		metrics.ConversionsTotal.WithLabelValues(string(format), "delivery_error").Inc()
		w.fail(userID, sess.ScratchDir)
		return ErrDeliveryFailed
	}

	// Usage counts only after successful delivery. A failed increment is a
	// defect to log, not a reason to fail the user's completed conversion.
	if err := w.quota.RecordUsage(userID); err != nil {
		w.log.Error("record usage", "user_id", userID, "error", err)
	}

	metrics.ConversionsTotal.WithLabelValues(string(format), "success").Inc()
	w.sessions.End(userID)
	w.removeScratch(userID, sess.ScratchDir)
	return nil
}

// fail ends the session and discards its artifacts.
func (w *Workflow) fail(userID int64, scratch string) {
	w.sessions.End(userID)
	w.removeScratch(userID, scratch)
}

// removeScratch deletes a session's scratch dir. Errors are swallowed; they
// never mask the outcome reported to the user.
func (w *Workflow) removeScratch(userID int64, scratch string) {
	if scratch == "" {
		return
	}
	if err := os.RemoveAll(scratch); err != nil {
		w.log.Warn("remove scratch dir", "user_id", userID, "dir", scratch, "error", err)
	}
}
