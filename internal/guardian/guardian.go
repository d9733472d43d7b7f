package guardian

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/metrics"
)

const shardCount = 16

// Guardian is the flood/abuse gate. It keeps a sliding window of recent
// event timestamps per user and permanently bans anyone who exceeds the
// threshold within the window. There is no unban path at runtime.
type Guardian struct {
	window    time.Duration
	threshold int
	log       *slog.Logger

	now   func() time.Time
	onBan func(userID int64)

	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	windows map[int64][]time.Time
	banned  map[int64]bool
}

// New creates a Guardian banning users that produce more than threshold
// events inside window. onBan is invoked once per ban, outside any lock;
// it may be nil.
func New(window time.Duration, threshold int, onBan func(userID int64), log *slog.Logger) *Guardian {
	g := &Guardian{
		window:    window,
		threshold: threshold,
		log:       log,
		now:       time.Now,
		onBan:     onBan,
	}
	for i := range g.shards {
		g.shards[i].windows = make(map[int64][]time.Time)
		g.shards[i].banned = make(map[int64]bool)
	}
	return g
}

func (g *Guardian) shardFor(userID int64) *shard {
	idx := userID % shardCount
	if idx < 0 {
		idx = -idx
	}
	return &g.shards[idx]
}

// Admit reports whether an event from userID should be processed.
// Privileged ids are always admitted and never observed.
func (g *Guardian) Admit(userID int64, privileged bool) bool {
	if privileged {
		return true
	}

	sh := g.shardFor(userID)
	sh.mu.Lock()

	if sh.banned[userID] {
		sh.mu.Unlock()
		metrics.FloodRejectionsTotal.Inc()
		return false
	}

	now := g.now()
	win := append(sh.windows[userID], now)

	// Drop entries that fell out of the trailing window
	cutoff := now.Add(-g.window)
	for len(win) > 0 && win[0].Before(cutoff) {
		win = win[1:]
	}

	if len(win) > g.threshold {
		sh.banned[userID] = true
		delete(sh.windows, userID)
		sh.mu.Unlock()

		metrics.FloodBansTotal.Inc()
		g.log.Warn("user banned for flooding",
			"user_id", userID,
			"events_in_window", len(win),
			"threshold", g.threshold,
		)
		if g.onBan != nil {
			g.onBan(userID)
		}
		return false
	}

	sh.windows[userID] = win
	sh.mu.Unlock()
	return true
}

// IsBanned reports whether userID has been banned.
func (g *Guardian) IsBanned(userID int64) bool {
	sh := g.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.banned[userID]
}

// Run sweeps stale windows until ctx is cancelled so idle users do not
// pin memory. Ban entries are kept for the process lifetime.
func (g *Guardian) Run(ctx context.Context) {
	ticker := time.NewTicker(g.window * 10)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := g.now().Add(-g.window)
			for i := range g.shards {
				sh := &g.shards[i]
				sh.mu.Lock()
				for id, win := range sh.windows {
					if len(win) == 0 || win[len(win)-1].Before(cutoff) {
						delete(sh.windows, id)
					}
				}
				sh.mu.Unlock()
			}
		}
	}
}
