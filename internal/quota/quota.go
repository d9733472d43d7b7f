// Package quota resolves a user's effective tier and enforces daily and
// duration limits, subscription expiry and one-time referral bonuses.
package quota

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/metrics"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/storage"
)

const (
	subscriptionDays   = 31
	referralBonusHours = 24
	lockStripes        = 64
)

// Limit is the per-tier usage policy.
type Limit struct {
	Daily           int
	DurationSeconds int
}

var limits = map[storage.Tier]Limit{
	storage.TierFree: {Daily: 3, DurationSeconds: 20},
	storage.TierPlus: {Daily: 15, DurationSeconds: 120},
	storage.TierPro:  {Daily: 30, DurationSeconds: 480},
}

// LimitFor returns the usage policy for a tier.
func LimitFor(tier storage.Tier) Limit {
	if l, ok := limits[tier]; ok {
		return l
	}
	return limits[storage.TierFree]
}

// Status is the result of resolving a user's quota state.
type Status struct {
	Tier        storage.Tier
	DailyUsage  int
	DailyLimit  int
	DurationCap int // seconds
	Exhausted   bool
}

// Engine evaluates quota and subscription state over the store.
// Same-user evaluation is serialized through striped locks.
type Engine struct {
	store *storage.Storage
	log   *slog.Logger
	now   func() time.Time

	locks [lockStripes]sync.Mutex
}

// New creates an Engine over the given store.
func New(store *storage.Storage, log *slog.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

func (e *Engine) lockFor(userID int64) *sync.Mutex {
	idx := userID % lockStripes
	if idx < 0 {
		idx = -idx
	}
	return &e.locks[idx]
}

// ResolveStatus evaluates the user's current tier, daily usage and limits.
// It lazily creates absent accounts, downgrades expired subscriptions and
// rolls the daily counter over on date change. Store failures are returned
// as errors, never as an exhausted status.
func (e *Engine) ResolveStatus(userID int64) (Status, error) {
	mu := e.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	return e.resolveLocked(userID)
}

func (e *Engine) resolveLocked(userID int64) (Status, error) {
	now := e.now()
	today := storage.DateOf(now)

	acc, err := e.store.GetAccount(userID)
	if errors.Is(err, storage.ErrNotFound) {
		if _, err := e.store.EnsureAccount(userID, today); err != nil {
			return Status{}, fmt.Errorf("create account: %w", err)
		}
		acc, err = e.store.GetAccount(userID)
	}
	if err != nil {
		return Status{}, fmt.Errorf("get account: %w", err)
	}

	tier := acc.Tier
	usage := acc.DailyUsage

	if tier == storage.TierPlus || tier == storage.TierPro {
		switch {
		case acc.SubscriptionEnd == nil:
			// A paid tier without an expiry should not exist outside the
			// expiry transition itself.
			e.log.Warn("paid tier without subscription end", "user_id", userID, "tier", tier)
		case now.After(*acc.SubscriptionEnd):
			if err := e.store.ClearSubscription(userID); err != nil {
				return Status{}, fmt.Errorf("clear subscription: %w", err)
			}
			tier = storage.TierFree
		}
	}

	if acc.LastUsageDate != today {
		if err := e.store.ResetDailyUsage(userID, today); err != nil {
			return Status{}, fmt.Errorf("reset daily usage: %w", err)
		}
		usage = 0
	}

	limit := LimitFor(tier)
	return Status{
		Tier:        tier,
		DailyUsage:  usage,
		DailyLimit:  limit.Daily,
		DurationCap: limit.DurationSeconds,
		Exhausted:   usage >= limit.Daily,
	}, nil
}

// RecordUsage increments the daily counter by one. It must be called exactly
// once per successfully delivered conversion.
func (e *Engine) RecordUsage(userID int64) error {
	mu := e.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	if err := e.store.IncrementUsage(userID); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// Register ensures the account exists and, on first-ever creation with a
// valid referrer, grants the referrer a one-time bonus. It returns true when
// a bonus was granted; the caller notifies the referrer afterwards.
func (e *Engine) Register(userID, referrerID int64) (bool, error) {
	mu := e.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	now := e.now()

	created, err := e.store.EnsureAccount(userID, storage.DateOf(now))
	if err != nil {
		return false, fmt.Errorf("ensure account: %w", err)
	}

	if !created || referrerID == 0 || referrerID == userID {
		return false, nil
	}

	// Referrer must already exist
	if _, err := e.store.GetAccount(referrerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get referrer: %w", err)
	}

	set, err := e.store.SetReferrerOnce(userID, referrerID)
	if err != nil {
		return false, fmt.Errorf("set referrer: %w", err)
	}
	if !set {
		// The link already existed for a freshly created account; by
		// construction that cannot happen, so treat it as a defect.
		e.log.Error("referral link already set on first creation", "user_id", userID)
		return false, nil
	}

	until := now.Add(referralBonusHours * time.Hour)
	if err := e.store.GrantReferralBonus(referrerID, until); err != nil {
		return false, fmt.Errorf("grant referral bonus: %w", err)
	}

	metrics.ReferralBonusesTotal.Inc()
	e.log.Info("referral bonus granted", "referrer_id", referrerID, "referred_id", userID)
	return true, nil
}

// RecordPayment appends a ledger entry and applies the purchased plan with a
// fresh 31-day expiry, regardless of the prior tier.
func (e *Engine) RecordPayment(userID int64, amount int64, payload string) (storage.Tier, error) {
	mu := e.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	tier := PlanFromPayload(payload)
	until := e.now().Add(subscriptionDays * 24 * time.Hour)

	if err := e.store.RecordPayment(userID, amount, payload, tier, until); err != nil {
		return "", fmt.Errorf("record payment: %w", err)
	}

	metrics.PaymentsTotal.WithLabelValues(string(tier)).Inc()
	e.log.Info("payment recorded", "user_id", userID, "amount", amount, "tier", tier)
	return tier, nil
}

// PlanFromPayload maps an invoice payload to the purchased tier.
func PlanFromPayload(payload string) storage.Tier {
	if strings.Contains(payload, "plus") {
		return storage.TierPlus
	}
	return storage.TierPro
}

// PayloadForPlan is the inverse of PlanFromPayload.
func PayloadForPlan(tier storage.Tier) string {
	return "sub_" + string(tier)
}

// --- Settings & aggregates (admin surface) ---

// DiscountPercent reads the global discount setting, defaulting to 0.
func (e *Engine) DiscountPercent() int {
	v, err := e.store.GetSetting(storage.SettingDiscountPercent)
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(v)
	if err != nil || p < 0 || p > 100 {
		return 0
	}
	return p
}

// SetDiscountPercent validates and stores the global discount.
func (e *Engine) SetDiscountPercent(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("discount percent out of range: %d", percent)
	}
	return e.store.SetSetting(storage.SettingDiscountPercent, strconv.Itoa(percent))
}

// UserCount returns the number of known users.
func (e *Engine) UserCount() (int64, error) {
	return e.store.UserCount()
}

// TotalRevenue returns the ledger sum in minor units.
func (e *Engine) TotalRevenue() (int64, error) {
	return e.store.TotalRevenue()
}

// AllUserIDs returns every known user id.
func (e *Engine) AllUserIDs() ([]int64, error) {
	return e.store.AllUserIDs()
}

// Referrer returns the referrer link of a user, or nil.
func (e *Engine) Referrer(userID int64) (*int64, error) {
	acc, err := e.store.GetAccount(userID)
	if err != nil {
		return nil, err
	}
	return acc.ReferrerID, nil
}
