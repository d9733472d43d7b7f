package storage

import "time"

// Tier is a service level determining daily-use count and duration cap.
type Tier string

const (
	TierFree Tier = "free"
	TierPlus Tier = "plus"
	TierPro  Tier = "pro"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPlus || t == TierPro
}

// Account represents a bot user
type Account struct {
	TelegramID      int64
	Tier            Tier
	SubscriptionEnd *time.Time
	DailyUsage      int
	LastUsageDate   string // YYYY-MM-DD
	ReferrerID      *int64
}

// Payment is one row of the append-only payments ledger
type Payment struct {
	ID         int64
	TelegramID int64
	Amount     int64 // minor currency units
	Payload    string
	PaidAt     time.Time
}

// DateOf formats t as a calendar date the way the accounts table stores it.
func DateOf(t time.Time) string {
	return t.Format("2006-01-02")
}
