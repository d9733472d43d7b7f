package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound = errors.New("not found")
)

// SettingDiscountPercent is the key of the global discount setting.
const SettingDiscountPercent = "discount_percent"

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id INTEGER PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'free',
			sub_end_date INTEGER,
			daily_usage INTEGER NOT NULL DEFAULT 0,
			last_usage_date TEXT NOT NULL,
			referrer_id INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			payload TEXT NOT NULL,
			payment_time INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_telegram_id ON payments(telegram_id)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`INSERT OR IGNORE INTO settings (key, value) VALUES ('discount_percent', '0')`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// --- Accounts ---

// EnsureAccount creates the account if absent, returns true if it was created
func (s *Storage) EnsureAccount(telegramID int64, today string) (bool, error) {
	result, err := s.db.Exec(
		"INSERT OR IGNORE INTO users (telegram_id, last_usage_date) VALUES (?, ?)",
		telegramID, today,
	)
	if err != nil {
		return false, err
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// GetAccount returns an account by telegram id
func (s *Storage) GetAccount(telegramID int64) (*Account, error) {
	var a Account
	var status string
	var subEnd sql.NullInt64
	var referrer sql.NullInt64

	err := s.db.QueryRow(
		`SELECT telegram_id, status, sub_end_date, daily_usage, last_usage_date, referrer_id
		 FROM users WHERE telegram_id = ?`,
		telegramID,
	).Scan(&a.TelegramID, &status, &subEnd, &a.DailyUsage, &a.LastUsageDate, &referrer)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Tier = Tier(status)
	if subEnd.Valid {
		t := time.Unix(subEnd.Int64, 0)
		a.SubscriptionEnd = &t
	}
	if referrer.Valid {
		id := referrer.Int64
		a.ReferrerID = &id
	}

	return &a, nil
}

// ClearSubscription downgrades an expired account to free
func (s *Storage) ClearSubscription(telegramID int64) error {
	_, err := s.db.Exec(
		"UPDATE users SET status = 'free', sub_end_date = NULL WHERE telegram_id = ?",
		telegramID,
	)
	return err
}

// ResetDailyUsage zeroes the daily counter and moves last_usage_date forward
func (s *Storage) ResetDailyUsage(telegramID int64, today string) error {
	_, err := s.db.Exec(
		"UPDATE users SET daily_usage = 0, last_usage_date = ? WHERE telegram_id = ?",
		today, telegramID,
	)
	return err
}

// IncrementUsage bumps the daily counter by one
func (s *Storage) IncrementUsage(telegramID int64) error {
	_, err := s.db.Exec(
		"UPDATE users SET daily_usage = daily_usage + 1 WHERE telegram_id = ?",
		telegramID,
	)
	return err
}

// SetReferrerOnce sets the referrer link if it was never set, returns true if it was set now
func (s *Storage) SetReferrerOnce(telegramID, referrerID int64) (bool, error) {
	result, err := s.db.Exec(
		"UPDATE users SET referrer_id = ? WHERE telegram_id = ? AND referrer_id IS NULL",
		referrerID, telegramID,
	)
	if err != nil {
		return false, err
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// GrantReferralBonus upgrades the referrer to plus until the given time.
// Pro accounts are never downgraded by a bonus.
func (s *Storage) GrantReferralBonus(referrerID int64, until time.Time) error {
	_, err := s.db.Exec(
		"UPDATE users SET status = 'plus', sub_end_date = ? WHERE telegram_id = ? AND status != 'pro'",
		until.Unix(), referrerID,
	)
	return err
}

// --- Payments ---

// RecordPayment appends a ledger row and applies the purchased tier in one transaction
func (s *Storage) RecordPayment(telegramID int64, amount int64, payload string, tier Tier, until time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()

	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO users (telegram_id, last_usage_date) VALUES (?, ?)",
		telegramID, DateOf(now),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO payments (telegram_id, amount, payload, payment_time) VALUES (?, ?, ?, ?)",
		telegramID, amount, payload, now.Unix(),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"UPDATE users SET status = ?, sub_end_date = ? WHERE telegram_id = ?",
		string(tier), until.Unix(), telegramID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// TotalRevenue returns the sum over the payments ledger in minor units
func (s *Storage) TotalRevenue() (int64, error) {
	var total int64
	err := s.db.QueryRow("SELECT COALESCE(SUM(amount), 0) FROM payments").Scan(&total)
	return total, err
}

// --- Settings ---

// GetSetting returns a settings value by key
func (s *Storage) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting upserts a settings value
func (s *Storage) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// --- Aggregates ---

// UserCount returns the total number of known users
func (s *Storage) UserCount() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// AllUserIDs returns every known telegram id (for broadcasts)
func (s *Storage) AllUserIDs() ([]int64, error) {
	rows, err := s.db.Query("SELECT telegram_id FROM users")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
