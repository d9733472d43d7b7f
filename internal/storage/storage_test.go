package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestEnsureAccount_CreatesOnce(t *testing.T) {
	s := newTestStorage(t)
	today := DateOf(time.Now())

	created, err := s.EnsureAccount(100, today)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureAccount(100, today)
	require.NoError(t, err)
	assert.False(t, created, "second create must be a no-op")

	a, err := s.GetAccount(100)
	require.NoError(t, err)
	assert.Equal(t, TierFree, a.Tier)
	assert.Equal(t, 0, a.DailyUsage)
	assert.Nil(t, a.SubscriptionEnd)
	assert.Nil(t, a.ReferrerID)
}

func TestGetAccount_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetAccount(404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetReferrerOnce(t *testing.T) {
	s := newTestStorage(t)
	today := DateOf(time.Now())

	_, err := s.EnsureAccount(1, today)
	require.NoError(t, err)

	set, err := s.SetReferrerOnce(1, 2)
	require.NoError(t, err)
	assert.True(t, set)

	// Second attempt must not overwrite
	set, err = s.SetReferrerOnce(1, 3)
	require.NoError(t, err)
	assert.False(t, set)

	a, err := s.GetAccount(1)
	require.NoError(t, err)
	require.NotNil(t, a.ReferrerID)
	assert.Equal(t, int64(2), *a.ReferrerID)
}

func TestGrantReferralBonus_NeverDowngradesPro(t *testing.T) {
	s := newTestStorage(t)
	today := DateOf(time.Now())
	until := time.Now().Add(24 * time.Hour)

	_, err := s.EnsureAccount(1, today)
	require.NoError(t, err)
	require.NoError(t, s.GrantReferralBonus(1, until))

	a, err := s.GetAccount(1)
	require.NoError(t, err)
	assert.Equal(t, TierPlus, a.Tier)
	require.NotNil(t, a.SubscriptionEnd)
	assert.Equal(t, until.Unix(), a.SubscriptionEnd.Unix())

	// Upgrade to pro, then a bonus must leave the tier alone
	require.NoError(t, s.RecordPayment(1, 3_000_000, "sub_pro", TierPro, time.Now().Add(31*24*time.Hour)))
	require.NoError(t, s.GrantReferralBonus(1, until))

	a, err = s.GetAccount(1)
	require.NoError(t, err)
	assert.Equal(t, TierPro, a.Tier)
}

func TestRecordPayment(t *testing.T) {
	s := newTestStorage(t)
	until := time.Now().Add(31 * 24 * time.Hour)

	// Account does not exist yet; RecordPayment creates it
	require.NoError(t, s.RecordPayment(7, 1_500_000, "sub_plus", TierPlus, until))

	a, err := s.GetAccount(7)
	require.NoError(t, err)
	assert.Equal(t, TierPlus, a.Tier)
	require.NotNil(t, a.SubscriptionEnd)
	assert.Equal(t, until.Unix(), a.SubscriptionEnd.Unix())

	require.NoError(t, s.RecordPayment(7, 3_000_000, "sub_pro", TierPro, until))

	total, err := s.TotalRevenue()
	require.NoError(t, err)
	assert.Equal(t, int64(4_500_000), total)
}

func TestUsageCounters(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.EnsureAccount(5, "2026-08-31")
	require.NoError(t, err)

	require.NoError(t, s.IncrementUsage(5))
	require.NoError(t, s.IncrementUsage(5))

	a, err := s.GetAccount(5)
	require.NoError(t, err)
	assert.Equal(t, 2, a.DailyUsage)
	assert.Equal(t, "2026-08-31", a.LastUsageDate)

	require.NoError(t, s.ResetDailyUsage(5, "2026-09-01"))

	a, err = s.GetAccount(5)
	require.NoError(t, err)
	assert.Equal(t, 0, a.DailyUsage)
	assert.Equal(t, "2026-09-01", a.LastUsageDate)
}

func TestSettings(t *testing.T) {
	s := newTestStorage(t)

	// Seeded default
	v, err := s.GetSetting(SettingDiscountPercent)
	require.NoError(t, err)
	assert.Equal(t, "0", v)

	require.NoError(t, s.SetSetting(SettingDiscountPercent, "25"))

	v, err = s.GetSetting(SettingDiscountPercent)
	require.NoError(t, err)
	assert.Equal(t, "25", v)

	_, err = s.GetSetting("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAggregates(t *testing.T) {
	s := newTestStorage(t)
	today := DateOf(time.Now())

	for _, id := range []int64{1, 2, 3} {
		_, err := s.EnsureAccount(id, today)
		require.NoError(t, err)
	}

	count, err := s.UserCount()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	ids, err := s.AllUserIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids)
}
