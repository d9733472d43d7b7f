package quota

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *time.Time) {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := New(store, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	return e, &now
}

func TestResolveStatus_LazyCreate(t *testing.T) {
	e, _ := newTestEngine(t)

	st, err := e.ResolveStatus(1)
	require.NoError(t, err)
	assert.Equal(t, storage.TierFree, st.Tier)
	assert.Equal(t, 0, st.DailyUsage)
	assert.Equal(t, 3, st.DailyLimit)
	assert.Equal(t, 20, st.DurationCap)
	assert.False(t, st.Exhausted)
}

func TestResolveStatus_DailyLimitEnforced(t *testing.T) {
	e, _ := newTestEngine(t)

	for i := 0; i < 3; i++ {
		st, err := e.ResolveStatus(1)
		require.NoError(t, err)
		require.False(t, st.Exhausted, "attempt %d", i+1)
		require.NoError(t, e.RecordUsage(1))
	}

	st, err := e.ResolveStatus(1)
	require.NoError(t, err)
	assert.True(t, st.Exhausted)
	assert.Equal(t, 3, st.DailyUsage)
}

func TestResolveStatus_DailyRollover(t *testing.T) {
	e, now := newTestEngine(t)

	_, err := e.ResolveStatus(1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, e.RecordUsage(1))
	}

	st, err := e.ResolveStatus(1)
	require.NoError(t, err)
	require.True(t, st.Exhausted)

	// Next calendar day resets the counter
	*now = now.Add(24 * time.Hour)

	st, err = e.ResolveStatus(1)
	require.NoError(t, err)
	assert.Equal(t, 0, st.DailyUsage)
	assert.False(t, st.Exhausted)
}

func TestResolveStatus_SubscriptionExpiryIsIdempotent(t *testing.T) {
	e, now := newTestEngine(t)

	_, err := e.RecordPayment(1, 1_500_000, "sub_plus")
	require.NoError(t, err)

	st, err := e.ResolveStatus(1)
	require.NoError(t, err)
	assert.Equal(t, storage.TierPlus, st.Tier)
	assert.Equal(t, 15, st.DailyLimit)
	assert.Equal(t, 120, st.DurationCap)

	// Past the 31-day window: downgraded to free
	*now = now.Add(32 * 24 * time.Hour)

	st, err = e.ResolveStatus(1)
	require.NoError(t, err)
	assert.Equal(t, storage.TierFree, st.Tier)

	// Second resolve after expiry is a no-op with the same answer
	st, err = e.ResolveStatus(1)
	require.NoError(t, err)
	assert.Equal(t, storage.TierFree, st.Tier)
	assert.Equal(t, 3, st.DailyLimit)
}

func TestRegister_ReferralBonusOnce(t *testing.T) {
	e, _ := newTestEngine(t)

	// Referrer exists
	_, err := e.ResolveStatus(10)
	require.NoError(t, err)

	granted, err := e.Register(20, 10)
	require.NoError(t, err)
	assert.True(t, granted)

	st, err := e.ResolveStatus(10)
	require.NoError(t, err)
	assert.Equal(t, storage.TierPlus, st.Tier, "referrer upgraded to plus")

	// Repeated registration of the same user never grants again
	granted, err = e.Register(20, 10)
	require.NoError(t, err)
	assert.False(t, granted)

	ref, err := e.Referrer(20)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, int64(10), *ref)
}

func TestRegister_NoSelfReferral(t *testing.T) {
	e, _ := newTestEngine(t)

	granted, err := e.Register(5, 5)
	require.NoError(t, err)
	assert.False(t, granted)

	ref, err := e.Referrer(5)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestRegister_UnknownReferrer(t *testing.T) {
	e, _ := newTestEngine(t)

	granted, err := e.Register(5, 999)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestRegister_ProReferrerKeepsPro(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.RecordPayment(10, 3_000_000, "sub_pro")
	require.NoError(t, err)

	granted, err := e.Register(20, 10)
	require.NoError(t, err)
	assert.True(t, granted)

	st, err := e.ResolveStatus(10)
	require.NoError(t, err)
	assert.Equal(t, storage.TierPro, st.Tier, "pro is never downgraded by a bonus")
}

func TestReferralBonusExpiresNextDay(t *testing.T) {
	e, now := newTestEngine(t)

	_, err := e.ResolveStatus(10)
	require.NoError(t, err)

	granted, err := e.Register(20, 10)
	require.NoError(t, err)
	require.True(t, granted)

	*now = now.Add(25 * time.Hour)

	st, err := e.ResolveStatus(10)
	require.NoError(t, err)
	assert.Equal(t, storage.TierFree, st.Tier)
}

func TestRecordPayment_ResetsExpiryWindow(t *testing.T) {
	e, now := newTestEngine(t)

	tier, err := e.RecordPayment(1, 1_500_000, "sub_plus")
	require.NoError(t, err)
	assert.Equal(t, storage.TierPlus, tier)

	// Buying again 30 days in extends from now, not from the old expiry
	*now = now.Add(30 * 24 * time.Hour)
	tier, err = e.RecordPayment(1, 3_000_000, "sub_pro")
	require.NoError(t, err)
	assert.Equal(t, storage.TierPro, tier)

	*now = now.Add(30 * 24 * time.Hour)
	st, err := e.ResolveStatus(1)
	require.NoError(t, err)
	assert.Equal(t, storage.TierPro, st.Tier, "still inside the repurchased window")

	rev, err := e.TotalRevenue()
	require.NoError(t, err)
	assert.Equal(t, int64(4_500_000), rev)
}

func TestDiscountSetting(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, 0, e.DiscountPercent())

	require.NoError(t, e.SetDiscountPercent(40))
	assert.Equal(t, 40, e.DiscountPercent())

	assert.Error(t, e.SetDiscountPercent(101))
	assert.Error(t, e.SetDiscountPercent(-1))
	assert.Equal(t, 40, e.DiscountPercent(), "invalid writes are rejected")
}

func TestPlanPayloadRoundTrip(t *testing.T) {
	assert.Equal(t, storage.TierPlus, PlanFromPayload("sub_plus"))
	assert.Equal(t, storage.TierPro, PlanFromPayload("sub_pro"))
	assert.Equal(t, "sub_plus", PayloadForPlan(storage.TierPlus))
}
