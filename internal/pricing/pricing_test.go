package pricing

import (
	"testing"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/storage"
	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name     string
		base     int64
		discount int
		want     int64
	}{
		{"no discount", 1_500_000, 0, 1_500_000},
		{"half off", 1_500_000, 50, 750_000},
		{"full discount plus", 1_500_000, 100, 0},
		{"full discount pro", 3_000_000, 100, 0},
		{"floors fractional result", 999, 50, 499},
		{"small discount", 3_000_000, 7, 2_790_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Price(tt.base, tt.discount))
		})
	}
}

func TestBasePrice(t *testing.T) {
	assert.Equal(t, BasePricePlus, BasePrice(storage.TierPlus))
	assert.Equal(t, BasePricePro, BasePrice(storage.TierPro))
	assert.Equal(t, int64(0), BasePrice(storage.TierFree))
}

func TestPlanPrice(t *testing.T) {
	assert.Equal(t, int64(750_000), PlanPrice(storage.TierPlus, 50))
	assert.Equal(t, int64(3_000_000), PlanPrice(storage.TierPro, 0))
}
