// Package pricing computes subscription prices net of the admin-configured
// discount. Prices are in minor currency units throughout.
package pricing

import "github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/storage"

// Base prices per plan, minor units.
const (
	BasePricePlus int64 = 1_500_000
	BasePricePro  int64 = 3_000_000
)

// BasePrice returns the undiscounted price for a purchasable tier,
// or 0 for tiers that cannot be bought.
func BasePrice(tier storage.Tier) int64 {
	switch tier {
	case storage.TierPlus:
		return BasePricePlus
	case storage.TierPro:
		return BasePricePro
	default:
		return 0
	}
}

// Price applies discountPercent to base, rounding down.
// discountPercent is validated at the admin boundary and is always in [0,100].
func Price(base int64, discountPercent int) int64 {
	return base * int64(100-discountPercent) / 100
}

// PlanPrice is a convenience over BasePrice and Price.
func PlanPrice(tier storage.Tier, discountPercent int) int64 {
	return Price(BasePrice(tier), discountPercent)
}
