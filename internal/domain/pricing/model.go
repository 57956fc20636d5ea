package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Границы поправки к базовой цене, в процентах.
var (
	MinAdjustmentPct = decimal.NewFromInt(-50)
	MaxAdjustmentPct = decimal.NewFromInt(100)
)

// StoreAdjustment поправка цены для конкретного магазина
type StoreAdjustment struct {
	StoreID              string          `json:"store_id"`
	AdjustmentPercentage decimal.Decimal `json:"adjustment_percentage"`
	Reason               string          `json:"reason,omitempty"`
}

// PricingRecord запись о цене товара с поправками по магазинам.
// Запись заменяется целиком при каждом обновлении.
type PricingRecord struct {
	ProductID        string            `json:"product_id"`
	BasePrice        decimal.Decimal   `json:"base_price"`
	StoreAdjustments []StoreAdjustment `json:"store_adjustments"`
	EffectiveDate    time.Time         `json:"effective_date"`
	SyncedAt         *time.Time        `json:"synced_at,omitempty"`
	Version          int               `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// AdjustedPrice возвращает цену для магазина: база × (1 + поправка/100).
// Для магазина без поправки возвращается базовая цена.
func (r *PricingRecord) AdjustedPrice(storeID string) decimal.Decimal {
	for _, adj := range r.StoreAdjustments {
		if adj.StoreID == storeID {
			pct := adj.AdjustmentPercentage.Div(decimal.NewFromInt(100))
			return r.BasePrice.Mul(decimal.NewFromInt(1).Add(pct)).Round(2)
		}
	}
	return r.BasePrice.Round(2)
}

// Variance возвращает разброс цен между магазинами в процентах от базы:
// (max − min) / база × 100. Для записи без поправок разброс нулевой.
func (r *PricingRecord) Variance() decimal.Decimal {
	if len(r.StoreAdjustments) == 0 || r.BasePrice.IsZero() {
		return decimal.Zero
	}

	min := r.AdjustedPrice(r.StoreAdjustments[0].StoreID)
	max := min
	for _, adj := range r.StoreAdjustments[1:] {
		price := r.AdjustedPrice(adj.StoreID)
		if price.LessThan(min) {
			min = price
		}
		if price.GreaterThan(max) {
			max = price
		}
	}

	return max.Sub(min).Div(r.BasePrice).Mul(decimal.NewFromInt(100)).Round(2)
}
