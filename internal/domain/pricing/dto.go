package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpdateRequest запрос на замену записи о цене целиком
type UpdateRequest struct {
	ProductID        string
	BasePrice        decimal.Decimal
	StoreAdjustments []StoreAdjustment
	EffectiveDate    time.Time
	ExpectedVersion  int
}
