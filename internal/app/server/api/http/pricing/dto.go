package pricing

import (
	"time"

	"storesync/internal/domain/pricing"

	"github.com/shopspring/decimal"
)

type updateInput struct {
	ProductID string `path:"productId" doc:"Идентификатор товара"`
	Body      updateRequest
}

type updateRequest struct {
	BasePrice        decimal.Decimal   `json:"base_price" doc:"Базовая цена, больше нуля"`
	StoreAdjustments []storeAdjustment `json:"store_adjustments,omitempty"`
	EffectiveDate    *time.Time        `json:"effective_date,omitempty"`
	ExpectedVersion  int               `json:"expected_version" doc:"0 для новой записи"`
}

type storeAdjustment struct {
	StoreID              string          `json:"store_id" minLength:"1"`
	AdjustmentPercentage decimal.Decimal `json:"adjustment_percentage" doc:"Процент поправки, от -50 до 100"`
	Reason               string          `json:"reason,omitempty"`
}

type recordOutput struct {
	Body *pricing.PricingRecord
}

type getInput struct {
	ProductID string `path:"productId"`
}

type syncInput struct {
	Body syncRequest
}

type syncRequest struct {
	ProductIDs []string `json:"product_ids" minItems:"1" doc:"Товары для повторной публикации цен"`
}

type syncOutput struct {
	Body syncResponse
}

type syncResponse struct {
	Synced int `json:"synced" doc:"Число обработанных товаров"`
}
