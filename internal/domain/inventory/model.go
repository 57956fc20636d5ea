package inventory

import "time"

// StockLevel текущий остаток товара в магазине
type StockLevel struct {
	StoreID   string    `json:"store_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}
