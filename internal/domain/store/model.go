package store

import "time"

// Store розничная точка — самостоятельный источник локальных фактов.
// Магазины никогда не удаляются физически, только деактивируются.
type Store struct {
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	Active         bool      `json:"active"`
	ProvisionedSeq int64     `json:"provisioned_seq"` // контрольная точка: исторические события до нее не доставляются
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
