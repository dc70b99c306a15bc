package models

// Trade represents one executed order in the ledger. Rows are append-only:
// nothing in the application updates or deletes them.
type Trade struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"` // "buy" or "sell"
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"` // ISO-8601
}

// Order side values accepted by the trade endpoint and used in ledger rows.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)
