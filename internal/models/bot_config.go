package models

// BotConfigID is the fixed primary key of the singleton strategy row.
const BotConfigID = 1

// BotConfig is the operator-set strategy configuration for the trading loop.
// There is at most one row; writes replace it wholesale.
type BotConfig struct {
	ID           uint    `gorm:"primaryKey" json:"-"`
	Symbol       string  `json:"symbol"`
	TargetProfit float64 `json:"targetProfit"` // percent
	Quantity     float64 `json:"quantity"`     // base-asset units
	StopLoss     float64 `json:"stopLoss"`     // percent
}
