package model

import "time"

// EventKind описывает тип события для внешних индексаторов.
type EventKind string

const (
	EventIssuance        EventKind = "issuance"
	EventPurchase        EventKind = "purchase"
	EventIncomeClaim     EventKind = "income_claim"
	EventBuyback         EventKind = "buyback"
	EventCollectibleMint EventKind = "collectible_mint"
)

// Event описывает структурированное событие изменения состояния.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Address   string    `json:"address"`
	AssetID   uint64    `json:"asset_id,omitempty"`
	Amount    int64     `json:"amount"`
	Currency  Currency  `json:"currency,omitempty"`
	Region    string    `json:"region,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
