package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is an append-only record of money moved between two cards of
// the same owner.
type Transfer struct {
	ID             int64           `json:"id"`
	UserEmail      string          `json:"user_email"`
	FromCardNumber string          `json:"from_card_number"`
	ToCardNumber   string          `json:"to_card_number"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
}
