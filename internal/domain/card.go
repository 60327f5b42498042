package domain

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle state of a card.
type CardStatus string

// Card statuses.
const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Valid reports whether s is a known status.
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return true
	}
	return false
}

var cardNumberPattern = regexp.MustCompile(`^[0-9]{16}$`)

// Card is a bank card keyed by its 16-digit number.
type Card struct {
	Number         string          `json:"number"`
	OwnerEmail     string          `json:"owner_email"`
	OwnerName      string          `json:"owner_name"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Status         CardStatus      `json:"status"`
	Balance        decimal.Decimal `json:"balance"`
	BlockRequested bool            `json:"block_requested"`
}

// NewCard issues an ACTIVE card for owner, valid for validityMonths from
// the calendar date of now.
func NewCard(
	number string,
	owner *User,
	validityMonths int,
	balance decimal.Decimal,
	now time.Time,
) (*Card, error) {
	if err := ValidateCardNumber(number); err != nil {
		return nil, err
	}
	if validityMonths < 1 {
		return nil, Errorf(ErrInvalidInput, "validity must be at least 1 month")
	}
	if balance.IsNegative() {
		return nil, Errorf(ErrInvalidInput, "initial balance cannot be negative")
	}

	return &Card{
		Number:         number,
		OwnerEmail:     owner.Email,
		OwnerName:      owner.FullName(),
		ExpirationDate: ExpirationDate(now, validityMonths),
		Status:         CardStatusActive,
		Balance:        balance,
	}, nil
}

// ValidateCardNumber checks that number is exactly 16 ASCII digits.
func ValidateCardNumber(number string) error {
	if !cardNumberPattern.MatchString(number) {
		return Errorf(ErrInvalidRequest, "card number must consist of 16 digits")
	}
	return nil
}

// MaskCardNumber hides all but the last four digits.
func MaskCardNumber(number string) string {
	if len(number) < 4 {
		return "****"
	}
	return "**** **** **** " + number[len(number)-4:]
}

// Masked returns the card number in display form.
func (c *Card) Masked() string {
	return MaskCardNumber(c.Number)
}

// OwnedBy reports whether email owns the card.
func (c *Card) OwnedBy(email string) bool {
	return c.OwnerEmail == email
}

// IsExpiredAt reports whether the expiration date lies strictly before the
// calendar date of now. A card is usable through its expiration date.
func (c *Card) IsExpiredAt(now time.Time) bool {
	return c.ExpirationDate.Before(Today(now))
}

// RefreshStatus moves the card to EXPIRED when its expiration date has
// passed. It returns true if the status changed and must be persisted.
func (c *Card) RefreshStatus(now time.Time) bool {
	if c.Status == CardStatusExpired || !c.IsExpiredAt(now) {
		return false
	}
	c.Status = CardStatusExpired
	return true
}

// Today truncates t to its UTC calendar date.
func Today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ExpirationDate adds months to the calendar date of issued, clamping to the
// last day of the target month (Jan 31 + 1 month = Feb 28/29).
func ExpirationDate(issued time.Time, months int) time.Time {
	start := Today(issued)
	firstOfTarget := time.Date(start.Year(), start.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := start.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}
