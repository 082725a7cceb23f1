package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the business reason of a ledger entry.
type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionGeneration TransactionType = "generation"
	TransactionRefund     TransactionType = "refund"
	TransactionAdjustment TransactionType = "adjustment"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionGeneration, TransactionRefund, TransactionAdjustment:
		return true
	}
	return false
}

// CreditAccount is the derived balance of one account. Balance always equals
// the sum of the account's transaction amounts; Reserved tracks open holds.
type CreditAccount struct {
	OwnerID        string
	Balance        decimal.Decimal
	Reserved       decimal.Decimal
	TotalPurchased decimal.Decimal
	TotalSpent     decimal.Decimal
	UpdatedAt      time.Time
}

// Available is the balance not covered by holds.
func (a CreditAccount) Available() decimal.Decimal {
	return a.Balance.Sub(a.Reserved)
}

// CreditTransaction is an immutable ledger entry. Positive amounts credit the
// account, negative amounts debit it.
type CreditTransaction struct {
	ID             string
	OwnerID        string
	Amount         decimal.Decimal
	Type           TransactionType
	Description    string
	ContentID      *string
	IdempotencyKey string
	Metadata       map[string]any
	BalanceAfter   decimal.Decimal
	CreatedAt      time.Time
}

// ReservationStatus enumerates credit hold states.
type ReservationStatus string

const (
	ReservationHeld     ReservationStatus = "held"
	ReservationCaptured ReservationStatus = "captured"
	ReservationReleased ReservationStatus = "released"
)

// CreditReservation holds credits for an in-flight run so concurrent runs of
// the same account cannot both pass admission on the same balance.
type CreditReservation struct {
	ID        string
	OwnerID   string
	Amount    decimal.Decimal
	Status    ReservationStatus
	ContentID *string
	CreatedAt time.Time
}

// CostTable prices a generation by content type.
type CostTable struct {
	Image decimal.Decimal
	Video decimal.Decimal
}

// For returns the credits required to generate content of type c.
func (t CostTable) For(c ContentType) decimal.Decimal {
	if c == ContentTypeVideo {
		return t.Video
	}
	return t.Image
}
