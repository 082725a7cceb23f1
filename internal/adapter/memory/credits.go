package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aisocial/internal/domain"
)

// CreditLedger implements domain.CreditLedger with the same semantics as the
// Postgres ledger, guarded by a single mutex.
type CreditLedger struct {
	mu           sync.Mutex
	accounts     map[string]*domain.CreditAccount
	transactions []domain.CreditTransaction
	reservations map[string]*domain.CreditReservation
}

func NewCreditLedger() *CreditLedger {
	return &CreditLedger{
		accounts:     map[string]*domain.CreditAccount{},
		reservations: map[string]*domain.CreditReservation{},
	}
}

func (l *CreditLedger) Account(_ context.Context, ownerID string) (*domain.CreditAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := *l.account(ownerID)
	return &acc, nil
}

func (l *CreditLedger) Apply(_ context.Context, in domain.CreditTransaction) (*domain.CreditTransaction, error) {
	if !in.Type.Valid() || in.Type == domain.TransactionGeneration {
		return nil, fmt.Errorf("apply: unsupported transaction type %q", in.Type)
	}
	if in.Amount.IsZero() {
		return nil, errors.New("apply: amount must be non-zero")
	}
	if in.Type == domain.TransactionPurchase && in.Amount.IsNegative() {
		return nil, errors.New("apply: purchase amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing := l.byKey(in.OwnerID, in.IdempotencyKey); existing != nil {
		return existing, nil
	}
	acc := l.account(in.OwnerID)
	next := acc.Balance.Add(in.Amount)
	if next.LessThan(acc.Reserved) {
		return nil, domain.ErrInsufficientCredits
	}
	acc.Balance = next
	if in.Type == domain.TransactionPurchase {
		acc.TotalPurchased = acc.TotalPurchased.Add(in.Amount)
	}
	acc.UpdatedAt = time.Now()
	return l.append(in, acc.Balance), nil
}

func (l *CreditLedger) Reserve(_ context.Context, ownerID string, amount decimal.Decimal, reservationID string) (*domain.CreditReservation, error) {
	if !amount.IsPositive() {
		return nil, errors.New("reserve: amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.reservations[reservationID]; dup {
		return nil, domain.ErrDuplicateOperation
	}
	acc := l.account(ownerID)
	if acc.Available().LessThan(amount) {
		return nil, domain.ErrInsufficientCredits
	}
	acc.Reserved = acc.Reserved.Add(amount)
	res := &domain.CreditReservation{
		ID:        reservationID,
		OwnerID:   ownerID,
		Amount:    amount,
		Status:    domain.ReservationHeld,
		CreatedAt: time.Now(),
	}
	l.reservations[reservationID] = res
	out := *res
	return &out, nil
}

func (l *CreditLedger) Capture(_ context.Context, reservationID, contentID, description string) (*domain.CreditTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.reservations[reservationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	key := "capture:" + reservationID
	switch res.Status {
	case domain.ReservationCaptured:
		if existing := l.byKey(res.OwnerID, key); existing != nil {
			return existing, nil
		}
		return nil, domain.ErrNotFound
	case domain.ReservationReleased:
		return nil, fmt.Errorf("reservation %s already released: %w", reservationID, domain.ErrDuplicateOperation)
	}

	if contentID != "" && l.billed(contentID) {
		return nil, fmt.Errorf("content %s already billed: %w", contentID, domain.ErrDuplicateOperation)
	}

	acc := l.account(res.OwnerID)
	acc.Reserved = acc.Reserved.Sub(res.Amount)
	acc.Balance = acc.Balance.Sub(res.Amount)
	acc.TotalSpent = acc.TotalSpent.Add(res.Amount)
	acc.UpdatedAt = time.Now()

	var cid *string
	if contentID != "" {
		cid = &contentID
	}
	res.Status = domain.ReservationCaptured
	res.ContentID = cid
	return l.append(domain.CreditTransaction{
		OwnerID:        res.OwnerID,
		Amount:         res.Amount.Neg(),
		Type:           domain.TransactionGeneration,
		Description:    description,
		ContentID:      cid,
		IdempotencyKey: key,
		Metadata:       map[string]any{"reservation_id": reservationID},
	}, acc.Balance), nil
}

func (l *CreditLedger) Release(_ context.Context, reservationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.reservations[reservationID]
	if !ok {
		return domain.ErrNotFound
	}
	if res.Status != domain.ReservationHeld {
		return nil
	}
	acc := l.account(res.OwnerID)
	acc.Reserved = acc.Reserved.Sub(res.Amount)
	res.Status = domain.ReservationReleased
	return nil
}

func (l *CreditLedger) Transactions(_ context.Context, ownerID string, limit int) ([]domain.CreditTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.CreditTransaction
	// insertion order is chronological; walk backwards for newest first
	for i := len(l.transactions) - 1; i >= 0; i-- {
		if l.transactions[i].OwnerID == ownerID {
			out = append(out, l.transactions[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Reservation returns a copy of the reservation, for assertions.
func (l *CreditLedger) Reservation(id string) (domain.CreditReservation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.reservations[id]
	if !ok {
		return domain.CreditReservation{}, false
	}
	return *res, true
}

func (l *CreditLedger) account(ownerID string) *domain.CreditAccount {
	acc, ok := l.accounts[ownerID]
	if !ok {
		acc = &domain.CreditAccount{OwnerID: ownerID, UpdatedAt: time.Now()}
		l.accounts[ownerID] = acc
	}
	return acc
}

func (l *CreditLedger) byKey(ownerID, key string) *domain.CreditTransaction {
	if key == "" {
		return nil
	}
	for i := range l.transactions {
		if l.transactions[i].OwnerID == ownerID && l.transactions[i].IdempotencyKey == key {
			tx := l.transactions[i]
			return &tx
		}
	}
	return nil
}

// billed mirrors the unique index on generation debits per content id.
func (l *CreditLedger) billed(contentID string) bool {
	for _, tx := range l.transactions {
		if tx.Type == domain.TransactionGeneration && tx.ContentID != nil && *tx.ContentID == contentID {
			return true
		}
	}
	return false
}

func (l *CreditLedger) append(tx domain.CreditTransaction, balance decimal.Decimal) *domain.CreditTransaction {
	tx.ID = uuid.NewString()
	tx.BalanceAfter = balance
	tx.CreatedAt = time.Now()
	l.transactions = append(l.transactions, tx)
	out := tx
	return &out
}

var _ domain.CreditLedger = (*CreditLedger)(nil)
