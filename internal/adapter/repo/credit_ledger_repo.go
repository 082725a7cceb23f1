package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"aisocial/internal/domain"
	"aisocial/internal/infra"
	"aisocial/internal/sqlinline"
)

// CaptureKey is the idempotency key of the generation debit for a reservation.
func CaptureKey(reservationID string) string {
	return "capture:" + reservationID
}

// CreditLedgerPG implements domain.CreditLedger. Every mutation runs in a
// single transaction that moves the account row and appends the ledger entry
// together, so balance always equals the sum of transaction amounts.
type CreditLedgerPG struct {
	sql infra.TxRunner
}

func NewCreditLedger(sql infra.TxRunner) *CreditLedgerPG {
	return &CreditLedgerPG{sql: sql}
}

// Account returns the owner's account, creating an empty one on first access.
func (l *CreditLedgerPG) Account(ctx context.Context, ownerID string) (*domain.CreditAccount, error) {
	if _, err := l.sql.Exec(ctx, sqlinline.QEnsureCreditAccount, ownerID); err != nil {
		return nil, err
	}
	var acc domain.CreditAccount
	row := l.sql.QueryRow(ctx, sqlinline.QSelectCreditAccount, ownerID)
	if err := row.Scan(&acc.OwnerID, &acc.Balance, &acc.Reserved, &acc.TotalPurchased, &acc.TotalSpent, &acc.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// Apply records a purchase, refund or adjustment. A repeated idempotency key
// returns the original entry without moving the balance again.
func (l *CreditLedgerPG) Apply(ctx context.Context, in domain.CreditTransaction) (*domain.CreditTransaction, error) {
	if !in.Type.Valid() || in.Type == domain.TransactionGeneration {
		return nil, fmt.Errorf("apply: unsupported transaction type %q", in.Type)
	}
	if in.Amount.IsZero() {
		return nil, errors.New("apply: amount must be non-zero")
	}
	if in.Type == domain.TransactionPurchase && in.Amount.IsNegative() {
		return nil, errors.New("apply: purchase amount must be positive")
	}

	var out *domain.CreditTransaction
	err := l.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QEnsureCreditAccount, in.OwnerID); err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			existing, err := scanCreditTransaction(tx.QueryRow(ctx, sqlinline.QSelectCreditTransactionByKey, in.OwnerID, in.IdempotencyKey))
			if err == nil {
				out = existing
				return nil
			}
			if !infra.IsNoRows(err) {
				return err
			}
		}

		purchased := decimal.Zero
		if in.Type == domain.TransactionPurchase {
			purchased = in.Amount
		}
		var balance decimal.Decimal
		row := tx.QueryRow(ctx, sqlinline.QAdjustCreditAccount, in.OwnerID, in.Amount, purchased, decimal.Zero)
		if err := row.Scan(&balance); err != nil {
			if infra.IsNoRows(err) {
				return domain.ErrInsufficientCredits
			}
			return err
		}
		entry := in
		entry.BalanceAfter = balance
		if err := insertCreditTransaction(ctx, tx, &entry); err != nil {
			return err
		}
		out = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reserve holds amount for reservationID when the available balance covers it.
func (l *CreditLedgerPG) Reserve(ctx context.Context, ownerID string, amount decimal.Decimal, reservationID string) (*domain.CreditReservation, error) {
	if !amount.IsPositive() {
		return nil, errors.New("reserve: amount must be positive")
	}
	res := &domain.CreditReservation{
		ID:      reservationID,
		OwnerID: ownerID,
		Amount:  amount,
		Status:  domain.ReservationHeld,
	}
	err := l.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QEnsureCreditAccount, ownerID); err != nil {
			return err
		}
		var owner string
		if err := tx.QueryRow(ctx, sqlinline.QHoldCredits, ownerID, amount).Scan(&owner); err != nil {
			if infra.IsNoRows(err) {
				return domain.ErrInsufficientCredits
			}
			return err
		}
		if err := tx.QueryRow(ctx, sqlinline.QInsertCreditReservation, reservationID, ownerID, amount).Scan(&res.CreatedAt); err != nil {
			if infra.IsUniqueViolation(err) {
				return domain.ErrDuplicateOperation
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Capture converts the hold into a generation debit linked to contentID.
// Capturing an already captured reservation returns the original debit.
func (l *CreditLedgerPG) Capture(ctx context.Context, reservationID, contentID, description string) (*domain.CreditTransaction, error) {
	var out *domain.CreditTransaction
	err := l.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		res, err := scanReservation(tx.QueryRow(ctx, sqlinline.QSelectCreditReservationForUpdate, reservationID))
		if err != nil {
			if infra.IsNoRows(err) {
				return domain.ErrNotFound
			}
			return err
		}
		switch res.Status {
		case domain.ReservationCaptured:
			existing, err := scanCreditTransaction(tx.QueryRow(ctx, sqlinline.QSelectCreditTransactionByKey, res.OwnerID, CaptureKey(reservationID)))
			if err != nil {
				return err
			}
			out = existing
			return nil
		case domain.ReservationReleased:
			return fmt.Errorf("reservation %s already released: %w", reservationID, domain.ErrDuplicateOperation)
		}

		var balance decimal.Decimal
		if err := tx.QueryRow(ctx, sqlinline.QCaptureCreditHold, res.OwnerID, res.Amount).Scan(&balance); err != nil {
			return err
		}
		entry := domain.CreditTransaction{
			OwnerID:        res.OwnerID,
			Amount:         res.Amount.Neg(),
			Type:           domain.TransactionGeneration,
			Description:    description,
			ContentID:      optionalString(contentID),
			IdempotencyKey: CaptureKey(reservationID),
			Metadata:       map[string]any{"reservation_id": reservationID},
			BalanceAfter:   balance,
		}
		if err := insertCreditTransaction(ctx, tx, &entry); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sqlinline.QSetCreditReservationStatus, reservationID, string(domain.ReservationCaptured), entry.ContentID); err != nil {
			return err
		}
		out = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Release drops an open hold. Releasing a settled reservation is a no-op.
func (l *CreditLedgerPG) Release(ctx context.Context, reservationID string) error {
	return l.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		res, err := scanReservation(tx.QueryRow(ctx, sqlinline.QSelectCreditReservationForUpdate, reservationID))
		if err != nil {
			if infra.IsNoRows(err) {
				return domain.ErrNotFound
			}
			return err
		}
		if res.Status != domain.ReservationHeld {
			return nil
		}
		if _, err := tx.Exec(ctx, sqlinline.QReleaseCreditHold, res.OwnerID, res.Amount); err != nil {
			return err
		}
		var noContent *string
		_, err = tx.Exec(ctx, sqlinline.QSetCreditReservationStatus, reservationID, string(domain.ReservationReleased), noContent)
		return err
	})
}

// Transactions lists the owner's ledger entries, newest first.
func (l *CreditLedgerPG) Transactions(ctx context.Context, ownerID string, limit int) ([]domain.CreditTransaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := l.sql.Query(ctx, sqlinline.QListCreditTransactions, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CreditTransaction
	for rows.Next() {
		tx, err := scanCreditTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

func insertCreditTransaction(ctx context.Context, tx infra.SQLExecutor, entry *domain.CreditTransaction) error {
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("encode transaction metadata: %w", err)
	}
	if entry.Metadata == nil {
		meta = []byte(`{}`)
	}
	row := tx.QueryRow(ctx, sqlinline.QInsertCreditTransaction,
		entry.OwnerID,
		entry.Amount,
		string(entry.Type),
		entry.Description,
		entry.ContentID,
		entry.IdempotencyKey,
		meta,
		entry.BalanceAfter,
	)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		if infra.IsUniqueViolation(err) {
			return domain.ErrDuplicateOperation
		}
		return err
	}
	return nil
}

func scanCreditTransaction(row pgx.Row) (*domain.CreditTransaction, error) {
	var (
		tx     domain.CreditTransaction
		txType string
		meta   []byte
	)
	if err := row.Scan(&tx.ID, &tx.OwnerID, &tx.Amount, &txType, &tx.Description, &tx.ContentID, &tx.IdempotencyKey, &meta, &tx.BalanceAfter, &tx.CreatedAt); err != nil {
		return nil, err
	}
	tx.Type = domain.TransactionType(txType)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	return &tx, nil
}

func scanReservation(row pgx.Row) (*domain.CreditReservation, error) {
	var (
		res    domain.CreditReservation
		status string
	)
	if err := row.Scan(&res.ID, &res.OwnerID, &res.Amount, &status, &res.ContentID, &res.CreatedAt); err != nil {
		return nil, err
	}
	res.Status = domain.ReservationStatus(status)
	return &res, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
