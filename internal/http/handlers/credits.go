package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"aisocial/internal/domain"
)

type creditTransactionDTO struct {
	ID           string                 `json:"id"`
	Amount       decimal.Decimal        `json:"amount"`
	Type         domain.TransactionType `json:"type"`
	Description  string                 `json:"description"`
	ContentID    *string                `json:"content_id"`
	BalanceAfter decimal.Decimal        `json:"balance_after"`
	CreatedAt    time.Time              `json:"created_at"`
}

func (a *App) CreditsBalance(w http.ResponseWriter, r *http.Request) {
	acct, err := a.Ledger.Account(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err, "credits.balance")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"balance":         acct.Balance,
		"reserved":        acct.Reserved,
		"available":       acct.Available(),
		"total_purchased": acct.TotalPurchased,
		"total_spent":     acct.TotalSpent,
	})
}

func (a *App) CreditsTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := a.Ledger.Transactions(r.Context(), a.currentUserID(r), queryLimit(r, 50, 200))
	if err != nil {
		a.fail(w, r, err, "credits.transactions")
		return
	}
	items := make([]creditTransactionDTO, 0, len(txs))
	for _, tx := range txs {
		items = append(items, creditTransactionDTO{
			ID:           tx.ID,
			Amount:       tx.Amount,
			Type:         tx.Type,
			Description:  tx.Description,
			ContentID:    tx.ContentID,
			BalanceAfter: tx.BalanceAfter,
			CreatedAt:    tx.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
