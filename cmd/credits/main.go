package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"aisocial/internal/adapter/repo"
	"aisocial/internal/domain"
	"aisocial/internal/infra"
)

func main() {
	_ = godotenv.Load()

	var (
		ownerFlag  string
		amountFlag string
		typeFlag   string
		descFlag   string
		keyFlag    string
		showFlag   bool
	)

	flag.StringVar(&ownerFlag, "owner", "", "account owner id")
	flag.StringVar(&amountFlag, "amount", "", "signed credit amount, e.g. 50 or -5")
	flag.StringVar(&typeFlag, "type", string(domain.TransactionPurchase), "transaction type (purchase, refund, adjustment)")
	flag.StringVar(&descFlag, "description", "", "description stored on the transaction")
	flag.StringVar(&keyFlag, "idempotency-key", "", "optional key that makes the grant safe to retry")
	flag.BoolVar(&showFlag, "show", false, "print the balance and recent transactions without writing")
	flag.Parse()

	owner := strings.TrimSpace(ownerFlag)
	if owner == "" {
		exitWithError(errors.New("-owner is required"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "credits").Logger()
	ledger := repo.NewCreditLedger(infra.NewSQLRunner(pool, logger))

	if showFlag {
		printAccount(ctx, ledger, owner)
		return
	}

	entry, err := parseGrant(owner, amountFlag, typeFlag, descFlag, keyFlag)
	if err != nil {
		exitWithError(err)
	}
	tx, err := ledger.Apply(ctx, entry)
	if err != nil {
		exitWithError(fmt.Errorf("apply transaction: %w", err))
	}
	fmt.Printf("transaction %s recorded: %s %s, balance now %s\n", tx.ID, tx.Type, tx.Amount, tx.BalanceAfter)
}

// parseGrant validates the flag values before anything touches the database.
func parseGrant(owner, amount, txType, description, key string) (domain.CreditTransaction, error) {
	amt, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return domain.CreditTransaction{}, fmt.Errorf("invalid -amount %q", amount)
	}
	if amt.IsZero() {
		return domain.CreditTransaction{}, errors.New("-amount must not be zero")
	}
	t := domain.TransactionType(strings.ToLower(strings.TrimSpace(txType)))
	if !t.Valid() || t == domain.TransactionGeneration {
		return domain.CreditTransaction{}, fmt.Errorf("unsupported -type %q", txType)
	}
	if t == domain.TransactionPurchase && !amt.IsPositive() {
		return domain.CreditTransaction{}, errors.New("purchases must be positive")
	}
	if description == "" {
		description = fmt.Sprintf("manual %s", t)
	}
	return domain.CreditTransaction{
		OwnerID:        owner,
		Amount:         amt,
		Type:           t,
		Description:    description,
		IdempotencyKey: strings.TrimSpace(key),
		Metadata:       map[string]any{"source": "cli"},
	}, nil
}

func printAccount(ctx context.Context, ledger domain.CreditLedger, owner string) {
	acct, err := ledger.Account(ctx, owner)
	if err != nil {
		exitWithError(fmt.Errorf("load account: %w", err))
	}
	fmt.Printf("owner %s: balance %s, reserved %s, available %s\n", owner, acct.Balance, acct.Reserved, acct.Available())
	txs, err := ledger.Transactions(ctx, owner, 10)
	if err != nil {
		exitWithError(fmt.Errorf("load transactions: %w", err))
	}
	for _, tx := range txs {
		fmt.Printf("  %s  %-10s %8s  %s\n", tx.CreatedAt.Format(time.RFC3339), tx.Type, tx.Amount, tx.Description)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
