package wallet

import (
	"context"
	"database/sql"
	"errors"

	"canteen-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	FindWallet(ctx context.Context, userID string, canteenID int64) (*Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]*Wallet, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]*Transaction, error)

	// GetForUpdate reads the wallet row with a row-level lock inside the
	// caller's transaction, serializing concurrent debits on that wallet.
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID string, canteenID int64) (*Wallet, error)

	// ApplyTx mutates the balance and appends the matching ledger row in the
	// caller's transaction. A balance change without its ledger row (or vice
	// versa) is impossible: both statements commit or roll back together.
	// Amount is signed; sufficiency is the caller's check.
	ApplyTx(ctx context.Context, tx *sql.Tx, walletID int64, amount decimal.Decimal, reference, performedBy string) error

	// CreateWalletTx inserts a wallet with zero balance inside the caller's
	// transaction, used for lazy creation on first top-up.
	CreateWalletTx(ctx context.Context, tx *sql.Tx, userID string, canteenID int64) (*Wallet, error)

	BeginTx(ctx context.Context) (*sql.Tx, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const walletColumns = `id, user_id, canteen_id, balance, created_at, updated_at`

func (r *repository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

func scanWallet(row *sql.Row) (*Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.CanteenID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repository) FindWallet(ctx context.Context, userID string, canteenID int64) (*Wallet, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1 AND canteen_id = $2
	`, userID, canteenID)
	return scanWallet(row)
}

func (r *repository) ListWallets(ctx context.Context, userID string) ([]*Wallet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1
		ORDER BY canteen_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []*Wallet
	for rows.Next() {
		var w Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.CanteenID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		wallets = append(wallets, &w)
	}
	return wallets, rows.Err()
}

func (r *repository) ListTransactions(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.wallet_id, t.amount, t.reference, t.performed_by, t.created_at
		FROM wallet_transactions t
		JOIN wallets w ON w.id = t.wallet_id
		WHERE w.user_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Amount, &t.Reference, &t.PerformedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

func (r *repository) GetForUpdate(ctx context.Context, tx *sql.Tx, userID string, canteenID int64) (*Wallet, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1 AND canteen_id = $2
		FOR UPDATE
	`, userID, canteenID)
	return scanWallet(row)
}

func (r *repository) ApplyTx(ctx context.Context, tx *sql.Tx, walletID int64, amount decimal.Decimal, reference, performedBy string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ApplyTx"),
		zap.Int64("wallet_id", walletID),
		zap.String("amount", amount.String()),
	)

	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
	`, amount, walletID)
	if err != nil {
		log.Error("failed to update balance", zap.Error(err))
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWalletNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (wallet_id, amount, reference, performed_by)
		VALUES ($1, $2, $3, $4)
	`, walletID, amount, reference, performedBy)
	if err != nil {
		log.Error("failed to append ledger row", zap.Error(err))
		return err
	}

	return nil
}

func (r *repository) CreateWalletTx(ctx context.Context, tx *sql.Tx, userID string, canteenID int64) (*Wallet, error) {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id, canteen_id, balance)
		VALUES ($1, $2, 0)
		RETURNING `+walletColumns+`
	`, userID, canteenID)

	var w Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.CanteenID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
