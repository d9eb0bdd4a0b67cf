package wallet

import (
	"context"

	"canteen-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service covers the admin-facing credit path and the read side. Debits are
// not exposed here: they happen only inside the order placement transaction,
// which owns the sufficiency check.
type Service interface {
	AddFunds(ctx context.Context, adminUserID, userID string, canteenID int64, amount decimal.Decimal, reference string) error
	GetWallets(ctx context.Context, userID string) ([]*Wallet, error)
	GetTransactions(ctx context.Context, userID string, limit int) ([]*Transaction, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) AddFunds(ctx context.Context, adminUserID, userID string, canteenID int64, amount decimal.Decimal, reference string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddFunds"),
		zap.String("user_id", userID),
		zap.Int64("canteen_id", canteenID),
		zap.String("amount", amount.String()),
	)

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback top-up", zap.Error(rbErr))
			}
		}
	}()

	// Lazy wallet creation on first top-up
	w, err := s.repo.GetForUpdate(ctx, tx, userID, canteenID)
	if err != nil {
		return err
	}
	if w == nil {
		w, err = s.repo.CreateWalletTx(ctx, tx, userID, canteenID)
		if err != nil {
			return err
		}
	}

	if err := s.repo.ApplyTx(ctx, tx, w.ID, amount, reference, adminUserID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	log.Info("wallet credited", zap.Int64("wallet_id", w.ID))
	return nil
}

func (s *service) GetWallets(ctx context.Context, userID string) ([]*Wallet, error) {
	return s.repo.ListWallets(ctx, userID)
}

func (s *service) GetTransactions(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit)
}
