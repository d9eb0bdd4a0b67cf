package order

import (
	"context"
	"time"

	"canteen-be/internal/canteen"
	"canteen-be/internal/logger"
	"canteen-be/internal/notify"

	"go.uber.org/zap"
)

type Service interface {
	PlaceOrder(ctx context.Context, userID string, canteenID int64, paymentMethod string, accessCode *string) (*PlaceOrderResult, error)

	// UpdateStatus is the canteen-side transition. A non-nil actorCanteenID
	// scopes the actor to one canteen; moving into completed requires the
	// pickup code the consumer presents at the counter.
	UpdateStatus(ctx context.Context, actorID string, actorCanteenID *int64, orderID int64, newStatus Status, pin *string) error

	// Cancel is the consumer-side transition, restricted to the order owner.
	Cancel(ctx context.Context, userID string, orderID int64) error

	GetOrder(ctx context.Context, userID string, orderID int64) (*Order, error)
	GetUserOrders(ctx context.Context, userID string, limit int) ([]*Order, error)
	GetCanteenOrders(ctx context.Context, canteenID int64, statuses []Status) ([]*Order, error)
}

type service struct {
	repo     Repository
	canteens canteen.Repository
	notifier notify.Notifier
}

func NewService(repo Repository, canteens canteen.Repository, notifier notify.Notifier) Service {
	return &service{repo: repo, canteens: canteens, notifier: notifier}
}

func (s *service) PlaceOrder(ctx context.Context, userID string, canteenID int64, paymentMethod string, accessCode *string) (*PlaceOrderResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.String("user_id", userID),
		zap.Int64("canteen_id", canteenID),
	)

	if paymentMethod != PaymentWallet && paymentMethod != PaymentPostpaid {
		return nil, ErrInvalidPayment
	}

	c, err := s.canteens.GetByID(ctx, canteenID)
	if err != nil {
		return nil, err
	}
	if !c.IsOpen || !c.Active {
		return nil, canteen.ErrCanteenClosed
	}

	result, err := s.repo.PlaceOrder(ctx, PlaceOrderParams{
		UserID:        userID,
		CanteenID:     canteenID,
		PaymentMethod: paymentMethod,
		AccessCode:    accessCode,
	})
	if err != nil {
		log.Warn("checkout failed", zap.Error(err))
		return nil, err
	}

	// Best effort only, the orders are already committed.
	for _, po := range result.Orders {
		ev := notify.Event{
			Type:        notify.EventNewOrder,
			OrderID:     po.ID,
			OrderNumber: po.OrderNumber,
			Status:      string(StatusPending),
			CanteenID:   canteenID,
			UserID:      po.UserID,
			TotalAmount: po.TotalAmount.StringFixed(2),
			Timestamp:   time.Now(),
		}
		s.notifier.NotifyUser(po.UserID, ev)
		s.notifier.NotifyCanteen(canteenID, ev)
	}

	return result, nil
}

func (s *service) UpdateStatus(ctx context.Context, actorID string, actorCanteenID *int64, orderID int64, newStatus Status, pin *string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.Int64("order_id", orderID),
		zap.String("new_status", string(newStatus)),
	)

	if !newStatus.Valid() || newStatus == StatusPending {
		return ErrInvalidStatus
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if actorCanteenID != nil && *actorCanteenID != o.CanteenID {
		return ErrForbidden
	}
	if o.Status.Terminal() {
		return ErrInvalidState
	}
	if !CanTransition(o.Status, newStatus) {
		return ErrInvalidState
	}
	if newStatus == StatusCompleted {
		if pin == nil || *pin != o.OTP {
			return ErrInvalidPin
		}
	}

	if err := s.repo.UpdateStatus(ctx, orderID, o.Status, newStatus, actorID); err != nil {
		return err
	}

	log.Info("order transitioned", zap.String("from", string(o.Status)))
	s.notifyStatus(o, newStatus)
	return nil
}

func (s *service) Cancel(ctx context.Context, userID string, orderID int64) error {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if o.UserID != userID {
		return ErrForbidden
	}
	if o.Status.Terminal() {
		return ErrInvalidState
	}

	if err := s.repo.UpdateStatus(ctx, orderID, o.Status, StatusCancelled, userID); err != nil {
		return err
	}

	s.notifyStatus(o, StatusCancelled)
	return nil
}

func (s *service) notifyStatus(o *Order, newStatus Status) {
	ev := notify.Event{
		Type:           notify.EventOrderStatus,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         string(newStatus),
		PreviousStatus: string(o.Status),
		CanteenID:      o.CanteenID,
		UserID:         o.UserID,
		Timestamp:      time.Now(),
	}
	s.notifier.NotifyUser(o.UserID, ev)
	s.notifier.NotifyCanteen(o.CanteenID, ev)
}

func (s *service) GetOrder(ctx context.Context, userID string, orderID int64) (*Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *service) GetUserOrders(ctx context.Context, userID string, limit int) ([]*Order, error) {
	return s.repo.GetUserOrders(ctx, userID, limit)
}

func (s *service) GetCanteenOrders(ctx context.Context, canteenID int64, statuses []Status) ([]*Order, error) {
	return s.repo.GetCanteenOrders(ctx, canteenID, statuses)
}
