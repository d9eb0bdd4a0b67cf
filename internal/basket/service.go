package basket

import (
	"context"
	"sort"
	"strings"

	"canteen-be/internal/ident"
	"canteen-be/internal/logger"
	"canteen-be/internal/menu"

	"go.uber.org/zap"
)

// Service defines the business logic for baskets, including the shared-basket
// access-code flow.
type Service interface {
	AddItem(ctx context.Context, params AddItemParams) error
	UpdateQuantity(ctx context.Context, userID string, lineID int64, quantity int) error
	RemoveItem(ctx context.Context, userID string, lineID int64) error
	Clear(ctx context.Context, userID string, canteenID int64) error

	Share(ctx context.Context, userID string, canteenID int64) (string, error)
	Join(ctx context.Context, userID, accessCode string) error
	Leave(ctx context.Context, userID string, canteenID int64) error

	GetBasketLines(ctx context.Context, userID string, canteenID int64) ([]*Line, error)
	GetBaskets(ctx context.Context, userID string) ([]*Basket, error)
}

type service struct {
	repo     Repository
	menuRepo menu.Repository
}

func NewService(repo Repository, menuRepo menu.Repository) Service {
	return &service{repo: repo, menuRepo: menuRepo}
}

// findOrCreateBasket lazily creates the user's basket for a canteen on first
// use, optionally stamping an access code at creation time.
func (s *service) findOrCreateBasket(ctx context.Context, userID string, canteenID int64, accessCode *string) (*Basket, error) {
	b, err := s.repo.FindBasket(ctx, userID, canteenID)
	if err != nil {
		return nil, err
	}
	if b != nil {
		return b, nil
	}
	return s.repo.CreateBasket(ctx, ident.NewID(), userID, canteenID, accessCode)
}

// sameAddonSet compares two addon id sets order-independently. Addons are
// multiplicity-free per line, so set equality is enough.
func sameAddonSet(a []int64, b []LineAddon) bool {
	if len(a) != len(b) {
		return false
	}

	left := append([]int64(nil), a...)
	right := make([]int64, 0, len(b))
	for _, la := range b {
		right = append(right, la.AddonID)
	}

	sort.Slice(left, func(i, j int) bool { return left[i] < left[j] })
	sort.Slice(right, func(i, j int) bool { return right[i] < right[j] })

	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}

func (s *service) AddItem(ctx context.Context, params AddItemParams) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.String("user_id", params.UserID),
		zap.Int64("menu_item_id", params.MenuItemID),
	)

	if params.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	item, err := s.menuRepo.GetItem(ctx, params.MenuItemID)
	if err != nil {
		return err
	}
	if !item.IsAvailable {
		return menu.ErrItemUnavailable
	}
	if item.CanteenID != params.CanteenID {
		return menu.ErrItemNotFound
	}

	if params.VariantID != nil {
		variant, err := s.menuRepo.GetVariant(ctx, *params.VariantID)
		if err != nil {
			return err
		}
		if variant.ItemID != item.ID {
			return menu.ErrVariantNotFound
		}
	}

	if len(params.AddonIDs) > 0 {
		addons, err := s.menuRepo.GetAddonsByIDs(ctx, params.AddonIDs)
		if err != nil {
			return err
		}
		if len(addons) != len(params.AddonIDs) {
			return menu.ErrAddonNotFound
		}
		for _, a := range addons {
			if a.ItemID != item.ID {
				return menu.ErrAddonNotFound
			}
		}
	}

	b, err := s.findOrCreateBasket(ctx, params.UserID, params.CanteenID, nil)
	if err != nil {
		return err
	}

	// De-duplicate by full line identity: same item, same variant, same
	// addon set, added by the same user → bump quantity instead of a new row.
	existing, err := s.repo.GetLinesByIdentity(ctx, b.ID, params.MenuItemID, params.VariantID, params.UserID)
	if err != nil {
		return err
	}
	for _, line := range existing {
		if sameAddonSet(params.AddonIDs, line.Addons) {
			log.Debug("duplicate line, incrementing quantity", zap.Int64("line_id", line.ID))
			return s.repo.IncrementLineQuantity(ctx, line.ID, params.Quantity)
		}
	}

	_, err = s.repo.InsertLine(ctx, insertLineParams{
		BasketID:   b.ID,
		MenuItemID: params.MenuItemID,
		VariantID:  params.VariantID,
		Quantity:   params.Quantity,
		AddedBy:    params.UserID,
		AddonIDs:   params.AddonIDs,
	})
	return err
}

func (s *service) UpdateQuantity(ctx context.Context, userID string, lineID int64, quantity int) error {
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return err
	}

	// Only the user who added a line may mutate it, even in a shared basket.
	if line.AddedBy != userID {
		return ErrForbidden
	}

	if quantity <= 0 {
		return s.repo.DeleteLine(ctx, lineID)
	}
	return s.repo.UpdateLineQuantity(ctx, lineID, quantity)
}

func (s *service) RemoveItem(ctx context.Context, userID string, lineID int64) error {
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return err
	}
	if line.AddedBy != userID {
		return ErrForbidden
	}
	return s.repo.DeleteLine(ctx, lineID)
}

func (s *service) Clear(ctx context.Context, userID string, canteenID int64) error {
	b, err := s.repo.FindBasket(ctx, userID, canteenID)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	return s.repo.DeleteUserLines(ctx, b.ID, userID)
}

func (s *service) Share(ctx context.Context, userID string, canteenID int64) (string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Share"),
		zap.String("user_id", userID),
		zap.Int64("canteen_id", canteenID),
	)

	b, err := s.findOrCreateBasket(ctx, userID, canteenID, nil)
	if err != nil {
		return "", err
	}

	// Re-sharing mints a fresh code. Previously issued codes stop working
	// for new joiners; members already stamped keep theirs.
	code := ident.NewAccessCode()
	if err := s.repo.SetAccessCode(ctx, b.ID, &code); err != nil {
		return "", err
	}

	log.Info("basket shared", zap.String("basket_id", b.ID))
	return code, nil
}

func (s *service) Join(ctx context.Context, userID, accessCode string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Join"),
		zap.String("user_id", userID),
	)

	accessCode = strings.ToUpper(strings.TrimSpace(accessCode))
	if len(accessCode) != 8 {
		return ErrInvalidAccessCode
	}

	origin, err := s.repo.FindByAccessCode(ctx, accessCode)
	if err != nil {
		return err
	}
	if origin == nil {
		return ErrInvalidAccessCode
	}
	if origin.CreatedBy == userID {
		return ErrOwnShare
	}

	// Merge-by-relabeling: the joiner's own basket for that canteen (created
	// lazily if absent) gets stamped with the same code, which makes any
	// pre-existing contents visible to the group.
	own, err := s.findOrCreateBasket(ctx, userID, origin.CanteenID, &accessCode)
	if err != nil {
		return err
	}
	if own.AccessCode == nil || *own.AccessCode != accessCode {
		if err := s.repo.SetAccessCode(ctx, own.ID, &accessCode); err != nil {
			return err
		}
	}

	log.Info("joined shared basket", zap.Int64("canteen_id", origin.CanteenID))
	return nil
}

func (s *service) Leave(ctx context.Context, userID string, canteenID int64) error {
	b, err := s.repo.FindBasket(ctx, userID, canteenID)
	if err != nil {
		return err
	}
	if b == nil || b.AccessCode == nil {
		return nil
	}
	// Detach from the group; basket contents are kept.
	return s.repo.SetAccessCode(ctx, b.ID, nil)
}

// GetBasketLines returns what the user sees for one canteen: their own lines,
// or the whole group's union when their basket is part of a share.
func (s *service) GetBasketLines(ctx context.Context, userID string, canteenID int64) ([]*Line, error) {
	b, err := s.repo.FindBasket(ctx, userID, canteenID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	if b.AccessCode != nil {
		return s.repo.GetGroupLines(ctx, canteenID, *b.AccessCode)
	}
	return s.repo.GetBasketLines(ctx, b.ID)
}

// GetBaskets lists the user's baskets across all canteens, the basket page's
// overview query.
func (s *service) GetBaskets(ctx context.Context, userID string) ([]*Basket, error) {
	return s.repo.ListUserBaskets(ctx, userID)
}
