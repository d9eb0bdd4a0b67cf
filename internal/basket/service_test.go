package basket

import (
	"context"
	"testing"

	"canteen-be/internal/menu"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindBasket(ctx context.Context, userID string, canteenID int64) (*Basket, error) {
	args := m.Called(ctx, userID, canteenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Basket), args.Error(1)
}

func (m *MockRepository) CreateBasket(ctx context.Context, id, userID string, canteenID int64, accessCode *string) (*Basket, error) {
	args := m.Called(ctx, id, userID, canteenID, accessCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Basket), args.Error(1)
}

func (m *MockRepository) SetAccessCode(ctx context.Context, basketID string, accessCode *string) error {
	args := m.Called(ctx, basketID, accessCode)
	return args.Error(0)
}

func (m *MockRepository) FindByAccessCode(ctx context.Context, accessCode string) (*Basket, error) {
	args := m.Called(ctx, accessCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Basket), args.Error(1)
}

func (m *MockRepository) ListUserBaskets(ctx context.Context, userID string) ([]*Basket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Basket), args.Error(1)
}

func (m *MockRepository) GetLine(ctx context.Context, lineID int64) (*Line, error) {
	args := m.Called(ctx, lineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Line), args.Error(1)
}

func (m *MockRepository) GetLinesByIdentity(ctx context.Context, basketID string, menuItemID int64, variantID *int64, addedBy string) ([]*Line, error) {
	args := m.Called(ctx, basketID, menuItemID, variantID, addedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Line), args.Error(1)
}

func (m *MockRepository) GetBasketLines(ctx context.Context, basketID string) ([]*Line, error) {
	args := m.Called(ctx, basketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Line), args.Error(1)
}

func (m *MockRepository) GetGroupLines(ctx context.Context, canteenID int64, accessCode string) ([]*Line, error) {
	args := m.Called(ctx, canteenID, accessCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Line), args.Error(1)
}

func (m *MockRepository) InsertLine(ctx context.Context, params insertLineParams) (int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) IncrementLineQuantity(ctx context.Context, lineID int64, by int) error {
	args := m.Called(ctx, lineID, by)
	return args.Error(0)
}

func (m *MockRepository) UpdateLineQuantity(ctx context.Context, lineID int64, quantity int) error {
	args := m.Called(ctx, lineID, quantity)
	return args.Error(0)
}

func (m *MockRepository) DeleteLine(ctx context.Context, lineID int64) error {
	args := m.Called(ctx, lineID)
	return args.Error(0)
}

func (m *MockRepository) DeleteUserLines(ctx context.Context, basketID, addedBy string) error {
	args := m.Called(ctx, basketID, addedBy)
	return args.Error(0)
}

type MockMenuRepository struct {
	mock.Mock
}

func (m *MockMenuRepository) GetItem(ctx context.Context, itemID int64) (*menu.MenuItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.MenuItem), args.Error(1)
}

func (m *MockMenuRepository) GetVariant(ctx context.Context, variantID int64) (*menu.Variant, error) {
	args := m.Called(ctx, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*menu.Variant), args.Error(1)
}

func (m *MockMenuRepository) GetAddonsByIDs(ctx context.Context, addonIDs []int64) ([]menu.Addon, error) {
	args := m.Called(ctx, addonIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]menu.Addon), args.Error(1)
}

func (m *MockMenuRepository) GetMenu(ctx context.Context, canteenID int64) ([]*menu.MenuItem, error) {
	args := m.Called(ctx, canteenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*menu.MenuItem), args.Error(1)
}

// --- Fixtures ---

func activeItem(id, canteenID int64) *menu.MenuItem {
	return &menu.MenuItem{
		ID:          id,
		CanteenID:   canteenID,
		Name:        "Samosa",
		Price:       decimal.RequireFromString("15.00"),
		IsAvailable: true,
		Active:      true,
	}
}

func userBasket() *Basket {
	return &Basket{ID: "bsk-1", CreatedBy: "u-1", CanteenID: 1}
}

// --- Tests ---

func TestService_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidQuantity", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockMenuRepository))
		err := svc.AddItem(ctx, AddItemParams{UserID: "u-1", CanteenID: 1, MenuItemID: 10, Quantity: 0})
		assert.Equal(t, ErrInvalidQuantity, err)
	})

	t.Run("UnavailableItem", func(t *testing.T) {
		menuRepo := new(MockMenuRepository)
		item := activeItem(10, 1)
		item.IsAvailable = false
		menuRepo.On("GetItem", ctx, int64(10)).Return(item, nil)

		svc := NewService(new(MockRepository), menuRepo)
		err := svc.AddItem(ctx, AddItemParams{UserID: "u-1", CanteenID: 1, MenuItemID: 10, Quantity: 1})
		assert.Equal(t, menu.ErrItemUnavailable, err)
	})

	t.Run("WrongCanteen", func(t *testing.T) {
		menuRepo := new(MockMenuRepository)
		menuRepo.On("GetItem", ctx, int64(10)).Return(activeItem(10, 2), nil)

		svc := NewService(new(MockRepository), menuRepo)
		err := svc.AddItem(ctx, AddItemParams{UserID: "u-1", CanteenID: 1, MenuItemID: 10, Quantity: 1})
		assert.Equal(t, menu.ErrItemNotFound, err)
	})

	t.Run("NewLine", func(t *testing.T) {
		repo := new(MockRepository)
		menuRepo := new(MockMenuRepository)
		menuRepo.On("GetItem", ctx, int64(10)).Return(activeItem(10, 1), nil)
		repo.On("FindBasket", ctx, "u-1", int64(1)).Return(userBasket(), nil)
		repo.On("GetLinesByIdentity", ctx, "bsk-1", int64(10), (*int64)(nil), "u-1").Return([]*Line{}, nil)
		repo.On("InsertLine", ctx, mock.MatchedBy(func(p insertLineParams) bool {
			return p.BasketID == "bsk-1" && p.Quantity == 2 && p.AddedBy == "u-1"
		})).Return(int64(100), nil)

		svc := NewService(repo, menuRepo)
		err := svc.AddItem(ctx, AddItemParams{UserID: "u-1", CanteenID: 1, MenuItemID: 10, Quantity: 2})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("DuplicateLineIncrementsQuantity", func(t *testing.T) {
		repo := new(MockRepository)
		menuRepo := new(MockMenuRepository)
		menuRepo.On("GetItem", ctx, int64(10)).Return(activeItem(10, 1), nil)
		menuRepo.On("GetAddonsByIDs", ctx, []int64{5}).Return([]menu.Addon{{ID: 5, ItemID: 10}}, nil)
		repo.On("FindBasket", ctx, "u-1", int64(1)).Return(userBasket(), nil)
		repo.On("GetLinesByIdentity", ctx, "bsk-1", int64(10), (*int64)(nil), "u-1").
			Return([]*Line{{ID: 100, Addons: []LineAddon{{AddonID: 5}}}}, nil)
		repo.On("IncrementLineQuantity", ctx, int64(100), 1).Return(nil)

		svc := NewService(repo, menuRepo)
		err := svc.AddItem(ctx, AddItemParams{
			UserID: "u-1", CanteenID: 1, MenuItemID: 10, Quantity: 1, AddonIDs: []int64{5},
		})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("DifferentAddonSetCreatesNewLine", func(t *testing.T) {
		repo := new(MockRepository)
		menuRepo := new(MockMenuRepository)
		menuRepo.On("GetItem", ctx, int64(10)).Return(activeItem(10, 1), nil)
		menuRepo.On("GetAddonsByIDs", ctx, []int64{6}).Return([]menu.Addon{{ID: 6, ItemID: 10}}, nil)
		repo.On("FindBasket", ctx, "u-1", int64(1)).Return(userBasket(), nil)
		repo.On("GetLinesByIdentity", ctx, "bsk-1", int64(10), (*int64)(nil), "u-1").
			Return([]*Line{{ID: 100, Addons: []LineAddon{{AddonID: 5}}}}, nil)
		repo.On("InsertLine", ctx, mock.Anything).Return(int64(101), nil)

		svc := NewService(repo, menuRepo)
		err := svc.AddItem(ctx, AddItemParams{
			UserID: "u-1", CanteenID: 1, MenuItemID: 10, Quantity: 1, AddonIDs: []int64{6},
		})
		assert.NoError(t, err)
		repo.AssertNotCalled(t, "IncrementLineQuantity", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("LazyBasketCreation", func(t *testing.T) {
		repo := new(MockRepository)
		menuRepo := new(MockMenuRepository)
		menuRepo.On("GetItem", ctx, int64(10)).Return(activeItem(10, 1), nil)
		repo.On("FindBasket", ctx, "u-1", int64(1)).Return(nil, nil)
		repo.On("CreateBasket", ctx, mock.AnythingOfType("string"), "u-1", int64(1), (*string)(nil)).
			Return(userBasket(), nil)
		repo.On("GetLinesByIdentity", ctx, "bsk-1", int64(10), (*int64)(nil), "u-1").Return([]*Line{}, nil)
		repo.On("InsertLine", ctx, mock.Anything).Return(int64(100), nil)

		svc := NewService(repo, menuRepo)
		err := svc.AddItem(ctx, AddItemParams{UserID: "u-1", CanteenID: 1, MenuItemID: 10, Quantity: 1})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestService_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("ForbiddenForNonOwner", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetLine", ctx, int64(100)).Return(&Line{ID: 100, AddedBy: "u-2"}, nil)

		svc := NewService(repo, new(MockMenuRepository))
		err := svc.UpdateQuantity(ctx, "u-1", 100, 3)
		assert.Equal(t, ErrForbidden, err)
		repo.AssertNotCalled(t, "UpdateLineQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ZeroQuantityDeletes", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetLine", ctx, int64(100)).Return(&Line{ID: 100, AddedBy: "u-1"}, nil)
		repo.On("DeleteLine", ctx, int64(100)).Return(nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.NoError(t, svc.UpdateQuantity(ctx, "u-1", 100, 0))
		repo.AssertExpectations(t)
	})

	t.Run("PositiveQuantityUpdates", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetLine", ctx, int64(100)).Return(&Line{ID: 100, AddedBy: "u-1"}, nil)
		repo.On("UpdateLineQuantity", ctx, int64(100), 5).Return(nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.NoError(t, svc.UpdateQuantity(ctx, "u-1", 100, 5))
		repo.AssertExpectations(t)
	})
}

func TestService_RemoveItem(t *testing.T) {
	ctx := context.Background()

	t.Run("ForbiddenForNonOwner", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetLine", ctx, int64(100)).Return(&Line{ID: 100, AddedBy: "u-2"}, nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.Equal(t, ErrForbidden, svc.RemoveItem(ctx, "u-1", 100))
	})

	t.Run("OwnerDeletes", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetLine", ctx, int64(100)).Return(&Line{ID: 100, AddedBy: "u-1"}, nil)
		repo.On("DeleteLine", ctx, int64(100)).Return(nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.NoError(t, svc.RemoveItem(ctx, "u-1", 100))
	})
}

func TestService_Share(t *testing.T) {
	ctx := context.Background()

	repo := new(MockRepository)
	repo.On("FindBasket", ctx, "u-1", int64(1)).Return(userBasket(), nil)
	repo.On("SetAccessCode", ctx, "bsk-1", mock.MatchedBy(func(code *string) bool {
		return code != nil && len(*code) == 8
	})).Return(nil)

	svc := NewService(repo, new(MockMenuRepository))
	code, err := svc.Share(ctx, "u-1", 1)
	assert.NoError(t, err)
	assert.Len(t, code, 8)
	repo.AssertExpectations(t)
}

func TestService_Join(t *testing.T) {
	ctx := context.Background()
	code := "ABCD2345"

	t.Run("InvalidCode", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockMenuRepository))
		assert.Equal(t, ErrInvalidAccessCode, svc.Join(ctx, "u-2", "short"))
	})

	t.Run("UnknownCode", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindByAccessCode", ctx, code).Return(nil, nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.Equal(t, ErrInvalidAccessCode, svc.Join(ctx, "u-2", code))
	})

	t.Run("CannotJoinOwnShare", func(t *testing.T) {
		repo := new(MockRepository)
		origin := userBasket()
		origin.AccessCode = &code
		repo.On("FindByAccessCode", ctx, code).Return(origin, nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.Equal(t, ErrOwnShare, svc.Join(ctx, "u-1", code))
	})

	t.Run("StampsExistingBasket", func(t *testing.T) {
		repo := new(MockRepository)
		origin := userBasket()
		origin.AccessCode = &code
		repo.On("FindByAccessCode", ctx, code).Return(origin, nil)
		repo.On("FindBasket", ctx, "u-2", int64(1)).
			Return(&Basket{ID: "bsk-2", CreatedBy: "u-2", CanteenID: 1}, nil)
		repo.On("SetAccessCode", ctx, "bsk-2", &code).Return(nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.NoError(t, svc.Join(ctx, "u-2", code))
		repo.AssertExpectations(t)
	})

	t.Run("LowercaseCodeNormalized", func(t *testing.T) {
		repo := new(MockRepository)
		origin := userBasket()
		origin.AccessCode = &code
		repo.On("FindByAccessCode", ctx, code).Return(origin, nil)
		repo.On("FindBasket", ctx, "u-2", int64(1)).Return(nil, nil)
		repo.On("CreateBasket", ctx, mock.AnythingOfType("string"), "u-2", int64(1), &code).
			Return(&Basket{ID: "bsk-2", CreatedBy: "u-2", CanteenID: 1, AccessCode: &code}, nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.NoError(t, svc.Join(ctx, "u-2", "abcd2345"))
		repo.AssertExpectations(t)
	})
}

func TestService_Leave(t *testing.T) {
	ctx := context.Background()
	code := "ABCD2345"

	t.Run("DetachesFromGroup", func(t *testing.T) {
		repo := new(MockRepository)
		b := userBasket()
		b.AccessCode = &code
		repo.On("FindBasket", ctx, "u-1", int64(1)).Return(b, nil)
		repo.On("SetAccessCode", ctx, "bsk-1", (*string)(nil)).Return(nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.NoError(t, svc.Leave(ctx, "u-1", 1))
		repo.AssertExpectations(t)
	})

	t.Run("NoopWithoutShare", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindBasket", ctx, "u-1", int64(1)).Return(userBasket(), nil)

		svc := NewService(repo, new(MockMenuRepository))
		assert.NoError(t, svc.Leave(ctx, "u-1", 1))
		repo.AssertNotCalled(t, "SetAccessCode", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_GetBasketLines(t *testing.T) {
	ctx := context.Background()
	code := "ABCD2345"

	t.Run("SharedBasketReturnsGroupUnion", func(t *testing.T) {
		repo := new(MockRepository)
		b := userBasket()
		b.AccessCode = &code
		repo.On("FindBasket", ctx, "u-1", int64(1)).Return(b, nil)
		repo.On("GetGroupLines", ctx, int64(1), code).Return([]*Line{{ID: 1}, {ID: 2}}, nil)

		svc := NewService(repo, new(MockMenuRepository))
		lines, err := svc.GetBasketLines(ctx, "u-1", 1)
		assert.NoError(t, err)
		assert.Len(t, lines, 2)
	})

	t.Run("UnsharedBasketReturnsOwnLines", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindBasket", ctx, "u-1", int64(1)).Return(userBasket(), nil)
		repo.On("GetBasketLines", ctx, "bsk-1").Return([]*Line{{ID: 1}}, nil)

		svc := NewService(repo, new(MockMenuRepository))
		lines, err := svc.GetBasketLines(ctx, "u-1", 1)
		assert.NoError(t, err)
		assert.Len(t, lines, 1)
	})
}

func TestService_GetBaskets(t *testing.T) {
	ctx := context.Background()

	repo := new(MockRepository)
	code := "WXYZ2345"
	repo.On("ListUserBaskets", ctx, "u-1").Return([]*Basket{
		{ID: "bsk-1", CreatedBy: "u-1", CanteenID: 1},
		{ID: "bsk-2", CreatedBy: "u-1", CanteenID: 2, AccessCode: &code},
	}, nil)

	svc := NewService(repo, new(MockMenuRepository))
	baskets, err := svc.GetBaskets(ctx, "u-1")
	assert.NoError(t, err)
	assert.Len(t, baskets, 2)
	assert.Nil(t, baskets[0].AccessCode)
	assert.Equal(t, &code, baskets[1].AccessCode)
}

func TestSameAddonSet(t *testing.T) {
	assert.True(t, sameAddonSet(nil, nil))
	assert.True(t, sameAddonSet([]int64{2, 1}, []LineAddon{{AddonID: 1}, {AddonID: 2}}))
	assert.False(t, sameAddonSet([]int64{1}, []LineAddon{{AddonID: 2}}))
	assert.False(t, sameAddonSet([]int64{1, 2}, []LineAddon{{AddonID: 1}}))
}
