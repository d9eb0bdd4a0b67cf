package order

import (
	"context"
	"testing"
	"time"

	"canteen-be/internal/canteen"
	"canteen-be/internal/wallet"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basketRows(pairs ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "created_by"})
	for i := 0; i+1 < len(pairs); i += 2 {
		rows.AddRow(pairs[i], pairs[i+1])
	}
	return rows
}

func lineColumns() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "menu_item_id", "variant_id", "quantity", "added_by",
		"name", "price", "v_name", "v_price",
	})
}

func addonColumns() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"basket_item_id", "addon_id", "name", "price"})
}

func counterRows(acronym string, counter int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"acronym", "order_counter"}).AddRow(acronym, counter)
}

func walletRows(balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "canteen_id", "balance", "created_at", "updated_at",
	}).AddRow(1, "u-1", 1, balance, time.Now(), time.Now())
}

func TestRepository_PlaceOrder_SingleBasketPostpaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, created_by FROM baskets WHERE created_by = \$1 AND canteen_id = \$2 FOR UPDATE`).
		WithArgs("u-1", int64(1)).
		WillReturnRows(basketRows("b1", "u-1"))
	mock.ExpectQuery(`SELECT bi.id, .* FROM basket_items bi JOIN menu_items m`).
		WillReturnRows(lineColumns().AddRow(1, 10, nil, 2, "u-1", "Masala Dosa", "50.00", nil, nil))
	mock.ExpectQuery(`SELECT ba.basket_item_id, .* FROM basket_addons ba JOIN addons a`).
		WillReturnRows(addonColumns().AddRow(1, 100, "Extra Cheese", "10.00"))
	mock.ExpectQuery(`UPDATE canteens SET order_counter = order_counter \+ 1`).
		WithArgs(int64(1)).
		WillReturnRows(counterRows("MC", 8))
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO order_addons`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM baskets`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.PlaceOrder(context.Background(), PlaceOrderParams{
		UserID:        "u-1",
		CanteenID:     1,
		PaymentMethod: PaymentPostpaid,
	})
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	assert.Equal(t, "MC-8", result.Orders[0].OrderNumber)
	assert.Equal(t, "u-1", result.Orders[0].UserID)
	// (50 + 10) * 2
	assert.True(t, result.Orders[0].TotalAmount.Equal(decimal.RequireFromString("120")))
	assert.Nil(t, result.LinkingNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PlaceOrder_LinkedGroupCheckout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, created_by FROM baskets WHERE canteen_id = \$1 AND access_code = \$2`).
		WithArgs(int64(1), "WXYZ2345").
		WillReturnRows(basketRows("b1", "u-1", "b2", "u-2"))
	mock.ExpectQuery(`SELECT bi.id, .* FROM basket_items bi JOIN menu_items m`).
		WillReturnRows(lineColumns().
			AddRow(1, 10, nil, 2, "u-1", "Masala Dosa", "50.00", nil, nil).
			AddRow(2, 11, nil, 1, "u-2", "Filter Coffee", "30.00", nil, nil))
	mock.ExpectQuery(`SELECT ba.basket_item_id, .* FROM basket_addons ba JOIN addons a`).
		WillReturnRows(addonColumns().AddRow(1, 100, "Extra Cheese", "10.00"))

	// one counter bump and one order per contributor
	mock.ExpectQuery(`UPDATE canteens SET order_counter = order_counter \+ 1`).
		WithArgs(int64(1)).
		WillReturnRows(counterRows("MC", 8))
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO order_addons`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectQuery(`UPDATE canteens SET order_counter = order_counter \+ 1`).
		WithArgs(int64(1)).
		WillReturnRows(counterRows("MC", 9))
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(`INSERT INTO order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	mock.ExpectExec(`DELETE FROM baskets`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	code := "WXYZ2345"
	result, err := repo.PlaceOrder(context.Background(), PlaceOrderParams{
		UserID:        "u-1",
		CanteenID:     1,
		PaymentMethod: PaymentPostpaid,
		AccessCode:    &code,
	})
	require.NoError(t, err)
	require.Len(t, result.Orders, 2)

	// initiator's order comes first and gets the first counter value
	assert.Equal(t, "u-1", result.Orders[0].UserID)
	assert.Equal(t, "MC-8", result.Orders[0].OrderNumber)
	assert.True(t, result.Orders[0].TotalAmount.Equal(decimal.RequireFromString("120")))

	assert.Equal(t, "u-2", result.Orders[1].UserID)
	assert.Equal(t, "MC-9", result.Orders[1].OrderNumber)
	assert.True(t, result.Orders[1].TotalAmount.Equal(decimal.RequireFromString("30")))

	require.NotNil(t, result.LinkingNumber)
	assert.Regexp(t, `^L-`, *result.LinkingNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PlaceOrder_WalletDebit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, created_by FROM baskets WHERE created_by = \$1`).
		WithArgs("u-1", int64(1)).
		WillReturnRows(basketRows("b1", "u-1"))
	mock.ExpectQuery(`SELECT bi.id, .* FROM basket_items bi JOIN menu_items m`).
		WillReturnRows(lineColumns().AddRow(1, 10, nil, 2, "u-1", "Masala Dosa", "50.00", nil, nil))
	mock.ExpectQuery(`SELECT ba.basket_item_id, .* FROM basket_addons ba JOIN addons a`).
		WillReturnRows(addonColumns())
	mock.ExpectQuery(`SELECT .* FROM wallets .* FOR UPDATE`).
		WithArgs("u-1", int64(1)).
		WillReturnRows(walletRows("200.00"))
	mock.ExpectQuery(`UPDATE canteens SET order_counter = order_counter \+ 1`).
		WithArgs(int64(1)).
		WillReturnRows(counterRows("MC", 8))
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE wallets SET balance = balance \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO wallet_transactions`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "order MC-8", "u-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM baskets`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.PlaceOrder(context.Background(), PlaceOrderParams{
		UserID:        "u-1",
		CanteenID:     1,
		PaymentMethod: PaymentWallet,
	})
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PlaceOrder_InsufficientFundsRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, created_by FROM baskets WHERE created_by = \$1`).
		WithArgs("u-1", int64(1)).
		WillReturnRows(basketRows("b1", "u-1"))
	mock.ExpectQuery(`SELECT bi.id, .* FROM basket_items bi JOIN menu_items m`).
		WillReturnRows(lineColumns().AddRow(1, 10, nil, 3, "u-1", "Thali", "50.00", nil, nil))
	mock.ExpectQuery(`SELECT ba.basket_item_id, .* FROM basket_addons ba JOIN addons a`).
		WillReturnRows(addonColumns())
	mock.ExpectQuery(`SELECT .* FROM wallets .* FOR UPDATE`).
		WithArgs("u-1", int64(1)).
		WillReturnRows(walletRows("100.00"))
	mock.ExpectRollback()

	// total 150 against a balance of 100: nothing past the wallet check runs
	result, err := repo.PlaceOrder(context.Background(), PlaceOrderParams{
		UserID:        "u-1",
		CanteenID:     1,
		PaymentMethod: PaymentWallet,
	})
	assert.Equal(t, ErrInsufficientFunds, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PlaceOrder_MissingWallet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, created_by FROM baskets`).
		WithArgs("u-1", int64(1)).
		WillReturnRows(basketRows("b1", "u-1"))
	mock.ExpectQuery(`SELECT bi.id, .* FROM basket_items bi JOIN menu_items m`).
		WillReturnRows(lineColumns().AddRow(1, 10, nil, 1, "u-1", "Thali", "50.00", nil, nil))
	mock.ExpectQuery(`SELECT ba.basket_item_id, .* FROM basket_addons ba JOIN addons a`).
		WillReturnRows(addonColumns())
	mock.ExpectQuery(`SELECT .* FROM wallets .* FOR UPDATE`).
		WithArgs("u-1", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "canteen_id", "balance", "created_at", "updated_at"}))
	mock.ExpectRollback()

	_, err = repo.PlaceOrder(context.Background(), PlaceOrderParams{
		UserID:        "u-1",
		CanteenID:     1,
		PaymentMethod: PaymentWallet,
	})
	assert.Equal(t, ErrWalletNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PlaceOrder_NoBasket(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, created_by FROM baskets`).
		WithArgs("u-1", int64(1)).
		WillReturnRows(basketRows())
	mock.ExpectRollback()

	_, err = repo.PlaceOrder(context.Background(), PlaceOrderParams{
		UserID:        "u-1",
		CanteenID:     1,
		PaymentMethod: PaymentPostpaid,
	})
	assert.Equal(t, ErrBasketNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PlaceOrder_NonCreatorForbidden(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, created_by FROM baskets WHERE canteen_id = \$1 AND access_code = \$2`).
		WithArgs(int64(1), "WXYZ2345").
		WillReturnRows(basketRows("b1", "u-1", "b2", "u-2"))
	mock.ExpectRollback()

	code := "WXYZ2345"
	_, err = repo.PlaceOrder(context.Background(), PlaceOrderParams{
		UserID:        "u-3",
		CanteenID:     1,
		PaymentMethod: PaymentPostpaid,
		AccessCode:    &code,
	})
	assert.Equal(t, ErrForbidden, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PlaceOrder_EmptyBasket(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, created_by FROM baskets`).
		WithArgs("u-1", int64(1)).
		WillReturnRows(basketRows("b1", "u-1"))
	mock.ExpectQuery(`SELECT bi.id, .* FROM basket_items bi JOIN menu_items m`).
		WillReturnRows(lineColumns())
	mock.ExpectRollback()

	_, err = repo.PlaceOrder(context.Background(), PlaceOrderParams{
		UserID:        "u-1",
		CanteenID:     1,
		PaymentMethod: PaymentPostpaid,
	})
	assert.Equal(t, ErrEmptyBasket, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func orderRowColumns() []string {
	return []string{
		"id", "order_number", "user_id", "canteen_id", "status", "total_amount",
		"prepaid", "linked", "linking_number", "otp",
		"created_at", "updated_at",
		"confirmed_at", "prepared_at", "ready_at", "completed_at", "cancelled_at", "cancelled_by",
	}
}

func TestRepository_GetOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))

	t.Run("Found", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(orderRowColumns()).AddRow(
				1, "MC-8", "u-1", 1, "pending", "120.00",
				false, false, nil, "4821",
				now, now,
				nil, nil, nil, nil, nil, nil,
			))
		mock.ExpectQuery(`SELECT .* FROM order_items WHERE order_id = ANY\(\$1\)`).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "order_id", "menu_item_id", "name", "unit_price",
				"variant_id", "variant_name", "variant_price", "quantity", "subtotal",
			}).AddRow(1, 1, 10, "Masala Dosa", "50.00", nil, nil, "0", 2, "120.00"))
		mock.ExpectQuery(`SELECT .* FROM order_addons WHERE order_item_id = ANY\(\$1\)`).
			WillReturnRows(sqlmock.NewRows([]string{"order_item_id", "addon_id", "name", "unit_price"}).
				AddRow(1, 100, "Extra Cheese", "10.00"))

		o, err := repo.GetOrder(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "MC-8", o.OrderNumber)
		assert.Equal(t, StatusPending, o.Status)
		require.Len(t, o.Items, 1)
		require.Len(t, o.Items[0].Addons, 1)
		assert.Equal(t, "Extra Cheese", o.Items[0].Addons[0].Name)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(orderRowColumns()))

		_, err := repo.GetOrder(context.Background(), 99)
		assert.Equal(t, ErrOrderNotFound, err)
	})
}

func TestRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, canteen.NewRepository(db), wallet.NewRepository(db))
	ctx := context.Background()

	t.Run("StampsMatchingTimestamp", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$1, confirmed_at = NOW\(\)`).
			WithArgs("confirmed", int64(5), "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(ctx, 5, StatusPending, StatusConfirmed, "staff-1")
		assert.NoError(t, err)
	})

	t.Run("CancelRecordsActor", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$1, cancelled_at = NOW\(\), cancelled_by = \$2`).
			WithArgs("cancelled", "u-1", int64(5), "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(ctx, 5, StatusPending, StatusCancelled, "u-1")
		assert.NoError(t, err)
	})

	t.Run("LostRaceIsInvalidState", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET status = \$1, ready_at = NOW\(\)`).
			WithArgs("ready", int64(5), "preparing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(ctx, 5, StatusPreparing, StatusReady, "staff-1")
		assert.Equal(t, ErrInvalidState, err)
	})
}
