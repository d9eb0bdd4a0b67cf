package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"canteen-be/internal/canteen"
	"canteen-be/internal/ident"
	"canteen-be/internal/logger"
	"canteen-be/internal/pricing"
	"canteen-be/internal/wallet"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	// PlaceOrder runs the whole checkout as one transaction: basket
	// resolution with row locks, contributor partitioning, price
	// snapshotting, wallet debit, and basket deletion all commit or roll
	// back together.
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (*PlaceOrderResult, error)

	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	GetUserOrders(ctx context.Context, userID string, limit int) ([]*Order, error)
	GetCanteenOrders(ctx context.Context, canteenID int64, statuses []Status) ([]*Order, error)

	// UpdateStatus moves the order from -> to and stamps the matching
	// timestamp column. The previous status is part of the WHERE clause, so
	// a concurrent transition makes this a no-op and ErrInvalidState is
	// returned instead of silently overwriting.
	UpdateStatus(ctx context.Context, orderID int64, from, to Status, actedBy string) error
}

type repository struct {
	db       *sql.DB
	canteens canteen.Repository
	wallets  wallet.Repository
}

func NewRepository(db *sql.DB, canteens canteen.Repository, wallets wallet.Repository) Repository {
	return &repository{db: db, canteens: canteens, wallets: wallets}
}

// checkoutBasket is a resolved, locked basket row at checkout time.
type checkoutBasket struct {
	id        string
	createdBy string
}

// checkoutLine is a basket line joined with live catalog data. Lines whose
// menu item no longer resolves never reach this struct: the inner join in
// lockLines drops them.
type checkoutLine struct {
	menuItemID   int64
	variantID    *int64
	quantity     int
	addedBy      string
	itemName     string
	itemPrice    decimal.Decimal
	variantName  *string
	variantPrice *decimal.Decimal
	addons       []ItemAddon
}

func (l *checkoutLine) effectiveVariantPrice() decimal.Decimal {
	if l.variantPrice == nil {
		return decimal.Zero
	}
	return *l.variantPrice
}

func (l *checkoutLine) subtotal() decimal.Decimal {
	addonPrices := make([]decimal.Decimal, 0, len(l.addons))
	for _, a := range l.addons {
		addonPrices = append(addonPrices, a.UnitPrice)
	}
	return pricing.LineTotal(l.itemPrice, l.effectiveVariantPrice(), addonPrices, l.quantity)
}

func (r *repository) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*PlaceOrderResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "PlaceOrder"),
		zap.String("user_id", params.UserID),
		zap.Int64("canteen_id", params.CanteenID),
		zap.String("payment_method", params.PaymentMethod),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback checkout", zap.Error(rbErr))
			}
		}
	}()

	result, err := r.placeOrderTx(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	committed = true

	log.Info("order placed",
		zap.Int("orders", len(result.Orders)),
		zap.Stringp("linking_number", result.LinkingNumber),
	)
	return result, nil
}

func (r *repository) placeOrderTx(ctx context.Context, tx *sql.Tx, params PlaceOrderParams) (*PlaceOrderResult, error) {
	baskets, err := r.lockBaskets(ctx, tx, params)
	if err != nil {
		return nil, err
	}
	if len(baskets) == 0 {
		return nil, ErrBasketNotFound
	}

	creator := false
	basketIDs := make([]string, 0, len(baskets))
	for _, b := range baskets {
		basketIDs = append(basketIDs, b.id)
		if b.createdBy == params.UserID {
			creator = true
		}
	}
	if !creator {
		return nil, ErrForbidden
	}

	lines, err := r.lockLines(ctx, tx, basketIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyBasket
	}

	partitions := make(map[string][]*checkoutLine)
	for _, l := range lines {
		partitions[l.addedBy] = append(partitions[l.addedBy], l)
	}

	grandTotal := decimal.Zero
	totals := make(map[string]decimal.Decimal, len(partitions))
	for contributor, part := range partitions {
		total := decimal.Zero
		for _, l := range part {
			total = total.Add(l.subtotal())
		}
		totals[contributor] = total.Round(2)
		grandTotal = grandTotal.Add(total)
	}
	grandTotal = grandTotal.Round(2)

	prepaid := params.PaymentMethod == PaymentWallet
	var payingWallet *wallet.Wallet
	if prepaid {
		w, err := r.wallets.GetForUpdate(ctx, tx, params.UserID, params.CanteenID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}
		if w == nil {
			return nil, ErrWalletNotFound
		}
		if w.Balance.LessThan(grandTotal) {
			return nil, ErrInsufficientFunds
		}
		payingWallet = w
	}

	linked := len(baskets) > 1
	var linkingNumber *string
	if linked {
		ln := ident.NewLinkingNumber()
		linkingNumber = &ln
	}

	// Deterministic partition order, checkout initiator first.
	contributors := make([]string, 0, len(partitions))
	for c := range partitions {
		contributors = append(contributors, c)
	}
	sort.SliceStable(contributors, func(i, j int) bool {
		if contributors[i] == params.UserID {
			return contributors[j] != params.UserID
		}
		if contributors[j] == params.UserID {
			return false
		}
		return contributors[i] < contributors[j]
	})

	result := &PlaceOrderResult{LinkingNumber: linkingNumber}
	for _, contributor := range contributors {
		orderNumber, err := r.canteens.NextOrderNumber(ctx, tx, params.CanteenID)
		if err != nil {
			if errors.Is(err, canteen.ErrCanteenNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}

		orderID, err := r.insertOrder(ctx, tx, insertOrderParams{
			orderNumber:   orderNumber,
			userID:        contributor,
			canteenID:     params.CanteenID,
			totalAmount:   totals[contributor],
			prepaid:       prepaid,
			linked:        linked,
			linkingNumber: linkingNumber,
			otp:           ident.NewOTP(),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}

		for _, l := range partitions[contributor] {
			if err := r.insertItem(ctx, tx, orderID, l); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
			}
		}

		result.Orders = append(result.Orders, PlacedOrder{
			ID:          orderID,
			OrderNumber: orderNumber,
			UserID:      contributor,
			TotalAmount: totals[contributor],
		})
	}

	if prepaid {
		reference := "order " + result.Orders[0].OrderNumber
		if linkingNumber != nil {
			reference = "order group " + *linkingNumber
		}
		if err := r.wallets.ApplyTx(ctx, tx, payingWallet.ID, grandTotal.Neg(), reference, params.UserID); err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound) {
				return nil, ErrWalletNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}
	}

	// Consume the cart: items and addons go with the baskets via cascade.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM baskets
		WHERE id = ANY($1)
	`, pq.Array(basketIDs)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	return result, nil
}

func (r *repository) lockBaskets(ctx context.Context, tx *sql.Tx, params PlaceOrderParams) ([]*checkoutBasket, error) {
	var rows *sql.Rows
	var err error

	if params.AccessCode != nil {
		rows, err = tx.QueryContext(ctx, `
			SELECT id, created_by
			FROM baskets
			WHERE canteen_id = $1 AND access_code = $2
			ORDER BY created_at
			FOR UPDATE
		`, params.CanteenID, *params.AccessCode)
	} else {
		rows, err = tx.QueryContext(ctx, `
			SELECT id, created_by
			FROM baskets
			WHERE created_by = $1 AND canteen_id = $2
			FOR UPDATE
		`, params.UserID, params.CanteenID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer rows.Close()

	var baskets []*checkoutBasket
	for rows.Next() {
		var b checkoutBasket
		if err := rows.Scan(&b.id, &b.createdBy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}
		baskets = append(baskets, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return baskets, nil
}

func (r *repository) lockLines(ctx context.Context, tx *sql.Tx, basketIDs []string) ([]*checkoutLine, error) {
	// Inner join on menu_items: lines whose item was deleted from the
	// catalog are dropped here rather than failing the checkout.
	rows, err := tx.QueryContext(ctx, `
		SELECT bi.id, bi.menu_item_id, bi.variant_id, bi.quantity, bi.added_by,
		       m.name, m.price, v.name, v.price
		FROM basket_items bi
		JOIN menu_items m ON m.id = bi.menu_item_id
		LEFT JOIN variants v ON v.id = bi.variant_id
		WHERE bi.basket_id = ANY($1)
		ORDER BY bi.created_at
	`, pq.Array(basketIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*checkoutLine
	byID := make(map[int64]*checkoutLine)
	var lineIDs []int64

	for rows.Next() {
		var id int64
		var l checkoutLine
		if err := rows.Scan(
			&id, &l.menuItemID, &l.variantID, &l.quantity, &l.addedBy,
			&l.itemName, &l.itemPrice, &l.variantName, &l.variantPrice,
		); err != nil {
			return nil, err
		}
		lines = append(lines, &l)
		byID[id] = &l
		lineIDs = append(lineIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(lineIDs) == 0 {
		return lines, nil
	}

	addonRows, err := tx.QueryContext(ctx, `
		SELECT ba.basket_item_id, ba.addon_id, a.name, a.price
		FROM basket_addons ba
		JOIN addons a ON a.id = ba.addon_id
		WHERE ba.basket_item_id = ANY($1)
	`, pq.Array(lineIDs))
	if err != nil {
		return nil, err
	}
	defer addonRows.Close()

	for addonRows.Next() {
		var lineID int64
		var a ItemAddon
		if err := addonRows.Scan(&lineID, &a.AddonID, &a.Name, &a.UnitPrice); err != nil {
			return nil, err
		}
		if l, ok := byID[lineID]; ok {
			l.addons = append(l.addons, a)
		}
	}
	return lines, addonRows.Err()
}

type insertOrderParams struct {
	orderNumber   string
	userID        string
	canteenID     int64
	totalAmount   decimal.Decimal
	prepaid       bool
	linked        bool
	linkingNumber *string
	otp           string
}

func (r *repository) insertOrder(ctx context.Context, tx *sql.Tx, p insertOrderParams) (int64, error) {
	var orderID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (order_number, user_id, canteen_id, status, total_amount, prepaid, linked, linking_number, otp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, p.orderNumber, p.userID, p.canteenID, StatusPending, p.totalAmount,
		p.prepaid, p.linked, p.linkingNumber, p.otp,
	).Scan(&orderID)
	return orderID, err
}

func (r *repository) insertItem(ctx context.Context, tx *sql.Tx, orderID int64, l *checkoutLine) error {
	var itemID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO order_items (order_id, menu_item_id, name, unit_price, variant_id, variant_name, variant_price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, orderID, l.menuItemID, l.itemName, l.itemPrice,
		l.variantID, l.variantName, l.effectiveVariantPrice(),
		l.quantity, l.subtotal(),
	).Scan(&itemID)
	if err != nil {
		return err
	}

	for _, a := range l.addons {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_addons (order_item_id, addon_id, name, unit_price)
			VALUES ($1, $2, $3, $4)
		`, itemID, a.AddonID, a.Name, a.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `
	id, order_number, user_id, canteen_id, status, total_amount,
	prepaid, linked, linking_number, otp,
	created_at, updated_at,
	confirmed_at, prepared_at, ready_at, completed_at, cancelled_at, cancelled_by
`

func scanOrder(s interface {
	Scan(dest ...any) error
}) (*Order, error) {
	var o Order
	err := s.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.CanteenID, &o.Status, &o.TotalAmount,
		&o.Prepaid, &o.Linked, &o.LinkingNumber, &o.OTP,
		&o.CreatedAt, &o.UpdatedAt,
		&o.ConfirmedAt, &o.PreparedAt, &o.ReadyAt, &o.CompletedAt, &o.CancelledAt, &o.CancelledBy,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, orderID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	itemsByOrder, err := r.loadItems(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = itemsByOrder[o.ID]
	return o, nil
}

func (r *repository) GetUserOrders(ctx context.Context, userID string, limit int) ([]*Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return r.collectOrders(ctx, rows)
}

func (r *repository) GetCanteenOrders(ctx context.Context, canteenID int64, statuses []Status) ([]*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE canteen_id = $1
	`
	args := []any{canteenID}

	if len(statuses) > 0 {
		names := make([]string, 0, len(statuses))
		for _, s := range statuses {
			names = append(names, string(s))
		}
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.collectOrders(ctx, rows)
}

func (r *repository) collectOrders(ctx context.Context, rows *sql.Rows) ([]*Order, error) {
	defer rows.Close()

	var orders []*Order
	var orderIDs []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return orders, nil
	}

	itemsByOrder, err := r.loadItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Items = itemsByOrder[o.ID]
	}
	return orders, nil
}

func (r *repository) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, menu_item_id, name, unit_price, variant_id, variant_name, variant_price, quantity, subtotal
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	itemsByOrder := make(map[int64][]*Item)
	byItemID := make(map[int64]*Item)
	var itemIDs []int64

	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.UnitPrice,
			&it.VariantID, &it.VariantName, &it.VariantPrice,
			&it.Quantity, &it.Subtotal,
		); err != nil {
			return nil, err
		}
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], &it)
		byItemID[it.ID] = &it
		itemIDs = append(itemIDs, it.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(itemIDs) == 0 {
		return itemsByOrder, nil
	}

	addonRows, err := r.db.QueryContext(ctx, `
		SELECT order_item_id, addon_id, name, unit_price
		FROM order_addons
		WHERE order_item_id = ANY($1)
	`, pq.Array(itemIDs))
	if err != nil {
		return nil, err
	}
	defer addonRows.Close()

	for addonRows.Next() {
		var itemID int64
		var a ItemAddon
		if err := addonRows.Scan(&itemID, &a.AddonID, &a.Name, &a.UnitPrice); err != nil {
			return nil, err
		}
		if it, ok := byItemID[itemID]; ok {
			it.Addons = append(it.Addons, a)
		}
	}
	return itemsByOrder, addonRows.Err()
}

var statusTimestampColumn = map[Status]string{
	StatusConfirmed: "confirmed_at",
	StatusPreparing: "prepared_at",
	StatusReady:     "ready_at",
	StatusCompleted: "completed_at",
	StatusCancelled: "cancelled_at",
}

func (r *repository) UpdateStatus(ctx context.Context, orderID int64, from, to Status, actedBy string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateStatus"),
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	col, ok := statusTimestampColumn[to]
	if !ok {
		return ErrInvalidStatus
	}

	var res sql.Result
	var err error
	if to == StatusCancelled {
		res, err = r.db.ExecContext(ctx, `
			UPDATE orders
			SET status = $1, `+col+` = NOW(), cancelled_by = $2, updated_at = NOW()
			WHERE id = $3 AND status = $4
		`, to, actedBy, orderID, from)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE orders
			SET status = $1, `+col+` = NOW(), updated_at = NOW()
			WHERE id = $2 AND status = $3
		`, to, orderID, from)
	}
	if err != nil {
		log.Error("failed to update order status", zap.Error(err))
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the order vanished or another transition won the race.
		return ErrInvalidState
	}

	log.Info("order status updated", zap.String("acted_by", actedBy))
	return nil
}
