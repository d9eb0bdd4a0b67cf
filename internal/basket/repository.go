package basket

import (
	"context"
	"database/sql"
	"errors"

	"canteen-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	FindBasket(ctx context.Context, userID string, canteenID int64) (*Basket, error)
	CreateBasket(ctx context.Context, id, userID string, canteenID int64, accessCode *string) (*Basket, error)
	SetAccessCode(ctx context.Context, basketID string, accessCode *string) error
	FindByAccessCode(ctx context.Context, accessCode string) (*Basket, error)
	ListUserBaskets(ctx context.Context, userID string) ([]*Basket, error)

	GetLine(ctx context.Context, lineID int64) (*Line, error)
	// GetLinesByIdentity returns the caller's existing lines in a basket for
	// one (menu item, variant) pair, addons attached, for de-duplication.
	GetLinesByIdentity(ctx context.Context, basketID string, menuItemID int64, variantID *int64, addedBy string) ([]*Line, error)
	GetBasketLines(ctx context.Context, basketID string) ([]*Line, error)
	// GetGroupLines returns all lines across every basket stamped with the
	// given access code for one canteen, the sharing group's union view.
	GetGroupLines(ctx context.Context, canteenID int64, accessCode string) ([]*Line, error)

	InsertLine(ctx context.Context, params insertLineParams) (int64, error)
	IncrementLineQuantity(ctx context.Context, lineID int64, by int) error
	UpdateLineQuantity(ctx context.Context, lineID int64, quantity int) error
	DeleteLine(ctx context.Context, lineID int64) error
	DeleteUserLines(ctx context.Context, basketID, addedBy string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const basketColumns = `id, created_by, canteen_id, access_code, created_at, updated_at`

func scanBasket(row *sql.Row) (*Basket, error) {
	var b Basket
	err := row.Scan(&b.ID, &b.CreatedBy, &b.CanteenID, &b.AccessCode, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) FindBasket(ctx context.Context, userID string, canteenID int64) (*Basket, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+basketColumns+`
		FROM baskets
		WHERE created_by = $1 AND canteen_id = $2
	`, userID, canteenID)
	return scanBasket(row)
}

func (r *repository) CreateBasket(ctx context.Context, id, userID string, canteenID int64, accessCode *string) (*Basket, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateBasket"),
		zap.String("user_id", userID),
		zap.Int64("canteen_id", canteenID),
	)

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO baskets (id, created_by, canteen_id, access_code)
		VALUES ($1, $2, $3, $4)
		RETURNING `+basketColumns+`
	`, id, userID, canteenID, accessCode)

	b, err := scanBasket(row)
	if err != nil {
		log.Error("failed to create basket", zap.Error(err))
		return nil, err
	}

	log.Info("basket created", zap.String("basket_id", b.ID))
	return b, nil
}

func (r *repository) SetAccessCode(ctx context.Context, basketID string, accessCode *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE baskets
		SET access_code = $1, updated_at = NOW()
		WHERE id = $2
	`, accessCode, basketID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBasketNotFound
	}

	return nil
}

func (r *repository) FindByAccessCode(ctx context.Context, accessCode string) (*Basket, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+basketColumns+`
		FROM baskets
		WHERE access_code = $1
		ORDER BY created_at
		LIMIT 1
	`, accessCode)
	return scanBasket(row)
}

func (r *repository) ListUserBaskets(ctx context.Context, userID string) ([]*Basket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+basketColumns+`
		FROM baskets
		WHERE created_by = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var baskets []*Basket
	for rows.Next() {
		var b Basket
		if err := rows.Scan(&b.ID, &b.CreatedBy, &b.CanteenID, &b.AccessCode, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		baskets = append(baskets, &b)
	}
	return baskets, rows.Err()
}

const lineSelect = `
	SELECT
		bi.id,
		bi.basket_id,
		bi.menu_item_id,
		bi.variant_id,
		bi.quantity,
		bi.added_by,
		bi.created_at,
		COALESCE(m.name, ''),
		COALESCE(m.price, 0),
		v.name,
		v.price
	FROM basket_items bi
	LEFT JOIN menu_items m ON m.id = bi.menu_item_id
	LEFT JOIN variants v ON v.id = bi.variant_id
`

func (r *repository) scanLines(ctx context.Context, rows *sql.Rows) ([]*Line, error) {
	defer rows.Close()

	var lines []*Line
	var lineIDs []int64

	for rows.Next() {
		var l Line
		if err := rows.Scan(
			&l.ID, &l.BasketID, &l.MenuItemID, &l.VariantID,
			&l.Quantity, &l.AddedBy, &l.CreatedAt,
			&l.MenuItemName, &l.MenuItemPrice,
			&l.VariantName, &l.VariantPrice,
		); err != nil {
			return nil, err
		}
		lines = append(lines, &l)
		lineIDs = append(lineIDs, l.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(lineIDs) == 0 {
		return lines, nil
	}

	addonRows, err := r.db.QueryContext(ctx, `
		SELECT ba.basket_item_id, ba.addon_id, COALESCE(a.name, ''), COALESCE(a.price, 0)
		FROM basket_addons ba
		LEFT JOIN addons a ON a.id = ba.addon_id
		WHERE ba.basket_item_id = ANY($1)
	`, pq.Array(lineIDs))
	if err != nil {
		return nil, err
	}
	defer addonRows.Close()

	byLine := make(map[int64]*Line, len(lines))
	for _, l := range lines {
		byLine[l.ID] = l
	}

	for addonRows.Next() {
		var lineID int64
		var la LineAddon
		if err := addonRows.Scan(&lineID, &la.AddonID, &la.Name, &la.Price); err != nil {
			return nil, err
		}
		if l, ok := byLine[lineID]; ok {
			l.Addons = append(l.Addons, la)
		}
	}

	return lines, addonRows.Err()
}

func (r *repository) GetLine(ctx context.Context, lineID int64) (*Line, error) {
	rows, err := r.db.QueryContext(ctx, lineSelect+` WHERE bi.id = $1`, lineID)
	if err != nil {
		return nil, err
	}

	lines, err := r.scanLines(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrLineNotFound
	}
	return lines[0], nil
}

func (r *repository) GetLinesByIdentity(ctx context.Context, basketID string, menuItemID int64, variantID *int64, addedBy string) ([]*Line, error) {
	query := lineSelect + ` WHERE bi.basket_id = $1 AND bi.menu_item_id = $2 AND bi.added_by = $3`
	args := []any{basketID, menuItemID, addedBy}

	if variantID != nil {
		query += ` AND bi.variant_id = $4`
		args = append(args, *variantID)
	} else {
		query += ` AND bi.variant_id IS NULL`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.scanLines(ctx, rows)
}

func (r *repository) GetBasketLines(ctx context.Context, basketID string) ([]*Line, error) {
	rows, err := r.db.QueryContext(ctx, lineSelect+` WHERE bi.basket_id = $1 ORDER BY bi.created_at`, basketID)
	if err != nil {
		return nil, err
	}
	return r.scanLines(ctx, rows)
}

func (r *repository) GetGroupLines(ctx context.Context, canteenID int64, accessCode string) ([]*Line, error) {
	rows, err := r.db.QueryContext(ctx, lineSelect+`
		JOIN baskets b ON b.id = bi.basket_id
		WHERE b.canteen_id = $1 AND b.access_code = $2
		ORDER BY bi.created_at
	`, canteenID, accessCode)
	if err != nil {
		return nil, err
	}
	return r.scanLines(ctx, rows)
}

func (r *repository) InsertLine(ctx context.Context, params insertLineParams) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertLine"),
		zap.String("basket_id", params.BasketID),
		zap.Int64("menu_item_id", params.MenuItemID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback line insert", zap.Error(rbErr))
			}
		}
	}()

	var lineID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO basket_items (basket_id, menu_item_id, variant_id, quantity, added_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, params.BasketID, params.MenuItemID, params.VariantID, params.Quantity, params.AddedBy).Scan(&lineID)
	if err != nil {
		log.Error("failed to insert basket item", zap.Error(err))
		return 0, err
	}

	for _, addonID := range params.AddonIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO basket_addons (basket_item_id, addon_id)
			VALUES ($1, $2)
		`, lineID, addonID); err != nil {
			log.Error("failed to insert basket addon", zap.Int64("addon_id", addonID), zap.Error(err))
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true

	log.Debug("basket line inserted", zap.Int64("line_id", lineID))
	return lineID, nil
}

func (r *repository) IncrementLineQuantity(ctx context.Context, lineID int64, by int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE basket_items
		SET quantity = quantity + $1
		WHERE id = $2
	`, by, lineID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *repository) UpdateLineQuantity(ctx context.Context, lineID int64, quantity int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE basket_items
		SET quantity = $1
		WHERE id = $2
	`, quantity, lineID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, lineID int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM basket_items
		WHERE id = $1
	`, lineID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *repository) DeleteUserLines(ctx context.Context, basketID, addedBy string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM basket_items
		WHERE basket_id = $1 AND added_by = $2
	`, basketID, addedBy)
	return err
}
