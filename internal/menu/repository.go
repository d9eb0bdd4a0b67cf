package menu

import (
	"context"
	"database/sql"
	"errors"

	"canteen-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetItem(ctx context.Context, itemID int64) (*MenuItem, error)
	GetVariant(ctx context.Context, variantID int64) (*Variant, error)
	GetAddonsByIDs(ctx context.Context, addonIDs []int64) ([]Addon, error)
	GetMenu(ctx context.Context, canteenID int64) ([]*MenuItem, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const menuItemColumns = `id, canteen_id, category, name, description, price, is_non_veg, is_available, active, created_at, updated_at`

func (r *repository) GetItem(ctx context.Context, itemID int64) (*MenuItem, error) {
	var m MenuItem
	err := r.db.QueryRowContext(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE id = $1 AND active = true
	`, itemID).Scan(
		&m.ID, &m.CanteenID, &m.Category, &m.Name, &m.Description, &m.Price,
		&m.IsNonVeg, &m.IsAvailable, &m.Active, &m.CreatedAt, &m.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *repository) GetVariant(ctx context.Context, variantID int64) (*Variant, error) {
	var v Variant
	err := r.db.QueryRowContext(ctx, `
		SELECT id, item_id, name, price, is_available, active
		FROM variants
		WHERE id = $1 AND active = true
	`, variantID).Scan(&v.ID, &v.ItemID, &v.Name, &v.Price, &v.IsAvailable, &v.Active)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func (r *repository) GetAddonsByIDs(ctx context.Context, addonIDs []int64) ([]Addon, error) {
	if len(addonIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, name, price, type, is_available, active
		FROM addons
		WHERE id = ANY($1) AND active = true
	`, pq.Array(addonIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addons []Addon
	for rows.Next() {
		var a Addon
		if err := rows.Scan(&a.ID, &a.ItemID, &a.Name, &a.Price, &a.Type, &a.IsAvailable, &a.Active); err != nil {
			return nil, err
		}
		addons = append(addons, a)
	}
	return addons, rows.Err()
}

// GetMenu loads all active items for a canteen with their active variants and
// addons attached, the shape the menu page renders from.
func (r *repository) GetMenu(ctx context.Context, canteenID int64) ([]*MenuItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetMenu"),
		zap.Int64("canteen_id", canteenID),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE canteen_id = $1 AND active = true
		ORDER BY category, name
	`, canteenID)
	if err != nil {
		log.Error("failed to query menu items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []*MenuItem
	byID := make(map[int64]*MenuItem)
	var itemIDs []int64

	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(
			&m.ID, &m.CanteenID, &m.Category, &m.Name, &m.Description, &m.Price,
			&m.IsNonVeg, &m.IsAvailable, &m.Active, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			log.Error("failed to scan menu item", zap.Error(err))
			return nil, err
		}
		items = append(items, &m)
		byID[m.ID] = items[len(items)-1]
		itemIDs = append(itemIDs, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(itemIDs) == 0 {
		return items, nil
	}

	variantRows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, name, price, is_available, active
		FROM variants
		WHERE item_id = ANY($1) AND active = true
		ORDER BY price
	`, pq.Array(itemIDs))
	if err != nil {
		log.Error("failed to query variants", zap.Error(err))
		return nil, err
	}
	defer variantRows.Close()

	for variantRows.Next() {
		var v Variant
		if err := variantRows.Scan(&v.ID, &v.ItemID, &v.Name, &v.Price, &v.IsAvailable, &v.Active); err != nil {
			return nil, err
		}
		if item, ok := byID[v.ItemID]; ok {
			item.Variants = append(item.Variants, v)
		}
	}
	if err := variantRows.Err(); err != nil {
		return nil, err
	}

	addonRows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, name, price, type, is_available, active
		FROM addons
		WHERE item_id = ANY($1) AND active = true
		ORDER BY name
	`, pq.Array(itemIDs))
	if err != nil {
		log.Error("failed to query addons", zap.Error(err))
		return nil, err
	}
	defer addonRows.Close()

	for addonRows.Next() {
		var a Addon
		if err := addonRows.Scan(&a.ID, &a.ItemID, &a.Name, &a.Price, &a.Type, &a.IsAvailable, &a.Active); err != nil {
			return nil, err
		}
		if item, ok := byID[a.ItemID]; ok {
			item.Addons = append(item.Addons, a)
		}
	}

	log.Debug("menu loaded", zap.Int("items", len(items)))

	return items, addonRows.Err()
}
