package canteen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Canteen, error)
	GetByAcronym(ctx context.Context, acronym string) (*Canteen, error)
	ListActive(ctx context.Context) ([]*Canteen, error)

	// NextOrderNumber atomically increments the canteen's order counter inside
	// the caller's transaction and returns the formatted order number. The
	// increment is a single UPDATE ... RETURNING so concurrent checkouts on
	// the same canteen can never observe the same counter value.
	NextOrderNumber(ctx context.Context, tx *sql.Tx, canteenID int64) (string, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const canteenColumns = `id, name, acronym, timings, is_open, active, order_counter, created_at, updated_at`

func scanCanteen(row *sql.Row) (*Canteen, error) {
	var c Canteen
	err := row.Scan(
		&c.ID, &c.Name, &c.Acronym, &c.Timings,
		&c.IsOpen, &c.Active, &c.OrderCounter,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCanteenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Canteen, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+canteenColumns+`
		FROM canteens
		WHERE id = $1
	`, id)
	return scanCanteen(row)
}

func (r *repository) GetByAcronym(ctx context.Context, acronym string) (*Canteen, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+canteenColumns+`
		FROM canteens
		WHERE acronym = $1 AND active = true
	`, acronym)
	return scanCanteen(row)
}

func (r *repository) ListActive(ctx context.Context) ([]*Canteen, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+canteenColumns+`
		FROM canteens
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var canteens []*Canteen
	for rows.Next() {
		var c Canteen
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Acronym, &c.Timings,
			&c.IsOpen, &c.Active, &c.OrderCounter,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		canteens = append(canteens, &c)
	}
	return canteens, rows.Err()
}

func (r *repository) NextOrderNumber(ctx context.Context, tx *sql.Tx, canteenID int64) (string, error) {
	var acronym string
	var counter int64

	err := tx.QueryRowContext(ctx, `
		UPDATE canteens
		SET order_counter = order_counter + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING acronym, order_counter
	`, canteenID).Scan(&acronym, &counter)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCanteenNotFound
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%d", acronym, counter), nil
}
