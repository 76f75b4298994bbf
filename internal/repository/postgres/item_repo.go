package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/repository"
)

const itemColumns = `id, title, description, category, condition, images, location, owner,
	status, dimensions, pickup, created_at, updated_at, view_count, interested_count,
	tags, is_urgent, expires_at`

type ItemRepo struct {
	pool *pgxpool.Pool
}

func NewItemRepo(pool *pgxpool.Pool) *ItemRepo {
	return &ItemRepo{pool: pool}
}

// Create inserts the item. Newer rows get a higher seq, which puts them
// first in List.
func (r *ItemRepo) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (owner_id, ` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.pool.Exec(ctx, query,
		item.Owner.ID, item.ID, item.Title, item.Description, item.Category, item.Condition,
		orEmpty(item.Images), item.Location, item.Owner, item.Status, item.Dimensions, item.Pickup,
		item.CreatedAt, item.UpdatedAt, item.ViewCount, item.InterestedCount,
		orEmpty(item.Tags), item.IsUrgent, item.ExpiresAt,
	)
	return err
}

func (r *ItemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, "SELECT "+itemColumns+" FROM items WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (r *ItemRepo) List(ctx context.Context) ([]*domain.Item, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+itemColumns+" FROM items ORDER BY seq DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ItemRepo) Update(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE items SET title = $2, description = $3, category = $4, condition = $5,
			images = $6, location = $7, owner_id = $8, owner = $9, status = $10,
			dimensions = $11, pickup = $12, updated_at = $13, view_count = $14,
			interested_count = $15, tags = $16, is_urgent = $17, expires_at = $18
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		item.ID, item.Title, item.Description, item.Category, item.Condition,
		orEmpty(item.Images), item.Location, item.Owner.ID, item.Owner, item.Status,
		item.Dimensions, item.Pickup, item.UpdatedAt, item.ViewCount,
		item.InterestedCount, orEmpty(item.Tags), item.IsUrgent, item.ExpiresAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ItemRepo) Increment(ctx context.Context, id string, counter repository.Counter) (*domain.Item, error) {
	var column string
	switch counter {
	case repository.CounterViews:
		column = "view_count"
	case repository.CounterInterested:
		column = "interested_count"
	default:
		return nil, fmt.Errorf("unknown counter %q", counter)
	}

	query := fmt.Sprintf(`UPDATE items SET %[1]s = %[1]s + 1 WHERE id = $1 RETURNING %[2]s`, column, itemColumns)
	item, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return item, err
}

// RefreshOwner rewrites the owner snapshots inside one transaction.
func (r *ItemRepo) RefreshOwner(ctx context.Context, user *domain.User) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, "SELECT "+itemColumns+" FROM items WHERE owner_id = $1 FOR UPDATE", user.ID)
	if err != nil {
		return 0, err
	}
	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, item := range items {
		item.Owner.Refresh(user)
		if _, err := tx.Exec(ctx, `UPDATE items SET owner = $2 WHERE id = $1`, item.ID, item.Owner); err != nil {
			return 0, err
		}
	}

	return len(items), tx.Commit(ctx)
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var it domain.Item
	err := row.Scan(
		&it.ID, &it.Title, &it.Description, &it.Category, &it.Condition,
		&it.Images, &it.Location, &it.Owner, &it.Status, &it.Dimensions, &it.Pickup,
		&it.CreatedAt, &it.UpdatedAt, &it.ViewCount, &it.InterestedCount,
		&it.Tags, &it.IsUrgent, &it.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}
