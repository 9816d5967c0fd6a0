package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vetclinic/vetclinic/internal/platform/db"
)

type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	List(ctx context.Context, limit, offset int) ([]*Item, int, error)
	// ApplyAdjustment records adj and moves the item's quantity by its delta.
	// It reports false, changing nothing, when the key was already applied.
	ApplyAdjustment(ctx context.Context, adj *Adjustment) (bool, error)
	ListAdjustments(ctx context.Context, itemID uuid.UUID, limit int) ([]*Adjustment, error)
}

type itemRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository { return &itemRepoPG{db: q} }

func (r *itemRepoPG) conn(ctx context.Context) db.Querier {
	return db.ConnFromContext(ctx, r.db)
}

const itemCols = `id, name, category, unit, quantity, created_at, updated_at`

func (r *itemRepoPG) scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Category, &it.Unit, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	return &it, err
}

func (r *itemRepoPG) Create(ctx context.Context, it *Item) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	now := time.Now().UTC()
	it.CreatedAt = now
	it.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO inventory_item (id, name, category, unit, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		it.ID, it.Name, it.Category, it.Unit, it.Quantity, it.CreatedAt, it.UpdatedAt)
	return err
}

func (r *itemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	it, err := r.scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM inventory_item WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (r *itemRepoPG) List(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_item`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM inventory_item ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		it, err := r.scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// ApplyAdjustment inserts the ledger row and updates the item in one
// statement, so a replayed key never touches the quantity.
func (r *itemRepoPG) ApplyAdjustment(ctx context.Context, adj *Adjustment) (bool, error) {
	if adj.ID == uuid.Nil {
		adj.ID = uuid.New()
	}
	adj.CreatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		WITH adj AS (
			INSERT INTO inventory_adjustment (id, item_id, delta, reason, idempotency_key, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING item_id, delta
		)
		UPDATE inventory_item i SET quantity = i.quantity + adj.delta, updated_at = $6
		FROM adj WHERE i.id = adj.item_id`,
		adj.ID, adj.ItemID, adj.Delta, adj.Reason, adj.IdempotencyKey, adj.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *itemRepoPG) ListAdjustments(ctx context.Context, itemID uuid.UUID, limit int) ([]*Adjustment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, item_id, delta, reason, idempotency_key, created_at
		FROM inventory_adjustment WHERE item_id = $1 ORDER BY created_at DESC LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Adjustment
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(&a.ID, &a.ItemID, &a.Delta, &a.Reason, &a.IdempotencyKey, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
