package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/jmoiron/sqlx"
)

const (
	upsertEntityQuery = `
		INSERT INTO entities (collection, id, body, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`

	deleteEntityQuery = `DELETE FROM entities WHERE collection = $1 AND id = $2`

	loadEntitiesQuery = `SELECT collection, id, body FROM entities ORDER BY collection, id`
)

// EntityRepository реализует repository.Persister поверх PostgreSQL
type EntityRepository struct {
	db *sqlx.DB
}

var _ repository.Persister = (*EntityRepository)(nil)

func NewEntityRepository(db *sqlx.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// Apply записывает изменения одной транзакцией
func (r *EntityRepository) Apply(ctx context.Context, changes []repository.Change) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range changes {
		switch c.Op {
		case repository.OpPut:
			body, err := json.Marshal(c.Value)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", c.Collection, c.ID, err)
			}
			if _, err := tx.ExecContext(ctx, upsertEntityQuery, string(c.Collection), c.ID, string(body)); err != nil {
				return fmt.Errorf("upsert %s/%s: %w", c.Collection, c.ID, err)
			}
		case repository.OpDelete:
			if _, err := tx.ExecContext(ctx, deleteEntityQuery, string(c.Collection), c.ID); err != nil {
				return fmt.Errorf("delete %s/%s: %w", c.Collection, c.ID, err)
			}
		default:
			return fmt.Errorf("unknown change op %q", c.Op)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

type entityRow struct {
	Collection string `db:"collection"`
	ID         string `db:"id"`
	Body       []byte `db:"body"`
}

// Load читает все сущности в снимок для старта хранилища
func (r *EntityRepository) Load(ctx context.Context) (repository.Snapshot, error) {
	var rows []entityRow
	if err := r.db.SelectContext(ctx, &rows, loadEntitiesQuery); err != nil {
		return repository.Snapshot{}, fmt.Errorf("load entities: %w", err)
	}

	snap := repository.NewSnapshot()
	for _, row := range rows {
		if err := snap.Put(repository.Collection(row.Collection), row.ID, row.Body); err != nil {
			return repository.Snapshot{}, fmt.Errorf("load %s/%s: %w", row.Collection, row.ID, err)
		}
	}

	return snap, nil
}
