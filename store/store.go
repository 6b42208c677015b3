// Package store persists accepted records to the catalog database and
// reads the backlog of products still lacking descriptions.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/use-agent/enrich/config"
	"github.com/use-agent/enrich/models"
)

// Querier abstracts the pgx query methods the store needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a Querier that can open transactions. *pgxpool.Pool satisfies it.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

const schema = `
CREATE TABLE IF NOT EXISTS desc_product (
	product_id         VARCHAR(15) PRIMARY KEY,
	description        VARCHAR(255) NOT NULL,
	manufacturer_name  VARCHAR(255) NOT NULL DEFAULT '',
	status_description BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS desc_description (
	description_id   SERIAL PRIMARY KEY,
	product_id       VARCHAR(15) NOT NULL UNIQUE REFERENCES desc_product (product_id),
	product_name     VARCHAR(255),
	text_description TEXT,
	link             VARCHAR(2048),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS desc_specification (
	specification_id        SERIAL PRIMARY KEY,
	product_id              VARCHAR(15) NOT NULL,
	specification_attribute VARCHAR(255) NOT NULL,
	value                   TEXT NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (product_id, specification_attribute)
);`

const (
	pendingQuery = `SELECT product_id, description, manufacturer_name
		FROM desc_product WHERE status_description = FALSE ORDER BY product_id`

	upsertDescription = `INSERT INTO desc_description (product_id, product_name, text_description, link, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (product_id) DO UPDATE SET
			product_name = EXCLUDED.product_name,
			text_description = EXCLUDED.text_description,
			link = EXCLUDED.link,
			updated_at = now()`

	markDescribed = `UPDATE desc_product SET status_description = TRUE WHERE product_id = $1`

	upsertSpecification = `INSERT INTO desc_specification (product_id, specification_attribute, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, specification_attribute) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = now()`
)

// Postgres is the catalog store. SaveRecord writes one product in a single
// transaction; every write is idempotent.
type Postgres struct {
	db    Pool
	close func()
}

// New wraps an existing pool.
func New(db Pool) *Postgres {
	return &Postgres{db: db}
}

// Open connects to the database named by cfg and verifies the connection.
func Open(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeStore, "invalid database URL", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeStore, "failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, models.NewPipelineError(models.ErrCodeStore, "database unreachable", err)
	}
	slog.Info("catalog store connected", "maxConns", poolCfg.MaxConns)
	return &Postgres{db: pool, close: pool.Close}, nil
}

// EnsureSchema creates the catalog tables when they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return models.NewPipelineError(models.ErrCodeStore, "failed to create schema", err)
	}
	return nil
}

// PendingProducts returns up to limit products whose description has not
// been filled yet, ordered by identifier. limit <= 0 means no limit.
func (p *Postgres) PendingProducts(ctx context.Context, limit int) ([]models.Product, error) {
	query, args := pendingQuery, []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeStore, "failed to read backlog", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var pr models.Product
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Manufacturer); err != nil {
			return nil, models.NewPipelineError(models.ErrCodeStore, "failed to scan backlog row", err)
		}
		products = append(products, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeStore, "failed to read backlog", err)
	}
	return products, nil
}

// UpsertDescription writes the name, description and source link for id
// and, unless the description is the sentinel, marks the product as
// described.
func (p *Postgres) UpsertDescription(ctx context.Context, id, name, description, sourceURL string) error {
	return p.inTx(ctx, "description", func(tx pgx.Tx) error {
		if err := writeDescription(ctx, tx, id, name, description, sourceURL); err != nil {
			return err
		}
		return markIfDescribed(ctx, tx, id, description)
	})
}

// UpsertSpecifications writes every attribute of specs for id, replacing
// existing values of the same attribute. Attributes are written in key
// order.
func (p *Postgres) UpsertSpecifications(ctx context.Context, id string, specs models.AttributeMap) error {
	if len(specs) == 0 {
		return nil
	}
	return p.inTx(ctx, "specifications", func(tx pgx.Tx) error {
		return writeSpecifications(ctx, tx, id, specs)
	})
}

// SaveRecord writes the description, the specifications and the described
// flag for id in one transaction. The flag is set last, so a failed write
// leaves the product in the backlog with nothing committed.
func (p *Postgres) SaveRecord(ctx context.Context, id string, rec *models.ProductRecord, sourceURL string) error {
	return p.inTx(ctx, "record", func(tx pgx.Tx) error {
		if err := writeDescription(ctx, tx, id, rec.ProductName, rec.Description, sourceURL); err != nil {
			return err
		}
		if err := writeSpecifications(ctx, tx, id, rec.Specifications); err != nil {
			return err
		}
		return markIfDescribed(ctx, tx, id, rec.Description)
	})
}

func writeDescription(ctx context.Context, q Querier, id, name, description, sourceURL string) error {
	if _, err := q.Exec(ctx, upsertDescription, id, name, description, sourceURL); err != nil {
		return fmt.Errorf("upsert description: %w", err)
	}
	return nil
}

// writeSpecifications upserts specs in key order.
func writeSpecifications(ctx context.Context, q Querier, id string, specs models.AttributeMap) error {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := q.Exec(ctx, upsertSpecification, id, k, specs[k]); err != nil {
			return fmt.Errorf("upsert specification %q: %w", k, err)
		}
	}
	return nil
}

func markIfDescribed(ctx context.Context, q Querier, id, description string) error {
	if description == models.NotFound {
		return nil
	}
	if _, err := q.Exec(ctx, markDescribed, id); err != nil {
		return fmt.Errorf("mark described: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close releases the pool when Open created it.
func (p *Postgres) Close() {
	if p.close != nil {
		p.close()
	}
}

func (p *Postgres) inTx(ctx context.Context, what string, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return models.NewPipelineError(models.ErrCodeStore, "failed to begin "+what+" transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return models.NewPipelineError(models.ErrCodeStore, "failed to write "+what, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.NewPipelineError(models.ErrCodeStore, "failed to commit "+what, err)
	}
	return nil
}
