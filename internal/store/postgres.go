package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps every document in a single JSONB table keyed by
// (collection, id). Each mutation is one statement, matching the
// no-multi-key-atomicity contract of the gateway.
type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close() {
	p.Pool.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// Init creates the documents table when it does not exist yet.
func (p *Postgres) Init(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)
	`)
	return err
}

func (p *Postgres) Get(ctx context.Context, path string) (json.RawMessage, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	if id != "" {
		var data []byte
		err := p.Pool.QueryRow(ctx,
			`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
			collection, id,
		).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	rows, err := p.Pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := map[string]json.RawMessage{}
	for rows.Next() {
		var docID string
		var data []byte
		if err := rows.Scan(&docID, &data); err != nil {
			return nil, err
		}
		docs[docID] = data
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return json.Marshal(docs)
}

func (p *Postgres) Set(ctx context.Context, path string, value any) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return errors.New("store: set requires a collection/id path")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = p.Pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()
	`, collection, id, data)
	return err
}

func (p *Postgres) Update(ctx context.Context, path string, partial map[string]any) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return errors.New("store: update requires a collection/id path")
	}
	data, err := json.Marshal(partial)
	if err != nil {
		return err
	}
	_, err = p.Pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET
			data = documents.data || EXCLUDED.data,
			updated_at = NOW()
	`, collection, id, data)
	return err
}

func (p *Postgres) Remove(ctx context.Context, path string) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	if id == "" {
		_, err = p.Pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1`, collection)
		return err
	}
	_, err = p.Pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	return err
}

func (p *Postgres) Push(ctx context.Context, path string, value any) (string, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return "", err
	}
	if id != "" {
		return "", errors.New("store: push requires a collection path")
	}
	key := pushKey()
	if err := p.Set(ctx, collection+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}
