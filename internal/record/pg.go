package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PG implements Store on Postgres. Every table shares one relation keyed by
// (tbl, key) with the item held as jsonb, preserving the keyed-table model's
// overwrite semantics.
type PG struct {
	db *sql.DB
}

var _ Store = (*PG)(nil)

// OpenPG connects to Postgres using the pgx stdlib driver.
func OpenPG(dsn string) (*PG, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PG{db: db}, nil
}

// NewPG wraps an existing connection pool.
func NewPG(db *sql.DB) *PG { return &PG{db: db} }

func (s *PG) Close() error { return s.db.Close() }

func (s *PG) DB() *sql.DB { return s.db }

// EnsureSchema creates the records relation if it does not exist.
func (s *PG) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		create table if not exists records (
			tbl  text  not null,
			key  text  not null,
			item jsonb not null,
			primary key (tbl, key)
		)`)
	return err
}

func (s *PG) Get(ctx context.Context, table, key string) (Item, error) {
	if _, err := KeyAttribute(table); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`select item from records where tbl=$1 and key=$2`, table, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeItem(raw)
}

func (s *PG) Put(ctx context.Context, table string, item Item) error {
	key, err := itemKey(table, item)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into records(tbl, key, item) values ($1,$2,$3)
		on conflict (tbl, key) do update set item = excluded.item
	`, table, key, raw)
	return err
}

func (s *PG) Delete(ctx context.Context, table, key string) error {
	if _, err := KeyAttribute(table); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`delete from records where tbl=$1 and key=$2`, table, key)
	return err
}

func (s *PG) Scan(ctx context.Context, table string, filter Filter) ([]Item, error) {
	if _, err := KeyAttribute(table); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`select item from records where tbl=$1`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows, filter)
}

func (s *PG) Query(ctx context.Context, table, index, value string) ([]Item, error) {
	attr, err := IndexAttribute(table, index)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`select item from records where tbl=$1 and item->>$2 = $3`, table, attr, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows, nil)
}

func collectItems(rows *sql.Rows, filter Filter) ([]Item, error) {
	items := []Item{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		item, err := decodeItem(raw)
		if err != nil {
			return nil, err
		}
		if filter != nil && !filter(item) {
			continue
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func decodeItem(raw []byte) (Item, error) {
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("record: decode item: %w", err)
	}
	return item, nil
}
