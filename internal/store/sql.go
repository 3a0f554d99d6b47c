package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

type recordModel struct {
	bun.BaseModel `bun:"table:ledger_records"`

	Kind      string    `bun:"kind,pk,type:varchar(32)"`
	Key       string    `bun:"record_key,pk,type:varchar(255)"`
	Value     string    `bun:"value,notnull,type:text"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQL is a Store backed by a relational database through bun. Supported
// drivers are "sqlite", "postgres" and "mysql".
type SQL struct {
	db     *bun.DB
	driver string
}

// OpenSQL connects to dsn, applies the schema and returns the store.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	driverName := driver
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
	if driver == "postgres" {
		driverName = "pgx"
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite allows one writer; a single connection also keeps ":memory:"
		// databases visible to every transaction.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	var bdb *bun.DB
	switch driver {
	case "sqlite":
		bdb = bun.NewDB(sqlDB, sqlitedialect.New())
	case "postgres":
		bdb = bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		bdb = bun.NewDB(sqlDB, mysqldialect.New())
	default:
		sqlDB.Close()
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	if _, err := bdb.NewCreateTable().Model((*recordModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		bdb.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQL{db: bdb, driver: driver}, nil
}

// Atomic implements Store with a database transaction.
func (s *SQL) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(&sqlTx{ctx: ctx, db: tx, driver: s.driver})
	})
}

// View implements Store.
func (s *SQL) View(ctx context.Context, fn func(tx Tx) error) error {
	return fn(&sqlTx{ctx: ctx, db: s.db, driver: s.driver, readOnly: true})
}

// Close implements Store.
func (s *SQL) Close() error { return s.db.Close() }

type sqlTx struct {
	ctx      context.Context
	db       bun.IDB
	driver   string
	readOnly bool
}

func (t *sqlTx) Get(kind Kind, key string) ([]byte, bool, error) {
	var rec recordModel
	err := t.db.NewSelect().
		Model(&rec).
		Where("kind = ?", string(kind)).
		Where("record_key = ?", key).
		Limit(1).
		Scan(t.ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s %s: %w", kind, key, err)
	}
	return []byte(rec.Value), true, nil
}

func (t *sqlTx) Put(kind Kind, key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	rec := recordModel{Kind: string(kind), Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	q := t.db.NewInsert().Model(&rec)
	if t.driver == "mysql" {
		q = q.On("DUPLICATE KEY UPDATE").
			Set("value = VALUES(value)").
			Set("updated_at = VALUES(updated_at)")
	} else {
		q = q.On("CONFLICT (kind, record_key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_at = EXCLUDED.updated_at")
	}
	if _, err := q.Exec(t.ctx); err != nil {
		return fmt.Errorf("put %s %s: %w", kind, key, err)
	}
	return nil
}

func (t *sqlTx) Scan(kind Kind, prefix string, fn func(key string, value []byte) error) error {
	var recs []recordModel
	err := t.db.NewSelect().
		Model(&recs).
		Where("kind = ?", string(kind)).
		Where("record_key LIKE ?", prefix+"%").
		Order("record_key ASC").
		Scan(t.ctx)
	if err != nil {
		return fmt.Errorf("scan %s: %w", kind, err)
	}
	for _, r := range recs {
		if err := fn(r.Key, []byte(r.Value)); err != nil {
			return err
		}
	}
	return nil
}
