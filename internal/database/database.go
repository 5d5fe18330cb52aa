package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/bryan-buckman/lolsync/internal/model"
	"github.com/bryan-buckman/lolsync/internal/query"
)

// DB is a SQL-backed Store. New opens SQLite; NewPostgres opens PostgreSQL.
type DB struct {
	conn    *sqlx.DB
	dialect dialect
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

type dialect struct {
	name       string
	like       string
	concurrent bool
}

func (d dialect) Like() string   { return d.like }
func (d dialect) Random() string { return "RANDOM()" }

var (
	sqliteDialect   = dialect{name: "SQLite", like: "LIKE"}
	postgresDialect = dialect{name: "PostgreSQL", like: "ILIKE", concurrent: true}
)

// sqliteDSN enables WAL mode for better concurrency and takes the write lock at
// BEGIN so concurrent upserts wait on busy_timeout instead of failing.
func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	dsn := sqliteDSN(path)
	if err := migrateSQLite(dsn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{conn: conn, dialect: sqliteDialect}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return db.dialect.name
}

// SupportsHighConcurrency returns true for PostgreSQL.
func (db *DB) SupportsHighConcurrency() bool {
	return db.dialect.concurrent
}

// --- Record Methods ---

// Upsert inserts or replaces records inside one transaction.
func (db *DB) Upsert(ctx context.Context, records ...model.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, r := range records {
		stmt, args, err := upsertStatement(r)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, db.conn.Rebind(stmt), args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s %s/%s: %w", r.Table().Name, r.Key().Owner, r.Key().ID, err)
		}
	}
	return tx.Commit()
}

func upsertStatement(r model.Record) (string, []any, error) {
	data, err := encode(r)
	if err != nil {
		return "", nil, err
	}
	table := r.Table()
	key := r.Key()
	cols := []string{"owner", "id", "date", "data"}
	args := []any{key.Owner, key.ID, r.Stamp().Unix(), string(data)}
	updates := []string{"date = excluded.date", "data = excluded.data"}
	for _, c := range table.Columns() {
		cols = append(cols, c)
		args = append(args, model.Value(r, c))
		updates = append(updates, c+" = excluded."+c)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (owner, id) DO UPDATE SET %s",
		table.Name,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "))
	return stmt, args, nil
}

// Get returns the stored JSON for key.
func (db *DB) Get(ctx context.Context, table model.Table, key model.Key) ([]byte, error) {
	var data string
	q := db.conn.Rebind("SELECT data FROM " + table.Name + " WHERE owner = ? AND id = ?")
	err := db.conn.GetContext(ctx, &data, q, key.Owner, key.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s/%s: %w", table.Name, key.Owner, key.ID, err)
	}
	return []byte(data), nil
}

// Select returns the stored JSON of every row matching q.
func (db *DB) Select(ctx context.Context, q Query) ([][]byte, error) {
	stmt, args := selectStatement(q, db.dialect)
	var rows []string
	if err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(stmt), args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table.Name, err)
	}
	out := make([][]byte, len(rows))
	for i, r := range rows {
		out[i] = []byte(r)
	}
	return out, nil
}

func selectStatement(q Query, d query.Dialect) (string, []any) {
	where := q.Where
	if where == nil {
		where = query.True{}
	}
	cond, args := where.SQL(d)
	order := q.Order
	if order == "" {
		order = query.NewestFirst
	}
	stmt := "SELECT data FROM " + q.Table.Name + " WHERE " + cond + " ORDER BY " + order.OrderBy(q.Table, d)
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return stmt, args
}

// --- Settings Methods ---

// GetSetting retrieves a setting value.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := db.conn.GetContext(ctx, &val, db.conn.Rebind("SELECT value FROM settings WHERE key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return val, err
}

// SetSetting saves a setting.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		db.conn.Rebind("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value"),
		key, value)
	return err
}
