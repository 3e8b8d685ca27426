package client

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"  // Register pgx driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"               // Register Postgres driver
	_ "github.com/mattn/go-sqlite3"     // Register SQLite driver
	_ "github.com/microsoft/go-mssqldb" // Register SQL Server driver
	_ "github.com/sijms/go-ora/v2"      // Register Oracle driver
)

func init() {
	// go-ora registers as "oracle", which sqlx does not know; it takes :1 style binds.
	sqlx.BindDriver("oracle", sqlx.NAMED)
}

// DBClient is one bounded connection pool to one database.
type DBClient struct {
	DB     *sqlx.DB
	Kind   Kind
	Label  string
	Driver string
}

// PoolConfig sizes every pool the factory builds.
type PoolConfig struct {
	MaxSize        int
	MinIdle        int
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
	MaxLifetime    time.Duration
}

// DefaultPoolConfig returns the sizing used when nothing is configured.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxSize:        5,
		MinIdle:        1,
		ConnectTimeout: 5 * time.Second,
		IdleTimeout:    5 * time.Minute,
		MaxLifetime:    30 * time.Minute,
	}
}

// Factory builds validated pools. Targets holds the named targets a request
// may reference instead of spelling out host, port and database.
type Factory struct {
	Pool           PoolConfig
	Targets        map[string]Target
	PostgresDriver string
	SSLMode        string
}

// NewFactory creates a factory with the given pool sizing and named targets.
func NewFactory(pool PoolConfig, targets map[string]Target) *Factory {
	if targets == nil {
		targets = make(map[string]Target)
	}
	return &Factory{Pool: pool, Targets: targets}
}

// Resolve fills a target from its named entry, if it references one.
// Credentials given on the request win over stored ones.
func (f *Factory) Resolve(t Target) (Target, error) {
	if t.Name == "" {
		return t, nil
	}
	named, ok := f.Targets[t.Name]
	if !ok {
		return Target{}, fmt.Errorf("%w: unknown database name %q", ErrInvalidTarget, t.Name)
	}
	named.Name = t.Name
	if t.Username != "" {
		named.Username = t.Username
	}
	if t.Password != "" {
		named.Password = t.Password
	}
	return named, nil
}

// Build opens a pool for the target and proves it works by acquiring one
// connection. On any failure nothing stays open.
func (f *Factory) Build(ctx context.Context, t Target) (*DBClient, error) {
	t, err := f.Resolve(t)
	if err != nil {
		return nil, err
	}

	driver, err := t.Kind.driverName(f.PostgresDriver)
	if err != nil {
		return nil, err
	}
	dsn, err := t.DSN(f.Pool.ConnectTimeout, f.SSLMode)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrInvalidTarget, driver, err)
	}

	db.SetMaxOpenConns(f.Pool.MaxSize)
	db.SetMaxIdleConns(f.Pool.MinIdle)
	db.SetConnMaxIdleTime(f.Pool.IdleTimeout)
	db.SetConnMaxLifetime(f.Pool.MaxLifetime)

	if f.Pool.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Pool.ConnectTimeout)
		defer cancel()
	}

	conn, err := db.Conn(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
		conn.Close()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", t.Kind, err)
	}

	return &DBClient{DB: db, Kind: t.Kind, Label: t.Label(), Driver: driver}, nil
}

func (c *DBClient) Close() error {
	return c.DB.Close()
}

// SelectMaps runs a query and returns each row as a column→value map, with
// byte slices converted to strings.
func (c *DBClient) SelectMaps(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, _, err := c.SelectMapsLimit(ctx, 0, query, args...)
	return rows, err
}

// SelectMapsLimit is SelectMaps that stops reading after limit rows and
// reports whether more were available. limit <= 0 reads everything.
func (c *DBClient) SelectMapsLimit(ctx context.Context, limit int, query string, args ...interface{}) ([]map[string]interface{}, bool, error) {
	rows, err := c.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	results := []map[string]interface{}{}
	for rows.Next() {
		if limit > 0 && len(results) == limit {
			return results, true, nil
		}
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, false, fmt.Errorf("scan row: %w", err)
		}
		for col, val := range row {
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			}
		}
		results = append(results, row)
	}
	return results, false, rows.Err()
}

// Exec runs a statement and reports the affected row count when the driver
// supplies one.
func (c *DBClient) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := c.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
