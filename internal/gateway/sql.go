package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/dreamware/bandstand/internal/band"
	"github.com/dreamware/bandstand/internal/protocol"
)

// Supported values of Config.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var logger = log.New(os.Stderr, "[gateway] ", log.LstdFlags|log.Lmicroseconds)

var sqlOpen = sql.Open

// Config selects and locates the database.
type Config struct {
	Driver   string
	URL      string
	User     string
	Password string
}

// SQL is a Gateway on top of database/sql. It speaks Postgres through pgx
// and SQLite through modernc.org/sqlite.
type SQL struct {
	db     *sql.DB
	driver string
}

var _ Gateway = (*SQL)(nil)

// Open connects to the database described by cfg, checks that it answers
// and creates the schema when it is missing.
func Open(ctx context.Context, cfg Config) (*SQL, error) {
	if cfg.URL == "" {
		return nil, errors.New("database url is required")
	}
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case DriverPostgres, "":
		db, err = openPostgres(cfg)
		cfg.Driver = DriverPostgres
	case DriverSQLite:
		db, err = openSQLite(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	g := &SQL{db: db, driver: cfg.Driver}
	if err := g.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Printf("connected to %s database", cfg.Driver)
	return g, nil
}

func openPostgres(cfg Config) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.User != "" {
		connConfig.User = cfg.User
	}
	if cfg.Password != "" {
		connConfig.Password = cfg.Password
	}
	return stdlib.OpenDB(*connConfig), nil
}

func openSQLite(url string) (*sql.DB, error) {
	if !strings.Contains(url, "_pragma=") {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "_pragma=busy_timeout(5000)"
	}
	db, err := sqlOpen("sqlite", url)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer; one connection also keeps ":memory:"
	// databases shared between calls.
	db.SetMaxOpenConns(1)
	return db, nil
}

func (g *SQL) ensureSchema(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if g.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			name TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			salt TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bands (
			` + idColumn + `,
			name TEXT NOT NULL,
			x REAL NOT NULL,
			y BIGINT NOT NULL,
			participants INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			genre TEXT NOT NULL,
			label_name TEXT NOT NULL,
			label_bands INTEGER NOT NULL,
			label_sales BIGINT NOT NULL,
			owner TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to the $n form Postgres expects.
func (g *SQL) rebind(query string) string {
	if g.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

const bandColumns = "name, x, y, participants, created_at, genre, label_name, label_bands, label_sales, owner"

func bandArgs(b band.Band, owner string) []any {
	return []any{
		b.Name, b.Coordinates.X, b.Coordinates.Y, b.Participants,
		b.CreatedAt.UTC().Format(time.RFC3339Nano), string(b.Genre),
		b.Label.Name, b.Label.Bands, b.Label.Sales, owner,
	}
}

// Insert implements Gateway.
func (g *SQL) Insert(ctx context.Context, b band.Band, owner string) (int64, error) {
	query := g.rebind(`INSERT INTO bands (` + bandColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	if err := g.db.QueryRowContext(ctx, query, bandArgs(b, owner)...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert band: %w", err)
	}
	return id, nil
}

// Update implements Gateway.
func (g *SQL) Update(ctx context.Context, id int64, owner string, b band.Band) error {
	query := g.rebind(`UPDATE bands SET name = ?, x = ?, y = ?, participants = ?,
		created_at = ?, genre = ?, label_name = ?, label_bands = ?, label_sales = ?
		WHERE owner = ? AND id = ?`)
	args := append(bandArgs(b, owner), id)
	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update band %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

// Delete implements Gateway.
func (g *SQL) Delete(ctx context.Context, owner string, id int64) error {
	res, err := g.db.ExecContext(ctx, g.rebind(`DELETE FROM bands WHERE owner = ? AND id = ?`), owner, id)
	if err != nil {
		return fmt.Errorf("delete band %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

// DeleteMany implements Gateway. The deletions share one transaction which
// is rolled back when any id is missing.
func (g *SQL) DeleteMany(ctx context.Context, owner string, ids []int64) (retErr error) {
	if len(ids) == 0 {
		return nil
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() {
		if retErr != nil {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Printf("rollback failed: %v", err)
			}
		}
	}()
	query := g.rebind(`DELETE FROM bands WHERE owner = ? AND id = ?`)
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, query, owner, id)
		if err != nil {
			return fmt.Errorf("delete band %d: %w", id, err)
		}
		if err := expectOneRow(res, id); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// LoadAll implements Gateway and collection.Loader.
func (g *SQL) LoadAll(ctx context.Context) ([]band.Band, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT id, `+bandColumns+` FROM bands ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select bands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bands []band.Band
	for rows.Next() {
		var (
			b       band.Band
			created string
			genre   string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Coordinates.X, &b.Coordinates.Y, &b.Participants,
			&created, &genre, &b.Label.Name, &b.Label.Bands, &b.Label.Sales, &b.Owner); err != nil {
			return nil, fmt.Errorf("scan band: %w", err)
		}
		if b.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("band %d created_at: %w", b.ID, err)
		}
		b.Genre = band.Genre(genre)
		bands = append(bands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bands: %w", err)
	}
	return bands, nil
}

// UserExists implements Gateway.
func (g *SQL) UserExists(ctx context.Context, u protocol.User) (bool, error) {
	var digest, salt string
	err := g.db.QueryRowContext(ctx, g.rebind(`SELECT password, salt FROM users WHERE name = ?`), u.Login).
		Scan(&digest, &salt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select user: %w", err)
	}
	return checkPassword(u.Password, salt, digest), nil
}

// LoginTaken reports whether login is registered, regardless of password.
func (g *SQL) LoginTaken(ctx context.Context, login string) (bool, error) {
	var one int
	err := g.db.QueryRowContext(ctx, g.rebind(`SELECT 1 FROM users WHERE name = ?`), login).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select user: %w", err)
	}
	return true, nil
}

// CreateUser implements Gateway.
func (g *SQL) CreateUser(ctx context.Context, u protocol.User) error {
	taken, err := g.LoginTaken(ctx, u.Login)
	if err != nil {
		return err
	}
	if taken {
		return ErrLoginTaken
	}
	salt, err := NewSalt()
	if err != nil {
		return err
	}
	_, err = g.db.ExecContext(ctx, g.rebind(`INSERT INTO users (name, password, salt) VALUES (?, ?, ?)`),
		u.Login, HashPassword(u.Password, salt), salt)
	if err != nil {
		// a concurrent registration may have won the primary key
		if taken, _ := g.LoginTaken(ctx, u.Login); taken {
			return ErrLoginTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Ping implements Gateway.
func (g *SQL) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// Close implements Gateway.
func (g *SQL) Close() error {
	return g.db.Close()
}
