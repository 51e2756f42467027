package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

var ErrClosed = errors.New("database pool closed")

// Opener establishes a ready-to-use connection pool.
type Opener func(ctx context.Context, dsn string) (*sql.DB, error)

// Pool owns the process-wide MySQL handle. The first caller of DB starts the
// connect; every caller, the first included, waits for that same attempt or
// for its own context. A failed attempt is not remembered, so the next call
// tries again.
type Pool struct {
	dsn       string
	open      Opener
	onConnect func(ctx context.Context, db *sql.DB) error

	mu      sync.Mutex
	db      *sql.DB
	pending *connectCall
	closed  bool
}

type connectCall struct {
	done chan struct{}
	db   *sql.DB
	err  error
}

// NewPool prepares a lazily connected pool. onConnect, if set, runs once on
// the fresh handle before it is published (used for migrations).
func NewPool(dsn string, onConnect func(ctx context.Context, db *sql.DB) error) *Pool {
	return &Pool{dsn: dsn, open: Connect, onConnect: onConnect}
}

// WithOpener replaces the connect function.
func (p *Pool) WithOpener(open Opener) *Pool {
	p.open = open
	return p
}

func (p *Pool) DB(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if p.db != nil {
		db := p.db
		p.mu.Unlock()
		return db, nil
	}
	call := p.pending
	leader := call == nil
	if leader {
		call = &connectCall{done: make(chan struct{})}
		p.pending = call
	}
	p.mu.Unlock()

	if leader {
		go p.connect(call)
	}

	select {
	case <-call.done:
		return call.db, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) connect(call *connectCall) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := p.open(ctx, p.dsn)
	if err == nil && p.onConnect != nil {
		if hookErr := p.onConnect(ctx, db); hookErr != nil {
			db.Close()
			db, err = nil, hookErr
		}
	}

	p.mu.Lock()
	if err == nil && p.closed {
		db.Close()
		db, err = nil, ErrClosed
	}
	if err == nil {
		p.db = db
	}
	p.pending = nil
	call.db, call.err = db, err
	p.mu.Unlock()
	close(call.done)
}

// Close releases the handle. Later DB calls fail with ErrClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Connect opens the MySQL connection with sensible pooling defaults.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	dsn, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetConnMaxLifetime(time.Minute * 5)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}

// normalizeDSN forces UTC time parsing; payment timestamps are scanned into time.Time.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Migrate runs the bootstrap schema to ensure required tables exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
