package sqlgateway

import (
	"context"
	"sync"
	"time"

	"github.com/denismitr/tern/v4/internal/retry"
	"github.com/denismitr/tern/v4/migration"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	DefaultConnectionAttempts    = 10
	DefaultConnectionTimeout     = 60 * time.Second
	DefaultConnectionAttemptStep = 2 * time.Second
)

type ConnectOptions struct {
	MaxAttempts int
	MaxTimeout  time.Duration
	RetryStep   time.Duration
}

func NewDefaultConnectOptions() *ConnectOptions {
	return &ConnectOptions{
		MaxAttempts: DefaultConnectionAttempts,
		MaxTimeout:  DefaultConnectionTimeout,
		RetryStep:   DefaultConnectionAttemptStep,
	}
}

type Connector interface {
	Connect(ctx context.Context) (*sqlx.Conn, error)
	Close() error
}

// RetryingConnector hands out one dedicated connection per target.
// Session level locks and the ledger work both depend on it being the same
// connection for the whole operation.
type RetryingConnector struct {
	mu      sync.Mutex
	target  string
	options *ConnectOptions
	db      *sqlx.DB
	conn    *sqlx.Conn
}

var _ Connector = (*RetryingConnector)(nil)

func NewRetryingConnector(target string, db *sqlx.DB, options *ConnectOptions) *RetryingConnector {
	if options == nil {
		options = NewDefaultConnectOptions()
	}

	return &RetryingConnector{target: target, db: db, options: options}
}

func (c *RetryingConnector) Connect(ctx context.Context) (*sqlx.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	if c.options.MaxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.MaxTimeout)
		defer cancel()
	}

	var conn *sqlx.Conn
	err := retry.Incremental(ctx, c.options.RetryStep, c.options.MaxAttempts, func(attempt int) error {
		candidate, err := c.db.Connx(ctx)
		if err != nil {
			return retry.Error(errors.Wrap(err, "could not establish DB connection"), attempt)
		}

		if err := ping(ctx, candidate); err != nil {
			_ = candidate.Close()
			return retry.Error(err, attempt)
		}

		conn = candidate
		return nil
	})

	if err != nil {
		return nil, &migration.ConnectivityError{Target: c.target, Err: err}
	}

	c.conn = conn

	return conn, nil
}

func (c *RetryingConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return errors.Wrap(err, "retrying connector could not close the connection")
		}
		c.conn = nil
	}

	return nil
}

func ping(ctx context.Context, conn *sqlx.Conn) error {
	if err := conn.PingContext(ctx); err != nil {
		return errors.Wrap(err, "db ping failed")
	}

	var result int
	if err := conn.QueryRowxContext(ctx, "select 1").Scan(&result); err != nil {
		return errors.Wrap(err, "could not ping DB")
	}

	return nil
}
