package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nfrund/smartshop/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// Backoff is the retry policy used when the store loses its SurrealDB
// session. Delays grow by Factor from Base up to Max, plus up to Jitter of
// the delay at random.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
	Factor   float64
	Jitter   float64
}

// DefaultBackoff gives a dropped session about half a minute to come back.
func DefaultBackoff() Backoff {
	return Backoff{Attempts: 6, Base: 100 * time.Millisecond, Max: 10 * time.Second, Factor: 2, Jitter: 0.25}
}

// Do calls fn until it succeeds, the attempts run out or ctx ends.
func (b Backoff) Do(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < b.Attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == b.Attempts-1 {
			break
		}

		wait := b.delay(attempt)
		slog.DebugContext(ctx, "Store operation failed, backing off", "event", "db_backoff",
			"op", op, "attempt", attempt+1, "wait_ms", wait.Milliseconds(), "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, b.Attempts, err)
}

func (b Backoff) delay(attempt int) time.Duration {
	d := float64(b.Base)
	for i := 0; i < attempt && d < float64(b.Max); i++ {
		d *= b.Factor
	}
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d += rand.Float64() * d * b.Jitter
	}
	return time.Duration(d)
}

// dialFunc opens a ready-to-use SurrealDB session.
type dialFunc func(ctx context.Context) (*surrealdb.DB, error)

// Connection owns the store's SurrealDB session. It redials when an
// operation fails with a transport error and pings the server in the
// background.
type Connection struct {
	dbURL       string
	dial        dialFunc
	backoff     Backoff
	healthEvery time.Duration

	mu      sync.RWMutex
	db      *surrealdb.DB
	healthy bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewConnection prepares a connection for cfg. Nothing is dialed until
// Connect.
func NewConnection(cfg config.Provider) *Connection {
	return newConnection(cfg.GetDBURL(), surrealDialer(cfg))
}

func newConnection(dbURL string, dial dialFunc) *Connection {
	return &Connection{
		dbURL:       dbURL,
		dial:        dial,
		backoff:     DefaultBackoff(),
		healthEvery: 30 * time.Second,
		stop:        make(chan struct{}),
	}
}

// surrealDialer connects, signs in and selects the namespace and database.
func surrealDialer(cfg config.Provider) dialFunc {
	return func(ctx context.Context) (*surrealdb.DB, error) {
		db, err := surrealdb.FromEndpointURLString(ctx, cfg.GetDBURL())
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", redactDBURL(cfg.GetDBURL()), err)
		}
		if _, err := db.SignIn(ctx, &surrealdb.Auth{Username: cfg.GetDBUser(), Password: cfg.GetDBPass()}); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("sign in as %q: %w", cfg.GetDBUser(), err)
		}
		if err := db.Use(ctx, cfg.GetDBNs(), cfg.GetDBDb()); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("use %s/%s: %w", cfg.GetDBNs(), cfg.GetDBDb(), err)
		}
		return db, nil
	}
}

// Connect dials the first session. It is a no-op once connected.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}
	return c.redialLocked(ctx)
}

// WithConnection runs fn on the current session. A transport failure
// triggers a redial, and fn is run again under the backoff policy. Any
// other error is returned as is.
func (c *Connection) WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error {
	db := c.current()
	if db == nil {
		return NewDBError(ErrNotConnected, "database not connected")
	}

	err := fn(db)
	if err == nil || !isConnectionError(err) {
		return err
	}

	slog.WarnContext(ctx, "Lost SurrealDB session, redialing", "event", "db_reconnect_triggered",
		"db_url", redactDBURL(c.dbURL), "error", err)
	return c.backoff.Do(ctx, "redial", func() error {
		if dialErr := c.redial(ctx); dialErr != nil {
			return dialErr
		}
		return fn(c.current())
	})
}

// StartMonitoring pings the server every healthEvery until Close.
func (c *Connection) StartMonitoring() {
	go c.monitor()
}

// Close stops monitoring and closes the session.
func (c *Connection) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close(ctx)
	c.db = nil
	c.healthy = false
	return err
}

// DB returns the session while it is healthy.
func (c *Connection) DB() (*surrealdb.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil || !c.healthy {
		return nil, NewDBError(ErrNotConnected, "database not connected or unhealthy")
	}
	return c.db, nil
}

// IsHealthy reports the result of the last dial or ping.
func (c *Connection) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

func (c *Connection) current() *surrealdb.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Connection) redial(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redialLocked(ctx)
}

// redialLocked replaces the session. c.mu must be held.
func (c *Connection) redialLocked(ctx context.Context) error {
	if c.db != nil {
		c.db.Close(ctx)
		c.db = nil
	}

	db, err := c.dial(ctx)
	if err != nil {
		c.healthy = false
		slog.ErrorContext(ctx, "SurrealDB dial failed", "event", "db_connect_failure",
			"db_url", redactDBURL(c.dbURL), "error", err)
		return NewDBError(fmt.Errorf("%w: %v", ErrNotConnected, err), "failed to connect to database")
	}

	c.db = db
	c.healthy = true
	slog.DebugContext(ctx, "SurrealDB session ready", "event", "db_connect_success", "db_url", redactDBURL(c.dbURL))
	return nil
}

func (c *Connection) monitor() {
	ticker := time.NewTicker(c.healthEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.pingOrRedial()
		}
	}
}

func (c *Connection) pingOrRedial() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.ping(ctx)
	if err == nil {
		return
	}
	slog.WarnContext(ctx, "SurrealDB ping failed", "event", "db_health_check_failure",
		"db_url", redactDBURL(c.dbURL), "error", err)
	if err = c.backoff.Do(ctx, "redial", func() error { return c.redial(ctx) }); err != nil {
		slog.ErrorContext(ctx, "SurrealDB still unreachable", "event", "db_reconnect_failure",
			"db_url", redactDBURL(c.dbURL), "error", err)
	}
}

func (c *Connection) ping(ctx context.Context) error {
	db := c.current()
	if db == nil {
		c.setHealthy(false)
		return errors.New("no session")
	}
	if _, err := db.Version(ctx); err != nil {
		c.setHealthy(false)
		return err
	}
	c.setHealthy(true)
	return nil
}

func (c *Connection) setHealthy(v bool) {
	c.mu.Lock()
	c.healthy = v
	c.mu.Unlock()
}

// isConnectionError reports transport failures worth a redial.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "broken pipe", "unexpected eof", "use of closed network connection"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// redactDBURL hides the password of dbURL for logging.
func redactDBURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
