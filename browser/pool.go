package browser

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anna-farino/RiskAi-sub010/classify"
	"github.com/anna-farino/RiskAi-sub010/models"
)

// Page is the pooled resource. The rod implementation lives in rod_page.go;
// tests use fakes.
type Page interface {
	// Healthy runs a trivial evaluation to prove the page still responds.
	Healthy(ctx context.Context) error
	// Reset returns the page to a neutral empty state.
	Reset(ctx context.Context) error
	Close() error
}

// PageFactory opens a fresh page.
type PageFactory func(ctx context.Context) (Page, error)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("browser: pool closed")

// Retirement thresholds for a pooled page.
const (
	maxErrScore = 3.0
	maxUses     = 50
	maxAge      = 50 * time.Minute
)

// Lease is an exclusively owned page handle. Every lease ends in exactly one
// Release or Destroy.
type Lease struct {
	ID       int64
	page     Page
	errScore float64
	useCount int
	created  time.Time
	mu       sync.Mutex
	held     atomic.Bool
}

// Page returns the leased page.
func (l *Lease) Page() Page { return l.page }

// RecordSuccess decreases the error score (min 0).
func (l *Lease) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.useCount++
	l.errScore = math.Max(0, l.errScore-0.5)
}

// RecordFailure increases the error score.
func (l *Lease) RecordFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.useCount++
	l.errScore += 1.0
}

// ShouldRetire returns true if the page should be retired based on health metrics.
func (l *Lease) ShouldRetire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errScore >= maxErrScore || l.useCount >= maxUses || time.Since(l.created) >= maxAge
}

// Pool is the bounded browser session pool. At most max leases are active at
// once; Acquire blocks while the pool is exhausted.
type Pool struct {
	factory       PageFactory
	max           int
	healthTimeout time.Duration

	slots  chan struct{} // one token per active lease
	idle   chan *Lease
	nextID atomic.Int64
	active atomic.Int32

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool of at most max pages. Pages are created lazily.
func NewPool(factory PageFactory, max int, healthTimeout time.Duration) *Pool {
	if max < 1 {
		max = 1
	}
	if healthTimeout <= 0 {
		healthTimeout = 2 * time.Second
	}
	return &Pool{
		factory:       factory,
		max:           max,
		healthTimeout: healthTimeout,
		slots:         make(chan struct{}, max),
		idle:          make(chan *Lease, max),
	}
}

// Acquire returns a healthy lease. Idle pages are health-checked first; a
// page that fails the check is closed and replaced with a fresh one.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if p.isClosed() {
		return nil, models.NewKindError(models.KindPuppeteer, classify.StepPool, "acquire", ErrPoolClosed)
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, classify.Classify(classify.StepPool, ctx.Err())
	}

	for {
		var l *Lease
		select {
		case l = <-p.idle:
		default:
		}
		if l == nil {
			break
		}
		if err := p.check(ctx, l); err != nil {
			slog.Debug("pool: idle page failed health check, discarding", "id", l.ID, "error", err)
			p.closePage(l)
			continue
		}
		return p.activate(l), nil
	}

	page, err := p.factory(ctx)
	if err != nil {
		<-p.slots
		return nil, classify.Classify(classify.StepPool, err)
	}
	l := &Lease{ID: p.nextID.Add(1), page: page, created: time.Now()}
	return p.activate(l), nil
}

// Release resets the page and returns it to the idle list. The page is
// closed instead when the reset fails, the page should retire, the idle list
// is full, or the pool is closed. Releasing a lease twice is a no-op.
func (p *Pool) Release(l *Lease) {
	if l == nil || !l.held.CompareAndSwap(true, false) {
		return
	}
	defer p.deactivate()

	if p.isClosed() || l.ShouldRetire() {
		p.closePage(l)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.healthTimeout)
	defer cancel()
	if err := l.page.Reset(ctx); err != nil {
		slog.Warn("pool: page reset failed, closing", "id", l.ID, "error", err)
		p.closePage(l)
		return
	}

	if !p.park(l) {
		p.closePage(l)
	}
}

// park puts l on the idle list unless the pool is closed or full. It holds
// p.mu so Close cannot drain between the check and the push.
func (p *Pool) park(l *Lease) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.idle <- l:
		return true
	default:
		return false
	}
}

// Destroy closes the leased page without returning it to the pool. Used after
// automation failures.
func (p *Pool) Destroy(l *Lease) {
	if l == nil || !l.held.CompareAndSwap(true, false) {
		return
	}
	defer p.deactivate()
	p.closePage(l)
}

// With runs fn with a lease and guarantees its release on every exit path.
// Automation-kind failures destroy the page; a panic destroys it and is
// re-raised.
func (p *Pool) With(ctx context.Context, fn func(*Lease) error) (err error) {
	l, err := p.Acquire(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			p.Destroy(l)
			panic(r)
		}
		switch {
		case err == nil:
			l.RecordSuccess()
			p.Release(l)
		case classify.KindOf(err) == models.KindPuppeteer:
			p.Destroy(l)
		default:
			l.RecordFailure()
			p.Release(l)
		}
	}()

	return fn(l)
}

// Stats returns a snapshot of the pool's current state.
func (p *Pool) Stats() models.PoolStats {
	return models.PoolStats{
		MaxLeases:    p.max,
		ActiveLeases: int(p.active.Load()),
		IdlePages:    len(p.idle),

		BlockedRequests: BlockedRequests(),
	}
}

// Close closes every idle page. Leases still out are closed on release.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case l := <-p.idle:
			p.closePage(l)
		default:
			return
		}
	}
}

func (p *Pool) check(ctx context.Context, l *Lease) error {
	ctx, cancel := context.WithTimeout(ctx, p.healthTimeout)
	defer cancel()
	return l.page.Healthy(ctx)
}

func (p *Pool) activate(l *Lease) *Lease {
	l.held.Store(true)
	p.active.Add(1)
	return l
}

func (p *Pool) deactivate() {
	p.active.Add(-1)
	<-p.slots
}

func (p *Pool) closePage(l *Lease) {
	if err := l.page.Close(); err != nil {
		slog.Debug("pool: close page", "id", l.ID, "error", err)
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
