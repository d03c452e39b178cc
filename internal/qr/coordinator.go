package qr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateDisplayed  State = "displayed"
	StateExpired    State = "expired"
	StateError      State = "error"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 2 * time.Second
)

// Fetcher is satisfied by *waha.Client.
type Fetcher interface {
	FetchQR(ctx context.Context) (waha.QRChallenge, *waha.Result, error)
}

type Options struct {
	MaxAttempts int
	Backoff     time.Duration
	// Tick is the countdown resolution, one second outside tests.
	Tick time.Duration
	// OnChange, when set, receives every state transition. It runs with the
	// coordinator locked and must not call back into it.
	OnChange func(Snapshot)
}

type Snapshot struct {
	State            State             `json:"state"`
	Generation       uint64            `json:"generation"`
	Challenge        *waha.QRChallenge `json:"challenge,omitempty"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Attempts         int               `json:"attempts"`
	Error            string            `json:"error,omitempty"`
	DebugInfo        interface{}       `json:"-"`
}

// Coordinator owns the lifecycle of one QR challenge: request with bounded
// retry, countdown to expiry, supersede and cancel. A generation counter
// keeps stale fetches and ticks from touching newer state.
type Coordinator struct {
	opts Options

	mu        sync.Mutex
	gen       uint64
	stop      chan struct{}
	state     State
	challenge *waha.QRChallenge
	remaining int
	attempts  int
	errMsg    string
	debugInfo interface{}
}

func New(opts Options) *Coordinator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	return &Coordinator{opts: opts, state: StateIdle}
}

// Request supersedes any current challenge and fetches a new one. Only
// transport errors are retried. It returns the snapshot that ends this
// request, or the newer state if the request was superseded meanwhile.
func (c *Coordinator) Request(ctx context.Context, fetcher Fetcher) Snapshot {
	c.mu.Lock()
	gen, stop := c.supersedeLocked()
	c.state = StateRequesting
	c.notifyLocked()
	c.mu.Unlock()

	// A supersede or cancel closes stop, which ends the fetch and the wait.
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-reqCtx.Done():
		}
	}()

	var (
		challenge waha.QRChallenge
		res       *waha.Result
		attempts  int
	)
	fetch := func() error {
		attempts++
		var err error
		challenge, res, err = fetcher.FetchQR(reqCtx)
		if err != nil && !waha.IsTransport(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.Backoff), uint64(c.opts.MaxAttempts-1)),
		reqCtx,
	)
	err := backoff.RetryNotify(fetch, policy, func(err error, wait time.Duration) {
		c.mu.Lock()
		if c.gen == gen {
			c.attempts = attempts
		}
		c.mu.Unlock()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return c.snapshotLocked()
	}
	c.attempts = attempts

	switch {
	case err == nil:
		c.state = StateDisplayed
		c.challenge = &challenge
		c.remaining = challenge.ExpiresInSeconds
		go c.countdown(gen, stop)
	case ctx.Err() != nil:
		c.state = StateError
		c.errMsg = ctx.Err().Error()
	default:
		c.state = StateError
		c.errMsg = err.Error()
		if waha.IsTransport(err) {
			c.errMsg = fmt.Sprintf("%s (gave up after %d attempts)", err.Error(), attempts)
		}
		if res != nil {
			c.debugInfo = res.DebugInfo
		}
	}
	c.notifyLocked()
	return c.snapshotLocked()
}

// Cancel stops the countdown and returns to idle.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersedeLocked()
	c.notifyLocked()
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) countdown(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.gen != gen || c.state != StateDisplayed {
			c.mu.Unlock()
			return
		}
		c.remaining--
		if c.remaining <= 0 {
			c.remaining = 0
			c.state = StateExpired
			c.notifyLocked()
			c.mu.Unlock()
			return
		}
		c.notifyLocked()
		c.mu.Unlock()
	}
}

// supersedeLocked invalidates the current generation and resets to idle.
func (c *Coordinator) supersedeLocked() (uint64, chan struct{}) {
	if c.stop != nil {
		close(c.stop)
	}
	c.gen++
	c.stop = make(chan struct{})
	c.state = StateIdle
	c.challenge = nil
	c.remaining = 0
	c.attempts = 0
	c.errMsg = ""
	c.debugInfo = nil
	return c.gen, c.stop
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:            c.state,
		Generation:       c.gen,
		RemainingSeconds: c.remaining,
		Attempts:         c.attempts,
		Error:            c.errMsg,
		DebugInfo:        c.debugInfo,
	}
	if c.challenge != nil {
		challenge := *c.challenge
		snap.Challenge = &challenge
	}
	return snap
}

func (c *Coordinator) notifyLocked() {
	if c.opts.OnChange != nil {
		c.opts.OnChange(c.snapshotLocked())
	}
}
