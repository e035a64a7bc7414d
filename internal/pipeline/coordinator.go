package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"n8n-monitor/internal/domain/execution"
	"n8n-monitor/internal/domain/summary"

	"github.com/google/uuid"
)

type WorkflowSource interface {
	ListWorkflows(ctx context.Context, pageSize, maxPages int) ([]execution.Workflow, error)
}

type Upstream interface {
	WorkflowSource
	ExecutionSource
}

// PollLock serialises polls across replicas sharing one upstream. A lock that
// cannot be reached is bypassed.
type PollLock interface {
	AcquirePollLock(ctx context.Context, token string, ttl time.Duration) (bool, error)
	ReleasePollLock(ctx context.Context, token string) error
}

// Observer receives every cycle outcome. Snapshots are shared; observers must
// not mutate them.
type Observer interface {
	SummaryPublished(ctx context.Context, snap Snapshot)
	PollFailed(ctx context.Context, failure PollFailure)
}

type State string

const (
	StateIdle          State = "idle"
	StatePolling       State = "polling"
	StatePublished     State = "published"
	StateStaleRetained State = "stale_retained"
)

// Snapshot is one published cycle. PartialReason holds the page error that
// cut a partial fetch short.
type Snapshot struct {
	CycleID       string         `json:"cycleId"`
	PublishedAt   time.Time      `json:"publishedAt"`
	Pages         int            `json:"pages"`
	Partial       bool           `json:"partial"`
	PartialReason string         `json:"partialReason,omitempty"`
	Result        summary.Result `json:"result"`
}

type PollFailure struct {
	CycleID string    `json:"cycleId"`
	Err     error     `json:"-"`
	Error   string    `json:"error"`
	At      time.Time `json:"at"`
	// HasStale reports whether an older snapshot is still being served.
	HasStale bool `json:"hasStale"`
}

type Status struct {
	State               State      `json:"state"`
	Available           bool       `json:"available"`
	LastCycleID         string     `json:"lastCycleId,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt"`
	LastFailureAt       *time.Time `json:"lastFailureAt"`
	LastError           string     `json:"lastError,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
}

type Options struct {
	WindowHours int
	PageSize    int
	MaxPages    int
	AttrLimit   int
	IncludeData bool
	Interval    time.Duration
	PollTimeout time.Duration
}

type CoordinatorOption func(*Coordinator)

func WithObservers(obs ...Observer) CoordinatorOption {
	return func(c *Coordinator) {
		for _, o := range obs {
			if o != nil {
				c.observers = append(c.observers, o)
			}
		}
	}
}

func WithPollLock(l PollLock) CoordinatorOption {
	return func(c *Coordinator) { c.lock = l }
}

func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator owns the poll loop and the last published snapshot. At most one
// poll runs at a time.
type Coordinator struct {
	upstream  Upstream
	fetcher   *Fetcher
	engine    *summary.Engine
	opts      Options
	lock      PollLock
	observers []Observer
	now       func() time.Time
	log       *slog.Logger

	busy sync.Mutex

	mu     sync.RWMutex
	snap   *Snapshot
	status Status
}

func NewCoordinator(up Upstream, opts Options, logger *slog.Logger, options ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 2 * time.Minute
	}
	if opts.WindowHours <= 0 {
		opts.WindowHours = 6
	}
	c := &Coordinator{
		upstream: up,
		fetcher:  NewFetcher(up, logger),
		engine:   summary.NewEngine(logger),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger,
		status:   Status{State: StateIdle},
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Start runs the first poll. With no earlier snapshot to fall back on, its
// failure is returned to the caller.
func (c *Coordinator) Start(ctx context.Context) error {
	_, err := c.Refresh(ctx)
	return err
}

// Run polls on every interval tick until ctx is done. A poll that overruns the
// interval swallows the ticks that fire meanwhile.
func (c *Coordinator) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Refresh(ctx); err != nil && errors.Is(err, ErrPollInFlight) {
				c.log.Debug("poll tick skipped, previous poll still running")
			}
		}
	}
}

// Refresh runs one poll now. It returns ErrPollInFlight when another poll
// holds the busy flag or the shared lock.
func (c *Coordinator) Refresh(ctx context.Context) (Snapshot, error) {
	if c == nil || c.upstream == nil {
		return Snapshot{}, errors.New("pipeline: coordinator not configured")
	}
	if !c.busy.TryLock() {
		return Snapshot{}, ErrPollInFlight
	}
	defer c.busy.Unlock()

	cycleID := uuid.NewString()
	log := c.log.With("cycle_id", cycleID)

	if c.lock != nil {
		ok, err := c.lock.AcquirePollLock(ctx, cycleID, c.opts.PollTimeout)
		switch {
		case err != nil:
			log.Warn("poll lock unavailable, polling without it", "error", err)
		case !ok:
			return Snapshot{}, ErrPollInFlight
		default:
			defer func() {
				if err := c.lock.ReleasePollLock(context.WithoutCancel(ctx), cycleID); err != nil {
					log.Warn("poll lock release failed", "error", err)
				}
			}()
		}
	}

	c.setState(StatePolling)
	start := time.Now()

	snap, err := c.poll(ctx, cycleID)
	if err != nil {
		failure := c.recordFailure(cycleID, err)
		log.Error("poll failed, keeping previous summaries",
			"error", err, "has_stale", failure.HasStale, "duration", time.Since(start))
		for _, o := range c.observers {
			o.PollFailed(ctx, failure)
		}
		return Snapshot{}, err
	}

	c.publish(snap)
	if snap.Partial {
		log.Warn("execution fetch cut short, publishing partial summaries",
			"pages", snap.Pages, "page_error", snap.PartialReason)
	}
	log.Info("summaries published",
		"workflows", snap.Result.Workflows.Total,
		"executions", snap.Result.Executions.Total,
		"pages", snap.Pages,
		"partial", snap.Partial,
		"duration", time.Since(start))
	for _, o := range c.observers {
		o.SummaryPublished(ctx, snap)
	}
	return snap, nil
}

func (c *Coordinator) poll(ctx context.Context, cycleID string) (Snapshot, error) {
	pctx, cancel := context.WithTimeout(ctx, c.opts.PollTimeout)
	defer cancel()

	window := summary.NewWindow(c.now(), c.opts.WindowHours)

	workflows, err := c.upstream.ListWorkflows(pctx, c.opts.PageSize, c.opts.MaxPages)
	if err != nil {
		return Snapshot{}, &PollError{CycleID: cycleID, Stage: StageWorkflows, Err: err}
	}

	fetched, err := c.fetcher.FetchWindow(pctx, FetchParams{
		WindowStart: window.Start,
		PageSize:    c.opts.PageSize,
		MaxPages:    c.opts.MaxPages,
		IncludeData: c.opts.IncludeData,
	})
	if err != nil {
		return Snapshot{}, &PollError{CycleID: cycleID, Stage: StageExecutions, Err: err}
	}
	if err := pctx.Err(); err != nil {
		return Snapshot{}, &PollError{CycleID: cycleID, Stage: StageDeadline, Err: err}
	}

	records := make([]execution.Record, 0, len(fetched.Records)+len(fetched.Boundary))
	records = append(records, fetched.Records...)
	records = append(records, fetched.Boundary...)

	snap := Snapshot{
		CycleID:     cycleID,
		PublishedAt: c.now(),
		Pages:       fetched.Pages,
		Partial:     fetched.Partial,
		Result:      c.engine.Aggregate(workflows, records, window, c.opts.AttrLimit),
	}
	if fetched.PageErr != nil {
		snap.PartialReason = fetched.PageErr.Error()
	}
	return snap, nil
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.status.State = s
	c.mu.Unlock()
}

func (c *Coordinator) publish(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = &snap
	at := snap.PublishedAt
	c.status.State = StatePublished
	c.status.Available = true
	c.status.LastCycleID = snap.CycleID
	c.status.LastSuccessAt = &at
	c.status.LastError = ""
	c.status.ConsecutiveFailures = 0
}

func (c *Coordinator) recordFailure(cycleID string, err error) PollFailure {
	c.mu.Lock()
	defer c.mu.Unlock()
	at := c.now()
	c.status.State = StateStaleRetained
	c.status.Available = false
	c.status.LastCycleID = cycleID
	c.status.LastFailureAt = &at
	c.status.LastError = err.Error()
	c.status.ConsecutiveFailures++
	return PollFailure{
		CycleID:  cycleID,
		Err:      err,
		Error:    err.Error(),
		At:       at,
		HasStale: c.snap != nil,
	}
}

// Snapshot returns the last published cycle. ok is false before the first
// successful poll.
func (c *Coordinator) Snapshot() (Snapshot, bool) {
	if c == nil {
		return Snapshot{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return Snapshot{}, false
	}
	return *c.snap, true
}

func (c *Coordinator) Status() Status {
	if c == nil {
		return Status{State: StateIdle}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Coordinator) Interval() time.Duration {
	if c == nil {
		return 0
	}
	return c.opts.Interval
}
