// Package dispatch fans analysis requests out to the agents and merges their
// completions into a result table.
package dispatch

import (
	"context"
	"sync"

	"github.com/jonathan/placement-prep/internal/agents"
	"github.com/jonathan/placement-prep/internal/results"
	"github.com/jonathan/placement-prep/internal/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoAnalysis is returned by Retry before any analysis was started.
	ErrNoAnalysis = errors.New("no analysis has been started")
	// ErrUnknownKind is returned by Retry for kinds outside the enumeration.
	ErrUnknownKind = errors.New("unknown agent kind")
)

// Coordinator owns one session's result table and the invocations feeding it.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc
	table  *results.Table
	runner agents.Runner
	log    *logrus.Entry

	mu      sync.Mutex
	input   types.UserInput
	started bool

	// group tracks outstanding invocations. Its error is always nil: a failed
	// agent is a result, not a reason to stop the others.
	group errgroup.Group
}

// New creates a coordinator. Invocations run under ctx until Close.
func New(ctx context.Context, table *results.Table, runner agents.Runner, log *logrus.Entry) *Coordinator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if table == nil {
		table = results.NewTable()
	}
	cctx, cancel := context.WithCancel(ctx)
	return &Coordinator{
		ctx:    cctx,
		cancel: cancel,
		table:  table,
		runner: runner,
		log:    log.WithField("component", "dispatch"),
	}
}

// Table returns the table this coordinator writes to.
func (c *Coordinator) Table() *results.Table {
	return c.table
}

// StartAnalysis resets the table and launches every agent for input. It is a
// no-op returning false when the company or role is blank.
func (c *Coordinator) StartAnalysis(input types.UserInput) bool {
	input = input.Normalize()
	if !input.Ready() {
		c.log.Debug("ignoring analysis request with missing company or role")
		return false
	}

	c.mu.Lock()
	c.input = input
	c.started = true
	c.mu.Unlock()

	c.table.Reset()
	c.log.WithFields(logrus.Fields{
		"company": input.CompanyName,
		"role":    input.JobRole,
	}).Info("starting analysis")

	for _, kind := range types.AllAgentKinds() {
		c.launch(kind, input)
	}
	return true
}

// Retry re-invokes a single agent with the stored input. It may be called while
// an earlier call for the same kind is still running; the newer call wins.
func (c *Coordinator) Retry(kind types.AgentKind) error {
	if !kind.Valid() {
		return errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	input, ok := c.Input()
	if !ok {
		return ErrNoAnalysis
	}
	c.log.WithField("agent", kind).Info("retrying agent")
	c.launch(kind, input)
	return nil
}

// Input returns the snapshot of the current analysis, if any.
func (c *Coordinator) Input() (types.UserInput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input, c.started
}

// Wait blocks until every launched invocation has settled. It must not be
// called concurrently with StartAnalysis or Retry.
func (c *Coordinator) Wait() {
	_ = c.group.Wait()
}

// Close cancels outstanding invocations. Their completions still settle the
// table, carrying the cancellation as an error.
func (c *Coordinator) Close() {
	c.cancel()
}

func (c *Coordinator) launch(kind types.AgentKind, input types.UserInput) {
	log := c.log.WithField("agent", kind)

	if kind.Interactive() {
		c.table.Begin(kind, types.Patch{
			Loading: types.Ptr(false),
			Content: types.Ptr(types.MockReadyContent),
			Error:   types.Ptr(""),
		})
		return
	}

	gen := c.table.Begin(kind, types.Patch{Loading: types.Ptr(true), Error: types.Ptr("")})
	c.group.Go(func() error {
		patch := c.runner.Invoke(c.ctx, kind, input)
		patch.Loading = types.Ptr(false)
		if !c.table.Complete(kind, gen, patch) {
			log.WithField("generation", gen).Debug("discarded stale completion")
		}
		return nil
	})
}
