package adminview

import (
	"context"
	"sync"
	"time"

	"toasthub/internal/models"
)

// TabLoadDelay is the fixed settle time after a tab switch. It hides
// the flash of a heavy sub-tree mounting and never waits on network.
const TabLoadDelay = 300 * time.Millisecond

// DataSource is the slice of the API the engine saves and reloads
// through.
type DataSource interface {
	CreateClient(ctx context.Context, c models.Client) (*models.Client, error)
	UpdateClient(ctx context.Context, c models.Client) (*models.Client, error)
	CreateRep(ctx context.Context, r models.Rep) (*models.Rep, error)
	UpdateRep(ctx context.Context, r models.Rep) (*models.Rep, error)
	Stats(ctx context.Context) (*models.DashboardStats, error)
	Availability(ctx context.Context) (*models.Availability, error)
}

// Summary is the overview data refetched in full after every
// successful save. A full refetch trades efficiency for consistency.
type Summary struct {
	Stats        models.DashboardStats
	Availability models.Availability
}

// Engine wraps the pure reducer with the async concerns: the tab
// settle timer, saves, and the post-save summary reload. A generation
// counter makes responses that complete after a tab change inert.
type Engine struct {
	mu      sync.Mutex
	state   State
	summary Summary
	gen     int

	ds    DataSource
	after func(d time.Duration, f func())
}

func NewEngine(ds DataSource) *Engine {
	return &Engine{
		state: NewState(),
		ds:    ds,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// SetTimer replaces the settle timer, letting tests fire it
// synchronously.
func (e *Engine) SetTimer(after func(d time.Duration, f func())) {
	e.after = after
}

// State returns a copy of the current view state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Summary returns the last loaded overview data.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

// Dispatch applies a synchronous action.
func (e *Engine) Dispatch(a Action) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Reduce(e.state, a)
}

// ChangeTab switches tabs. While a switch is settling the trigger
// controls are disabled, so a change arriving mid-load is dropped
// rather than queued.
func (e *Engine) ChangeTab(t Tab) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t == e.state.ActiveTab || e.state.TabLoading {
		return
	}

	e.gen++
	gen := e.gen
	e.state = Reduce(e.state, ChangeTab{Tab: t})

	e.after(TabLoadDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.gen != gen {
			return
		}
		e.state = Reduce(e.state, TabLoaded{})
	})
}

// SaveClient issues a create or update depending on id presence. On
// failure the view state is untouched and the error propagates so the
// form can show it. On success the view returns to the list and the
// summary is refetched in full.
func (e *Engine) SaveClient(ctx context.Context, c models.Client) error {
	e.mu.Lock()
	gen := e.gen
	e.mu.Unlock()

	var err error
	if c.ID == "" {
		_, err = e.ds.CreateClient(ctx, c)
	} else {
		_, err = e.ds.UpdateClient(ctx, c)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.gen != gen {
		// The console moved on while the save was in flight.
		e.mu.Unlock()
		return nil
	}
	e.state = Reduce(e.state, ClientSaved{})
	e.mu.Unlock()

	e.reloadSummary(ctx, gen)
	return nil
}

// SaveRep mirrors SaveClient for reps.
func (e *Engine) SaveRep(ctx context.Context, r models.Rep) error {
	e.mu.Lock()
	gen := e.gen
	e.mu.Unlock()

	var err error
	if r.ID == "" {
		_, err = e.ds.CreateRep(ctx, r)
	} else {
		_, err = e.ds.UpdateRep(ctx, r)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return nil
	}
	e.state = Reduce(e.state, RepSaved{})
	e.mu.Unlock()

	e.reloadSummary(ctx, gen)
	return nil
}

// RefreshSummary loads the overview counters and availability.
func (e *Engine) RefreshSummary(ctx context.Context) {
	e.mu.Lock()
	gen := e.gen
	e.mu.Unlock()
	e.reloadSummary(ctx, gen)
}

func (e *Engine) reloadSummary(ctx context.Context, gen int) {
	stats, err := e.ds.Stats(ctx)
	if err != nil {
		return
	}
	avail, err := e.ds.Availability(ctx)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		return
	}
	e.summary = Summary{Stats: *stats, Availability: *avail}
}
