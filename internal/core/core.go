package core

import (
	"fmt"
	"sync"
	"time"
)

// RunState is the hub lifecycle state.
type RunState string

const (
	StateNotRunning RunState = "NOT_RUNNING"
	StateStarting   RunState = "STARTING"
	StateRunning    RunState = "RUNNING"
	StateStopping   RunState = "STOPPING"
	// StateFinalWrite is the sub-phase of stopping in which collaborators
	// flush durable state.
	StateFinalWrite RunState = "FINAL_WRITE"
	StateStopped    RunState = "STOPPED"
)

// Unit systems recognised by the hub configuration.
const (
	UnitSystemMetric   = "metric"
	UnitSystemImperial = "imperial"
)

// Default time budgets.
const (
	// defaultShutdownBudget bounds each shutdown phase (stop, final
	// write, close). A listener overrunning the budget is abandoned.
	defaultShutdownBudget = 10 * time.Second

	// defaultDrainBudget bounds BlockTillDone and the startup drain.
	defaultDrainBudget = 60 * time.Second
)

// Config carries the hub-level options collaborators pass in at
// construction time.
type Config struct {
	// Name identifies this hub instance in logs and status payloads.
	Name string

	// UnitSystem is "metric" or "imperial".
	UnitSystem string

	// TimeZone is an IANA zone name, e.g. "Europe/London".
	TimeZone string

	// Location of the installation, for sun and distance helpers in
	// higher layers.
	Latitude  float64
	Longitude float64
	Elevation int

	// ShutdownBudget bounds each shutdown phase. Zero means the default.
	ShutdownBudget time.Duration

	// DrainBudget bounds BlockTillDone. Zero means the default.
	DrainBudget time.Duration
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "rx-home"
	}
	if c.UnitSystem == "" {
		c.UnitSystem = UnitSystemMetric
	}
	if c.ShutdownBudget <= 0 {
		c.ShutdownBudget = defaultShutdownBudget
	}
	if c.DrainBudget <= 0 {
		c.DrainBudget = defaultDrainBudget
	}
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.UnitSystem != "" && c.UnitSystem != UnitSystemMetric && c.UnitSystem != UnitSystemImperial {
		return fmt.Errorf("core: unit system must be %q or %q, got %q",
			UnitSystemMetric, UnitSystemImperial, c.UnitSystem)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("core: latitude out of range: %v", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("core: longitude out of range: %v", c.Longitude)
	}
	return nil
}

// Hub is the runtime object owning the event loop, bus, state store,
// service registry and timer. All collaborator interaction goes through
// the Hub or its components; there are no package-level singletons.
type Hub struct {
	cfg    Config
	logger Logger

	loop     *Loop
	Bus      *EventBus
	States   *StateStore
	Services *ServiceRegistry
	timer    *Timer

	mu    sync.RWMutex
	state RunState

	// Background job accounting for BlockTillDone.
	jobsMu     sync.Mutex
	jobs       int
	jobWaiters []chan struct{}
}

// New assembles a hub in the not_running state.
func New(cfg Config, logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	cfg = cfg.withDefaults()

	loop := NewLoop(logger)
	bus := NewEventBus(loop, logger)

	return &Hub{
		cfg:      cfg,
		logger:   logger,
		loop:     loop,
		Bus:      bus,
		States:   NewStateStore(bus),
		Services: NewServiceRegistry(bus, loop, logger),
		timer:    NewTimer(bus, logger),
		state:    StateNotRunning,
	}
}

// Config returns the hub configuration.
func (h *Hub) Config() Config {
	return h.cfg
}

// State returns the current lifecycle state.
func (h *Hub) State() RunState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// IsRunning reports whether the hub is in the running state.
func (h *Hub) IsRunning() bool {
	return h.State() == StateRunning
}

// Start brings the hub up: it starts the event loop and timer,
// publishes homeassistant_start, drains the work that start listeners
// scheduled, then publishes homeassistant_started.
//
// Returns ErrInvalidStateTransition unless the hub is not_running.
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.state != StateNotRunning {
		state := h.state
		h.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidStateTransition, state)
	}
	h.state = StateStarting
	h.mu.Unlock()

	h.logger.Info("hub starting", "name", h.cfg.Name)
	h.loop.Start()

	// The timer stops itself on homeassistant_stop, mirroring explicit
	// Stop for collaborators that publish the stop event directly.
	h.Bus.SubscribeOnce(EventHomeAssistantStop, func(Event) {
		h.timer.Stop()
	})
	h.timer.Start()

	h.Bus.Publish(EventHomeAssistantStart, nil, OriginLocal, Context{})
	if err := h.BlockTillDone(h.cfg.DrainBudget); err != nil {
		h.logger.Warn("startup drain incomplete", "error", err)
	}

	h.mu.Lock()
	h.state = StateRunning
	h.mu.Unlock()

	h.Bus.Publish(EventHomeAssistantStarted, nil, OriginLocal, Context{})
	h.logger.Info("hub started", "name", h.cfg.Name)
	return nil
}

// Stop shuts the hub down in phases: homeassistant_stop, then
// homeassistant_final_write, then homeassistant_close, each followed by
// a bounded drain. Listeners overrunning a phase budget are abandoned
// (no longer awaited), never forcibly terminated. Finally the timer and
// event loop are halted.
//
// Returns ErrInvalidStateTransition unless the hub is running.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if h.state != StateRunning {
		state := h.state
		h.mu.Unlock()
		return fmt.Errorf("%w: stop from %s", ErrInvalidStateTransition, state)
	}
	h.state = StateStopping
	h.mu.Unlock()

	h.logger.Info("hub stopping", "name", h.cfg.Name)

	h.Bus.Publish(EventHomeAssistantStop, nil, OriginLocal, Context{})
	h.drainPhase("stop")

	h.mu.Lock()
	h.state = StateFinalWrite
	h.mu.Unlock()

	h.Bus.Publish(EventHomeAssistantFinalWrite, nil, OriginLocal, Context{})
	h.drainPhase("final_write")

	h.Bus.Publish(EventHomeAssistantClose, nil, OriginLocal, Context{})
	h.drainPhase("close")

	h.timer.Stop()
	h.loop.Stop()

	h.mu.Lock()
	h.state = StateStopped
	h.mu.Unlock()

	h.logger.Info("hub stopped", "name", h.cfg.Name)
	return nil
}

// drainPhase waits out one shutdown phase budget, logging overruns.
func (h *Hub) drainPhase(phase string) {
	if err := h.BlockTillDone(h.cfg.ShutdownBudget); err != nil {
		h.logger.Warn("shutdown phase overran budget, abandoning pending work",
			"phase", phase,
			"budget", h.cfg.ShutdownBudget,
		)
	}
}

// BlockTillDone blocks the caller until every pending loop task and
// tracked background job has completed, iterating until a fixed point:
// work scheduled while draining is drained too. The overall wait is
// bounded by timeout (ErrTimeout on overrun) so a collaborator that
// perpetually reschedules itself cannot livelock the caller.
func (h *Hub) BlockTillDone(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = h.cfg.DrainBudget
	}
	deadline := time.Now().Add(timeout)

	for {
		if time.Until(deadline) <= 0 {
			return ErrTimeout
		}
		if err := h.loop.Wait(time.Until(deadline)); err != nil {
			return err
		}
		if err := h.waitJobs(time.Until(deadline)); err != nil {
			return err
		}
		// Jobs may have scheduled fresh loop work; only an empty queue
		// after both waits is a fixed point.
		if h.loop.Pending() == 0 && h.jobCount() == 0 {
			return nil
		}
	}
}

// AddJob runs fn on its own goroutine, tracked so BlockTillDone and the
// shutdown drains account for it. Use it for listener reactions that
// block (database writes, network calls) instead of stalling the loop.
func (h *Hub) AddJob(name string, fn func()) {
	h.jobsMu.Lock()
	h.jobs++
	h.jobsMu.Unlock()

	go func() {
		defer h.finishJob()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("background job panic recovered", "job", name, "panic", r)
			}
		}()
		fn()
	}()
}

// Submit marshals fn onto the hub's loop from any goroutine.
func (h *Hub) Submit(fn func()) error {
	return h.loop.Submit(fn)
}

// SubmitWait marshals fn onto the loop and blocks until it has run,
// returning its result. Must not be called from the loop itself.
func (h *Hub) SubmitWait(fn func() (any, error)) (any, error) {
	return h.loop.SubmitWait(fn)
}

// finishJob decrements the job count and releases waiters at zero.
func (h *Hub) finishJob() {
	h.jobsMu.Lock()
	h.jobs--
	if h.jobs == 0 {
		for _, ch := range h.jobWaiters {
			close(ch)
		}
		h.jobWaiters = nil
	}
	h.jobsMu.Unlock()
}

// jobCount returns the number of in-flight background jobs.
func (h *Hub) jobCount() int {
	h.jobsMu.Lock()
	defer h.jobsMu.Unlock()
	return h.jobs
}

// waitJobs blocks until the job count reaches zero or timeout elapses.
func (h *Hub) waitJobs(timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		h.jobsMu.Lock()
		if h.jobs == 0 {
			h.jobsMu.Unlock()
			return nil
		}
		ch := make(chan struct{})
		h.jobWaiters = append(h.jobWaiters, ch)
		h.jobsMu.Unlock()

		select {
		case <-ch:
		case <-deadline.C:
			return fmt.Errorf("%w: background jobs still running", ErrTimeout)
		}
	}
}
