package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ServiceCall carries the arguments of one service invocation to its
// handler.
type ServiceCall struct {
	Domain  string
	Service string
	Data    map[string]any
	Context Context
}

// ServiceHandler is the callable registered for a service. Handlers may
// block; blocking callers wait for them, fire-and-forget calls run them
// on the loop.
type ServiceHandler func(ctx context.Context, call ServiceCall) error

// serviceEntry is one (domain, service) registration.
type serviceEntry struct {
	handler ServiceHandler
	schema  Schema
}

// ServiceRegistry maps (domain, service) pairs to handlers and validates
// call data against the registered schema before dispatch.
//
// All methods are safe for concurrent use.
type ServiceRegistry struct {
	bus    *EventBus
	loop   *Loop
	logger Logger

	mu       sync.RWMutex
	services map[string]map[string]serviceEntry
}

// NewServiceRegistry creates an empty registry publishing on the given bus.
func NewServiceRegistry(bus *EventBus, loop *Loop, logger Logger) *ServiceRegistry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &ServiceRegistry{
		bus:      bus,
		loop:     loop,
		logger:   logger,
		services: make(map[string]map[string]serviceEntry),
	}
}

// Register stores a handler under (domain, service), silently replacing
// any existing registration, and publishes service_registered. schema
// may be nil to accept any data.
func (r *ServiceRegistry) Register(domain, service string, handler ServiceHandler, schema Schema) {
	domain = strings.ToLower(domain)
	service = strings.ToLower(service)

	r.mu.Lock()
	if r.services[domain] == nil {
		r.services[domain] = make(map[string]serviceEntry)
	}
	r.services[domain][service] = serviceEntry{handler: handler, schema: schema}
	r.mu.Unlock()

	r.bus.Publish(EventServiceRegistered, map[string]any{
		AttrDomain:  domain,
		AttrService: service,
	}, OriginLocal, Context{})
}

// Unregister removes a registration if present, publishing
// service_removed when something was actually removed.
func (r *ServiceRegistry) Unregister(domain, service string) {
	domain = strings.ToLower(domain)
	service = strings.ToLower(service)

	r.mu.Lock()
	entries, ok := r.services[domain]
	if ok {
		_, ok = entries[service]
		if ok {
			delete(entries, service)
			if len(entries) == 0 {
				delete(r.services, domain)
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	r.bus.Publish(EventServiceRemoved, map[string]any{
		AttrDomain:  domain,
		AttrService: service,
	}, OriginLocal, Context{})
}

// HasService reports whether (domain, service) is registered.
func (r *ServiceRegistry) HasService(domain, service string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[strings.ToLower(domain)][strings.ToLower(service)]
	return ok
}

// Services returns the registered service names per domain, sorted.
func (r *ServiceRegistry) Services() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.services))
	for domain, entries := range r.services {
		names := make([]string, 0, len(entries))
		for name := range entries {
			names = append(names, name)
		}
		sort.Strings(names)
		out[domain] = names
	}
	return out
}

// Call invokes a registered service.
//
// A call_service event is published before the handler runs. When
// blocking is true the handler executes in the caller's goroutine and
// its error (or nil) is returned. Otherwise the handler is scheduled on
// the loop and Call returns immediately; handler failures are logged,
// never surfaced to the caller.
//
// Returns ErrServiceNotFound for an unregistered pair and a
// *ValidationError when data fails the registered schema.
func (r *ServiceRegistry) Call(ctx context.Context, domain, service string, data map[string]any, blocking bool, cc Context) error {
	domain = strings.ToLower(domain)
	service = strings.ToLower(service)

	r.mu.RLock()
	entry, ok := r.services[domain][service]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrServiceNotFound, domain, service)
	}

	if err := entry.schema.Validate(data); err != nil {
		return err
	}

	cc = cc.orNew()
	r.bus.Publish(EventCallService, map[string]any{
		AttrDomain:      domain,
		AttrService:     service,
		AttrServiceData: data,
	}, OriginLocal, cc)

	call := ServiceCall{
		Domain:  domain,
		Service: service,
		Data:    data,
		Context: cc,
	}

	if blocking {
		return entry.handler(ctx, call)
	}

	if err := r.loop.Submit(func() {
		if err := entry.handler(context.Background(), call); err != nil {
			r.logger.Error("service call failed",
				"domain", domain,
				"service", service,
				"error", err,
			)
		}
	}); err != nil {
		return err
	}
	return nil
}
