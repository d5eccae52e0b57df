package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestServiceRegistry_RegisterCall(t *testing.T) {
	h := newTestHub(t)

	var (
		mu   sync.Mutex
		got  ServiceCall
		runs int
	)
	h.Services.Register("light", "turn_on", func(_ context.Context, call ServiceCall) error {
		mu.Lock()
		got = call
		runs++
		mu.Unlock()
		return nil
	}, nil)

	if !h.Services.HasService("light", "turn_on") {
		t.Fatal("HasService() = false after Register()")
	}

	err := h.Services.Call(context.Background(), "light", "turn_on",
		map[string]any{"entity_id": "light.kitchen"}, true, Context{})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Fatalf("handler ran %d times, want 1", runs)
	}
	if got.Domain != "light" || got.Service != "turn_on" {
		t.Errorf("call = %s.%s, want light.turn_on", got.Domain, got.Service)
	}
	if got.Data["entity_id"] != "light.kitchen" {
		t.Errorf("Data[entity_id] = %v, want light.kitchen", got.Data["entity_id"])
	}
	if got.Context.ID == "" {
		t.Error("call context was not minted")
	}
	drain(t, h)
}

func TestServiceRegistry_CaseInsensitive(t *testing.T) {
	h := newTestHub(t)

	h.Services.Register("Light", "Turn_On", func(context.Context, ServiceCall) error {
		return nil
	}, nil)

	if !h.Services.HasService("light", "turn_on") {
		t.Error("HasService() did not normalise registration case")
	}
	if err := h.Services.Call(context.Background(), "LIGHT", "TURN_ON", nil, true, Context{}); err != nil {
		t.Errorf("Call() with mixed case error = %v", err)
	}
	drain(t, h)
}

func TestServiceRegistry_NotFound(t *testing.T) {
	h := newTestHub(t)

	err := h.Services.Call(context.Background(), "light", "missing", nil, true, Context{})
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("Call() error = %v, want ErrServiceNotFound", err)
	}
}

func TestServiceRegistry_BlockingPropagatesError(t *testing.T) {
	h := newTestHub(t)

	wantErr := errors.New("bulb unreachable")
	h.Services.Register("light", "turn_on", func(context.Context, ServiceCall) error {
		return wantErr
	}, nil)

	err := h.Services.Call(context.Background(), "light", "turn_on", nil, true, Context{})
	if !errors.Is(err, wantErr) {
		t.Errorf("Call() error = %v, want %v", err, wantErr)
	}
	drain(t, h)
}

func TestServiceRegistry_NonBlockingLogsError(t *testing.T) {
	logger := &captureLogger{}
	h := New(Config{
		Name:           "test",
		ShutdownBudget: 200 * time.Millisecond,
		DrainBudget:    2 * time.Second,
	}, logger)
	h.loop.Start()
	t.Cleanup(h.loop.Stop)

	h.Services.Register("light", "turn_on", func(context.Context, ServiceCall) error {
		return errors.New("bulb unreachable")
	}, nil)

	if err := h.Services.Call(context.Background(), "light", "turn_on", nil, false, Context{}); err != nil {
		t.Fatalf("Call() error = %v, want nil for non-blocking call", err)
	}
	drain(t, h)

	if !logger.has("error", "service call failed") {
		t.Error("non-blocking handler failure was not logged")
	}
}

func TestServiceRegistry_SchemaRejectsBadData(t *testing.T) {
	h := newTestHub(t)

	schema := Schema{
		"entity_id":  {Kind: KindString, Required: true},
		"brightness": {Kind: KindNumber},
	}
	h.Services.Register("light", "turn_on", func(context.Context, ServiceCall) error {
		t.Error("handler ran despite invalid data")
		return nil
	}, schema)

	tests := []struct {
		name string
		data map[string]any
	}{
		{name: "missing required", data: map[string]any{"brightness": 80}},
		{name: "wrong kind", data: map[string]any{"entity_id": 42}},
		{name: "unknown key", data: map[string]any{"entity_id": "light.kitchen", "colour": "red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Services.Call(context.Background(), "light", "turn_on", tt.data, true, Context{})
			if !errors.Is(err, ErrInvalidServiceData) {
				t.Errorf("Call() error = %v, want ErrInvalidServiceData", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Call() error = %v, want *ValidationError", err)
			}
		})
	}
	drain(t, h)
}

func TestServiceRegistry_CallServiceEventPrecedesHandler(t *testing.T) {
	h := newTestHub(t)

	var (
		mu    sync.Mutex
		order []string
	)
	h.Bus.Subscribe(EventCallService, func(Event) {
		mu.Lock()
		order = append(order, "event")
		mu.Unlock()
	})
	h.Services.Register("light", "turn_on", func(context.Context, ServiceCall) error {
		mu.Lock()
		order = append(order, "handler")
		mu.Unlock()
		return nil
	}, nil)

	if err := h.Services.Call(context.Background(), "light", "turn_on", nil, false, Context{}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	drain(t, h)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "event" || order[1] != "handler" {
		t.Errorf("dispatch order = %v, want [event handler]", order)
	}
}

func TestServiceRegistry_UnregisterEvents(t *testing.T) {
	h := newTestHub(t)

	var (
		mu      sync.Mutex
		removed int
	)
	h.Bus.Subscribe(EventServiceRemoved, func(Event) {
		mu.Lock()
		removed++
		mu.Unlock()
	})

	h.Services.Register("light", "turn_on", func(context.Context, ServiceCall) error { return nil }, nil)
	h.Services.Unregister("light", "turn_on")
	h.Services.Unregister("light", "turn_on")
	drain(t, h)

	if h.Services.HasService("light", "turn_on") {
		t.Error("HasService() = true after Unregister()")
	}
	mu.Lock()
	defer mu.Unlock()
	if removed != 1 {
		t.Errorf("got %d service_removed events, want 1", removed)
	}
}

func TestServiceRegistry_Services(t *testing.T) {
	h := newTestHub(t)

	nop := func(context.Context, ServiceCall) error { return nil }
	h.Services.Register("light", "turn_on", nop, nil)
	h.Services.Register("light", "turn_off", nop, nil)
	h.Services.Register("switch", "toggle", nop, nil)

	got := h.Services.Services()
	if len(got) != 2 {
		t.Fatalf("Services() = %v, want 2 domains", got)
	}
	lights := got["light"]
	if len(lights) != 2 || lights[0] != "turn_off" || lights[1] != "turn_on" {
		t.Errorf("Services()[light] = %v, want sorted [turn_off turn_on]", lights)
	}
	drain(t, h)
}
