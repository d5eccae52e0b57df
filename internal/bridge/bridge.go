package bridge

import (
	"sync"

	"github.com/Hatles/rx-home/internal/core"
	"github.com/Hatles/rx-home/internal/infrastructure/mqtt"
)

// outboundBuffer bounds the publish queue. When the broker cannot keep
// up, the oldest intent wins and newer messages are dropped with a
// warning rather than blocking the hub loop.
const outboundBuffer = 256

// MQTTClient is the broker surface the bridge needs. Satisfied by
// *mqtt.Client; mocked in tests.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// message is one queued outbound publish.
type message struct {
	topic    string
	payload  []byte
	retained bool
}

// Bridge mirrors the hub onto the MQTT broker and feeds broker requests
// back into it. See the package documentation for the topic layout.
//
// All methods are safe for concurrent use.
type Bridge struct {
	hub    *core.Hub
	client MQTTClient
	qos    byte
	logger Logger

	// Outbound publishes are serialised through one worker so retained
	// state for an entity is never overwritten by an older snapshot.
	outbound chan message
	done     chan struct{}
	wg       sync.WaitGroup

	mu         sync.Mutex
	started    bool
	busSub     *core.Subscription
	mqttTopics []string
}

// New creates a bridge between hub and client. qos applies to every
// publish and subscription. A nil logger discards output.
func New(hub *core.Hub, client MQTTClient, qos byte, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		hub:      hub,
		client:   client,
		qos:      qos,
		logger:   logger,
		outbound: make(chan message, outboundBuffer),
		done:     make(chan struct{}),
	}
}

// Start wires the bridge up: it subscribes to the hub bus and the
// broker request topics, starts the outbound worker, and replays the
// current state store as retained messages.
//
// Returns ErrAlreadyStarted on a second call, or the subscribe error if
// the broker rejects a subscription.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}

	topics := mqtt.Topics{}
	subscriptions := map[string]mqtt.MessageHandler{
		topics.AllEntitySets():   b.handleSet,
		topics.AllServiceCalls(): b.handleCall,
	}
	for topic, handler := range subscriptions {
		if err := b.client.Subscribe(topic, b.qos, handler); err != nil {
			for _, t := range b.mqttTopics {
				b.client.Unsubscribe(t)
			}
			b.mqttTopics = nil
			return err
		}
		b.mqttTopics = append(b.mqttTopics, topic)
	}

	b.busSub = b.hub.Bus.Subscribe(core.MatchAll, b.onEvent)

	b.wg.Add(1)
	go b.publishWorker()

	b.started = true

	// Replay current state so the broker converges after a restart.
	for _, state := range b.hub.States.All() {
		b.publishState(state.EntityID, state)
	}

	b.logger.Info("mqtt bridge started", "topics", len(b.mqttTopics))
	return nil
}

// Stop tears the bridge down: broker subscriptions are removed, the bus
// subscription is dropped and the outbound worker drains its queue.
//
// Returns ErrNotStarted if the bridge is not running.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return ErrNotStarted
	}
	b.started = false

	for _, topic := range b.mqttTopics {
		if err := b.client.Unsubscribe(topic); err != nil {
			b.logger.Warn("mqtt unsubscribe failed", "topic", topic, "error", err)
		}
	}
	b.mqttTopics = nil

	b.hub.Bus.Unsubscribe(b.busSub)
	b.busSub = nil

	close(b.done)
	b.wg.Wait()

	b.logger.Info("mqtt bridge stopped")
	return nil
}

// enqueue hands a message to the outbound worker without blocking the
// caller. Messages are dropped with a warning when the queue is full.
func (b *Bridge) enqueue(topic string, payload []byte, retained bool) {
	select {
	case b.outbound <- message{topic: topic, payload: payload, retained: retained}:
	default:
		b.logger.Warn("outbound queue full, dropping message", "topic", topic)
	}
}

// publishWorker serialises outbound publishes. On shutdown it drains
// whatever is already queued before exiting.
func (b *Bridge) publishWorker() {
	defer b.wg.Done()

	for {
		select {
		case msg := <-b.outbound:
			b.publish(msg)
		case <-b.done:
			for {
				select {
				case msg := <-b.outbound:
					b.publish(msg)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) publish(msg message) {
	if err := b.client.Publish(msg.topic, msg.payload, b.qos, msg.retained); err != nil {
		b.logger.Warn("mqtt publish failed", "topic", msg.topic, "error", err)
	}
}
