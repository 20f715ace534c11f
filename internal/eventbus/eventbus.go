package eventbus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventTypeBroadcast = "broadcast"

// WSEvent is the document stored in the ws_events collection.
type WSEvent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OriginMachineID string             `bson:"originMachineId"`
	EventType       string             `bson:"eventType"`
	// Topic is a websocket subscription key, e.g. player:<id> or lobby
	Topic   string `bson:"topic"`
	Message []byte `bson:"message,omitempty"`
	// Housekeeping:
	CreatedAt time.Time `bson:"createdAt"`
}

// BroadcastFunc delivers a message to local WebSocket subscribers of a topic.
type BroadcastFunc func(topic string, message []byte)

// EventBus publishes WebSocket events to MongoDB and watches for
// events from other machines via Change Streams.
type EventBus struct {
	machineID      string
	collection     *mongo.Collection
	broadcastLocal BroadcastFunc
	cancelFunc     context.CancelFunc
	wg             sync.WaitGroup
	running        bool
	mu             sync.Mutex
}

func generateMachineID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// New creates an EventBus. If collection is nil, the EventBus runs in
// local-only mode (Publish is a no-op, no watcher runs).
func New(collection *mongo.Collection, broadcastLocal BroadcastFunc) *EventBus {
	return &EventBus{
		machineID:      generateMachineID(),
		collection:     collection,
		broadcastLocal: broadcastLocal,
	}
}

// Start begins the Change Stream watcher in a background goroutine.
func (eb *EventBus) Start() {
	if eb.collection == nil {
		log.Println("[EventBus] No collection configured, running in local-only mode")
		return
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb.cancelFunc = cancel
	eb.running = true
	eb.wg.Add(1)

	go eb.watchLoop(ctx)
	log.Printf("[EventBus] Started (machineId=%s)", eb.machineID)
}

// Stop cancels the Change Stream watcher and waits for it to exit.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if !eb.running {
		return
	}
	eb.running = false
	if eb.cancelFunc != nil {
		eb.cancelFunc()
	}
	eb.wg.Wait()
	log.Println("[EventBus] Stopped")
}

// PublishBroadcast inserts a topic broadcast into ws_events so the other
// instances can deliver it to their own subscribers.
// Errors are logged, never returned (fire-and-forget).
func (eb *EventBus) PublishBroadcast(topic string, message []byte) {
	if eb.collection == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	doc := WSEvent{
		OriginMachineID: eb.machineID,
		EventType:       eventTypeBroadcast,
		Topic:           topic,
		Message:         message,
		CreatedAt:       time.Now(),
	}
	if _, err := eb.collection.InsertOne(ctx, doc); err != nil {
		log.Printf("[EventBus] Failed to publish broadcast: %v", err)
	}
}

// watchLoop runs the Change Stream in a reconnecting loop.
func (eb *EventBus) watchLoop(ctx context.Context) {
	defer eb.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		err := eb.watch(ctx)
		if ctx.Err() != nil {
			return // normal shutdown
		}
		log.Printf("[EventBus] Change stream error (reconnecting in 2s): %v", err)
		time.Sleep(2 * time.Second)
	}
}

func (eb *EventBus) watch(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: "insert"},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := eb.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}
	defer cs.Close(ctx)

	for cs.Next(ctx) {
		var changeDoc struct {
			FullDocument WSEvent `bson:"fullDocument"`
		}
		if err := cs.Decode(&changeDoc); err != nil {
			log.Printf("[EventBus] Failed to decode change event: %v", err)
			continue
		}

		event := changeDoc.FullDocument

		eb.deliver(event)
	}

	return cs.Err()
}

// deliver hands an event from another machine to local subscribers.
func (eb *EventBus) deliver(event WSEvent) {
	// Skip events from this machine (already delivered locally)
	if event.OriginMachineID == eb.machineID {
		return
	}

	switch event.EventType {
	case eventTypeBroadcast:
		if eb.broadcastLocal != nil {
			eb.broadcastLocal(event.Topic, event.Message)
		}
	default:
		log.Printf("[EventBus] Unknown event type: %s", event.EventType)
	}
}
