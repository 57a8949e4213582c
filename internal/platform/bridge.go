// Package platform bridges the MQTT platform bus onto the coordinator.
//
// The platform adapter publishes full-collection snapshots, single-entity
// events, and removals under the visionary/ topic tree. The bridge decodes
// those payloads into domain entities and drives the coordinator's setter
// surface. In the other direction it carries client-initiated value writes
// back to the platform as command topics.
package platform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ljouon/visionary-ui-core/internal/domain"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/logging"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/mqtt"
)

// Sink receives decoded platform mutations. Implemented by the coordinator.
type Sink interface {
	SetLanguage(language string)

	SetRooms(rooms []domain.Room)
	SetRoom(room domain.Room)
	DeleteRoom(id string)

	SetFunctions(functions []domain.Function)
	SetFunction(function domain.Function)
	DeleteFunction(id string)

	SetObjects(objects []domain.StateObject)
	SetObject(object domain.StateObject)
	DeleteObject(id string)

	SetValues(values []domain.StateValue)
	SetValue(value domain.StateValue)
	DeleteValue(id string)
}

// PubSub is the slice of the MQTT client the bridge needs.
type PubSub interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Entity kind segments used on the platform bus.
const (
	kindConfig    = "config"
	kindRooms     = "rooms"
	kindFunctions = "functions"
	kindObjects   = "objects"
	kindValues    = "values"
	kindRoom      = "room"
	kindFunction  = "function"
	kindObject    = "object"
	kindValue     = "value"
)

// Bridge connects the platform bus to the coordinator.
type Bridge struct {
	bus    PubSub
	sink   Sink
	topics mqtt.Topics
	qos    byte
	logger *logging.Logger
}

// New creates a bridge. Call Start to subscribe and request the initial
// snapshot load.
func New(bus PubSub, sink Sink, qos byte, logger *logging.Logger) *Bridge {
	return &Bridge{
		bus:    bus,
		sink:   sink,
		qos:    qos,
		logger: logger,
	}
}

// Start subscribes to the snapshot, event, and removal topic trees, then
// asks the platform adapter for a full snapshot so the repository is
// populated even when the backend starts after the adapter.
func (b *Bridge) Start() error {
	subscriptions := map[string]mqtt.MessageHandler{
		b.topics.AllSnapshots(): b.handleSnapshot,
		b.topics.AllEvents():    b.handleEvent,
		b.topics.AllRemovals():  b.handleRemoval,
	}
	for topic, handler := range subscriptions {
		if err := b.bus.Subscribe(topic, b.qos, handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}

	if err := b.RequestRefresh(); err != nil {
		return err
	}

	b.logger.Info("platform bridge started")
	return nil
}

// RequestRefresh asks the platform adapter to republish all snapshots.
func (b *Bridge) RequestRefresh() error {
	if err := b.bus.Publish(b.topics.CommandRefresh(), []byte("{}"), b.qos, false); err != nil {
		return fmt.Errorf("requesting snapshot refresh: %w", err)
	}
	return nil
}

// SetState publishes a client-initiated value write to the platform.
// The origin client id travels along so the adapter can attribute the
// change; no response is awaited.
func (b *Bridge) SetState(clientID, objectID string, value any) error {
	payload, err := json.Marshal(map[string]any{
		"value":  value,
		"origin": clientID,
	})
	if err != nil {
		return fmt.Errorf("encoding state command for %s: %w", objectID, err)
	}
	return b.bus.Publish(b.topics.CommandState(objectID), payload, b.qos, false)
}

// handleSnapshot decodes a full-collection payload and replaces the
// corresponding repository collection through the sink.
func (b *Bridge) handleSnapshot(topic string, payload []byte) error {
	switch kind := lastSegment(topic); kind {
	case kindConfig:
		var cfg struct {
			Language string `json:"language"`
		}
		if err := json.Unmarshal(payload, &cfg); err != nil {
			return fmt.Errorf("decoding config snapshot: %w", err)
		}
		b.sink.SetLanguage(cfg.Language)

	case kindRooms:
		var rooms []domain.Room
		if err := json.Unmarshal(payload, &rooms); err != nil {
			return fmt.Errorf("decoding rooms snapshot: %w", err)
		}
		b.sink.SetRooms(rooms)

	case kindFunctions:
		var functions []domain.Function
		if err := json.Unmarshal(payload, &functions); err != nil {
			return fmt.Errorf("decoding functions snapshot: %w", err)
		}
		b.sink.SetFunctions(functions)

	case kindObjects:
		var objects []domain.StateObject
		if err := json.Unmarshal(payload, &objects); err != nil {
			return fmt.Errorf("decoding objects snapshot: %w", err)
		}
		b.sink.SetObjects(objects)

	case kindValues:
		var values []domain.StateValue
		if err := json.Unmarshal(payload, &values); err != nil {
			return fmt.Errorf("decoding values snapshot: %w", err)
		}
		b.sink.SetValues(values)

	default:
		b.logger.Warn("ignoring snapshot of unknown kind", "topic", topic)
	}
	return nil
}

// handleEvent decodes a single upserted entity and forwards it.
func (b *Bridge) handleEvent(topic string, payload []byte) error {
	switch kind := lastSegment(topic); kind {
	case kindRoom:
		var room domain.Room
		if err := json.Unmarshal(payload, &room); err != nil {
			return fmt.Errorf("decoding room event: %w", err)
		}
		b.sink.SetRoom(room)

	case kindFunction:
		var function domain.Function
		if err := json.Unmarshal(payload, &function); err != nil {
			return fmt.Errorf("decoding function event: %w", err)
		}
		b.sink.SetFunction(function)

	case kindObject:
		var object domain.StateObject
		if err := json.Unmarshal(payload, &object); err != nil {
			return fmt.Errorf("decoding object event: %w", err)
		}
		b.sink.SetObject(object)

	case kindValue:
		var value domain.StateValue
		if err := json.Unmarshal(payload, &value); err != nil {
			return fmt.Errorf("decoding value event: %w", err)
		}
		b.sink.SetValue(value)

	default:
		b.logger.Warn("ignoring event of unknown kind", "topic", topic)
	}
	return nil
}

// handleRemoval decodes a removal notice, payload {"id": "..."}.
func (b *Bridge) handleRemoval(topic string, payload []byte) error {
	var notice struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &notice); err != nil {
		return fmt.Errorf("decoding removal notice: %w", err)
	}
	if notice.ID == "" {
		return fmt.Errorf("removal notice on %s carries no id", topic)
	}

	switch kind := lastSegment(topic); kind {
	case kindRoom:
		b.sink.DeleteRoom(notice.ID)
	case kindFunction:
		b.sink.DeleteFunction(notice.ID)
	case kindObject:
		b.sink.DeleteObject(notice.ID)
	case kindValue:
		b.sink.DeleteValue(notice.ID)
	default:
		b.logger.Warn("ignoring removal of unknown kind", "topic", topic)
	}
	return nil
}

func lastSegment(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
