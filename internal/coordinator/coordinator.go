// Package coordinator implements the protocol state machine between the
// platform-facing side and connected visualization clients.
//
// Every platform-originated mutation goes through the coordinator: it updates
// the repository, builds the matching wire envelope, and fans it out. Inbound
// client actions flow the other way and become fire-and-forget platform
// writes. A single mutex serializes mutation plus broadcast, so every client
// observes repository changes in the order they were applied.
package coordinator

import (
	"sync"

	"github.com/ljouon/visionary-ui-core/internal/domain"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/logging"
)

// Transport delivers encoded envelopes to clients. Implemented by the
// socket server.
type Transport interface {
	MessageToClient(clientID string, payload []byte)
	MessageToAllClients(payload []byte)
}

// StateWriter forwards a client-initiated value change to the platform.
// Implemented by the platform bridge.
type StateWriter interface {
	SetState(clientID, objectID string, value any) error
}

// MetricWriter records numeric value updates for telemetry.
// Implemented by the InfluxDB client.
type MetricWriter interface {
	WriteValueMetric(objectID string, value float64)
}

// Coordinator owns the repository and the fan-out discipline.
type Coordinator struct {
	mu        sync.Mutex
	repo      *domain.Repository
	transport Transport
	writer    StateWriter
	metrics   MetricWriter
	logger    *logging.Logger
}

// New creates a coordinator over the given repository and transport.
// The state writer and metric writer are optional collaborators wired
// separately because they come up later in the boot sequence.
func New(repo *domain.Repository, transport Transport, logger *logging.Logger) *Coordinator {
	return &Coordinator{
		repo:      repo,
		transport: transport,
		logger:    logger,
	}
}

// SetStateWriter installs the platform write collaborator.
func (c *Coordinator) SetStateWriter(writer StateWriter) {
	c.mu.Lock()
	c.writer = writer
	c.mu.Unlock()
}

// SetMetricWriter installs the telemetry collaborator.
func (c *Coordinator) SetMetricWriter(metrics MetricWriter) {
	c.mu.Lock()
	c.metrics = metrics
	c.mu.Unlock()
}

// SetLanguage records the platform UI language. Clients pick it up from the
// configuration envelope on their next connect.
func (c *Coordinator) SetLanguage(language string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo.SetLanguage(language)
	c.logger.Info("language configured", "language", language)
}

// SetRooms replaces the full room collection and broadcasts it.
func (c *Coordinator) SetRooms(rooms []domain.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo.SetRooms(rooms)
	c.broadcast(domain.NewAllRoomsEnvelope(c.repo.ListRooms()))
}

// SetRoom upserts a single room and broadcasts it.
func (c *Coordinator) SetRoom(room domain.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.repo.SetRoom(room); err != nil {
		c.logger.Warn("rejected room upsert", "error", err)
		return
	}
	c.broadcast(domain.NewRoomEnvelope(room))
}

// DeleteRoom removes a room. Clients cannot diff a removal, so the whole
// updated collection is re-broadcast.
func (c *Coordinator) DeleteRoom(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo.DeleteRoom(id)
	c.broadcast(domain.NewAllRoomsEnvelope(c.repo.ListRooms()))
}

// SetFunctions replaces the full function collection and broadcasts it.
func (c *Coordinator) SetFunctions(functions []domain.Function) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo.SetFunctions(functions)
	c.broadcast(domain.NewAllFunctionsEnvelope(c.repo.ListFunctions()))
}

// SetFunction upserts a single function and broadcasts it.
func (c *Coordinator) SetFunction(function domain.Function) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.repo.SetFunction(function); err != nil {
		c.logger.Warn("rejected function upsert", "error", err)
		return
	}
	c.broadcast(domain.NewFunctionEnvelope(function))
}

// DeleteFunction removes a function and re-broadcasts the collection.
func (c *Coordinator) DeleteFunction(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo.DeleteFunction(id)
	c.broadcast(domain.NewAllFunctionsEnvelope(c.repo.ListFunctions()))
}

// SetObjects replaces the full state object collection. Objects with no room
// membership are orphans: they are discarded before storage and before
// broadcast, so clients never see them.
func (c *Coordinator) SetObjects(objects []domain.StateObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mapped := make([]domain.StateObject, 0, len(objects))
	for _, object := range objects {
		if c.repo.IsMappedToRoom(object) {
			mapped = append(mapped, object)
			continue
		}
		c.logger.Debug("discarding state object with no room membership", "object_id", object.ID)
	}

	c.repo.SetObjects(mapped)
	c.broadcast(domain.NewAllStatesEnvelope(c.repo.ListObjects()))
}

// SetObject upserts a single state object.
//
// The orphan rule applies here the same as on bulk load: an unmapped object
// is never stored. If an unmapped update arrives for an object that already
// exists, the object has lost its last room membership, and the update acts
// as a tombstone: the object and its paired value are deleted and the
// removal is broadcast.
func (c *Coordinator) SetObject(object domain.StateObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.repo.IsMappedToRoom(object) {
		if err := c.repo.SetObject(object); err != nil {
			c.logger.Warn("rejected state object upsert", "error", err)
			return
		}
		c.broadcast(domain.NewStateEnvelope(object))
		return
	}

	if c.repo.HasObject(object.ID) {
		c.logger.Info("state object lost room membership, removing", "object_id", object.ID)
		c.deleteObjectLocked(object.ID)
		return
	}

	c.logger.Debug("discarding state object with no room membership", "object_id", object.ID)
}

// DeleteObject removes a state object and cascades to its paired value.
// Both collections are re-broadcast, states first.
func (c *Coordinator) DeleteObject(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteObjectLocked(id)
}

func (c *Coordinator) deleteObjectLocked(id string) {
	c.repo.DeleteObject(id)
	c.repo.DeleteValue(id)
	c.broadcast(domain.NewAllStatesEnvelope(c.repo.ListObjects()))
	c.broadcast(domain.NewAllValuesEnvelope(c.repo.ListValues()))
}

// SetValues replaces the full value collection and broadcasts it.
func (c *Coordinator) SetValues(values []domain.StateValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo.SetValues(values)
	c.broadcast(domain.NewAllValuesEnvelope(c.repo.ListValues()))
}

// SetValue upserts a single runtime value and broadcasts it. Numeric values
// are additionally recorded as telemetry when a metric writer is wired.
func (c *Coordinator) SetValue(value domain.StateValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.repo.SetValue(value); err != nil {
		c.logger.Warn("rejected value upsert", "error", err)
		return
	}
	c.broadcast(domain.NewValueEnvelope(value))

	if c.metrics != nil {
		if numeric, ok := asFloat(value.Value); ok {
			c.metrics.WriteValueMetric(value.ID, numeric)
		}
	}
}

// DeleteValue removes a value and re-broadcasts the collection.
func (c *Coordinator) DeleteValue(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repo.DeleteValue(id)
	c.broadcast(domain.NewAllValuesEnvelope(c.repo.ListValues()))
}

// OnConnect sends the connect snapshot to one client: configuration first,
// then the four collections. The order is fixed because the client UI needs
// rooms and functions before it can place states and values.
func (c *Coordinator) OnConnect(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := []domain.Envelope{
		domain.NewConfigurationEnvelope(c.repo.Language()),
		domain.NewAllRoomsEnvelope(c.repo.ListRooms()),
		domain.NewAllFunctionsEnvelope(c.repo.ListFunctions()),
		domain.NewAllStatesEnvelope(c.repo.ListObjects()),
		domain.NewAllValuesEnvelope(c.repo.ListValues()),
	}
	for _, envelope := range snapshot {
		c.sendTo(clientID, envelope)
	}

	c.logger.Info("client snapshot sent", "client_id", clientID)
}

// OnDisconnect is transport bookkeeping only; the repository is untouched.
func (c *Coordinator) OnDisconnect(clientID string) {
	c.logger.Info("client disconnected", "client_id", clientID)
}

// OnMessageFromClient handles one inbound frame. Malformed or unknown
// messages are logged and dropped; a bad frame from one client must never
// disturb the server or other clients.
func (c *Coordinator) OnMessageFromClient(clientID string, data []byte) {
	message, err := domain.DecodeClientMessage(data)
	if err != nil {
		c.logger.Warn("dropping malformed client message", "client_id", clientID, "error", err)
		return
	}

	switch message.Type {
	case domain.MessageTypeSetValues:
		c.handleSetValues(clientID, message)
	default:
		c.logger.Warn("dropping client message of unknown type", "client_id", clientID, "type", string(message.Type))
	}
}

// handleSetValues forwards each id/value pair to the platform independently.
// No transactional grouping: a failed pair does not roll back or stop the
// others, and the authoritative result arrives later as an ordinary value
// broadcast once the platform confirms the change.
func (c *Coordinator) handleSetValues(clientID string, message domain.ClientMessage) {
	updates, err := message.SetValues()
	if err != nil {
		c.logger.Warn("dropping malformed setValues payload", "client_id", clientID, "error", err)
		return
	}

	c.mu.Lock()
	writer := c.writer
	c.mu.Unlock()

	if writer == nil {
		c.logger.Warn("no state writer wired, dropping setValues", "client_id", clientID)
		return
	}

	for _, update := range updates {
		if err := writer.SetState(clientID, update.ID, update.Value); err != nil {
			c.logger.Warn("platform write failed", "client_id", clientID, "object_id", update.ID, "error", err)
		}
	}
}

// broadcast encodes an envelope and sends it to all clients. Encoding only
// fails on unmarshalable payloads, which the domain types cannot produce,
// but a failure is still logged rather than panicking.
func (c *Coordinator) broadcast(envelope domain.Envelope) {
	payload, err := envelope.Encode()
	if err != nil {
		c.logger.Error("failed to encode envelope", "type", string(envelope.Type), "error", err)
		return
	}
	c.transport.MessageToAllClients(payload)
}

func (c *Coordinator) sendTo(clientID string, envelope domain.Envelope) {
	payload, err := envelope.Encode()
	if err != nil {
		c.logger.Error("failed to encode envelope", "type", string(envelope.Type), "error", err)
		return
	}
	c.transport.MessageToClient(clientID, payload)
}

// asFloat extracts a telemetry sample from a runtime value. JSON decoding
// yields float64 for numbers; booleans map to 0/1 so switch states chart
// cleanly. Everything else is not chartable.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
