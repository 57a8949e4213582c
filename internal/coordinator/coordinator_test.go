package coordinator

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ljouon/visionary-ui-core/internal/domain"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/logging"
)

type targetedMessage struct {
	clientID string
	payload  []byte
}

// fakeTransport records what the coordinator fans out.
type fakeTransport struct {
	mu         sync.Mutex
	targeted   []targetedMessage
	broadcasts [][]byte
}

func (f *fakeTransport) MessageToClient(clientID string, payload []byte) {
	f.mu.Lock()
	f.targeted = append(f.targeted, targetedMessage{clientID, payload})
	f.mu.Unlock()
}

func (f *fakeTransport) MessageToAllClients(payload []byte) {
	f.mu.Lock()
	f.broadcasts = append(f.broadcasts, payload)
	f.mu.Unlock()
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	f.targeted = nil
	f.broadcasts = nil
	f.mu.Unlock()
}

type writeCall struct {
	clientID string
	objectID string
	value    any
}

type fakeWriter struct {
	calls []writeCall
	err   error
}

func (f *fakeWriter) SetState(clientID, objectID string, value any) error {
	f.calls = append(f.calls, writeCall{clientID, objectID, value})
	return f.err
}

type metricCall struct {
	objectID string
	value    float64
}

type fakeMetrics struct {
	calls []metricCall
}

func (f *fakeMetrics) WriteValueMetric(objectID string, value float64) {
	f.calls = append(f.calls, metricCall{objectID, value})
}

func newTestCoordinator() (*Coordinator, *fakeTransport) {
	transport := &fakeTransport{}
	repo := domain.NewRepository()
	return New(repo, transport, logging.Default()), transport
}

func room(id string, members ...string) domain.Room {
	return domain.Room{Group: domain.Group{ID: id, Name: id, Members: members}}
}

func function(id string, members ...string) domain.Function {
	return domain.Function{Group: domain.Group{ID: id, Name: id, Members: members}}
}

func object(id string) domain.StateObject {
	return domain.StateObject{ID: id, Name: id, Enabled: true}
}

// decodeEnvelope unpacks an encoded frame into its type tag and raw payload.
func decodeEnvelope(t *testing.T, payload []byte) (string, json.RawMessage) {
	t.Helper()
	var frame struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("broadcast frame is not valid JSON: %v", err)
	}
	return frame.Type, frame.Data
}

func envelopeIDs(t *testing.T, data json.RawMessage) []string {
	t.Helper()
	var entities []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &entities); err != nil {
		t.Fatalf("payload is not an entity list: %v", err)
	}
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestCoordinator_ConnectSnapshotOrder(t *testing.T) {
	c, transport := newTestCoordinator()
	c.SetLanguage("de")
	c.SetRooms([]domain.Room{room("enum.rooms.kitchen", "obj.1")})
	c.SetFunctions([]domain.Function{function("enum.functions.light", "obj.1")})
	c.SetObjects([]domain.StateObject{object("obj.1")})
	c.SetValues([]domain.StateValue{{ID: "obj.1", Value: true, LastChange: 42}})
	transport.reset()

	c.OnConnect("client-1")

	if len(transport.broadcasts) != 0 {
		t.Errorf("connect snapshot must be targeted, got %d broadcasts", len(transport.broadcasts))
	}
	if len(transport.targeted) != 5 {
		t.Fatalf("snapshot message count = %d, want 5", len(transport.targeted))
	}

	wantOrder := []string{"configuration", "allRooms", "allFunctions", "allStates", "allValues"}
	for i, msg := range transport.targeted {
		if msg.clientID != "client-1" {
			t.Errorf("message %d targeted %q, want client-1", i, msg.clientID)
		}
		msgType, data := decodeEnvelope(t, msg.payload)
		if msgType != wantOrder[i] {
			t.Errorf("message %d type = %q, want %q", i, msgType, wantOrder[i])
		}
		if msgType == "configuration" {
			var cfg struct {
				Language string `json:"language"`
			}
			if err := json.Unmarshal(data, &cfg); err != nil || cfg.Language != "de" {
				t.Errorf("configuration payload = %s", data)
			}
		}
	}
}

func TestCoordinator_BulkObjectsPrunesOrphans(t *testing.T) {
	c, transport := newTestCoordinator()
	c.SetRooms([]domain.Room{room("enum.rooms.kitchen", "obj.1", "obj.2")})
	transport.reset()

	c.SetObjects([]domain.StateObject{object("obj.1"), object("obj.2"), object("obj.orphan")})

	if len(transport.broadcasts) != 1 {
		t.Fatalf("broadcast count = %d, want 1", len(transport.broadcasts))
	}
	msgType, data := decodeEnvelope(t, transport.broadcasts[0])
	if msgType != "allStates" {
		t.Fatalf("type = %q, want allStates", msgType)
	}
	ids := envelopeIDs(t, data)
	if len(ids) != 2 {
		t.Errorf("broadcast contains %v, want the 2 mapped objects", ids)
	}
	for _, id := range ids {
		if id == "obj.orphan" {
			t.Error("orphaned object leaked into the broadcast")
		}
	}
}

func TestCoordinator_SetObjectUpsert(t *testing.T) {
	c, transport := newTestCoordinator()
	c.SetRooms([]domain.Room{room("enum.rooms.kitchen", "obj.1")})
	transport.reset()

	c.SetObject(object("obj.1"))

	if len(transport.broadcasts) != 1 {
		t.Fatalf("broadcast count = %d, want 1", len(transport.broadcasts))
	}
	if msgType, _ := decodeEnvelope(t, transport.broadcasts[0]); msgType != "state" {
		t.Errorf("type = %q, want state", msgType)
	}
}

func TestCoordinator_SetObjectTombstone(t *testing.T) {
	c, transport := newTestCoordinator()
	c.SetRooms([]domain.Room{room("enum.rooms.kitchen", "obj.1")})
	c.SetObjects([]domain.StateObject{object("obj.1")})
	c.SetValues([]domain.StateValue{{ID: "obj.1", Value: 21.5}})

	// The object loses its last room membership.
	c.SetRooms([]domain.Room{room("enum.rooms.kitchen")})
	transport.reset()

	c.SetObject(object("obj.1"))

	if len(transport.broadcasts) != 2 {
		t.Fatalf("broadcast count = %d, want allStates + allValues", len(transport.broadcasts))
	}
	statesType, statesData := decodeEnvelope(t, transport.broadcasts[0])
	valuesType, valuesData := decodeEnvelope(t, transport.broadcasts[1])
	if statesType != "allStates" || valuesType != "allValues" {
		t.Fatalf("broadcast types = %q, %q; want allStates then allValues", statesType, valuesType)
	}
	if len(envelopeIDs(t, statesData)) != 0 || len(envelopeIDs(t, valuesData)) != 0 {
		t.Error("tombstoned object or its value still present in broadcasts")
	}
}

func TestCoordinator_SetObjectNewOrphanDropped(t *testing.T) {
	c, transport := newTestCoordinator()
	transport.reset()

	c.SetObject(object("obj.unmapped"))

	if len(transport.broadcasts) != 0 {
		t.Errorf("broadcast count = %d, want 0 for a dropped orphan", len(transport.broadcasts))
	}
}

func TestCoordinator_DeleteObjectCascades(t *testing.T) {
	c, transport := newTestCoordinator()
	c.SetRooms([]domain.Room{room("enum.rooms.kitchen", "obj.1", "obj.2")})
	c.SetObjects([]domain.StateObject{object("obj.1"), object("obj.2")})
	c.SetValues([]domain.StateValue{{ID: "obj.1", Value: 1.0}, {ID: "obj.2", Value: 2.0}})
	transport.reset()

	c.DeleteObject("obj.1")

	if len(transport.broadcasts) != 2 {
		t.Fatalf("broadcast count = %d, want 2", len(transport.broadcasts))
	}
	statesType, statesData := decodeEnvelope(t, transport.broadcasts[0])
	valuesType, valuesData := decodeEnvelope(t, transport.broadcasts[1])
	if statesType != "allStates" || valuesType != "allValues" {
		t.Fatalf("broadcast types = %q, %q; want allStates then allValues", statesType, valuesType)
	}
	if ids := envelopeIDs(t, statesData); len(ids) != 1 || ids[0] != "obj.2" {
		t.Errorf("allStates = %v, want only obj.2", ids)
	}
	if ids := envelopeIDs(t, valuesData); len(ids) != 1 || ids[0] != "obj.2" {
		t.Errorf("allValues = %v, want only obj.2", ids)
	}
}

func TestCoordinator_DeleteRoomRebroadcastsCollection(t *testing.T) {
	c, transport := newTestCoordinator()
	c.SetRooms([]domain.Room{room("enum.rooms.kitchen"), room("enum.rooms.bath")})
	transport.reset()

	c.DeleteRoom("enum.rooms.bath")

	if len(transport.broadcasts) != 1 {
		t.Fatalf("broadcast count = %d, want 1", len(transport.broadcasts))
	}
	msgType, data := decodeEnvelope(t, transport.broadcasts[0])
	if msgType != "allRooms" {
		t.Fatalf("type = %q, want allRooms", msgType)
	}
	if ids := envelopeIDs(t, data); len(ids) != 1 || ids[0] != "enum.rooms.kitchen" {
		t.Errorf("allRooms = %v, want only the kitchen", ids)
	}
}

func TestCoordinator_InboundSetValues(t *testing.T) {
	c, _ := newTestCoordinator()
	writer := &fakeWriter{}
	c.SetStateWriter(writer)

	c.OnMessageFromClient("client-1", []byte(`{"type":"setValues","data":[{"id":"x","value":true}]}`))

	if len(writer.calls) != 1 {
		t.Fatalf("platform write count = %d, want 1", len(writer.calls))
	}
	call := writer.calls[0]
	if call.clientID != "client-1" || call.objectID != "x" || call.value != true {
		t.Errorf("SetState called with %+v", call)
	}
}

func TestCoordinator_InboundSetValuesIndependentPairs(t *testing.T) {
	c, _ := newTestCoordinator()
	writer := &fakeWriter{err: errors.New("platform unreachable")}
	c.SetStateWriter(writer)

	c.OnMessageFromClient("client-1", []byte(`{"type":"setValues","data":[{"id":"x","value":1},{"id":"y","value":2}]}`))

	// A failing pair must not stop the remaining pairs.
	if len(writer.calls) != 2 {
		t.Errorf("platform write count = %d, want 2 despite errors", len(writer.calls))
	}
}

func TestCoordinator_InboundMalformed(t *testing.T) {
	c, _ := newTestCoordinator()
	writer := &fakeWriter{}
	c.SetStateWriter(writer)

	c.OnMessageFromClient("client-1", []byte(`{not json at all`))
	c.OnMessageFromClient("client-1", []byte(`{"type":"setValues","data":"not a list"}`))
	c.OnMessageFromClient("client-1", []byte(`{"type":"teleport","data":[]}`))

	if len(writer.calls) != 0 {
		t.Errorf("platform write count = %d, want 0 for bad messages", len(writer.calls))
	}

	// The coordinator keeps working afterwards.
	c.OnMessageFromClient("client-2", []byte(`{"type":"setValues","data":[{"id":"x","value":false}]}`))
	if len(writer.calls) != 1 {
		t.Errorf("platform write count = %d after recovery, want 1", len(writer.calls))
	}
}

func TestCoordinator_InboundWithoutWriter(t *testing.T) {
	c, _ := newTestCoordinator()

	// Must not panic with no state writer wired.
	c.OnMessageFromClient("client-1", []byte(`{"type":"setValues","data":[{"id":"x","value":true}]}`))
}

func TestCoordinator_ValueTelemetry(t *testing.T) {
	c, transport := newTestCoordinator()
	metrics := &fakeMetrics{}
	c.SetMetricWriter(metrics)
	c.SetRooms([]domain.Room{room("enum.rooms.kitchen", "obj.1")})
	c.SetObjects([]domain.StateObject{object("obj.1")})
	transport.reset()

	c.SetValue(domain.StateValue{ID: "obj.1", Value: 21.5, LastChange: 42})
	c.SetValue(domain.StateValue{ID: "obj.1", Value: true, LastChange: 43})
	c.SetValue(domain.StateValue{ID: "obj.1", Value: "open", LastChange: 44})

	if len(transport.broadcasts) != 3 {
		t.Fatalf("broadcast count = %d, want 3 value envelopes", len(transport.broadcasts))
	}
	if msgType, _ := decodeEnvelope(t, transport.broadcasts[0]); msgType != "value" {
		t.Errorf("type = %q, want value", msgType)
	}

	// Numbers chart as-is, booleans as 0/1, strings not at all.
	if len(metrics.calls) != 2 {
		t.Fatalf("metric count = %d, want 2", len(metrics.calls))
	}
	if metrics.calls[0] != (metricCall{"obj.1", 21.5}) {
		t.Errorf("metric[0] = %+v", metrics.calls[0])
	}
	if metrics.calls[1] != (metricCall{"obj.1", 1}) {
		t.Errorf("metric[1] = %+v", metrics.calls[1])
	}
}

func TestCoordinator_DeleteValueRebroadcastsCollection(t *testing.T) {
	c, transport := newTestCoordinator()
	c.SetValues([]domain.StateValue{{ID: "obj.1", Value: 1.0}, {ID: "obj.2", Value: 2.0}})
	transport.reset()

	c.DeleteValue("obj.1")

	if len(transport.broadcasts) != 1 {
		t.Fatalf("broadcast count = %d, want 1", len(transport.broadcasts))
	}
	msgType, data := decodeEnvelope(t, transport.broadcasts[0])
	if msgType != "allValues" {
		t.Fatalf("type = %q, want allValues", msgType)
	}
	if ids := envelopeIDs(t, data); len(ids) != 1 || ids[0] != "obj.2" {
		t.Errorf("allValues = %v, want only obj.2", ids)
	}
}
