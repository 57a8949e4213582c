package domain

import "sync"

// defaultLanguage is used until the platform reports its configured language.
const defaultLanguage = "en"

// Repository is the authoritative in-memory cache of the current known state
// of the world: rooms, functions, state objects, and state values, plus the
// display language. It is the single source of truth — nothing else holds
// entity state, and it is rebuilt from the platform on restart.
//
// Plural setters atomically replace a whole collection (bulk snapshot load);
// singular setters and deleters apply incremental changes. Bulk loads must
// never go through the singular path, which would leak stale entries.
//
// All methods are safe for concurrent use; list results are fresh slices.
type Repository struct {
	mu        sync.RWMutex
	language  string
	rooms     *Cache[Room]
	functions *Cache[Function]
	objects   *Cache[StateObject]
	values    *Cache[StateValue]
}

// NewRepository creates an empty repository with the default language.
func NewRepository() *Repository {
	return &Repository{
		language:  defaultLanguage,
		rooms:     NewCache[Room](),
		functions: NewCache[Function](),
		objects:   NewCache[StateObject](),
		values:    NewCache[StateValue](),
	}
}

// Language returns the current display language code.
func (r *Repository) Language() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.language
}

// SetLanguage replaces the current display language code.
func (r *Repository) SetLanguage(language string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.language = language
}

// --- rooms ---

// GetRoom returns the room with the given id.
func (r *Repository) GetRoom(id string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms.Get(id)
}

// ListRooms returns all known rooms. Order is unspecified.
func (r *Repository) ListRooms() []Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms.Values()
}

// SetRooms atomically replaces the whole room collection.
func (r *Repository) SetRooms(rooms []Room) {
	replaceAll(r, r.rooms, rooms)
}

// SetRoom upserts a single room.
func (r *Repository) SetRoom(room Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms.Set(room)
}

// DeleteRoom removes a single room. Absent ids are a no-op.
func (r *Repository) DeleteRoom(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms.Delete(id)
}

// ParentRoom returns the hierarchical parent of the room with the given id,
// determined by the longest dot-prefix rule over all known room ids.
func (r *Repository) ParentRoom(id string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms.Get(ParentID(id, keys(r.rooms)))
}

// --- functions ---

// GetFunction returns the function with the given id.
func (r *Repository) GetFunction(id string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.functions.Get(id)
}

// ListFunctions returns all known functions. Order is unspecified.
func (r *Repository) ListFunctions() []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.functions.Values()
}

// SetFunctions atomically replaces the whole function collection.
func (r *Repository) SetFunctions(functions []Function) {
	replaceAll(r, r.functions, functions)
}

// SetFunction upserts a single function.
func (r *Repository) SetFunction(function Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.functions.Set(function)
}

// DeleteFunction removes a single function. Absent ids are a no-op.
func (r *Repository) DeleteFunction(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions.Delete(id)
}

// ParentFunction returns the hierarchical parent of the function with the
// given id, determined by the longest dot-prefix rule.
func (r *Repository) ParentFunction(id string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.functions.Get(ParentID(id, keys(r.functions)))
}

// --- state objects ---

// GetObject returns the state object with the given id.
func (r *Repository) GetObject(id string) (StateObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects.Get(id)
}

// ListObjects returns all known state objects. Order is unspecified.
func (r *Repository) ListObjects() []StateObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects.Values()
}

// SetObjects atomically replaces the whole state-object collection.
func (r *Repository) SetObjects(objects []StateObject) {
	replaceAll(r, r.objects, objects)
}

// SetObject upserts a single state object.
func (r *Repository) SetObject(object StateObject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.objects.Set(object)
}

// DeleteObject removes a single state object. Absent ids are a no-op.
func (r *Repository) DeleteObject(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects.Delete(id)
}

// HasObject reports whether a state object with the given id is known.
func (r *Repository) HasObject(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects.Has(id)
}

// --- state values ---

// GetValue returns the state value with the given id.
func (r *Repository) GetValue(id string) (StateValue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values.Get(id)
}

// ListValues returns all known state values. Order is unspecified.
func (r *Repository) ListValues() []StateValue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values.Values()
}

// SetValues atomically replaces the whole state-value collection.
func (r *Repository) SetValues(values []StateValue) {
	replaceAll(r, r.values, values)
}

// SetValue upserts a single state value.
func (r *Repository) SetValue(value StateValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values.Set(value)
}

// DeleteValue removes a single state value. Absent ids are a no-op.
func (r *Repository) DeleteValue(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values.Delete(id)
}

// --- membership ---

// IsMappedToRoom reports whether any room lists the object as a member.
// Objects reachable from no room are invisible to clients.
//
// Linear scan over rooms: room counts are small (tens, not thousands),
// so no index is kept.
func (r *Repository) IsMappedToRoom(object StateObject) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, room := range r.rooms.Values() {
		if room.HasMember(object.ID) {
			return true
		}
	}
	return false
}

// replaceAll swaps the full contents of a cache under the repository lock.
// Entities without an id are skipped; a bulk snapshot must not fail halfway.
func replaceAll[T Entity](r *Repository, cache *Cache[T], entities []T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cache.Clear()
	for _, e := range entities {
		if e.Key() == "" {
			continue
		}
		cache.entries[e.Key()] = e
	}
}

// keys returns all keys of a cache. Callers must hold the repository lock.
func keys[T Entity](cache *Cache[T]) []string {
	ids := make([]string, 0, len(cache.entries))
	for id := range cache.entries {
		ids = append(ids, id)
	}
	return ids
}
