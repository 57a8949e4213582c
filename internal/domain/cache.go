package domain

// Entity is implemented by anything storable in a Cache.
type Entity interface {
	Key() string
}

// Cache is a generic keyed container holding at most one entity per key.
// Set overwrites silently (last-write-wins); iteration order is unspecified.
//
// Cache is not safe for concurrent use on its own. Synchronization is the
// Repository's responsibility.
type Cache[T Entity] struct {
	entries map[string]T
}

// NewCache creates an empty cache.
func NewCache[T Entity]() *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]T),
	}
}

// Get returns the entity stored under id.
func (c *Cache[T]) Get(id string) (T, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Set stores the entity under its own key, overwriting any existing entry.
// Entities with an empty key are rejected.
func (c *Cache[T]) Set(entity T) error {
	if entity.Key() == "" {
		return ErrEmptyKey
	}
	c.entries[entity.Key()] = entity
	return nil
}

// Has reports whether an entity is stored under id.
func (c *Cache[T]) Has(id string) bool {
	_, ok := c.entries[id]
	return ok
}

// Delete removes the entity stored under id. Deleting an absent id is a no-op.
func (c *Cache[T]) Delete(id string) {
	delete(c.entries, id)
}

// DeleteByFilter removes every entity matching the predicate and returns
// the number of removed entries.
func (c *Cache[T]) DeleteByFilter(match func(T) bool) int {
	removed := 0
	for id, e := range c.entries {
		if match(e) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Values returns all stored entities. Order is unspecified.
func (c *Cache[T]) Values() []T {
	values := make([]T, 0, len(c.entries))
	for _, e := range c.entries {
		values = append(values, e)
	}
	return values
}

// Find returns the first entity matching the predicate, by unspecified
// iteration order. Callers should only use predicates with unique matches.
func (c *Cache[T]) Find(match func(T) bool) (T, bool) {
	for _, e := range c.entries {
		if match(e) {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of stored entities.
func (c *Cache[T]) Len() int {
	return len(c.entries)
}

// Clear removes all entities.
func (c *Cache[T]) Clear() {
	c.entries = make(map[string]T)
}
