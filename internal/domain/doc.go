// Package domain holds the Visionary UI entity model, the wire envelope
// types, and the in-memory repository that is the single source of truth
// for the current known state of the home-automation platform.
//
// Entities (Room, Function, StateObject, StateValue) are immutable value
// snapshots: updates replace an entity wholesale, never mutate in place.
// Rooms and functions are "enum groups" — named collections of state object
// ids; an object is visible to clients only while some room lists it as a
// member.
//
// The wire protocol is JSON text frames, one type-tagged Envelope per frame.
// Full-collection envelopes (allRooms, allStates, ...) are snapshots; the
// single-entity variants (room, state, ...) are deltas.
package domain
