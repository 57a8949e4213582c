package domain

import (
	"slices"
	"strings"
)

// Group is a named collection of state object ids representing a physical
// or logical grouping. Rooms and functions are the two group variants.
//
// Group ids are hierarchical dot-paths (e.g. "enum.rooms.livingroom");
// a group's parent is the longest other id that is a dot-prefix of it.
type Group struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Presentation
	Color      *string `json:"color,omitempty"`
	Icon       *string `json:"icon,omitempty"`
	CustomIcon *string `json:"customIcon,omitempty"`
	Rank       *int    `json:"rank,omitempty"`

	// Members holds the ids of state objects belonging to this group.
	Members []string `json:"members,omitempty"`

	// Children holds the ids of direct sub-groups.
	Children []string `json:"children,omitempty"`
}

// Key implements Entity.
func (g Group) Key() string {
	return g.ID
}

// HasMember reports whether the given state object id belongs to this group.
func (g Group) HasMember(objectID string) bool {
	return slices.Contains(g.Members, objectID)
}

// Room is a physical grouping of state objects (e.g. the living room).
type Room struct {
	Group
}

// Function is a logical grouping of state objects (e.g. all lights).
type Function struct {
	Group
}

// StateObject is a controllable or observable point exposed by the platform
// (a device channel). Objects must be explicitly enabled to be exposed to
// clients, and are only visible while at least one room lists them as a member.
type StateObject struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// DisplayName is an optional user override for Name.
	DisplayName *string `json:"displayName,omitempty"`

	Description string `json:"description,omitempty"`

	// Role is a semantic hint such as "switch" or "level.dimmer".
	Role string `json:"role,omitempty"`

	// Datatype is the platform value type: "boolean", "number", "string", ...
	Datatype string `json:"datatype,omitempty"`

	Writeable    bool   `json:"isWriteable"`
	DefaultValue any    `json:"defaultValue,omitempty"`
	Unit         string `json:"unit,omitempty"`

	// States maps discrete values to display labels, for enumerated domains.
	States map[string]string `json:"states,omitempty"`

	// Range bounds for numeric objects.
	MinValue *float64 `json:"minValue,omitempty"`
	MaxValue *float64 `json:"maxValue,omitempty"`
	Step     *float64 `json:"step,omitempty"`

	Rank       *int    `json:"rank,omitempty"`
	Enabled    bool    `json:"enabled"`
	CustomIcon *string `json:"customIcon,omitempty"`
}

// Key implements Entity.
func (o StateObject) Key() string {
	return o.ID
}

// Label returns the display name override if set, the platform name otherwise.
func (o StateObject) Label() string {
	if o.DisplayName != nil && *o.DisplayName != "" {
		return *o.DisplayName
	}
	return o.Name
}

// StateValue is the current runtime value paired 1:1 with a StateObject.
// Its lifecycle is independent of the object: an object can exist with no
// known value yet.
type StateValue struct {
	ID string `json:"id"`

	// Value is typed per the paired StateObject's datatype; nil means unknown.
	Value any `json:"value"`

	// LastChange is the platform-reported change time in unix milliseconds.
	LastChange int64 `json:"lastChange"`
}

// Key implements Entity.
func (v StateValue) Key() string {
	return v.ID
}

// ParentID returns the longest candidate id that is a dot-prefix of id,
// or "" if no candidate is a prefix. This is the group hierarchy rule:
// "enum.rooms.ground.kitchen" is a child of "enum.rooms.ground".
func ParentID(id string, candidates []string) string {
	parent := ""
	for _, candidate := range candidates {
		if candidate == id {
			continue
		}
		if strings.HasPrefix(id, candidate+".") && len(candidate) > len(parent) {
			parent = candidate
		}
	}
	return parent
}
