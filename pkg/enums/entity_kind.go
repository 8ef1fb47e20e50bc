package enums

import "fmt"

// EntityKind identifies which local table and remote resource an
// entity or pending action targets.
type EntityKind string

const (
	EntityProperty EntityKind = "property"
	EntityEvent    EntityKind = "event"
	EntityLead     EntityKind = "lead"
)

var validEntityKinds = []EntityKind{
	EntityProperty,
	EntityEvent,
	EntityLead,
}

// IsValid reports whether the value is a known entity kind.
func (k EntityKind) IsValid() bool {
	for _, candidate := range validEntityKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEntityKind converts raw input into EntityKind.
func ParseEntityKind(value string) (EntityKind, error) {
	for _, candidate := range validEntityKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity kind %q", value)
}
