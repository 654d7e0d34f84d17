package model

import "strings"

// ResourceRef identifies a bookable unit, typically an environment instance.
// A resource can serve at most one active reservation for any point in time;
// that exclusivity is what the booking conflict detector enforces.
//
// Fields:
//  Type – resource category (e.g. "ENVIRONMENT_INSTANCE").
//  ID   – identifier within the owning system.
type ResourceRef struct {
	Type string `json:"type"` // resource category
	ID   uint64 `json:"id"`   // identifier
}

// Equal reports whether two resource references point at the same resource.
func (r ResourceRef) Equal(other ResourceRef) bool {
	return r.ID == other.ID && strings.EqualFold(r.Type, other.Type)
}

// Entity types accepted as refresh targets.  Environments, instances,
// applications, interfaces, components, infrastructure elements and datasets
// all map onto bookable resources differently; the mapping itself is
// resolved through the resource_bindings table, never by per-type branching
// inside the detectors.
const (
	EntityEnvironment = "ENVIRONMENT"
	EntityInstance    = "INSTANCE"
	EntityApplication = "APPLICATION"
	EntityInterface   = "INTERFACE"
	EntityComponent   = "COMPONENT"
	EntityInfra       = "INFRA"
	EntityDataset     = "DATASET"
)

// EntityRef is a weak, tagged reference to the target of a refresh
// operation.  Existence of the entity is validated by the surrounding CRUD
// application, not by this core.
type EntityRef struct {
	Type string `json:"type"` // one of the Entity* constants
	ID   uint64 `json:"id"`   // identifier within the owning system
}

// Validate checks that the reference names a known entity type and a
// non-zero identifier.
func (e EntityRef) Validate() error {
	switch strings.ToUpper(e.Type) {
	case EntityEnvironment, EntityInstance, EntityApplication,
		EntityInterface, EntityComponent, EntityInfra, EntityDataset:
	default:
		return NewValidationError("unknown entity type: " + e.Type)
	}
	if e.ID == 0 {
		return NewValidationError("entity id is required")
	}
	return nil
}
