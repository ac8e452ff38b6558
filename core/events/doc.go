// Package events defines the scheduling related events emitted on the event
// bus.
//
// Available event types:
//   - PlacementEvent: a placement attempt resolved
//   - ConflictEvent: a proposed placement hit an existing task
//   - ShuntEvent: a directional shunt resolved
//   - AvailabilityEvent: an availability record mutated or was rejected
package events
