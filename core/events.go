package core

// EventTypeIdentifier names the emitter of one recorded event: either a
// global node (method-actor emission) or a package+blueprint pair
// (function-actor emission), mirroring the reference engine's
// Emitter::Method/Emitter::Function split.
type EventTypeIdentifier struct {
	Emitter   NodeId // the global receiver, when the actor was a method
	Package   NodeId
	Blueprint string
	Name      string
}

// Event is one committed emission, ordered by EmitEvent call order.
type Event struct {
	Identifier EventTypeIdentifier
	Data       []Value
}

// EventLog accumulates events for the lifetime of one transaction. Events
// emitted on a heap node before it is globalized are re-pointed to the
// node's eventual global address by Repoint, since the reference engine
// allows emitting events from a not-yet-globalized self and re-points
// them to the new global address once it exists.
type EventLog struct {
	events []Event
}

func (l *EventLog) Append(e Event) { l.events = append(l.events, e) }

func (l *EventLog) All() []Event { return l.events }

// Repoint rewrites every recorded event whose Emitter is from to to.
func (l *EventLog) Repoint(from, to NodeId) {
	for i := range l.events {
		if l.events[i].Identifier.Emitter == from {
			l.events[i].Identifier.Emitter = to
		}
	}
}
