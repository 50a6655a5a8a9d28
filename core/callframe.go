package core

// Actor identifies the function or method currently executing in a frame.
type Actor struct {
	Package   NodeId
	Blueprint string
	Function  string // set for a function actor
	Method    string // set for a method actor

	Receiver    *NodeId   // set for a method actor
	Module      ModuleId  // which module of Receiver was targeted
	OuterObject *NodeId   // the outer object's id, when Receiver is an inner object
}

func (a Actor) IsMethod() bool { return a.Receiver != nil }

// heapNode is a node currently owned by a frame's heap: created here, not
// yet globalized or stored in a substate.
type heapNode struct {
	modules map[ModuleId]map[string]SubstateValue // keyed by SubstateKey.encode()
}

func newHeapNode() *heapNode {
	return &heapNode{modules: make(map[ModuleId]map[string]SubstateValue)}
}

// Frame is one call-frame stack entry.
type Frame struct {
	actor       Actor
	visibleRefs map[NodeId]bool
	ownedHeap   map[NodeId]*heapNode
	openLocks   map[LockHandle]bool
	depth       int
}

func newFrame(actor Actor, depth int) *Frame {
	return &Frame{
		actor:       actor,
		visibleRefs: make(map[NodeId]bool),
		ownedHeap:   make(map[NodeId]*heapNode),
		openLocks:   make(map[LockHandle]bool),
		depth:       depth,
	}
}

func (f *Frame) canSee(id NodeId) bool {
	if f.visibleRefs[id] {
		return true
	}
	_, owned := f.ownedHeap[id]
	return owned
}
