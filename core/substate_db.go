package core

// SubstateDatabase is the read-only persistent key-value store the engine
// consumes. It is an external collaborator: the core never writes
// to it directly, only through Track's diff at commit time, handled by the
// embedder.
//
// Iteration order contract: Get/Scan over Map keys is "database
// order" (implementation defined, but stable within one open database);
// ScanSorted must return values ordered ascending by (SortPrefix,
// SortMapKey).
type SubstateDatabase interface {
	Get(addr SubstateAddr) (SubstateValue, bool, error)
	// Scan returns up to limit (key, value) pairs for Map-keyed substates
	// under (node, module), in database order.
	Scan(node NodeId, module ModuleId, limit int) ([]KeyedSubstateValue, error)
	// ScanSorted returns up to limit (key, value) pairs for Sorted-keyed
	// substates under (node, module), ascending by (SortPrefix, SortMapKey).
	ScanSorted(node NodeId, module ModuleId, limit int) ([]KeyedSubstateValue, error)
}

// KeyedSubstateValue pairs a SubstateKey with its value for scan results,
// since a bare value carries no key to merge against Track's overlay.
type KeyedSubstateValue struct {
	Key   SubstateKey
	Value SubstateValue
}

// DatabaseUpdate is one entry of the database-key-indexed diff view Track
// materializes at commit time.
type DatabaseUpdate struct {
	Addr    SubstateAddr
	Deleted bool
	Value   SubstateValue
}

// SemanticUpdate groups updates by (node, module) for consumers that reason
// in domain terms rather than raw database keys.
type SemanticUpdate struct {
	Node    NodeId
	Module  ModuleId
	Key     SubstateKey
	Deleted bool
	Value   SubstateValue
}

// StateUpdates is the dual diff view Track.Finalize returns.
type StateUpdates struct {
	ByDatabaseKey []DatabaseUpdate
	BySubstate    []SemanticUpdate
}
