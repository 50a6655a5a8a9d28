package core

// System is the typed object-API layer over the Kernel: it owns schema
// validation, entity-type selection, globalization, and the KV-store/
// index/sorted-index and event-emission operations.
type System struct {
	kernel *Kernel
	schemas *SchemaRegistry

	objectEntityType map[string]EntityType // (package,blueprint) -> heap-node entity tag
	globalEntityType map[string]EntityType // blueprint -> global entity tag

	events *EventLog
}

func NewSystem(k *Kernel) *System {
	return &System{
		kernel:           k,
		schemas:          NewSchemaRegistry(),
		objectEntityType: make(map[string]EntityType),
		globalEntityType: make(map[string]EntityType),
		events:           &EventLog{},
	}
}

func blueprintKey(pkg NodeId, blueprint string) string { return pkg.Hex() + "/" + blueprint }

// RegisterBlueprint installs a blueprint's schema and the entity types its
// instances take on as a heap object and, if globalized, as a global node
// chosen by (package, blueprint) pair.
func (s *System) RegisterBlueprint(pkg NodeId, blueprint string, schema *BlueprintSchema, objectTag, globalTag EntityType) {
	s.schemas.Register(pkg, schema)
	s.objectEntityType[blueprintKey(pkg, blueprint)] = objectTag
	s.globalEntityType[blueprint] = globalTag
}

func (s *System) objectEntityTypeFor(pkg NodeId, blueprint string) EntityType {
	if t, ok := s.objectEntityType[blueprintKey(pkg, blueprint)]; ok {
		return t
	}
	return EntityInternalGenericComponent
}

func (s *System) globalEntityTypeFor(blueprint string) EntityType {
	if t, ok := s.globalEntityType[blueprint]; ok {
		return t
	}
	return EntityGlobalGenericComponent
}

func typeInfoModule(ti TypeInfo) map[string]SubstateValue {
	return map[string]SubstateValue{string(TupleKey(0).encode()): {TypeInfo: &ti}}
}

// NewObject validates fields against the blueprint's declared schema,
// allocates a NodeId of the blueprint's heap entity type, and places it in
// the current frame's heap.
func (s *System) NewObject(pkg NodeId, blueprint string, fields []Value) (NodeId, error) {
	schema, ok := s.schemas.Lookup(pkg, blueprint)
	if !ok {
		return NodeId{}, systemErr(KindSchemaValidationError, "no schema registered for blueprint %q", blueprint)
	}
	if err := schema.Validate(fields); err != nil {
		return NodeId{}, err
	}

	objMod := make(map[string]SubstateValue, len(fields))
	for i, f := range fields {
		enc, err := EncodeValue(f)
		if err != nil {
			return NodeId{}, systemErr(KindInvalidSubstateWrite, "encode field %d: %v", i, err)
		}
		objMod[string(TupleKey(uint8(i)).encode())] = SubstateValue{Data: enc}
	}

	id := s.kernel.AllocateNodeId(s.objectEntityTypeFor(pkg, blueprint))
	s.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoObject, Blueprint: blueprint, Global: false}),
		ModuleObject:   objMod,
	})
	return id, nil
}

// GlobalizeModules names the four source nodes a globalize call consumes
type GlobalizeModules struct {
	Self        NodeId
	Metadata    NodeId
	Royalty     NodeId
	AccessRules NodeId
}

// Globalize drops the four source nodes, allocates a fresh global address
// of the right entity type, and re-inserts their substate modules under
// canonical module ids.
func (s *System) Globalize(mods GlobalizeModules) (NodeId, error) {
	return s.globalizeInto(mods, nil)
}

// GlobalizeWithAddress mirrors Globalize but stamps a pre-allocated address
// instead of drawing a new one.
func (s *System) GlobalizeWithAddress(mods GlobalizeModules, address NodeId) (NodeId, error) {
	return s.globalizeInto(mods, &address)
}

func (s *System) globalizeInto(mods GlobalizeModules, address *NodeId) (NodeId, error) {
	selfMods, err := s.kernel.DropNode(mods.Self)
	if err != nil {
		return NodeId{}, err
	}
	metaMods, err := s.kernel.DropNode(mods.Metadata)
	if err != nil {
		return NodeId{}, err
	}
	royaltyMods, err := s.kernel.DropNode(mods.Royalty)
	if err != nil {
		return NodeId{}, err
	}
	accessMods, err := s.kernel.DropNode(mods.AccessRules)
	if err != nil {
		return NodeId{}, err
	}

	selfTI := selfMods[ModuleTypeInfo][string(TupleKey(0).encode())].TypeInfo
	if selfTI == nil || selfTI.Kind != TypeInfoObject {
		return NodeId{}, systemErr(KindCannotGlobalize, "self node carries no Object TypeInfo")
	}

	var globalID NodeId
	if address != nil {
		globalID = *address
	} else {
		globalID = s.kernel.AllocateNodeId(s.globalEntityTypeFor(selfTI.Blueprint))
	}

	s.kernel.CreateNode(globalID, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo:    typeInfoModule(TypeInfo{Kind: TypeInfoObject, Blueprint: selfTI.Blueprint, Global: true}),
		ModuleObject:      selfMods[ModuleObject],
		ModuleMetadata:    metaMods[ModuleObject],
		ModuleRoyalty:     royaltyMods[ModuleObject],
		ModuleAccessRules: accessMods[ModuleObject],
	})
	s.events.Repoint(mods.Self, globalID)
	return globalID, nil
}

// NewKeyValueStore opens an empty heap node typed as a key-value store
// carrying schemaName, the schema its entries must conform to.
func (s *System) NewKeyValueStore(schemaName string) NodeId {
	id := s.kernel.AllocateNodeId(EntityInternalKeyValueStore)
	s.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoKeyValueStore, KVSchema: schemaName}),
	})
	return id
}

func (s *System) LockKVEntry(node NodeId, key []byte, flags LockFlags) (LockHandle, error) {
	return s.kernel.LockSubstate(node, ModuleObject, MapKey(key), flags, nil)
}

func (s *System) ReadKVEntry(h LockHandle) (SubstateValue, error)  { return s.kernel.ReadSubstate(h) }
func (s *System) WriteKVEntry(h LockHandle, v SubstateValue) error { return s.kernel.WriteSubstate(h, v) }
func (s *System) CloseKVEntry(h LockHandle) error                  { return s.kernel.CloseSubstate(h) }

// NewIndex opens an unordered Map-keyed collection node.
func (s *System) NewIndex() NodeId {
	id := s.kernel.AllocateNodeId(EntityInternalIndex)
	s.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoIndex}),
	})
	return id
}

func (s *System) InsertIndexEntry(node NodeId, key []byte, value SubstateValue) error {
	return s.kernel.track.Set(SubstateAddr{Node: node, Module: ModuleObject, Key: MapKey(key)}, value)
}

func (s *System) RemoveIndexEntry(node NodeId, key []byte) (SubstateValue, bool, error) {
	return s.kernel.track.Take(SubstateAddr{Node: node, Module: ModuleObject, Key: MapKey(key)})
}

func (s *System) ScanIndex(node NodeId, limit int) ([]SubstateValue, error) {
	return s.kernel.track.Scan(node, ModuleObject, limit)
}

// NewSortedIndex opens a Sorted-keyed collection node, iterated ascending
// by (priority prefix, key).
func (s *System) NewSortedIndex() NodeId {
	id := s.kernel.AllocateNodeId(EntityInternalSortedIndex)
	s.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoSortedIndex}),
	})
	return id
}

func (s *System) InsertSortedIndexEntry(node NodeId, prefix uint16, key []byte, value SubstateValue) error {
	return s.kernel.track.Set(SubstateAddr{Node: node, Module: ModuleObject, Key: SortedKey(prefix, key)}, value)
}

func (s *System) RemoveSortedIndexEntry(node NodeId, prefix uint16, key []byte) (SubstateValue, bool, error) {
	return s.kernel.track.Take(SubstateAddr{Node: node, Module: ModuleObject, Key: SortedKey(prefix, key)})
}

func (s *System) ScanSortedIndex(node NodeId, limit int) ([]SubstateValue, error) {
	return s.kernel.track.ScanSorted(node, ModuleObject, limit)
}

// EmitEvent validates data against the current actor's blueprint schema
// and appends it to the transaction's event log.
func (s *System) EmitEvent(name string, data []Value) error {
	actor := s.kernel.CurrentActor()
	schema, ok := s.schemas.Lookup(actor.Package, actor.Blueprint)
	if !ok {
		return systemErr(KindSchemaValidationError, "no schema registered for emitting blueprint %q", actor.Blueprint)
	}
	if err := schema.ValidateEvent(name, data); err != nil {
		return err
	}
	ident := EventTypeIdentifier{Package: actor.Package, Blueprint: actor.Blueprint, Name: name}
	if actor.Receiver != nil {
		ident.Emitter = *actor.Receiver
	}
	s.events.Append(Event{Identifier: ident, Data: data})
	return nil
}

func (s *System) Events() []Event { return s.events.All() }

// EmitEventFor records an event on behalf of a native blueprint whose
// payload shape is fixed by its Go implementation rather than a loaded
// package schema: the schema check only applies to user-declared
// blueprints; native resource blueprints are trusted by construction the
// same way the reference engine's native packages are).
func (s *System) EmitEventFor(emitter, pkg NodeId, blueprint, name string, data []Value) {
	s.events.Append(Event{
		Identifier: EventTypeIdentifier{Emitter: emitter, Package: pkg, Blueprint: blueprint, Name: name},
		Data:       data,
	})
}
