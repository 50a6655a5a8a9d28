package core

import (
	"fmt"
	"sort"
	"sync"
)

// LockFlags selects the locking discipline for a single acquire_lock call.
type LockFlags uint8

const (
	LockRead LockFlags = 1 << iota
	LockMutable
	LockUnmodifiedBase
	LockForceWrite
)

func (f LockFlags) has(flag LockFlags) bool { return f&flag != 0 }

// stateKind is one of the six per-key lattice states a tracked entry
// moves through.
type stateKind uint8

const (
	stateGarbage stateKind = iota
	stateReadOnlyExistent
	stateReadOnlyNonExistent
	stateNew
	stateWriteOnlyUpdate
	stateWriteOnlyDelete
	stateReadExistAndWriteUpdate
	stateReadExistAndWriteDelete
	stateReadNonExistAndWrite
)

type trackedEntry struct {
	kind  stateKind
	base  SubstateValue // the value observed from the database, when the key started ReadOnly(Existent)
	value SubstateValue // the current logical value, when applicable
}

func (e *trackedEntry) mutated() bool {
	switch e.kind {
	case stateNew, stateWriteOnlyUpdate, stateWriteOnlyDelete,
		stateReadExistAndWriteUpdate, stateReadExistAndWriteDelete, stateReadNonExistAndWrite:
		return true
	}
	return false
}

// LockHandle identifies an open lock; handles are monotonically increasing
// so that lock acquisition is total-ordered by handle id, which falls out
// of allocation order.
type LockHandle uint64

type lockInfo struct {
	addr    SubstateAddr
	dbKey   string
	flags   LockFlags
	readers int // count of concurrently-open read locks sharing dbKey, informational only (single-threaded)
}

// VirtualizeFunc supplies a default substate value when acquire_lock misses
// both the overlay and the database.
type VirtualizeFunc func(addr SubstateAddr) (SubstateValue, bool)

// Track is the transactional substate overlay: it serves
// reads from the overlay or the backing SubstateDatabase, buffers writes,
// and enforces per-key locking for the lifetime of one transaction.
type Track struct {
	mu sync.Mutex

	db    SubstateDatabase
	cache *trackReadCache

	entries map[string]*trackedEntry // keyed by SubstateAddr.dbKey()
	addrOf  map[string]SubstateAddr

	// writers/readers track which locks are currently open per dbKey, to
	// enforce "at most one writer or any number of readers".
	writerOf map[string]LockHandle
	readers  map[string]map[LockHandle]bool

	locks      map[LockHandle]*lockInfo
	nextHandle LockHandle

	// forceWrites mirrors the post-release value of any force-write lock,
	// surviving revert_non_force_writes.
	forceWrites map[string]SubstateValue

	// scanWatermark records, per (node,module) scan scope, a monotonically
	// increasing generation bumped on every mutation so that an in-flight
	// scan can detect a conflicting concurrent removal at commit time.
	scanWatermark map[string]int
}

func scopeKey(node NodeId, module ModuleId) string {
	return string(append(node[:], byte(module)))
}

// NewTrack opens a fresh, empty overlay over db.
func NewTrack(db SubstateDatabase) *Track {
	return &Track{
		db:            db,
		cache:         newTrackReadCache(4096),
		entries:       make(map[string]*trackedEntry),
		addrOf:        make(map[string]SubstateAddr),
		writerOf:      make(map[string]LockHandle),
		readers:       make(map[string]map[LockHandle]bool),
		locks:         make(map[LockHandle]*lockInfo),
		forceWrites:   make(map[string]SubstateValue),
		scanWatermark: make(map[string]int),
	}
}

func (t *Track) bumpWatermark(node NodeId, module ModuleId) {
	t.scanWatermark[scopeKey(node, module)]++
}

// AcquireLock opens a lock on addr with the given flags, fetching from the
// overlay or the database as needed.
func (t *Track) AcquireLock(addr SubstateAddr, flags LockFlags, virt VirtualizeFunc) (LockHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	dbKey := addr.dbKey()

	if flags.has(LockMutable) {
		if _, busy := t.writerOf[dbKey]; busy {
			return 0, &RuntimeError{Category: "KernelError", Kind: KindSubstateLocked, Message: dbKey}
		}
		if rs := t.readers[dbKey]; len(rs) > 0 {
			return 0, &RuntimeError{Category: "KernelError", Kind: KindSubstateLocked, Message: dbKey}
		}
	} else {
		if _, busy := t.writerOf[dbKey]; busy {
			return 0, &RuntimeError{Category: "KernelError", Kind: KindSubstateLocked, Message: dbKey}
		}
	}

	entry, ok := t.entries[dbKey]
	if !ok {
		val, found, err := t.loadFromDatabase(addr)
		if err != nil {
			return 0, err
		}
		if found {
			entry = &trackedEntry{kind: stateReadOnlyExistent, base: val, value: val}
		} else if virt != nil {
			if dv, ok := virt(addr); ok {
				entry = &trackedEntry{kind: stateNew, value: dv}
			}
		}
		if entry == nil {
			if !found {
				return 0, &RuntimeError{Category: "KernelError", Kind: KindNotFound, Message: dbKey}
			}
		}
		t.entries[dbKey] = entry
		t.addrOf[dbKey] = addr
	}

	if flags.has(LockUnmodifiedBase) && entry.mutated() {
		return 0, &RuntimeError{Category: "KernelError", Kind: KindLockUnmodifiedBaseOnUpd, Message: dbKey}
	}

	t.nextHandle++
	h := t.nextHandle
	t.locks[h] = &lockInfo{addr: addr, dbKey: dbKey, flags: flags}

	if flags.has(LockMutable) {
		t.writerOf[dbKey] = h
	} else {
		if t.readers[dbKey] == nil {
			t.readers[dbKey] = make(map[LockHandle]bool)
		}
		t.readers[dbKey][h] = true
	}
	return h, nil
}

func (t *Track) loadFromDatabase(addr SubstateAddr) (SubstateValue, bool, error) {
	dbKey := addr.dbKey()
	if cached, ok := t.cache.get(dbKey); ok {
		var sv SubstateValue
		if len(cached) == 0 {
			return sv, false, nil
		}
		v, err := decodeSubstateValue(cached)
		return v, true, err
	}
	sv, found, err := t.db.Get(addr)
	if err != nil {
		return SubstateValue{}, false, err
	}
	if found {
		enc, encErr := encodeSubstateValue(sv)
		if encErr == nil {
			t.cache.put(dbKey, enc)
		}
	} else {
		t.cache.put(dbKey, nil)
	}
	return sv, found, nil
}

// Read returns the current value visible through handle.
func (t *Track) Read(h LockHandle) (SubstateValue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	li, ok := t.locks[h]
	if !ok {
		return SubstateValue{}, &RuntimeError{Category: "KernelError", Kind: KindLockNotAcquired, Message: fmt.Sprintf("handle %d", h)}
	}
	entry := t.entries[li.dbKey]
	return entry.value, nil
}

// Write updates the value visible through handle; the lock must have been
// acquired with LockMutable.
func (t *Track) Write(h LockHandle, value SubstateValue) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	li, ok := t.locks[h]
	if !ok {
		return &RuntimeError{Category: "KernelError", Kind: KindLockNotAcquired, Message: fmt.Sprintf("handle %d", h)}
	}
	if !li.flags.has(LockMutable) {
		return &RuntimeError{Category: "KernelError", Kind: KindLockNotAcquired, Message: "write requires a mutable lock"}
	}
	entry := t.entries[li.dbKey]
	t.transitionSet(entry, value)
	t.bumpWatermark(li.addr.Node, li.addr.Module)
	return nil
}

// transitionSet applies the "set" transition table.
func (t *Track) transitionSet(e *trackedEntry, value SubstateValue) {
	switch e.kind {
	case stateGarbage:
		e.kind = stateWriteOnlyUpdate
	case stateReadOnlyExistent:
		e.kind = stateReadExistAndWriteUpdate
	case stateReadOnlyNonExistent:
		e.kind = stateReadNonExistAndWrite
	case stateWriteOnlyDelete:
		e.kind = stateWriteOnlyUpdate
	case stateReadExistAndWriteDelete:
		e.kind = stateReadExistAndWriteUpdate
	}
	e.value = value
}

// transitionTake applies the "take" transition table (the delete-shaped
// mirror of set).
func (t *Track) transitionTake(e *trackedEntry) {
	switch e.kind {
	case stateGarbage, stateNew, stateWriteOnlyUpdate:
		e.kind = stateGarbage
	case stateReadOnlyExistent, stateReadExistAndWriteUpdate:
		e.kind = stateReadExistAndWriteDelete
	case stateReadOnlyNonExistent, stateReadNonExistAndWrite:
		e.kind = stateReadOnlyNonExistent
	case stateWriteOnlyDelete, stateReadExistAndWriteDelete:
		// already deleted; no-op
	}
	e.value = SubstateValue{}
}

// Release closes a lock. If it was opened with LockForceWrite, the current
// value is mirrored into the force-write map so it survives a later
// revert_non_force_writes.
func (t *Track) Release(h LockHandle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	li, ok := t.locks[h]
	if !ok {
		return &RuntimeError{Category: "KernelError", Kind: KindLockNotAcquired, Message: fmt.Sprintf("handle %d", h)}
	}
	if li.flags.has(LockForceWrite) {
		entry := t.entries[li.dbKey]
		t.forceWrites[li.dbKey] = entry.value
	}
	delete(t.locks, h)
	if li.flags.has(LockMutable) {
		delete(t.writerOf, li.dbKey)
	} else if rs := t.readers[li.dbKey]; rs != nil {
		delete(rs, h)
		if len(rs) == 0 {
			delete(t.readers, li.dbKey)
		}
	}
	return nil
}

// OpenLockCount reports how many locks remain open. The kernel's frame-exit
// check uses the frame's own lock set, not this count.
func (t *Track) OpenLockCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// Set is the unlocked fast path for writing a substate outright. It
// fails if the key is currently locked.
func (t *Track) Set(addr SubstateAddr, value SubstateValue) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	dbKey := addr.dbKey()
	if _, busy := t.writerOf[dbKey]; busy {
		return &RuntimeError{Category: "KernelError", Kind: KindSubstateLocked, Message: dbKey}
	}
	if rs := t.readers[dbKey]; len(rs) > 0 {
		return &RuntimeError{Category: "KernelError", Kind: KindSubstateLocked, Message: dbKey}
	}
	entry, ok := t.entries[dbKey]
	if !ok {
		entry = &trackedEntry{kind: stateGarbage}
		t.entries[dbKey] = entry
		t.addrOf[dbKey] = addr
	}
	t.transitionSet(entry, value)
	t.bumpWatermark(addr.Node, addr.Module)
	return nil
}

// Take is the unlocked fast path mirroring Set for deletion, returning the
// drained value when one existed.
func (t *Track) Take(addr SubstateAddr) (SubstateValue, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dbKey := addr.dbKey()
	entry, ok := t.entries[dbKey]
	if !ok {
		val, found, err := t.loadFromDatabase(addr)
		if err != nil {
			return SubstateValue{}, false, err
		}
		if !found {
			t.entries[dbKey] = &trackedEntry{kind: stateReadOnlyNonExistent}
			t.addrOf[dbKey] = addr
			return SubstateValue{}, false, nil
		}
		entry = &trackedEntry{kind: stateReadOnlyExistent, base: val, value: val}
		t.entries[dbKey] = entry
		t.addrOf[dbKey] = addr
	}
	prevVal := entry.value
	wasPresent := entry.kind != stateReadOnlyNonExistent && entry.kind != stateGarbage &&
		entry.kind != stateWriteOnlyDelete && entry.kind != stateReadExistAndWriteDelete
	t.transitionTake(entry)
	t.bumpWatermark(addr.Node, addr.Module)
	return prevVal, wasPresent, nil
}

// Revert restores a key to its read-only shape, as if no write had
// occurred.
func (t *Track) Revert(addr SubstateAddr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dbKey := addr.dbKey()
	entry, ok := t.entries[dbKey]
	if !ok {
		return
	}
	switch entry.kind {
	case stateGarbage, stateNew, stateWriteOnlyUpdate, stateWriteOnlyDelete:
		entry.kind = stateGarbage
		entry.value = SubstateValue{}
	case stateReadExistAndWriteUpdate, stateReadExistAndWriteDelete:
		entry.kind = stateReadOnlyExistent
		entry.value = entry.base
	case stateReadNonExistAndWrite:
		entry.kind = stateReadOnlyNonExistent
		entry.value = SubstateValue{}
	}
}

// RevertNonForceWrites rolls the overlay back to its read-only shape, then
// replays every force-write entry verbatim. This is the sole mechanism by
// which a failed transaction still charges fees.
func (t *Track) RevertNonForceWrites() {
	t.mu.Lock()
	for dbKey, entry := range t.entries {
		switch entry.kind {
		case stateGarbage, stateNew, stateWriteOnlyUpdate, stateWriteOnlyDelete:
			entry.kind = stateGarbage
			entry.value = SubstateValue{}
		case stateReadExistAndWriteUpdate, stateReadExistAndWriteDelete:
			entry.kind = stateReadOnlyExistent
			entry.value = entry.base
		case stateReadNonExistAndWrite:
			entry.kind = stateReadOnlyNonExistent
			entry.value = SubstateValue{}
		}
		_ = dbKey
	}
	forceWrites := make(map[string]SubstateValue, len(t.forceWrites))
	for k, v := range t.forceWrites {
		forceWrites[k] = v
	}
	t.mu.Unlock()

	for dbKey, val := range forceWrites {
		addr := t.addrOf[dbKey]
		entry, ok := t.entries[dbKey]
		if !ok {
			entry = &trackedEntry{kind: stateGarbage}
			t.entries[dbKey] = entry
			t.addrOf[dbKey] = addr
		}
		t.mu.Lock()
		t.transitionSet(entry, val)
		t.mu.Unlock()
	}
}

// ScanWatermark returns the current range-read generation for (node,
// module). A caller holding onto a watermark across later mutations can use
// RangeReadConflict to detect whether an independent removal could have
// changed the order it already observed.
func (t *Track) ScanWatermark(node NodeId, module ModuleId) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scanWatermark[scopeKey(node, module)]
}

// RangeReadConflict reports whether (node, module) was mutated since mark
// was captured by ScanWatermark.
func (t *Track) RangeReadConflict(node NodeId, module ModuleId, mark int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scanWatermark[scopeKey(node, module)] != mark
}

// Scan returns up to limit Map-keyed values under (node,module), merging
// overlay writes over the database's natural order, consistent with the
// snapshot-read guarantee the overlay provides.
func (t *Track) Scan(node NodeId, module ModuleId, limit int) ([]SubstateValue, error) {
	dbVals, err := t.db.Scan(node, module, 0)
	if err != nil {
		return nil, err
	}
	return t.mergeScan(node, module, dbVals, KeyMap, limit), nil
}

// ScanSorted mirrors Scan for Sorted-keyed substates, ascending by
// (SortPrefix, SortMapKey).
func (t *Track) ScanSorted(node NodeId, module ModuleId, limit int) ([]SubstateValue, error) {
	dbVals, err := t.db.ScanSorted(node, module, 0)
	if err != nil {
		return nil, err
	}
	return t.mergeScan(node, module, dbVals, KeySorted, limit), nil
}

// mergeScan overlays Track's in-transaction writes on top of a database
// scan: overlay deletes suppress the db value, overlay updates replace it,
// and keys only ever written this transaction (never read from the db) are
// appended. The merged view is then reordered for Sorted scopes so ascending
// (SortPrefix, SortMapKey) order holds regardless of which side a key came
// from.
func (t *Track) mergeScan(node NodeId, module ModuleId, dbVals []KeyedSubstateValue, kind SubstateKeyKind, limit int) []SubstateValue {
	t.mu.Lock()
	defer t.mu.Unlock()

	type kv struct {
		key SubstateKey
		val SubstateValue
	}

	prefix := string(append(node[:], byte(module)))
	deleted := make(map[string]bool)
	overlayOnly := make(map[string]kv)
	for dbKey, entry := range t.entries {
		addr, ok := t.addrOf[dbKey]
		if !ok || addr.Key.Kind != kind {
			continue
		}
		if len(dbKey) < len(prefix) || dbKey[:len(prefix)] != prefix {
			continue
		}
		switch entry.kind {
		case stateWriteOnlyDelete, stateReadExistAndWriteDelete:
			deleted[string(addr.Key.encode())] = true
		case stateNew, stateWriteOnlyUpdate, stateReadExistAndWriteUpdate, stateReadNonExistAndWrite:
			overlayOnly[string(addr.Key.encode())] = kv{key: addr.Key, val: entry.value}
		}
	}

	var merged []kv
	seen := make(map[string]bool)
	for _, dv := range dbVals {
		enc := string(dv.Key.encode())
		if deleted[enc] {
			continue
		}
		if ov, ok := overlayOnly[enc]; ok {
			merged = append(merged, ov)
		} else {
			merged = append(merged, kv{key: dv.Key, val: dv.Value})
		}
		seen[enc] = true
	}
	for enc, ov := range overlayOnly {
		if !seen[enc] {
			merged = append(merged, ov)
		}
	}

	if kind == KeySorted {
		sort.Slice(merged, func(i, j int) bool {
			a, b := merged[i].key, merged[j].key
			if a.SortPrefix != b.SortPrefix {
				return a.SortPrefix < b.SortPrefix
			}
			return string(a.SortMapKey) < string(b.SortMapKey)
		})
	}

	out := make([]SubstateValue, 0, len(merged))
	for _, e := range merged {
		out = append(out, e.val)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Finalize produces the dual diff view.
func (t *Track) Finalize() StateUpdates {
	t.mu.Lock()
	defer t.mu.Unlock()

	var updates StateUpdates
	for dbKey, entry := range t.entries {
		addr := t.addrOf[dbKey]
		switch entry.kind {
		case stateNew, stateWriteOnlyUpdate, stateReadExistAndWriteUpdate, stateReadNonExistAndWrite:
			updates.ByDatabaseKey = append(updates.ByDatabaseKey, DatabaseUpdate{Addr: addr, Value: entry.value})
			updates.BySubstate = append(updates.BySubstate, SemanticUpdate{Node: addr.Node, Module: addr.Module, Key: addr.Key, Value: entry.value})
		case stateWriteOnlyDelete, stateReadExistAndWriteDelete:
			updates.ByDatabaseKey = append(updates.ByDatabaseKey, DatabaseUpdate{Addr: addr, Deleted: true})
			updates.BySubstate = append(updates.BySubstate, SemanticUpdate{Node: addr.Node, Module: addr.Module, Key: addr.Key, Deleted: true})
		}
	}
	return updates
}
