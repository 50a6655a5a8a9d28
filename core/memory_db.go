package core

import (
	"sort"
	"sync"
)

// MemorySubstateDatabase is a process-local SubstateDatabase backed by a
// plain map, guarded the same way Track guards its own overlay. It
// is the embedder-facing store a scenario runner commits Track's diff into
// between transactions; a production deployment would swap this for a
// real on-disk KV store without the core needing to change.
type MemorySubstateDatabase struct {
	mu     sync.Mutex
	values map[string]SubstateValue
	addrOf map[string]SubstateAddr
}

func NewMemorySubstateDatabase() *MemorySubstateDatabase {
	return &MemorySubstateDatabase{
		values: make(map[string]SubstateValue),
		addrOf: make(map[string]SubstateAddr),
	}
}

func (d *MemorySubstateDatabase) Get(addr SubstateAddr) (SubstateValue, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.values[addr.dbKey()]
	return v, ok, nil
}

func (d *MemorySubstateDatabase) Scan(node NodeId, module ModuleId, limit int) ([]KeyedSubstateValue, error) {
	return d.scan(node, module, limit, false)
}

func (d *MemorySubstateDatabase) ScanSorted(node NodeId, module ModuleId, limit int) ([]KeyedSubstateValue, error) {
	return d.scan(node, module, limit, true)
}

func (d *MemorySubstateDatabase) scan(node NodeId, module ModuleId, limit int, sorted bool) ([]KeyedSubstateValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []KeyedSubstateValue
	for dbKey, addr := range d.addrOf {
		if addr.Node != node || addr.Module != module {
			continue
		}
		wantKind := KeyMap
		if sorted {
			wantKind = KeySorted
		}
		if addr.Key.Kind != wantKind {
			continue
		}
		out = append(out, KeyedSubstateValue{Key: addr.Key, Value: d.values[dbKey]})
	}
	if sorted {
		sort.Slice(out, func(i, j int) bool {
			a, b := out[i].Key, out[j].Key
			if a.SortPrefix != b.SortPrefix {
				return a.SortPrefix < b.SortPrefix
			}
			return string(a.SortMapKey) < string(b.SortMapKey)
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Apply commits one transaction's StateUpdates into the database, the
// embedder-side half of finalization: Track only produces the diff, never
// writes it itself.
func (d *MemorySubstateDatabase) Apply(updates StateUpdates) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range updates.ByDatabaseKey {
		key := u.Addr.dbKey()
		if u.Deleted {
			delete(d.values, key)
			delete(d.addrOf, key)
			continue
		}
		d.values[key] = u.Value
		d.addrOf[key] = u.Addr
	}
}
