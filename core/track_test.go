package core

import "testing"

type fakeDB struct {
	values map[string]SubstateValue
}

func newFakeDB() *fakeDB { return &fakeDB{values: make(map[string]SubstateValue)} }

func (d *fakeDB) Get(addr SubstateAddr) (SubstateValue, bool, error) {
	v, ok := d.values[addr.dbKey()]
	return v, ok, nil
}

func (d *fakeDB) Scan(node NodeId, module ModuleId, limit int) ([]KeyedSubstateValue, error) {
	return nil, nil
}

func (d *fakeDB) ScanSorted(node NodeId, module ModuleId, limit int) ([]KeyedSubstateValue, error) {
	return nil, nil
}

func testAddr() SubstateAddr {
	var n NodeId
	n[0] = byte(EntityInternalFungibleVault)
	return SubstateAddr{Node: n, Module: ModuleObject, Key: TupleKey(0)}
}

func TestTrackSetTakeFastPath(t *testing.T) {
	tr := NewTrack(newFakeDB())
	addr := testAddr()

	if err := tr.Set(addr, SubstateValue{Data: []byte("a")}); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, found, err := tr.Take(addr)
	if err != nil || !found {
		t.Fatalf("take: %v found=%v", err, found)
	}
	if string(v.Data) != "a" {
		t.Fatalf("unexpected value %q", v.Data)
	}
}

func TestTrackLockConflict(t *testing.T) {
	db := newFakeDB()
	addr := testAddr()
	db.values[addr.dbKey()] = SubstateValue{Data: []byte("x")}
	tr := NewTrack(db)

	h1, err := tr.AcquireLock(addr, LockMutable, nil)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := tr.AcquireLock(addr, LockRead, nil); err == nil {
		t.Fatal("expected SubstateLocked error on conflicting lock")
	}
	if err := tr.Release(h1); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := tr.AcquireLock(addr, LockRead, nil); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
}

func TestTrackUnmodifiedBaseFailsAfterWrite(t *testing.T) {
	db := newFakeDB()
	addr := testAddr()
	db.values[addr.dbKey()] = SubstateValue{Data: []byte("x")}
	tr := NewTrack(db)

	h, err := tr.AcquireLock(addr, LockMutable, nil)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := tr.Write(h, SubstateValue{Data: []byte("y")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tr.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := tr.AcquireLock(addr, LockRead|LockUnmodifiedBase, nil); err == nil {
		t.Fatal("expected LockUnmodifiedBaseOnUpdatedSubstate error")
	}
}

func TestTrackForceWriteSurvivesRevert(t *testing.T) {
	db := newFakeDB()
	addr := testAddr()
	db.values[addr.dbKey()] = SubstateValue{Data: []byte("orig")}
	tr := NewTrack(db)

	h, err := tr.AcquireLock(addr, LockMutable|LockForceWrite, nil)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := tr.Write(h, SubstateValue{Data: []byte("fee-paid")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tr.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}

	// Simulate an unrelated failed write elsewhere, then roll back.
	other := testAddr()
	other.Key = TupleKey(1)
	_ = tr.Set(other, SubstateValue{Data: []byte("should not survive")})

	tr.RevertNonForceWrites()

	updates := tr.Finalize()
	if len(updates.ByDatabaseKey) != 1 {
		t.Fatalf("expected exactly one surviving update, got %d", len(updates.ByDatabaseKey))
	}
	if string(updates.ByDatabaseKey[0].Value.Data) != "fee-paid" {
		t.Fatalf("unexpected surviving value %q", updates.ByDatabaseKey[0].Value.Data)
	}
}

func TestTrackMergeScanOverlaysDatabase(t *testing.T) {
	var n NodeId
	n[0] = byte(EntityInternalIndex)
	db := newFakeDB()
	tr := NewTrack(db)

	a1 := SubstateAddr{Node: n, Module: ModuleObject, Key: MapKey([]byte("k1"))}
	a2 := SubstateAddr{Node: n, Module: ModuleObject, Key: MapKey([]byte("k2"))}
	if err := tr.Set(a1, SubstateValue{Data: []byte("v1")}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Set(a2, SubstateValue{Data: []byte("v2")}); err != nil {
		t.Fatal(err)
	}
	vals, err := tr.Scan(n, ModuleObject, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 2 {
		t.Fatalf("expected 2 scanned values, got %d", len(vals))
	}
}
