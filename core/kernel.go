package core

import "fmt"

// Invocable is the function-dispatch table entry the system layer installs
// for a (package, blueprint, function|method) triple: dispatch is a table
// keyed by (package_address, blueprint_name, function_name) -> code
// pointer, with no virtual calls crossing crate boundaries.
type Invocable func(k *Kernel, actor Actor, args Value) (Value, error)

// KernelConfig bounds kernel-level resource usage.
type KernelConfig struct {
	MaxCallDepth int
}

// DefaultKernelConfig matches production call-depth limits observed across
// the reference implementation's test fixtures.
func DefaultKernelConfig() KernelConfig { return KernelConfig{MaxCallDepth: 32} }

// Kernel drives the call-frame stack and enforces the node/reference/lock
// invariants across frames.
type Kernel struct {
	cfg    KernelConfig
	track  *Track
	ids    *idAllocator
	frames []*Frame

	dispatch map[string]Invocable

	auth *AuthModule
	fee  *FeeReserve
}

func dispatchKey(pkg NodeId, blueprint, fn string) string {
	return fmt.Sprintf("%x/%s/%s", pkg, blueprint, fn)
}

// NewKernel constructs a kernel with an empty frame stack; PushRootFrame pushes
// the first (and, for this engine, only top-level) frame.
func NewKernel(cfg KernelConfig, track *Track, ids *idAllocator, auth *AuthModule, fee *FeeReserve) *Kernel {
	return &Kernel{
		cfg:      cfg,
		track:    track,
		ids:      ids,
		dispatch: make(map[string]Invocable),
		auth:     auth,
		fee:      fee,
	}
}

// Register installs a native blueprint function/method under its dispatch
// key, used by the system layer at boot to wire resource blueprints, the
// transaction processor, etc.
func (k *Kernel) Register(pkg NodeId, blueprint, fn string, inv Invocable) {
	k.dispatch[dispatchKey(pkg, blueprint, fn)] = inv
}

func (k *Kernel) currentFrame() *Frame {
	return k.frames[len(k.frames)-1]
}

func (k *Kernel) CurrentActor() Actor { return k.currentFrame().actor }

// FeeReserve exposes the transaction's fee reserve to native blueprints
// (account lock_fee, the transaction processor) that charge or lock XRD
// directly rather than through a dispatched Invoke call.
func (k *Kernel) FeeReserve() *FeeReserve { return k.fee }

func (k *Kernel) Depth() int { return len(k.frames) }

// PushRootFrame installs the root invocation frame (the transaction
// processor) with a pre-loaded set of visible references.
func (k *Kernel) PushRootFrame(actor Actor, preloadedRefs []NodeId) {
	f := newFrame(actor, 0)
	for _, r := range preloadedRefs {
		f.visibleRefs[r] = true
	}
	k.frames = append(k.frames, f)
}

// AllocateNodeId draws the next id for tag from the transaction's
// deterministic sequence.
func (k *Kernel) AllocateNodeId(tag EntityType) NodeId {
	return k.ids.Allocate(tag)
}

// CreateNode places node_id in the current frame's heap with the given
// initial modules and makes it visible to that frame.
func (k *Kernel) CreateNode(nodeID NodeId, initial map[ModuleId]map[string]SubstateValue) {
	f := k.currentFrame()
	hn := newHeapNode()
	for mod, kvs := range initial {
		m := make(map[string]SubstateValue, len(kvs))
		for k2, v := range kvs {
			m[k2] = v
		}
		hn.modules[mod] = m
	}
	f.ownedHeap[nodeID] = hn
	f.visibleRefs[nodeID] = true
}

// DropNode removes node_id from the current frame's heap, returning its
// modules. It fails if the frame doesn't own it or any lock is open on it.
func (k *Kernel) DropNode(nodeID NodeId) (map[ModuleId]map[string]SubstateValue, error) {
	f := k.currentFrame()
	hn, ok := f.ownedHeap[nodeID]
	if !ok {
		return nil, kernelErr(KindInvalidDropNodeAccess, "node %s not owned by current frame", nodeID)
	}
	for h := range f.openLocks {
		// A lock addressed at this node id blocks the drop.
		if li, ok := k.track.locks[h]; ok && li.addr.Node == nodeID {
			return nil, kernelErr(KindInvalidDropNodeAccess, "node %s has an open lock", nodeID)
		}
	}
	delete(f.ownedHeap, nodeID)
	delete(f.visibleRefs, nodeID)
	return hn.modules, nil
}

// heapNodeOf returns the heapNode backing id, when owned by the current
// frame. Native resource blueprints (vault.go, bucket/proof) use this to
// mutate their heap representation directly, without a separate invoke
// frame per primitive operation (see DESIGN.md "resource primitives").
func (k *Kernel) heapNodeOf(id NodeId) (*heapNode, error) {
	f := k.currentFrame()
	hn, ok := f.ownedHeap[id]
	if !ok {
		return nil, kernelErr(KindInvalidDropNodeAccess, "node %s not owned by current frame", id)
	}
	return hn, nil
}

// PersistNode drops id from the current frame's heap and writes each of its
// module/key entries into Track under id's own NodeId, rather than
// remapping them into a different node's module namespace the way
// Globalize does. This is how a vault created in-frame becomes reachable
// by address from later lock_substate calls within the same transaction,
// mirroring the reference engine's flat keyed substate store where nesting
// is expressed purely through Own references, never physical containment.
func (k *Kernel) PersistNode(id NodeId) error {
	hn, err := k.heapNodeOf(id)
	if err != nil {
		return err
	}
	for mod, kvs := range hn.modules {
		for encKey, sv := range kvs {
			key, err := decodeSubstateKey([]byte(encKey))
			if err != nil {
				return err
			}
			if err := k.track.Set(SubstateAddr{Node: id, Module: mod, Key: key}, sv); err != nil {
				return err
			}
		}
	}
	f := k.currentFrame()
	delete(f.ownedHeap, id)
	return nil
}

// LockSubstate delegates to Track and records the handle on the current
// frame. The node must be visible to the current frame.
func (k *Kernel) LockSubstate(node NodeId, module ModuleId, key SubstateKey, flags LockFlags, virt VirtualizeFunc) (LockHandle, error) {
	f := k.currentFrame()
	if !f.canSee(node) {
		return 0, kernelErr(KindNodeNotVisible, "node %s not visible to current frame", node)
	}
	h, err := k.track.AcquireLock(SubstateAddr{Node: node, Module: module, Key: key}, flags, virt)
	if err != nil {
		return 0, err
	}
	f.openLocks[h] = true
	return h, nil
}

func (k *Kernel) ReadSubstate(h LockHandle) (SubstateValue, error) {
	if !k.currentFrame().openLocks[h] {
		return SubstateValue{}, kernelErr(KindLockNotAcquired, "handle not open in current frame")
	}
	v, err := k.track.Read(h)
	if err != nil {
		return SubstateValue{}, err
	}
	if len(v.Data) > 0 {
		if dv, derr := DecodeValue(v.Data); derr == nil {
			if owned, _ := scanOwnedAndReferenced(dv); len(owned) > 0 {
				for _, o := range owned {
					k.currentFrame().visibleRefs[o] = true
				}
			}
		}
	}
	return v, nil
}

func (k *Kernel) WriteSubstate(h LockHandle, value SubstateValue) error {
	if !k.currentFrame().openLocks[h] {
		return kernelErr(KindLockNotAcquired, "handle not open in current frame")
	}
	return k.track.Write(h, value)
}

// CloseSubstate frees the handle in the current frame.
func (k *Kernel) CloseSubstate(h LockHandle) error {
	f := k.currentFrame()
	if !f.openLocks[h] {
		return kernelErr(KindLockNotAcquired, "handle not open in current frame")
	}
	if err := k.track.Release(h); err != nil {
		return err
	}
	delete(f.openLocks, h)
	return nil
}

// assertFrameClean verifies a frame being popped has no open locks.
func assertFrameClean(f *Frame) error {
	if len(f.openLocks) > 0 {
		return kernelErr(KindLockNotAcquired, "frame exiting with %d open locks", len(f.openLocks))
	}
	return nil
}

// Invoke runs a nested invocation: it builds the cross-frame message from
// args (moving owned nodes, projecting references), checks authorization,
// accrues costing, pushes a callee frame, dispatches to the registered
// native function, and on return validates the return value the same way.
func (k *Kernel) Invoke(actor Actor, args Value) (Value, error) {
	if len(k.frames) >= k.cfg.MaxCallDepth {
		return Value{}, kernelErr(KindMaxCallDepthExceeded, "depth %d exceeds limit %d", len(k.frames), k.cfg.MaxCallDepth)
	}

	caller := k.currentFrame()
	owned, refs := scanOwnedAndReferenced(args)
	for _, r := range refs {
		if !caller.canSee(r) {
			return Value{}, kernelErr(KindInvalidReference, "argument references invisible node %s", r)
		}
	}
	for _, o := range owned {
		if _, ok := caller.ownedHeap[o]; !ok {
			return Value{}, kernelErr(KindInvalidReference, "argument moves node %s not owned by caller", o)
		}
	}

	if k.auth != nil {
		if err := k.auth.CheckInvocation(k, actor); err != nil {
			return Value{}, err
		}
	}
	if k.fee != nil {
		if err := k.fee.ChargeExecution(BaseInvocationCost); err != nil {
			return Value{}, err
		}
	}
	metricCallDepth.Observe(float64(len(k.frames) + 1))

	callee := newFrame(actor, len(k.frames))
	for _, o := range owned {
		hn := caller.ownedHeap[o]
		delete(caller.ownedHeap, o)
		delete(caller.visibleRefs, o)
		callee.ownedHeap[o] = hn
		callee.visibleRefs[o] = true
	}
	for _, r := range refs {
		callee.visibleRefs[r] = true
	}
	if actor.Receiver != nil {
		callee.visibleRefs[*actor.Receiver] = true
	}
	if actor.OuterObject != nil {
		callee.visibleRefs[*actor.OuterObject] = true
	}

	k.frames = append(k.frames, callee)

	fnKey := dispatchKey(actor.Package, actor.Blueprint, actor.Function)
	if actor.Method != "" {
		fnKey = dispatchKey(actor.Package, actor.Blueprint, actor.Method)
	}
	inv, ok := k.dispatch[fnKey]
	if !ok {
		k.frames = k.frames[:len(k.frames)-1]
		return Value{}, applicationErr(KindPackageError, "no dispatch registered for %s", fnKey)
	}

	ret, err := inv(k, actor, args)
	if err != nil {
		k.frames = k.frames[:len(k.frames)-1]
		return Value{}, err
	}

	if err := assertFrameClean(callee); err != nil {
		k.frames = k.frames[:len(k.frames)-1]
		return Value{}, err
	}

	retOwned, retRefs := scanOwnedAndReferenced(ret)
	retOwnedSet := make(map[NodeId]bool, len(retOwned))
	for _, o := range retOwned {
		retOwnedSet[o] = true
	}
	for id := range callee.ownedHeap {
		if !retOwnedSet[id] {
			k.frames = k.frames[:len(k.frames)-1]
			return Value{}, kernelErr(KindInvalidDropNodeAccess, "callee leaked owned node %s", id)
		}
	}

	k.frames = k.frames[:len(k.frames)-1]
	for _, o := range retOwned {
		if hn, ok := callee.ownedHeap[o]; ok {
			caller.ownedHeap[o] = hn
		}
		caller.visibleRefs[o] = true
	}
	for _, r := range retRefs {
		caller.visibleRefs[r] = true
	}
	return ret, nil
}
