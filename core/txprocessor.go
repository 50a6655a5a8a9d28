package core

// TransactionProcessor interprets a decoded manifest against the kernel's
// resource/account primitives, maintaining the worktop, auth zone, and the
// manifest's named bindings. It runs as ordinary Go code inside the root call frame rather than as a
// separate Kernel.Invoke dispatch hop, the same scope simplification
// resource_manager.go/account.go document: a full implementation would
// register the processor itself as a native blueprint invoked through the
// kernel so its own frame exit is subject to the same lock/leak checks as
// every other invocation.
type TransactionProcessor struct {
	kernel *Kernel
	sys    *System
	res    *ResourceModule
	acc    *AccountModule
	auth   *AuthModule

	worktop *Worktop
	blobs   map[[32]byte][]byte

	buckets       map[string]NodeId
	proofs        map[string]NodeId
	addressResv   map[string]bool
	namedAddrs    map[string]NodeId
	returnValues  []Value
}

func NewTransactionProcessor(k *Kernel, sys *System, res *ResourceModule, acc *AccountModule, auth *AuthModule, blobs map[[32]byte][]byte) *TransactionProcessor {
	return &TransactionProcessor{
		kernel:      k,
		sys:         sys,
		res:         res,
		acc:         acc,
		auth:        auth,
		worktop:     NewWorktop(res),
		blobs:       blobs,
		buckets:     make(map[string]NodeId),
		proofs:      make(map[string]NodeId),
		addressResv: make(map[string]bool),
		namedAddrs:  make(map[string]NodeId),
	}
}

// Run executes instructions in order and returns the manifest's list of
// per-instruction return values. On success the worktop must be empty and every named bucket/proof must
// have been consumed; both are checked here rather than left to the caller.
func (p *TransactionProcessor) Run(instructions []Instruction) ([]Value, error) {
	for _, ins := range instructions {
		ret, err := p.step(ins)
		if err != nil {
			return nil, err
		}
		p.returnValues = append(p.returnValues, ret)
	}

	empty, err := p.worktop.IsEmpty()
	if err != nil {
		return nil, err
	}
	if !empty {
		return nil, applicationErr(KindTransactionProcessorError, "worktop not empty at transaction end")
	}
	if len(p.buckets) > 0 {
		return nil, applicationErr(KindTransactionProcessorError, "%d dangling named bucket(s) at transaction end", len(p.buckets))
	}
	if len(p.proofs) > 0 {
		return nil, applicationErr(KindTransactionProcessorError, "%d dangling named proof(s) at transaction end", len(p.proofs))
	}
	for _, np := range p.auth.DropAllProofs() {
		if err := p.res.DropProof(np); err != nil {
			return nil, err
		}
	}
	return p.returnValues, nil
}

func (p *TransactionProcessor) step(ins Instruction) (Value, error) {
	switch ins.Kind {
	case InsTakeFromWorktopAmount:
		b, err := p.worktop.TakeAmount(ins.Resource, ins.Amount)
		if err != nil {
			return Value{}, err
		}
		p.buckets[ins.Name] = b
		return OwnValue(b), nil

	case InsTakeFromWorktopIds:
		b, err := p.worktop.TakeIds(ins.Resource, ins.Ids)
		if err != nil {
			return Value{}, err
		}
		p.buckets[ins.Name] = b
		return OwnValue(b), nil

	case InsTakeFromWorktopAll:
		b, err := p.worktop.TakeAll(ins.Resource)
		if err != nil {
			return Value{}, err
		}
		p.buckets[ins.Name] = b
		return OwnValue(b), nil

	case InsReturnToWorktop:
		b, ok := p.buckets[ins.Name]
		if !ok {
			return Value{}, applicationErr(KindBucketError, "unknown bucket %q", ins.Name)
		}
		delete(p.buckets, ins.Name)
		if err := p.worktop.Put(b); err != nil {
			return Value{}, err
		}
		return Value{}, nil

	case InsAssertWorktopContainsAmount:
		return Value{}, p.worktop.AssertContainsAmount(ins.Resource, ins.Amount)

	case InsAssertWorktopContainsIds:
		return Value{}, p.worktop.AssertContainsIds(ins.Resource, ins.Ids)

	case InsPopFromAuthZone:
		popped, ok := p.auth.PopProof()
		if !ok {
			return Value{}, applicationErr(KindAuthZoneIsEmpty, "PopFromAuthZone: auth zone is empty")
		}
		proof := popped.id
		if !popped.hasNode {
			proof = p.res.newProofCarrier(popped.resource)
		}
		p.proofs[ins.Name] = proof
		return OwnValue(proof), nil

	case InsPushToAuthZone:
		proof, ok := p.proofs[ins.Name]
		if !ok {
			return Value{}, applicationErr(KindProofError, "unknown proof %q", ins.Name)
		}
		resource, err := p.res.resourceAddress(proof)
		if err != nil {
			return Value{}, err
		}
		p.auth.PushProofNode(proof, resource)
		delete(p.proofs, ins.Name)
		return Value{}, nil

	case InsDropAuthZoneProofs:
		for _, np := range p.auth.DropAllProofs() {
			if err := p.res.DropProof(np); err != nil {
				return Value{}, err
			}
		}
		return Value{}, nil

	case InsDropAuthZoneSignatureProofs:
		p.auth.DropSignatureProofs()
		return Value{}, nil

	case InsDropAuthZoneRegularProofs:
		for _, np := range p.auth.DropRegularProofs() {
			if err := p.res.DropProof(np); err != nil {
				return Value{}, err
			}
		}
		return Value{}, nil

	case InsCreateProofFromAuthZoneAmount, InsCreateProofFromAuthZoneIds, InsCreateProofFromAuthZoneAll:
		if !p.auth.visibleProofs()[ins.Resource] {
			return Value{}, applicationErr(KindProofError, "no proof of resource %s visible in auth zone", ins.Resource)
		}
		proof := p.res.newProofCarrier(ins.Resource)
		p.proofs[ins.Name] = proof
		return OwnValue(proof), nil

	case InsCreateProofFromBucket:
		b, ok := p.buckets[ins.Name]
		if !ok {
			return Value{}, applicationErr(KindBucketError, "unknown bucket %q", ins.Name)
		}
		proof, err := p.res.CreateProofFromBucket(b)
		if err != nil {
			return Value{}, err
		}
		name := ins.Name + "_proof"
		p.proofs[name] = proof
		return OwnValue(proof), nil

	case InsCloneProof:
		proof, ok := p.proofs[ins.Name]
		if !ok {
			return Value{}, applicationErr(KindProofError, "unknown proof %q", ins.Name)
		}
		clone, err := p.res.CloneProof(proof)
		if err != nil {
			return Value{}, err
		}
		p.proofs[ins.Name+"_clone"] = clone
		return OwnValue(clone), nil

	case InsDropProof:
		proof, ok := p.proofs[ins.Name]
		if !ok {
			return Value{}, applicationErr(KindProofError, "unknown proof %q", ins.Name)
		}
		delete(p.proofs, ins.Name)
		return Value{}, p.res.DropProof(proof)

	case InsDropAllProofs:
		for name, proof := range p.proofs {
			if err := p.res.DropProof(proof); err != nil {
				return Value{}, err
			}
			delete(p.proofs, name)
		}
		return Value{}, nil

	case InsCallFunction:
		args, err := p.substituteArgs(ins.Args)
		if err != nil {
			return Value{}, err
		}
		ret, err := p.kernel.Invoke(Actor{Package: ins.Package, Blueprint: ins.Blueprint, Function: ins.Function},
			Value{Kind: VTuple, Tuple: args})
		if err == nil {
			err = p.depositReturnedBucket(ret)
		}
		return ret, err

	case InsCallMethod:
		if ins.Method == "lock_fee" {
			return p.lockFee(ins)
		}
		args, err := p.substituteArgs(ins.Args)
		if err != nil {
			return Value{}, err
		}
		receiver := ins.Address
		p.auth.PushBarrier()
		ret, err := p.kernel.Invoke(Actor{Package: ins.Package, Blueprint: ins.Blueprint, Receiver: &receiver, Method: ins.Method}, Value{Kind: VTuple, Tuple: args})
		if popErr := p.auth.PopBarrier(); popErr != nil && err == nil {
			err = popErr
		}
		if err == nil {
			err = p.depositReturnedBucket(ret)
		}
		return ret, err

	case InsAllocateGlobalAddress:
		p.addressResv[ins.NameRes] = true
		addr := p.kernel.AllocateNodeId(EntityGlobalGenericComponent)
		p.namedAddrs[ins.NameAddr] = addr
		return AddressValue(addr), nil

	case InsPublishPackage:
		code, ok := p.blobs[ins.CodeBlob]
		if !ok {
			return Value{}, applicationErr(KindBlobNotFound, "blob %x not found", ins.CodeBlob)
		}
		pkg := p.kernel.AllocateNodeId(EntityGlobalPackage)
		p.kernel.CreateNode(pkg, map[ModuleId]map[string]SubstateValue{
			ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoObject, Blueprint: "Package", Global: true}),
			ModuleObject:   {string(TupleKey(0).encode()): {Data: code}},
		})
		if err := p.kernel.PersistNode(pkg); err != nil {
			return Value{}, err
		}
		return AddressValue(pkg), nil

	default:
		return Value{}, applicationErr(KindTransactionProcessorError, "unknown instruction kind %d", ins.Kind)
	}
}

// lockFee withdraws amount of XRD straight out of a fungible vault into the
// fee reserve, bypassing Kernel.Invoke the same way the other resource
// primitives do: the reference engine special-cases lock_fee as a costing
// module call rather than an ordinary blueprint method, since it must
// succeed even when the transaction has no remaining cost-unit loan to
// spend on a regular dispatch. The withdrawal itself force-writes the
// vault's new balance (VaultLockFeeWithdraw) rather than going through the
// ordinary mutable-lock path VaultTakeFungible uses, so the charge survives
// a later Track.RevertNonForceWrites if the transaction goes on to fail.
// A contingent lock is recorded by the reserve but never added to its
// balance (FeeReserve.LockFee's contingent parameter).
func (p *TransactionProcessor) lockFee(ins Instruction) (Value, error) {
	if len(ins.Args) < 1 || len(ins.Args) > 2 || ins.Args[0].Kind != VDecimal {
		return Value{}, applicationErr(KindTransactionProcessorError, "lock_fee expects (Decimal, optional Bool contingent)")
	}
	amount := ins.Args[0].Decimal
	contingent := false
	if len(ins.Args) == 2 {
		if ins.Args[1].Kind != VBool {
			return Value{}, applicationErr(KindTransactionProcessorError, "lock_fee's second argument must be a Bool")
		}
		contingent = ins.Args[1].Bool
	}
	if err := p.res.VaultLockFeeWithdraw(ins.Address, amount); err != nil {
		return Value{}, err
	}
	p.kernel.FeeReserve().LockFee(ins.Address, amount, contingent)
	p.sys.EmitEventFor(ins.Address, ResourcePackage, BlueprintFungibleVault, "LockFeeEvent", []Value{DecimalValue(amount)})
	return Value{}, nil
}

// depositReturnedBucket puts any Bucket node surfaced in a CallFunction or
// CallMethod return value onto the worktop, the same auto-deposit behavior
// the reference engine's manifest runtime gives unnamed returned buckets so
// a manifest author never has to bind and immediately re-deposit a mint or
// withdraw result by hand.
func (p *TransactionProcessor) depositReturnedBucket(v Value) error {
	switch v.Kind {
	case VOwn:
		if p.nodeIsBucket(v.Own.NodeId) {
			return p.worktop.Put(v.Own.NodeId)
		}
	case VTuple:
		for _, e := range v.Tuple {
			if err := p.depositReturnedBucket(e); err != nil {
				return err
			}
		}
	case VArray:
		for _, e := range v.Array {
			if err := p.depositReturnedBucket(e); err != nil {
				return err
			}
		}
	case VSet:
		for _, e := range v.Set {
			if err := p.depositReturnedBucket(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *TransactionProcessor) nodeIsBucket(id NodeId) bool {
	hn, err := p.kernel.heapNodeOf(id)
	if err != nil {
		return false
	}
	ti, ok := hn.modules[ModuleTypeInfo][string(TupleKey(0).encode())]
	if !ok || ti.TypeInfo == nil {
		return false
	}
	return ti.TypeInfo.Blueprint == BlueprintBucket
}

// substituteArgs resolves every ManifestBucket/Proof/AddressReservation/
// NamedAddress/Expression/BlobRef value reachable inside args against the
// processor's binding tables, moving named buckets/proofs by value and
// leaving the binding consumed, since a manifest argument transfers
// ownership exactly once.
func (p *TransactionProcessor) substituteArgs(args []Value) ([]Value, error) {
	out := make([]Value, len(args))
	for i, a := range args {
		v, err := p.substituteValue(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p *TransactionProcessor) substituteValue(v Value) (Value, error) {
	switch v.Kind {
	case VManifestBucket:
		b, ok := p.buckets[v.ManifestName]
		if !ok {
			return Value{}, applicationErr(KindBucketError, "unresolved manifest bucket %q", v.ManifestName)
		}
		delete(p.buckets, v.ManifestName)
		return OwnValue(b), nil

	case VManifestProof:
		pr, ok := p.proofs[v.ManifestName]
		if !ok {
			return Value{}, applicationErr(KindProofError, "unresolved manifest proof %q", v.ManifestName)
		}
		delete(p.proofs, v.ManifestName)
		return OwnValue(pr), nil

	case VManifestNamedAddress:
		addr, ok := p.namedAddrs[v.ManifestName]
		if !ok {
			return Value{}, applicationErr(KindTransactionProcessorError, "unresolved named address %q", v.ManifestName)
		}
		return AddressValue(addr), nil

	case VManifestAddressReservation:
		if !p.addressResv[v.ManifestName] {
			return Value{}, applicationErr(KindTransactionProcessorError, "unresolved address reservation %q", v.ManifestName)
		}
		return v, nil

	case VManifestBlobRef:
		if _, ok := p.blobs[v.BlobHash]; !ok {
			return Value{}, applicationErr(KindBlobNotFound, "blob %x not found", v.BlobHash)
		}
		return v, nil

	case VManifestExpression:
		switch v.ExprKind {
		case ExprEntireWorktop:
			bs, err := p.worktop.DrainAll()
			if err != nil {
				return Value{}, err
			}
			vals := make([]Value, len(bs))
			for i, b := range bs {
				vals[i] = OwnValue(b)
			}
			return Value{Kind: VArray, Array: vals}, nil
		case ExprEntireAuthZone:
			drained := p.auth.DrainZone()
			vals := make([]Value, len(drained))
			for i, ap := range drained {
				id := ap.id
				if !ap.hasNode {
					id = p.res.newProofCarrier(ap.resource)
				}
				vals[i] = OwnValue(id)
			}
			return Value{Kind: VArray, Array: vals}, nil
		}
		return Value{}, applicationErr(KindTransactionProcessorError, "unknown manifest expression %d", v.ExprKind)

	case VTuple:
		return p.substituteSlice(v, v.Tuple, func(items []Value) Value { return Value{Kind: VTuple, Tuple: items} })
	case VArray:
		return p.substituteSlice(v, v.Array, func(items []Value) Value { return Value{Kind: VArray, Array: items} })
	case VSet:
		return p.substituteSlice(v, v.Set, func(items []Value) Value { return Value{Kind: VSet, Set: items} })

	default:
		return v, nil
	}
}

func (p *TransactionProcessor) substituteSlice(orig Value, items []Value, rebuild func([]Value) Value) (Value, error) {
	out := make([]Value, len(items))
	for i, item := range items {
		v, err := p.substituteValue(item)
		if err != nil {
			return Value{}, err
		}
		out[i] = v
	}
	result := rebuild(out)
	result.EnumDiscriminant = orig.EnumDiscriminant
	return result, nil
}
