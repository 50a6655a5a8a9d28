package core

// newFungibleCarrier builds a heap node shaped like a fungible vault or
// bucket: a resource address at field 0 and an amount at field 1.
// Bucket and vault share this layout because a bucket is, operationally, a
// detached vault that has not yet been placed into storage.
func (r *ResourceModule) newFungibleCarrier(tag EntityType, blueprint string, resource NodeId, amount Decimal) NodeId {
	id := r.kernel.AllocateNodeId(tag)
	resEnc, _ := EncodeValue(AddressValue(resource))
	amtEnc, _ := EncodeValue(DecimalValue(amount))
	r.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoObject, Blueprint: blueprint}),
		ModuleObject: {
			string(TupleKey(fieldVaultResource).encode()): {Data: resEnc},
			string(TupleKey(fieldVaultAmount).encode()):   {Data: amtEnc},
		},
	})
	return id
}

// newNonFungibleCarrier builds a heap node shaped like a non-fungible vault
// or bucket: a resource address at field 0 and a set of local ids at field
// 1.
func (r *ResourceModule) newNonFungibleCarrier(tag EntityType, blueprint string, resource NodeId, ids []string) NodeId {
	id := r.kernel.AllocateNodeId(tag)
	resEnc, _ := EncodeValue(AddressValue(resource))
	idsEnc, _ := EncodeValue(nonFungibleIdSetValue(ids))
	r.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoObject, Blueprint: blueprint}),
		ModuleObject: {
			string(TupleKey(fieldVaultResource).encode()): {Data: resEnc},
			string(TupleKey(fieldVaultIds).encode()):      {Data: idsEnc},
		},
	})
	return id
}

func nonFungibleIdSetValue(ids []string) Value {
	vals := make([]Value, len(ids))
	for i, s := range ids {
		vals[i] = Value{Kind: VNonFungibleLocalId, NonFungibleLocalId: s}
	}
	return Value{Kind: VSet, Set: vals}
}

func decodeNonFungibleIdSet(v Value) []string {
	out := make([]string, len(v.Set))
	for i, e := range v.Set {
		out[i] = e.NonFungibleLocalId
	}
	return out
}

// readField fetches a node's field, whether it is still a heap node owned
// by the current frame or has already been persisted into Track: both a
// freshly minted bucket and a vault stored inside an account
// use the same field accessors.
func (r *ResourceModule) readField(node NodeId, field uint8) (Value, error) {
	if hn, err := r.kernel.heapNodeOf(node); err == nil {
		sv := hn.modules[ModuleObject][string(TupleKey(field).encode())]
		return DecodeValue(sv.Data)
	}
	h, err := r.kernel.LockSubstate(node, ModuleObject, TupleKey(field), LockRead, nil)
	if err != nil {
		return Value{}, err
	}
	sv, err := r.kernel.ReadSubstate(h)
	if err != nil {
		return Value{}, err
	}
	if err := r.kernel.CloseSubstate(h); err != nil {
		return Value{}, err
	}
	return DecodeValue(sv.Data)
}

func (r *ResourceModule) writeField(node NodeId, field uint8, v Value) error {
	enc, err := EncodeValue(v)
	if err != nil {
		return err
	}
	if hn, err := r.kernel.heapNodeOf(node); err == nil {
		hn.modules[ModuleObject][string(TupleKey(field).encode())] = SubstateValue{Data: enc}
		return nil
	}
	h, err := r.kernel.LockSubstate(node, ModuleObject, TupleKey(field), LockMutable, nil)
	if err != nil {
		return err
	}
	if err := r.kernel.WriteSubstate(h, SubstateValue{Data: enc}); err != nil {
		return err
	}
	return r.kernel.CloseSubstate(h)
}

// writeFieldForced behaves like writeField but acquires LockForceWrite
// instead of LockMutable, so the write survives Track.RevertNonForceWrites
// on a failed transaction. Only the fee vault's lock_fee withdrawal uses
// this path; every other vault/bucket mutation goes through writeField and
// is rolled back like the rest of a failed transaction's state.
func (r *ResourceModule) writeFieldForced(node NodeId, field uint8, v Value) error {
	enc, err := EncodeValue(v)
	if err != nil {
		return err
	}
	if hn, err := r.kernel.heapNodeOf(node); err == nil {
		hn.modules[ModuleObject][string(TupleKey(field).encode())] = SubstateValue{Data: enc}
		return nil
	}
	h, err := r.kernel.LockSubstate(node, ModuleObject, TupleKey(field), LockForceWrite, nil)
	if err != nil {
		return err
	}
	if err := r.kernel.WriteSubstate(h, SubstateValue{Data: enc}); err != nil {
		return err
	}
	return r.kernel.CloseSubstate(h)
}

func (r *ResourceModule) resourceAddress(node NodeId) (NodeId, error) {
	v, err := r.readField(node, fieldVaultResource)
	if err != nil {
		return NodeId{}, err
	}
	return v.Address, nil
}

func (r *ResourceModule) amountOf(node NodeId) (Decimal, error) {
	v, err := r.readField(node, fieldVaultAmount)
	if err != nil {
		return ZeroDecimal(), err
	}
	return v.Decimal, nil
}

func (r *ResourceModule) idsOf(node NodeId) ([]string, error) {
	v, err := r.readField(node, fieldVaultIds)
	if err != nil {
		return nil, err
	}
	return decodeNonFungibleIdSet(v), nil
}

// CreateEmptyFungibleVault opens a zero-balance vault for resource.
func (r *ResourceModule) CreateEmptyFungibleVault(resource NodeId) NodeId {
	id := r.newFungibleCarrier(EntityInternalFungibleVault, BlueprintFungibleVault, resource, ZeroDecimal())
	r.sys.EmitEventFor(id, ResourcePackage, BlueprintFungibleVault, "VaultCreationEvent", nil)
	return id
}

// CreateEmptyNonFungibleVault opens an empty-id-set vault for resource.
func (r *ResourceModule) CreateEmptyNonFungibleVault(resource NodeId) NodeId {
	id := r.newNonFungibleCarrier(EntityInternalNonFungibleVault, BlueprintNonFungibleVault, resource, nil)
	r.sys.EmitEventFor(id, ResourcePackage, BlueprintNonFungibleVault, "VaultCreationEvent", nil)
	return id
}

// VaultPutFungible merges bucket's amount into vault and drops the bucket.
// Both nodes must belong to the same resource.
func (r *ResourceModule) VaultPutFungible(vault, bucket NodeId) error {
	vaultRes, err := r.resourceAddress(vault)
	if err != nil {
		return err
	}
	bucketRes, err := r.resourceAddress(bucket)
	if err != nil {
		return err
	}
	if vaultRes != bucketRes {
		return applicationErr(KindVaultError, "resource mismatch between vault and bucket")
	}
	amount, err := r.amountOf(bucket)
	if err != nil {
		return err
	}
	if _, err := r.kernel.DropNode(bucket); err != nil {
		return err
	}
	balance, err := r.amountOf(vault)
	if err != nil {
		return err
	}
	if err := r.writeField(vault, fieldVaultAmount, DecimalValue(balance.Add(amount))); err != nil {
		return err
	}
	r.sys.EmitEventFor(vault, ResourcePackage, BlueprintFungibleVault, "DepositEvent", []Value{DecimalValue(amount)})
	return nil
}

// VaultTakeFungible withdraws amount from vault into a freshly minted
// bucket.
func (r *ResourceModule) VaultTakeFungible(vault NodeId, amount Decimal) (NodeId, error) {
	balance, err := r.amountOf(vault)
	if err != nil {
		return NodeId{}, err
	}
	if balance.LessThan(amount) {
		return NodeId{}, applicationErr(KindVaultError, "insufficient vault balance: have %s, need %s", balance.String(), amount.String())
	}
	if err := r.writeField(vault, fieldVaultAmount, DecimalValue(balance.Sub(amount))); err != nil {
		return NodeId{}, err
	}
	resource, err := r.resourceAddress(vault)
	if err != nil {
		return NodeId{}, err
	}
	bucket := r.newFungibleCarrier(EntityInternalFungibleVault, BlueprintBucket, resource, amount)
	r.sys.EmitEventFor(vault, ResourcePackage, BlueprintFungibleVault, "WithdrawEvent", []Value{DecimalValue(amount)})
	return bucket, nil
}

// VaultLockFeeWithdraw withdraws amount of XRD straight out of a fee vault
// for lock_fee, force-writing the new balance so the withdrawal survives
// Track.RevertNonForceWrites when the rest of the transaction later fails —
// a failed transaction must still charge the fee it locked.
func (r *ResourceModule) VaultLockFeeWithdraw(vault NodeId, amount Decimal) error {
	balance, err := r.amountOf(vault)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return applicationErr(KindVaultError, "insufficient vault balance: have %s, need %s", balance.String(), amount.String())
	}
	if err := r.writeFieldForced(vault, fieldVaultAmount, DecimalValue(balance.Sub(amount))); err != nil {
		return err
	}
	r.sys.EmitEventFor(vault, ResourcePackage, BlueprintFungibleVault, "WithdrawEvent", []Value{DecimalValue(amount)})
	return nil
}

// VaultRecallFungible is VaultTakeFungible followed by a
// RecallResourceEvent (after the WithdrawEvent the take emits). It checks
// no Recall role, and neither does the "recall" dispatch entry in
// native_dispatch.go; the only gate is whatever method auth
// AuthModule.CheckInvocation finds installed on the vault.
func (r *ResourceModule) VaultRecallFungible(vault NodeId, amount Decimal) (NodeId, error) {
	bucket, err := r.VaultTakeFungible(vault, amount)
	if err != nil {
		return NodeId{}, err
	}
	r.sys.EmitEventFor(vault, ResourcePackage, BlueprintFungibleVault, "RecallResourceEvent", []Value{DecimalValue(amount)})
	return bucket, nil
}

// VaultPutNonFungible merges bucket's ids into vault and drops the bucket,
// rejecting a bucket carrying an id already present in the vault (ids are
// globally unique, so a collision here indicates caller misuse rather than
// a nonexistent state).
func (r *ResourceModule) VaultPutNonFungible(vault, bucket NodeId) error {
	vaultRes, err := r.resourceAddress(vault)
	if err != nil {
		return err
	}
	bucketRes, err := r.resourceAddress(bucket)
	if err != nil {
		return err
	}
	if vaultRes != bucketRes {
		return applicationErr(KindVaultError, "resource mismatch between vault and bucket")
	}
	incoming, err := r.idsOf(bucket)
	if err != nil {
		return err
	}
	if _, err := r.kernel.DropNode(bucket); err != nil {
		return err
	}
	existing, err := r.idsOf(vault)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range incoming {
		if seen[id] {
			return applicationErr(KindVaultError, "non-fungible id %q already present in vault", id)
		}
	}
	if err := r.writeField(vault, fieldVaultIds, nonFungibleIdSetValue(append(existing, incoming...))); err != nil {
		return err
	}
	r.sys.EmitEventFor(vault, ResourcePackage, BlueprintNonFungibleVault, "DepositEvent", nil)
	return nil
}

// VaultTakeNonFungible withdraws exactly ids from vault into a fresh
// bucket, failing if any requested id is absent.
func (r *ResourceModule) VaultTakeNonFungible(vault NodeId, ids []string) (NodeId, error) {
	existing, err := r.idsOf(vault)
	if err != nil {
		return NodeId{}, err
	}
	present := make(map[string]bool, len(existing))
	for _, id := range existing {
		present[id] = true
	}
	for _, id := range ids {
		if !present[id] {
			return NodeId{}, applicationErr(KindVaultError, "non-fungible id %q not present in vault", id)
		}
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	remaining := existing[:0]
	for _, id := range existing {
		if !want[id] {
			remaining = append(remaining, id)
		}
	}
	if err := r.writeField(vault, fieldVaultIds, nonFungibleIdSetValue(remaining)); err != nil {
		return NodeId{}, err
	}
	resource, err := r.resourceAddress(vault)
	if err != nil {
		return NodeId{}, err
	}
	bucket := r.newNonFungibleCarrier(EntityInternalNonFungibleVault, BlueprintBucket, resource, ids)
	r.sys.EmitEventFor(vault, ResourcePackage, BlueprintNonFungibleVault, "WithdrawEvent", nil)
	return bucket, nil
}
