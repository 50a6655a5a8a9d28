package core

// Native resource blueprint names. These never load a WASM schema; their
// field and event shapes are fixed by this file, the same way the
// reference engine's native resource package is trusted without going
// through the generic schema-validation path.
const (
	BlueprintFungibleResourceManager    = "FungibleResourceManager"
	BlueprintNonFungibleResourceManager = "NonFungibleResourceManager"
	BlueprintFungibleVault              = "FungibleVault"
	BlueprintNonFungibleVault           = "NonFungibleVault"
	BlueprintBucket                     = "Bucket" // heap-only, never globalized
	BlueprintProof                      = "Proof"  // heap-only, never globalized
)

// ResourcePackage is the well-known package address every native resource
// blueprint is registered under: the package half of their dispatch keys
// (native_dispatch.go) and the Package field of the events they emit.
var ResourcePackage = func() NodeId {
	var id NodeId
	id[0] = byte(EntityGlobalPackage)
	id[1] = 0xFF // distinguishes the reserved native-resource package from user packages
	return id
}()

const (
	fieldDivisibility  = 0
	fieldTotalSupply   = 1
	fieldVaultResource = 0
	fieldVaultAmount   = 1
	fieldVaultIds      = 1 // non-fungible vault's id set lives at the same field slot as the fungible amount
)

// ResourceModule implements resource-manager, vault, bucket, and proof
// semantics directly against the kernel's node lifecycle. Mint/burn
// mutate a globalized resource manager's stored substates through the
// lock manager; bucket/proof/vault-while-in-heap operations mutate heap
// nodes directly, since they are never visible to more than the frame that
// holds them until explicitly deposited.
type ResourceModule struct {
	kernel *Kernel
	sys    *System
}

func NewResourceModule(k *Kernel, sys *System) *ResourceModule {
	return &ResourceModule{kernel: k, sys: sys}
}

// CreateFungibleResourceManager globalizes a new fungible resource manager
// with zero total supply.
func (r *ResourceModule) CreateFungibleResourceManager(divisibility uint8) (NodeId, error) {
	id := r.kernel.AllocateNodeId(EntityGlobalFungibleResource)
	divEnc, _ := EncodeValue(Value{Kind: VU8, U8: divisibility})
	supplyEnc, _ := EncodeValue(DecimalValue(ZeroDecimal()))
	r.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoObject, Blueprint: BlueprintFungibleResourceManager, Global: true}),
		ModuleObject: {
			string(TupleKey(fieldDivisibility).encode()): {Data: divEnc},
			string(TupleKey(fieldTotalSupply).encode()):  {Data: supplyEnc},
		},
	})
	if err := r.kernel.PersistNode(id); err != nil {
		return NodeId{}, err
	}
	return id, nil
}

// CreateNonFungibleResourceManager globalizes a new non-fungible resource
// manager; non-fungible existence and immutable data are tracked in a Map
// module keyed by local id.
func (r *ResourceModule) CreateNonFungibleResourceManager() (NodeId, error) {
	id := r.kernel.AllocateNodeId(EntityGlobalNonFungibleResource)
	supplyEnc, _ := EncodeValue(DecimalValue(ZeroDecimal()))
	r.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoObject, Blueprint: BlueprintNonFungibleResourceManager, Global: true}),
		ModuleObject: {
			string(TupleKey(fieldTotalSupply).encode()): {Data: supplyEnc},
		},
	})
	if err := r.kernel.PersistNode(id); err != nil {
		return NodeId{}, err
	}
	return id, nil
}

// MintFungible increases a resource manager's total supply and returns a
// heap Bucket node holding the minted amount.
func (r *ResourceModule) MintFungible(resource NodeId, amount Decimal) (NodeId, error) {
	if amount.Sign() <= 0 {
		return NodeId{}, applicationErr(KindResourceManagerError, "mint amount must be positive")
	}
	h, err := r.kernel.LockSubstate(resource, ModuleObject, TupleKey(fieldTotalSupply), LockMutable, nil)
	if err != nil {
		return NodeId{}, err
	}
	sv, err := r.kernel.ReadSubstate(h)
	if err != nil {
		return NodeId{}, err
	}
	cur, err := DecodeValue(sv.Data)
	if err != nil {
		return NodeId{}, err
	}
	next := cur.Decimal.Add(amount)
	enc, _ := EncodeValue(DecimalValue(next))
	if err := r.kernel.WriteSubstate(h, SubstateValue{Data: enc}); err != nil {
		return NodeId{}, err
	}
	if err := r.kernel.CloseSubstate(h); err != nil {
		return NodeId{}, err
	}

	bucket := r.newFungibleCarrier(EntityInternalFungibleVault, BlueprintBucket, resource, amount)
	r.sys.EmitEventFor(resource, ResourcePackage, BlueprintFungibleResourceManager, "MintFungibleResourceEvent",
		[]Value{DecimalValue(amount)})
	return bucket, nil
}

// BurnFungibleBucket drops a bucket entirely, decreasing the resource
// manager's total supply by its held amount.
func (r *ResourceModule) BurnFungibleBucket(bucket NodeId) error {
	amount, err := r.amountOf(bucket)
	if err != nil {
		return err
	}
	resource, err := r.resourceAddress(bucket)
	if err != nil {
		return err
	}

	if _, err := r.kernel.DropNode(bucket); err != nil {
		return err
	}

	h, err := r.kernel.LockSubstate(resource, ModuleObject, TupleKey(fieldTotalSupply), LockMutable, nil)
	if err != nil {
		return err
	}
	sv, err := r.kernel.ReadSubstate(h)
	if err != nil {
		return err
	}
	cur, err := DecodeValue(sv.Data)
	if err != nil {
		return err
	}
	if cur.Decimal.LessThan(amount) {
		return applicationErr(KindResourceManagerError, "burn amount exceeds total supply")
	}
	next := cur.Decimal.Sub(amount)
	enc, _ := EncodeValue(DecimalValue(next))
	if err := r.kernel.WriteSubstate(h, SubstateValue{Data: enc}); err != nil {
		return err
	}
	if err := r.kernel.CloseSubstate(h); err != nil {
		return err
	}
	r.sys.EmitEventFor(resource, ResourcePackage, BlueprintFungibleResourceManager, "BurnFungibleResourceEvent",
		[]Value{DecimalValue(amount)})
	return nil
}

// MintNonFungible mints a single id with immutableData, failing if the id
// already exists: every minted non-fungible id is globally unique.
func (r *ResourceModule) MintNonFungible(resource NodeId, id string, immutableData []byte) (NodeId, error) {
	idKey := MapKey([]byte(id))
	if h, err := r.kernel.LockSubstate(resource, ModuleObject, idKey, LockRead, nil); err == nil {
		r.kernel.CloseSubstate(h)
		return NodeId{}, applicationErr(KindResourceManagerError, "non-fungible id %q already exists", id)
	}
	if err := r.kernel.track.Set(SubstateAddr{Node: resource, Module: ModuleObject, Key: idKey}, SubstateValue{Data: immutableData}); err != nil {
		return NodeId{}, err
	}

	supplyH, err := r.kernel.LockSubstate(resource, ModuleObject, TupleKey(fieldTotalSupply), LockMutable, nil)
	if err != nil {
		return NodeId{}, err
	}
	sv, err := r.kernel.ReadSubstate(supplyH)
	if err != nil {
		return NodeId{}, err
	}
	cur, _ := DecodeValue(sv.Data)
	next := cur.Decimal.Add(NewDecimalFromInt64(1))
	enc, _ := EncodeValue(DecimalValue(next))
	if err := r.kernel.WriteSubstate(supplyH, SubstateValue{Data: enc}); err != nil {
		return NodeId{}, err
	}
	if err := r.kernel.CloseSubstate(supplyH); err != nil {
		return NodeId{}, err
	}

	bucket := r.newNonFungibleCarrier(EntityInternalNonFungibleVault, BlueprintBucket, resource, []string{id})
	r.sys.EmitEventFor(resource, ResourcePackage, BlueprintNonFungibleResourceManager, "MintNonFungibleResourceEvent",
		[]Value{StringValue(id)})
	return bucket, nil
}
