package core

// Native account blueprint. An account holds one vault per resource
// address, indexed by Map keys in the account's Object module so deposits that land on a
// resource the account has never seen before open a vault lazily,
// wired up the way the reference engine's account component wires its
// own vaults.
const BlueprintAccount = "Account"

// AccountPackage is the well-known package address the native Account
// blueprint is registered and dispatched under, parallel to ResourcePackage.
var AccountPackage = func() NodeId {
	var id NodeId
	id[0] = byte(EntityGlobalPackage)
	id[1] = 0xFE
	return id
}()

const (
	fieldAccountOwnerBadge = 0 // the resource address whose proof authorizes Withdraw
)

// AccountModule implements account creation, deposit, and withdrawal as
// direct kernel/resource-module calls within the transaction processor's
// frame, the same scope simplification resource_manager.go and vault.go
// make: a full implementation would register these as dispatched
// blueprint methods reached through Kernel.Invoke, each pushing its own
// auth-zone barrier. Here WithdrawFungible/WithdrawNonFungible perform the owner-badge
// check itself, immediately before mutating the vault, instead of relying
// on AuthModule.CheckInvocation to have run on a synthetic invoke frame.
type AccountModule struct {
	kernel    *Kernel
	sys       *System
	resources *ResourceModule
}

func NewAccountModule(k *Kernel, sys *System, res *ResourceModule) *AccountModule {
	return &AccountModule{kernel: k, sys: sys, resources: res}
}

// CreateAccount globalizes a fresh account owned by ownerBadge: Withdraw
// requires a proof of ownerBadge in the caller's visible auth zone. The
// account's vault index starts empty; vaults are opened lazily on first
// deposit per resource.
func (a *AccountModule) CreateAccount(ownerBadge NodeId) (NodeId, error) {
	id := a.kernel.AllocateNodeId(EntityGlobalAccount)
	badgeEnc, _ := EncodeValue(AddressValue(ownerBadge))
	a.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoObject, Blueprint: BlueprintAccount, Global: true}),
		ModuleObject: {
			string(TupleKey(fieldAccountOwnerBadge).encode()): {Data: badgeEnc},
		},
	})
	if err := a.kernel.PersistNode(id); err != nil {
		return NodeId{}, err
	}
	a.sys.EmitEventFor(id, AccountPackage, BlueprintAccount, "AccountCreatedEvent", nil)
	return id, nil
}

// vaultIndexKey is the Map key an account's vault for resource is indexed
// under: the resource's own NodeId bytes, so lookups need no additional
// encoding step.
func vaultIndexKey(resource NodeId) []byte { return resource[:] }

// vaultFor returns the NodeId of account's vault for resource, opening an
// empty one and recording it in the account's vault index on first use.
func (a *AccountModule) vaultFor(account, resource NodeId, nonFungible bool) (NodeId, error) {
	h, err := a.kernel.LockSubstate(account, ModuleObject, MapKey(vaultIndexKey(resource)), LockRead, nil)
	if err == nil {
		sv, rerr := a.kernel.ReadSubstate(h)
		if rerr != nil {
			return NodeId{}, rerr
		}
		if cerr := a.kernel.CloseSubstate(h); cerr != nil {
			return NodeId{}, cerr
		}
		v, derr := DecodeValue(sv.Data)
		if derr != nil {
			return NodeId{}, derr
		}
		return v.Own.NodeId, nil
	}

	var vault NodeId
	if nonFungible {
		vault = a.resources.CreateEmptyNonFungibleVault(resource)
	} else {
		vault = a.resources.CreateEmptyFungibleVault(resource)
	}
	if err := a.kernel.PersistNode(vault); err != nil {
		return NodeId{}, err
	}
	enc, err := EncodeValue(OwnValue(vault))
	if err != nil {
		return NodeId{}, err
	}
	if err := a.kernel.track.Set(SubstateAddr{Node: account, Module: ModuleObject, Key: MapKey(vaultIndexKey(resource))}, SubstateValue{Data: enc}); err != nil {
		return NodeId{}, err
	}
	return vault, nil
}

// DepositFungible moves bucket's entire balance into account's vault for
// bucket's resource, opening the vault on first deposit.
// Deposit carries no owner check: anyone may pay into an account.
func (a *AccountModule) DepositFungible(account, bucket NodeId) error {
	resource, err := a.resources.resourceAddress(bucket)
	if err != nil {
		return err
	}
	vault, err := a.vaultFor(account, resource, false)
	if err != nil {
		return err
	}
	return a.resources.VaultPutFungible(vault, bucket)
}

// DepositNonFungible is DepositFungible's non-fungible counterpart.
func (a *AccountModule) DepositNonFungible(account, bucket NodeId) error {
	resource, err := a.resources.resourceAddress(bucket)
	if err != nil {
		return err
	}
	vault, err := a.vaultFor(account, resource, true)
	if err != nil {
		return err
	}
	return a.resources.VaultPutNonFungible(vault, bucket)
}

// requireOwnerProof rejects the call unless proofs carries account's owner
// badge, the check a real Withdraw dispatch would get for free from
// AuthModule barrier enforcement on a Withdraw method-auth role.
func (a *AccountModule) requireOwnerProof(account NodeId, proofs ProofSet) error {
	v, err := a.resources.readField(account, fieldAccountOwnerBadge)
	if err != nil {
		return err
	}
	if !proofs[v.Address] {
		return applicationErr(KindAssertAccessRuleFailed, "withdraw denied: no proof of account owner badge")
	}
	return nil
}

// WithdrawFungible takes amount out of account's vault for resource into a
// fresh bucket, after checking the caller's auth zone carries the
// account's owner badge.
func (a *AccountModule) WithdrawFungible(account, resource NodeId, amount Decimal, proofs ProofSet) (NodeId, error) {
	if err := a.requireOwnerProof(account, proofs); err != nil {
		return NodeId{}, err
	}
	vault, err := a.vaultFor(account, resource, false)
	if err != nil {
		return NodeId{}, err
	}
	return a.resources.VaultTakeFungible(vault, amount)
}

// WithdrawNonFungible is WithdrawFungible's non-fungible counterpart.
func (a *AccountModule) WithdrawNonFungible(account, resource NodeId, ids []string, proofs ProofSet) (NodeId, error) {
	if err := a.requireOwnerProof(account, proofs); err != nil {
		return NodeId{}, err
	}
	vault, err := a.vaultFor(account, resource, true)
	if err != nil {
		return NodeId{}, err
	}
	return a.resources.VaultTakeNonFungible(vault, ids)
}
