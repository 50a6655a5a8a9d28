package core

import (
	"encoding/hex"
	"fmt"
)

// EntityType is the tag byte that opens every NodeId. The tag is chosen
// when the id is allocated; the kernel's node-creation and globalization
// calls do not check it against the blueprint.
type EntityType uint8

const (
	EntityGlobalPackage EntityType = iota + 1
	EntityGlobalFungibleResource
	EntityGlobalNonFungibleResource
	EntityGlobalConsensusManager
	EntityGlobalValidator
	EntityGlobalAccessController
	EntityGlobalAccount
	EntityGlobalIdentity
	EntityGlobalGenericComponent
	EntityGlobalVirtualSecp256k1Account
	EntityGlobalVirtualEd25519Account
	EntityGlobalVirtualSecp256k1Identity
	EntityGlobalVirtualEd25519Identity

	EntityInternalFungibleVault
	EntityInternalNonFungibleVault
	EntityInternalKeyValueStore
	EntityInternalIndex
	EntityInternalSortedIndex
	EntityInternalGenericComponent
)

// IsGlobal reports whether the tag denotes an externally addressable node.
// Virtual addresses are global: they are reachable by any frame that names
// them, even before their backing substates are materialized.
func (e EntityType) IsGlobal() bool {
	switch e {
	case EntityGlobalPackage, EntityGlobalFungibleResource, EntityGlobalNonFungibleResource,
		EntityGlobalConsensusManager, EntityGlobalValidator, EntityGlobalAccessController,
		EntityGlobalAccount, EntityGlobalIdentity, EntityGlobalGenericComponent,
		EntityGlobalVirtualSecp256k1Account, EntityGlobalVirtualEd25519Account,
		EntityGlobalVirtualSecp256k1Identity, EntityGlobalVirtualEd25519Identity:
		return true
	}
	return false
}

func (e EntityType) IsVirtual() bool {
	switch e {
	case EntityGlobalVirtualSecp256k1Account, EntityGlobalVirtualEd25519Account,
		EntityGlobalVirtualSecp256k1Identity, EntityGlobalVirtualEd25519Identity:
		return true
	}
	return false
}

// NodeId is a 30-byte opaque identifier whose first byte is an EntityType
// tag. Internal nodes (vaults, KV stores, indices) are only reachable
// through an owning global; globals are addressable directly.
type NodeId [30]byte

func (n NodeId) EntityType() EntityType { return EntityType(n[0]) }

func (n NodeId) IsGlobal() bool { return n.EntityType().IsGlobal() }

func (n NodeId) Hex() string { return hex.EncodeToString(n[:]) }

func (n NodeId) String() string { return n.Hex() }

// newNodeId stamps a tag byte onto 29 bytes of entropy/derivation material.
func newNodeId(tag EntityType, body [29]byte) NodeId {
	var id NodeId
	id[0] = byte(tag)
	copy(id[1:], body[:])
	return id
}

func nodeIdFromHex(s string) (NodeId, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return NodeId{}, err
	}
	if len(b) != 30 {
		return NodeId{}, fmt.Errorf("node id must be 30 bytes, got %d", len(b))
	}
	var id NodeId
	copy(id[:], b)
	return id, nil
}
