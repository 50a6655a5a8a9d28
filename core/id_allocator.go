package core

import (
	"crypto/sha256"
	"encoding/binary"
)

// idAllocator draws NodeIds from a deterministic sequence seeded by the
// transaction's intent hash. Determinism here is what makes replay produce
// byte-identical receipts: two nodes run against the same pre-image store
// and the same transaction allocate identical addresses in identical order.
type idAllocator struct {
	seed    [32]byte
	counter uint64
}

func newIDAllocator(intentHash [32]byte) *idAllocator {
	return &idAllocator{seed: intentHash}
}

// Allocate mints the next NodeId for the given entity type.
func (a *idAllocator) Allocate(tag EntityType) NodeId {
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], a.counter)
	a.counter++

	h := sha256.New()
	h.Write(a.seed[:])
	h.Write(counterBytes[:])
	sum := h.Sum(nil)

	var body [29]byte
	copy(body[:], sum[:29])
	return newNodeId(tag, body)
}

// virtualAccountID derives the well-known virtual NodeId for a public key,
// so that a never-before-seen account address still resolves to a stable
// id the first time it is touched.
func virtualAccountID(isEd25519 bool, pubKeyHash [29]byte) NodeId {
	tag := EntityGlobalVirtualSecp256k1Account
	if isEd25519 {
		tag = EntityGlobalVirtualEd25519Account
	}
	return newNodeId(tag, pubKeyHash)
}

func virtualIdentityID(isEd25519 bool, pubKeyHash [29]byte) NodeId {
	tag := EntityGlobalVirtualSecp256k1Identity
	if isEd25519 {
		tag = EntityGlobalVirtualEd25519Identity
	}
	return newNodeId(tag, pubKeyHash)
}
