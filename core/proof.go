package core

// newProofCarrier builds a heap node shaped like a proof: just the
// resource address it attests possession of. Unlike a bucket, a proof
// carries no amount/id payload — it is evidence of possession, consumed by
// AuthModule.PushProof rather than by a vault deposit.
func (r *ResourceModule) newProofCarrier(resource NodeId) NodeId {
	id := r.kernel.AllocateNodeId(EntityInternalGenericComponent)
	resEnc, _ := EncodeValue(AddressValue(resource))
	r.kernel.CreateNode(id, map[ModuleId]map[string]SubstateValue{
		ModuleTypeInfo: typeInfoModule(TypeInfo{Kind: TypeInfoObject, Blueprint: BlueprintProof}),
		ModuleObject: {
			string(TupleKey(fieldVaultResource).encode()): {Data: resEnc},
		},
	})
	return id
}

// CreateProofFromBucket mints a proof of bucket's resource without
// consuming the bucket.
func (r *ResourceModule) CreateProofFromBucket(bucket NodeId) (NodeId, error) {
	resource, err := r.resourceAddress(bucket)
	if err != nil {
		return NodeId{}, err
	}
	return r.newProofCarrier(resource), nil
}

// CloneProof duplicates a proof, both halves attesting the same resource.
func (r *ResourceModule) CloneProof(proof NodeId) (NodeId, error) {
	resource, err := r.resourceAddress(proof)
	if err != nil {
		return NodeId{}, err
	}
	return r.newProofCarrier(resource), nil
}

// DropProof discards a proof node. Proofs are heap-only and never
// globalized, so this is a plain DropNode.
func (r *ResourceModule) DropProof(proof NodeId) error {
	_, err := r.kernel.DropNode(proof)
	return err
}
