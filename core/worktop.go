package core

// Worktop holds buckets in transit during manifest execution: the
// processor drops every TakeFromWorktop/ReturnToWorktop result here, and
// nothing may leave a transaction's worktop non-empty except through an
// explicit deposit-batch instruction.
type Worktop struct {
	res     *ResourceModule
	buckets map[NodeId][]NodeId // resource address -> heap bucket NodeIds currently on the worktop
}

func NewWorktop(res *ResourceModule) *Worktop {
	return &Worktop{res: res, buckets: make(map[NodeId][]NodeId)}
}

// Put places bucket on the worktop, merging it into an existing bucket for
// the same resource when one is already present so TakeFromWorktop always
// has at most one bucket per resource to draw from.
func (w *Worktop) Put(bucket NodeId) error {
	resource, err := w.res.resourceAddress(bucket)
	if err != nil {
		return err
	}
	existing := w.buckets[resource]
	if len(existing) == 0 {
		w.buckets[resource] = []NodeId{bucket}
		return nil
	}
	head := existing[0]
	if bucketIsNonFungible(w.res, bucket) {
		if err := w.res.VaultPutNonFungible(head, bucket); err != nil {
			return err
		}
	} else {
		if err := w.res.VaultPutFungible(head, bucket); err != nil {
			return err
		}
	}
	return nil
}

// bucketIsNonFungible distinguishes a fungible from a non-fungible bucket
// by the encoded kind actually stored at the shared field-1 slot (Decimal
// vs. Set), not by which field index is read — both carriers use the same
// slot for their single non-TypeInfo/non-resource field.
func bucketIsNonFungible(res *ResourceModule, bucket NodeId) bool {
	v, err := res.readField(bucket, fieldVaultIds)
	if err != nil {
		return false
	}
	return v.Kind == VSet
}

// TakeAmount withdraws amount of resource from the worktop into a fresh
// bucket.
func (w *Worktop) TakeAmount(resource NodeId, amount Decimal) (NodeId, error) {
	bucket, ok := w.soleBucket(resource)
	if !ok {
		return NodeId{}, applicationErr(KindBucketError, "worktop has no resource %s", resource)
	}
	return w.res.VaultTakeFungible(bucket, amount)
}

// TakeIds withdraws specific non-fungible ids from the worktop.
func (w *Worktop) TakeIds(resource NodeId, ids []string) (NodeId, error) {
	bucket, ok := w.soleBucket(resource)
	if !ok {
		return NodeId{}, applicationErr(KindBucketError, "worktop has no resource %s", resource)
	}
	return w.res.VaultTakeNonFungible(bucket, ids)
}

// TakeAll withdraws the entire worktop balance of resource, leaving the
// worktop's bucket for that resource empty rather than removing its entry.
func (w *Worktop) TakeAll(resource NodeId) (NodeId, error) {
	bucket, ok := w.soleBucket(resource)
	if !ok {
		return NodeId{}, applicationErr(KindBucketError, "worktop has no resource %s", resource)
	}
	if bucketIsNonFungible(w.res, bucket) {
		ids, err := w.res.idsOf(bucket)
		if err != nil {
			return NodeId{}, err
		}
		return w.res.VaultTakeNonFungible(bucket, ids)
	}
	amount, err := w.res.amountOf(bucket)
	if err != nil {
		return NodeId{}, err
	}
	return w.res.VaultTakeFungible(bucket, amount)
}

func (w *Worktop) soleBucket(resource NodeId) (NodeId, bool) {
	bs := w.buckets[resource]
	if len(bs) == 0 {
		return NodeId{}, false
	}
	return bs[0], true
}

// AssertContainsAmount fails the transaction unless the worktop holds at
// least amount of resource.
func (w *Worktop) AssertContainsAmount(resource NodeId, amount Decimal) error {
	bucket, ok := w.soleBucket(resource)
	if !ok {
		return applicationErr(KindBucketError, "worktop assertion failed: no resource %s", resource)
	}
	have, err := w.res.amountOf(bucket)
	if err != nil {
		return err
	}
	if have.LessThan(amount) {
		return applicationErr(KindBucketError, "worktop assertion failed: have %s, want %s", have.String(), amount.String())
	}
	return nil
}

// AssertContainsIds fails unless the worktop holds every id of resource.
func (w *Worktop) AssertContainsIds(resource NodeId, ids []string) error {
	bucket, ok := w.soleBucket(resource)
	if !ok {
		return applicationErr(KindBucketError, "worktop assertion failed: no resource %s", resource)
	}
	have, err := w.res.idsOf(bucket)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(have))
	for _, id := range have {
		present[id] = true
	}
	for _, id := range ids {
		if !present[id] {
			return applicationErr(KindBucketError, "worktop assertion failed: missing id %q", id)
		}
	}
	return nil
}

// IsEmpty reports whether every bucket still on the worktop holds a zero
// balance / empty id set, the condition the processor requires at
// transaction end.
func (w *Worktop) IsEmpty() (bool, error) {
	for _, bs := range w.buckets {
		for _, b := range bs {
			if bucketIsNonFungible(w.res, b) {
				ids, err := w.res.idsOf(b)
				if err != nil {
					return false, err
				}
				if len(ids) > 0 {
					return false, nil
				}
				continue
			}
			amount, err := w.res.amountOf(b)
			if err != nil {
				return false, err
			}
			if !amount.IsZero() {
				return false, nil
			}
		}
	}
	return true, nil
}

// DrainAll removes and returns every non-empty bucket still on the
// worktop, the data a DepositBatch/TryDepositEntireWorktop instruction
// distributes to an account.
func (w *Worktop) DrainAll() ([]NodeId, error) {
	var out []NodeId
	for resource, bs := range w.buckets {
		for _, b := range bs {
			empty, err := w.bucketEmpty(b)
			if err != nil {
				return nil, err
			}
			if !empty {
				out = append(out, b)
			} else {
				if _, err := w.res.kernel.DropNode(b); err != nil {
					return nil, err
				}
			}
		}
		delete(w.buckets, resource)
	}
	return out, nil
}

func (w *Worktop) bucketEmpty(b NodeId) (bool, error) {
	if bucketIsNonFungible(w.res, b) {
		ids, err := w.res.idsOf(b)
		if err != nil {
			return false, err
		}
		return len(ids) == 0, nil
	}
	amount, err := w.res.amountOf(b)
	if err != nil {
		return false, err
	}
	return amount.IsZero(), nil
}
