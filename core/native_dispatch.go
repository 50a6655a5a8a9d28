package core

// registerNativeBlueprints installs the Kernel.Invoke dispatch entries a
// manifest's CallFunction/CallMethod instructions reach for the resource and
// account blueprints, bridging the plain Go methods resource_manager.go,
// vault.go, and account.go implement directly against the kernel (bypassing
// a dispatch hop for their own internal primitives, per those files' own
// "scope simplification" notes) onto the one dispatch hop a manifest
// instruction always goes through: a table keyed by (package_address,
// blueprint_name, function_name).
func registerNativeBlueprints(k *Kernel, res *ResourceModule, acc *AccountModule) {
	k.Register(ResourcePackage, BlueprintFungibleResourceManager, "create_with_initial_supply",
		func(_ *Kernel, _ Actor, args Value) (Value, error) {
			if len(args.Tuple) != 2 || args.Tuple[0].Kind != VU8 || args.Tuple[1].Kind != VDecimal {
				return Value{}, applicationErr(KindResourceManagerError, "create_with_initial_supply expects (U8, Decimal)")
			}
			resource, err := res.CreateFungibleResourceManager(args.Tuple[0].U8)
			if err != nil {
				return Value{}, err
			}
			bucket, err := res.MintFungible(resource, args.Tuple[1].Decimal)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: VTuple, Tuple: []Value{AddressValue(resource), OwnValue(bucket)}}, nil
		})

	k.Register(ResourcePackage, BlueprintFungibleResourceManager, "mint",
		func(_ *Kernel, actor Actor, args Value) (Value, error) {
			if len(args.Tuple) != 1 || args.Tuple[0].Kind != VDecimal {
				return Value{}, applicationErr(KindResourceManagerError, "mint expects a single Decimal argument")
			}
			bucket, err := res.MintFungible(*actor.Receiver, args.Tuple[0].Decimal)
			if err != nil {
				return Value{}, err
			}
			return OwnValue(bucket), nil
		})

	k.Register(ResourcePackage, BlueprintFungibleVault, "recall",
		func(_ *Kernel, actor Actor, args Value) (Value, error) {
			if len(args.Tuple) != 1 || args.Tuple[0].Kind != VDecimal {
				return Value{}, applicationErr(KindResourceManagerError, "recall expects a single Decimal argument")
			}
			bucket, err := res.VaultRecallFungible(*actor.Receiver, args.Tuple[0].Decimal)
			if err != nil {
				return Value{}, err
			}
			return OwnValue(bucket), nil
		})

	k.Register(AccountPackage, BlueprintAccount, "new",
		func(k *Kernel, _ Actor, args Value) (Value, error) {
			badge := k.AllocateNodeId(EntityGlobalFungibleResource)
			if len(args.Tuple) == 1 && args.Tuple[0].Kind == VAddress {
				badge = args.Tuple[0].Address
			}
			id, err := acc.CreateAccount(badge)
			if err != nil {
				return Value{}, err
			}
			return AddressValue(id), nil
		})

	k.Register(AccountPackage, BlueprintAccount, "deposit",
		func(_ *Kernel, actor Actor, args Value) (Value, error) {
			if len(args.Tuple) != 1 {
				return Value{}, applicationErr(KindTransactionProcessorError, "deposit expects a single Bucket (or Bucket array) argument")
			}
			buckets := args.Tuple[0].Array
			if args.Tuple[0].Kind == VOwn {
				buckets = []Value{args.Tuple[0]}
			} else if args.Tuple[0].Kind != VArray {
				return Value{}, applicationErr(KindTransactionProcessorError, "deposit expects a single Bucket (or Bucket array) argument")
			}
			for _, b := range buckets {
				if b.Kind != VOwn {
					return Value{}, applicationErr(KindTransactionProcessorError, "deposit: non-Bucket element in batch")
				}
				bucket := b.Own.NodeId
				if bucketIsNonFungible(res, bucket) {
					if err := acc.DepositNonFungible(*actor.Receiver, bucket); err != nil {
						return Value{}, err
					}
					continue
				}
				if err := acc.DepositFungible(*actor.Receiver, bucket); err != nil {
					return Value{}, err
				}
			}
			return Value{}, nil
		})

	k.Register(AccountPackage, BlueprintAccount, "withdraw",
		func(_ *Kernel, actor Actor, args Value) (Value, error) {
			if len(args.Tuple) != 2 || args.Tuple[0].Kind != VAddress || args.Tuple[1].Kind != VDecimal {
				return Value{}, applicationErr(KindTransactionProcessorError, "withdraw expects (Address, Decimal)")
			}
			bucket, err := acc.WithdrawFungible(*actor.Receiver, args.Tuple[0].Address, args.Tuple[1].Decimal, k.auth.visibleProofs())
			if err != nil {
				return Value{}, err
			}
			return OwnValue(bucket), nil
		})
}
