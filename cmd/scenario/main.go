// Command scenario runs one fixed end-to-end transaction sequence against a
// fresh in-memory substate database and prints its receipts: create an
// account, then create a fungible resource, mint an initial supply, and
// deposit it into that account.
package main

import (
	"fmt"
	"log"

	core "ledgervm/core"
)

func main() {
	db := core.NewMemorySubstateDatabase()
	engine := core.NewEngine(db, core.NewEd25519Verifier())
	engine.SetEpoch(1)

	receipt1, account := runCreateAccount(engine, db, [32]byte{0x01})
	printReceipt("create-account", receipt1)

	receipt2, resource := runCreateAndMintScenario(engine, db, account, [32]byte{0x02})
	printReceipt("create-mint-deposit", receipt2)

	fmt.Printf("account=%s resource=%s\n", account, resource)
}

func printReceipt(label string, r core.Receipt) {
	switch r.Kind {
	case core.ReceiptCommit:
		fmt.Printf("%s: commit success=%v events=%d cost_units=%d\n",
			label, r.Outcome.IsSuccess(), len(r.ApplicationEvents), r.FeeSummary.TotalCostUnitsConsumed)
	case core.ReceiptReject:
		log.Fatalf("%s: rejected: %s: %s", label, r.RejectReason.Kind, r.RejectReason.Message)
	case core.ReceiptAbort:
		log.Fatalf("%s: aborted: %s", label, r.AbortReason)
	}
}

// runCreateAccount executes a one-instruction manifest calling the native
// Account package's "new" function, committing the result into db and
// returning the freshly globalized account's address.
func runCreateAccount(engine *core.Engine, db *core.MemorySubstateDatabase, intentHash [32]byte) (core.Receipt, core.NodeId) {
	instructions := []core.Instruction{
		{Kind: core.InsCallFunction, Package: core.AccountPackage, Blueprint: core.BlueprintAccount, Function: "new"},
	}
	encoded, err := core.EncodeInstructions(instructions)
	if err != nil {
		log.Fatalf("encode create-account manifest: %v", err)
	}

	exec := core.Executable{
		EncodedInstructions: encoded,
		References:          map[core.NodeId]bool{core.AccountPackage: true},
		Blobs:               map[[32]byte][]byte{},
		Context: core.ExecutionContext{
			IntentHash:    intentHash,
			EpochFrom:     0,
			EpochTo:       10,
			CostingParams: core.DefaultCostingParameters(),
		},
	}

	receipt := engine.Execute(exec)
	if receipt.Kind != core.ReceiptCommit {
		return receipt, core.NodeId{}
	}
	db.Apply(receipt.StateUpdates)
	if len(receipt.NewComponentAddresses) == 0 {
		log.Fatalf("create-account: no new component address in receipt")
	}
	return receipt, receipt.NewComponentAddresses[0]
}

// runCreateAndMintScenario executes a manifest that creates a fungible
// resource with an initial supply and deposits the entire minted bucket
// into account, using the ExprEntireWorktop manifest expression so the
// manifest never has to know the freshly allocated resource address ahead
// of encoding.
func runCreateAndMintScenario(engine *core.Engine, db *core.MemorySubstateDatabase, account core.NodeId, intentHash [32]byte) (core.Receipt, core.NodeId) {
	instructions := []core.Instruction{
		{
			Kind:      core.InsCallFunction,
			Package:   core.ResourcePackage,
			Blueprint: core.BlueprintFungibleResourceManager,
			Function:  "create_with_initial_supply",
			Args: []core.Value{
				{Kind: core.VU8, U8: 18},
				core.DecimalValue(core.NewDecimalFromInt64(1000)),
			},
		},
		{
			Kind:      core.InsCallMethod,
			Package:   core.AccountPackage,
			Blueprint: core.BlueprintAccount,
			Method:    "deposit",
			Address:   account,
			Args: []core.Value{
				{Kind: core.VManifestExpression, ExprKind: core.ExprEntireWorktop},
			},
		},
	}
	encoded, err := core.EncodeInstructions(instructions)
	if err != nil {
		log.Fatalf("encode create-mint-deposit manifest: %v", err)
	}

	exec := core.Executable{
		EncodedInstructions: encoded,
		References: map[core.NodeId]bool{
			core.ResourcePackage: true,
			account:              true,
		},
		Blobs: map[[32]byte][]byte{},
		Context: core.ExecutionContext{
			IntentHash:    intentHash,
			EpochFrom:     0,
			EpochTo:       10,
			CostingParams: core.DefaultCostingParameters(),
		},
	}

	receipt := engine.Execute(exec)
	if receipt.Kind != core.ReceiptCommit {
		return receipt, core.NodeId{}
	}
	db.Apply(receipt.StateUpdates)
	if len(receipt.NewResourceAddresses) == 0 {
		log.Fatalf("create-mint-deposit: no new resource address in receipt")
	}
	return receipt, receipt.NewResourceAddresses[0]
}
