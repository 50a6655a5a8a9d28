package core

// ExecutionContext carries the per-transaction metadata that gates
// execution before the instruction stream is even decoded: intent hash,
// epoch range, pre-allocated addresses, payload size, signers, the auth
// zone's initial contents, and costing parameters.
type ExecutionContext struct {
	IntentHash            [32]byte
	EpochFrom, EpochTo     uint64 // half-open [from, to)
	PreAllocatedAddresses []NodeId
	PayloadSize           int
	Signers               []SignerProof
	AuthZoneInit          []NodeId // resources the runtime pre-populates into the root auth zone
	CostingParams         CostingParameters
}

// Executable is the input to Engine.Execute.
type Executable struct {
	EncodedInstructions []byte
	References          map[NodeId]bool
	Blobs               map[[32]byte][]byte
	Context             ExecutionContext
}
