package core

// Engine is the top-level entry point: it owns the set of previously
// committed intent hashes, the current epoch, and the database every
// transaction's Track opens against, and turns one Executable into exactly
// one Receipt.
type Engine struct {
	db               SubstateDatabase
	verifier         CryptoVerifier
	committedIntents map[[32]byte]bool
	epoch            uint64
}

func NewEngine(db SubstateDatabase, verifier CryptoVerifier) *Engine {
	if verifier == nil {
		verifier = NewEd25519Verifier()
	}
	return &Engine{
		db:               db,
		verifier:         verifier,
		committedIntents: make(map[[32]byte]bool),
	}
}

// SetEpoch advances the engine's notion of the current epoch, the value
// every transaction's epoch_range is validated against.
func (e *Engine) SetEpoch(epoch uint64) { e.epoch = epoch }

func (e *Engine) Epoch() uint64 { return e.epoch }

// Execute runs one transaction to completion, producing exactly one of
// Commit, Reject, or Abort. Rejections never touch the
// database; commits always do, via Track's diff, even on business-logic
// failure, because a repaid system loan already consumed real XRD.
func (e *Engine) Execute(exec Executable) Receipt {
	log := componentLog("engine")

	instructions, err := DecodeInstructions(exec.EncodedInstructions)
	if err != nil {
		metricTxExecuted.WithLabelValues("reject").Inc()
		return rejectReceipt(err.(*RejectionReason))
	}

	if e.committedIntents[exec.Context.IntentHash] {
		metricTxExecuted.WithLabelValues("reject").Inc()
		return rejectReceipt(newRejection(KindIntentHashPreviouslyComm, "intent hash %x already committed", exec.Context.IntentHash))
	}

	if e.epoch < exec.Context.EpochFrom || e.epoch >= exec.Context.EpochTo {
		metricTxExecuted.WithLabelValues("reject").Inc()
		return rejectReceipt(newRejection(KindEpochOutOfRange, "epoch %d outside [%d, %d)", e.epoch, exec.Context.EpochFrom, exec.Context.EpochTo))
	}

	if len(exec.Context.Signers) > 0 {
		if _, err := VerifySigners(e.verifier, exec.Context.IntentHash[:], exec.Context.Signers); err != nil {
			metricTxExecuted.WithLabelValues("reject").Inc()
			return rejectReceipt(err.(*RejectionReason))
		}
	}

	if err := checkDeclaredReferences(instructions, exec.References); err != nil {
		metricTxExecuted.WithLabelValues("reject").Inc()
		return rejectReceipt(err)
	}

	track := NewTrack(e.db)
	ids := newIDAllocator(exec.Context.IntentHash)
	fee := NewFeeReserve(exec.Context.CostingParams)
	auth := NewAuthModule()
	kernel := NewKernel(DefaultKernelConfig(), track, ids, auth, fee)
	sys := NewSystem(kernel)
	res := NewResourceModule(kernel, sys)
	acc := NewAccountModule(kernel, sys, res)
	registerNativeBlueprints(kernel, res, acc)

	preloaded := make([]NodeId, 0, len(exec.References)+len(exec.Context.PreAllocatedAddresses))
	for r := range exec.References {
		preloaded = append(preloaded, r)
	}
	preloaded = append(preloaded, exec.Context.PreAllocatedAddresses...)
	kernel.PushRootFrame(Actor{Blueprint: "TransactionProcessor", Function: "run"}, preloaded)

	for _, r := range exec.Context.AuthZoneInit {
		auth.PushProof(r)
	}

	if err := fee.ChargeExecution(BaseInvocationCost); err != nil {
		log.WithError(err).Warn("base invocation cost exceeded loan and balance at transaction start")
	}

	processor := NewTransactionProcessor(kernel, sys, res, acc, auth, exec.Blobs)
	returns, runErr := processor.Run(instructions)

	if repayErr := fee.RepayAll(); repayErr != nil {
		metricTxExecuted.WithLabelValues("reject").Inc()
		return rejectReceipt(newRejection(KindSuccessButFeeLoanNotRepaid, "%v", repayErr))
	}

	outcome := Outcome{Returns: returns}
	if runErr != nil {
		track.RevertNonForceWrites()
		rt, ok := runErr.(*RuntimeError)
		if !ok {
			rt = applicationErr(KindTransactionProcessorError, "%v", runErr)
		}
		outcome = Outcome{Failure: rt}
	}

	e.committedIntents[exec.Context.IntentHash] = true

	updates := track.Finalize()
	events := sys.Events()
	encodedEvents := make([]EncodedEvent, 0, len(events))
	var newIds []NodeId
	for _, u := range updates.BySubstate {
		if !u.Deleted && u.Module == ModuleTypeInfo && u.Value.TypeInfo != nil && u.Value.TypeInfo.Global {
			newIds = append(newIds, u.Node)
		}
	}
	for _, ev := range events {
		enc, encErr := encodeEventData(ev.Data)
		if encErr != nil {
			continue
		}
		encodedEvents = append(encodedEvents, EncodedEvent{Identifier: ev.Identifier, Data: enc})
	}
	components, resources, packages := newEntityAddresses(dedupeNodeIds(newIds))

	label := "commit_success"
	if !outcome.IsSuccess() {
		label = "commit_failure"
	}
	metricTxExecuted.WithLabelValues(label).Inc()

	return commitReceipt(updates, encodedEvents, components, resources, packages, outcome, fee.Summary())
}

// checkDeclaredReferences enforces that every global node an instruction
// reads as already-existing was named in the transaction's declared
// reference set, rejecting before any state is touched.
func checkDeclaredReferences(instructions []Instruction, refs map[NodeId]bool) *RejectionReason {
	for _, ins := range instructions {
		switch ins.Kind {
		case InsTakeFromWorktopAmount, InsTakeFromWorktopIds, InsTakeFromWorktopAll,
			InsAssertWorktopContainsAmount, InsAssertWorktopContainsIds,
			InsCreateProofFromAuthZoneAmount, InsCreateProofFromAuthZoneIds, InsCreateProofFromAuthZoneAll:
			if ins.Resource != (NodeId{}) && !refs[ins.Resource] {
				return newRejection(KindRejectedInvalidReference, "resource %s not in declared references", ins.Resource)
			}
		case InsCallMethod:
			if ins.Address != (NodeId{}) && !refs[ins.Address] {
				return newRejection(KindRejectedInvalidReference, "address %s not in declared references", ins.Address)
			}
		case InsCallFunction:
			if ins.Package != (NodeId{}) && !refs[ins.Package] {
				return newRejection(KindRejectedInvalidReference, "package %s not in declared references", ins.Package)
			}
		}
	}
	return nil
}

func dedupeNodeIds(ids []NodeId) []NodeId {
	seen := make(map[NodeId]bool, len(ids))
	out := make([]NodeId, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func encodeEventData(data []Value) ([]byte, error) {
	tuple := Value{Kind: VTuple, Tuple: data}
	return EncodeValue(tuple)
}
