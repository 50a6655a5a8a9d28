package core

// Outcome is the Success/Failure split inside a Commit receipt. Exactly one of
// Returns/Failure is populated.
type Outcome struct {
	Returns []Value
	Failure *RuntimeError
}

func (o Outcome) IsSuccess() bool { return o.Failure == nil }

// EncodedEvent pairs an event's type identifier with its already-encoded
// payload, the shape the receipt carries rather than the live Value tree.
type EncodedEvent struct {
	Identifier EventTypeIdentifier
	Data       []byte
}

// Receipt is the three-way result of Engine.Execute.
// Exactly one of Commit/Reject/Abort is populated; the zero value of the
// other two is meaningless and callers must branch on Kind first.
type ReceiptKind uint8

const (
	ReceiptCommit ReceiptKind = iota
	ReceiptReject
	ReceiptAbort
)

type Receipt struct {
	Kind ReceiptKind

	// Commit fields.
	StateUpdates          StateUpdates
	ApplicationEvents     []EncodedEvent
	NewComponentAddresses []NodeId
	NewResourceAddresses  []NodeId
	NewPackageAddresses   []NodeId
	Outcome               Outcome
	FeeSummary            FeeSummary

	// Reject/Abort fields.
	RejectReason *RejectionReason
	AbortReason  string
}

func commitReceipt(updates StateUpdates, events []EncodedEvent, newComponents, newResources, newPackages []NodeId, outcome Outcome, fees FeeSummary) Receipt {
	return Receipt{
		Kind:                  ReceiptCommit,
		StateUpdates:          updates,
		ApplicationEvents:     events,
		NewComponentAddresses: newComponents,
		NewResourceAddresses:  newResources,
		NewPackageAddresses:   newPackages,
		Outcome:               outcome,
		FeeSummary:            fees,
	}
}

func rejectReceipt(reason *RejectionReason) Receipt {
	return Receipt{Kind: ReceiptReject, RejectReason: reason}
}

// newEntityAddresses partitions a set of freshly allocated NodeIds into the
// three address buckets the receipt reports separately.
func newEntityAddresses(ids []NodeId) (components, resources, packages []NodeId) {
	for _, id := range ids {
		switch id.EntityType() {
		case EntityGlobalFungibleResource, EntityGlobalNonFungibleResource:
			resources = append(resources, id)
		case EntityGlobalPackage:
			packages = append(packages, id)
		default:
			if id.IsGlobal() {
				components = append(components, id)
			}
		}
	}
	return
}
