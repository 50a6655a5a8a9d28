package core

// InstructionKind discriminates the manifest instruction variants the
// transaction processor interprets.
type InstructionKind uint8

const (
	InsTakeFromWorktopAmount InstructionKind = iota
	InsTakeFromWorktopIds
	InsTakeFromWorktopAll
	InsReturnToWorktop
	InsAssertWorktopContainsAmount
	InsAssertWorktopContainsIds
	InsPopFromAuthZone
	InsPushToAuthZone
	InsCreateProofFromAuthZoneAmount
	InsCreateProofFromAuthZoneIds
	InsCreateProofFromAuthZoneAll
	InsCreateProofFromBucket
	InsCloneProof
	InsDropProof
	InsDropAllProofs
	InsCallFunction
	InsCallMethod
	InsAllocateGlobalAddress
	InsPublishPackage
	InsDropAuthZoneProofs
	InsDropAuthZoneSignatureProofs
	InsDropAuthZoneRegularProofs
)

// Instruction is one manifest step. Exactly the fields relevant to Kind
// are populated, mirroring Value's single-struct-multiple-variants shape.
// Call arguments are plain encoded Values — a manifest placeholder
// (ManifestBucket(name), ManifestProof(name), ManifestExpression, ...) is
// just a Value of the matching VManifest* kind, resolved against the
// processor's named-binding tables at substitution time rather than
// carried in a parallel argument type: the encoded value format already
// gives these placeholders their own ValueKind.
type Instruction struct {
	Kind InstructionKind

	Resource NodeId
	Amount   Decimal
	Ids      []string
	Name     string // output binding name (bucket_name/proof_name/...), or the bucket/proof this instruction consumes

	Package   NodeId
	Blueprint string
	Function  string
	Method    string
	Address   NodeId
	Args      []Value

	NameRes  string // AllocateGlobalAddress: reservation binding name
	NameAddr string // AllocateGlobalAddress: named-address binding name

	CodeBlob [32]byte
}
