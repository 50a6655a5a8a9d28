package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// wireInstruction is the RLP-encodable shadow of Instruction. RLP handles
// lists of byte strings and big.Ints natively but has no notion of the
// engine's NodeId/Value/Decimal types, so every field here is reduced to
// bytes/strings/big.Int and Instruction's variable-shaped pieces (Args,
// Ids) go through the engine's own EncodeValue/DecodeValue before being
// wrapped in the outer RLP list.
type wireInstruction struct {
	Kind uint8

	Resource []byte
	Amount   *big.Int
	Ids      [][]byte
	Name     string

	Package   []byte
	Blueprint string
	Function  string
	Method    string
	Address   []byte
	Args      [][]byte

	NameRes  string
	NameAddr string

	CodeBlob []byte
}

func nodeIdBytes(id NodeId) []byte { b := make([]byte, 30); copy(b, id[:]); return b }

func nodeIdFromBytes(b []byte) NodeId {
	var id NodeId
	copy(id[:], b)
	return id
}

// EncodeInstructions serializes a manifest's instruction list as an RLP
// list of per-instruction byte strings, a length-prefixed encoded vector
// of instruction variants, the same length-prefixed-list shape
// RLP gives the transaction log's block records.
func EncodeInstructions(instructions []Instruction) ([]byte, error) {
	wire := make([]wireInstruction, len(instructions))
	for i, ins := range instructions {
		w, err := toWire(ins)
		if err != nil {
			return nil, err
		}
		wire[i] = w
	}
	return rlp.EncodeToBytes(wire)
}

// DecodeInstructions reverses EncodeInstructions. Any malformed byte
// sequence is reported as the RejectionReason the engine surfaces under
// InputDecodeError: an undecodable manifest never reaches the kernel.
func DecodeInstructions(data []byte) ([]Instruction, error) {
	var wire []wireInstruction
	if err := rlp.DecodeBytes(data, &wire); err != nil {
		return nil, newRejection(KindInputDecodeError, "decode instructions: %v", err)
	}
	out := make([]Instruction, len(wire))
	for i, w := range wire {
		ins, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		out[i] = ins
	}
	return out, nil
}

func toWire(ins Instruction) (wireInstruction, error) {
	ids := make([][]byte, len(ins.Ids))
	for i, id := range ins.Ids {
		ids[i] = []byte(id)
	}
	args := make([][]byte, len(ins.Args))
	for i, a := range ins.Args {
		enc, err := EncodeValue(a)
		if err != nil {
			return wireInstruction{}, newRejection(KindInputDecodeError, "encode instruction argument %d: %v", i, err)
		}
		args[i] = enc
	}
	amount := big.NewInt(0)
	if ins.Amount.raw != nil {
		amount = ins.Amount.Raw()
	}
	return wireInstruction{
		Kind:      uint8(ins.Kind),
		Resource:  nodeIdBytes(ins.Resource),
		Amount:    amount,
		Ids:       ids,
		Name:      ins.Name,
		Package:   nodeIdBytes(ins.Package),
		Blueprint: ins.Blueprint,
		Function:  ins.Function,
		Method:    ins.Method,
		Address:   nodeIdBytes(ins.Address),
		Args:      args,
		NameRes:   ins.NameRes,
		NameAddr:  ins.NameAddr,
		CodeBlob:  ins.CodeBlob[:],
	}, nil
}

func fromWire(w wireInstruction) (Instruction, error) {
	ids := make([]string, len(w.Ids))
	for i, id := range w.Ids {
		ids[i] = string(id)
	}
	args := make([]Value, len(w.Args))
	for i, enc := range w.Args {
		v, err := DecodeValue(enc)
		if err != nil {
			return Instruction{}, newRejection(KindInputDecodeError, "decode instruction argument %d: %v", i, err)
		}
		args[i] = v
	}
	var codeBlob [32]byte
	copy(codeBlob[:], w.CodeBlob)
	return Instruction{
		Kind:      InstructionKind(w.Kind),
		Resource:  nodeIdFromBytes(w.Resource),
		Amount:    NewDecimalRaw(w.Amount),
		Ids:       ids,
		Name:      w.Name,
		Package:   nodeIdFromBytes(w.Package),
		Blueprint: w.Blueprint,
		Function:  w.Function,
		Method:    w.Method,
		Address:   nodeIdFromBytes(w.Address),
		Args:      args,
		NameRes:   w.NameRes,
		NameAddr:  w.NameAddr,
		CodeBlob:  codeBlob,
	}, nil
}
