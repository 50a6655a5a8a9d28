package core

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// ValueKind is the discriminant of the self-describing encoded value format.
// Decoders reject any byte that doesn't match a known kind and bound
// recursion so a malicious manifest can't blow the stack.
type ValueKind uint8

const (
	VBool ValueKind = iota
	VU8
	VU32
	VU64
	VI32
	VI64
	VString
	VBytes
	VTuple
	VEnum
	VArray
	VMap
	VSet
	VAddress
	VOwn
	VDecimal
	VNonFungibleLocalId
	VManifestBucket
	VManifestProof
	VManifestAddressReservation
	VManifestNamedAddress
	VManifestExpression
	VManifestBlobRef
)

// MaxValueDepth bounds recursive decode so an adversarial payload cannot
// exhaust the stack.
const MaxValueDepth = 64

// ManifestExpressionKind selects the two manifest expression forms.
type ManifestExpressionKind uint8

const (
	ExprEntireWorktop ManifestExpressionKind = iota
	ExprEntireAuthZone
)

// Value is a node of the self-describing value tree. Exactly one field
// group is populated, selected by Kind; this mirrors SubstateKey's
// single-struct-multiple-variants shape rather than a Go interface, which
// keeps encode/decode table-driven and allocation-light.
type Value struct {
	Kind ValueKind

	Bool   bool
	U8     uint8
	U32    uint32
	U64    uint64
	I32    int32
	I64    int64
	Str    string
	Bytes  []byte

	Tuple []Value
	// Enum: EnumDiscriminant selects the variant, EnumFields is its tuple body.
	EnumDiscriminant uint8
	EnumFields       []Value

	Array []Value
	// Map is stored as parallel slices to keep Value comparable-free and
	// preserve encoded order (decode order = encode order, unlike a Go map).
	MapKeys   []Value
	MapValues []Value
	Set       []Value

	Address NodeId
	Own     Own
	Decimal Decimal

	NonFungibleLocalId string

	ManifestName string // bucket/proof/address-reservation/named-address identifier
	ExprKind     ManifestExpressionKind
	BlobHash     [32]byte
}

func BoolValue(b bool) Value     { return Value{Kind: VBool, Bool: b} }
func U64Value(v uint64) Value    { return Value{Kind: VU64, U64: v} }
func U32Value(v uint32) Value    { return Value{Kind: VU32, U32: v} }
func StringValue(s string) Value { return Value{Kind: VString, Str: s} }
func BytesValue(b []byte) Value  { return Value{Kind: VBytes, Bytes: b} }
func DecimalValue(d Decimal) Value { return Value{Kind: VDecimal, Decimal: d} }
func OwnValue(id NodeId) Value     { return Value{Kind: VOwn, Own: Own{NodeId: id}} }
func AddressValue(id NodeId) Value { return Value{Kind: VAddress, Address: id} }

// EncodeValue serializes v into the self-describing wire format.
func EncodeValue(v Value) ([]byte, error) {
	var buf []byte
	if err := encodeValue(&buf, v, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

func encodeValue(buf *[]byte, v Value, depth int) error {
	if depth > MaxValueDepth {
		return fmt.Errorf("encode: max value depth exceeded")
	}
	*buf = append(*buf, byte(v.Kind))
	switch v.Kind {
	case VBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		*buf = append(*buf, b)
	case VU8:
		*buf = append(*buf, v.U8)
	case VU32:
		*buf = appendU32(*buf, v.U32)
	case VU64:
		*buf = appendU64(*buf, v.U64)
	case VI32:
		*buf = appendU32(*buf, uint32(v.I32))
	case VI64:
		*buf = appendU64(*buf, uint64(v.I64))
	case VString:
		*buf = appendBytes(*buf, []byte(v.Str))
	case VBytes:
		*buf = appendBytes(*buf, v.Bytes)
	case VTuple:
		*buf = appendU32(*buf, uint32(len(v.Tuple)))
		for _, e := range v.Tuple {
			if err := encodeValue(buf, e, depth+1); err != nil {
				return err
			}
		}
	case VEnum:
		*buf = append(*buf, v.EnumDiscriminant)
		*buf = appendU32(*buf, uint32(len(v.EnumFields)))
		for _, e := range v.EnumFields {
			if err := encodeValue(buf, e, depth+1); err != nil {
				return err
			}
		}
	case VArray:
		*buf = appendU32(*buf, uint32(len(v.Array)))
		for _, e := range v.Array {
			if err := encodeValue(buf, e, depth+1); err != nil {
				return err
			}
		}
	case VMap:
		if len(v.MapKeys) != len(v.MapValues) {
			return fmt.Errorf("encode: map key/value length mismatch")
		}
		*buf = appendU32(*buf, uint32(len(v.MapKeys)))
		for i := range v.MapKeys {
			if err := encodeValue(buf, v.MapKeys[i], depth+1); err != nil {
				return err
			}
			if err := encodeValue(buf, v.MapValues[i], depth+1); err != nil {
				return err
			}
		}
	case VSet:
		*buf = appendU32(*buf, uint32(len(v.Set)))
		for _, e := range v.Set {
			if err := encodeValue(buf, e, depth+1); err != nil {
				return err
			}
		}
	case VAddress:
		*buf = append(*buf, v.Address[:]...)
	case VOwn:
		*buf = append(*buf, v.Own.NodeId[:]...)
	case VDecimal:
		raw := v.Decimal.Raw().Bytes()
		neg := v.Decimal.Sign() < 0
		*buf = append(*buf, boolByte(neg))
		*buf = appendBytes(*buf, raw)
	case VNonFungibleLocalId:
		*buf = appendBytes(*buf, []byte(v.NonFungibleLocalId))
	case VManifestBucket, VManifestProof, VManifestAddressReservation, VManifestNamedAddress:
		*buf = appendBytes(*buf, []byte(v.ManifestName))
	case VManifestExpression:
		*buf = append(*buf, byte(v.ExprKind))
	case VManifestBlobRef:
		*buf = append(*buf, v.BlobHash[:]...)
	default:
		return fmt.Errorf("encode: unknown value kind %d", v.Kind)
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = appendU32(buf, uint32(len(b)))
	return append(buf, b...)
}

// DecodeValue parses the wire format produced by EncodeValue, rejecting
// unknown kinds and payloads that exceed MaxValueDepth.
func DecodeValue(data []byte) (Value, error) {
	v, rest, err := decodeValue(data, 0)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, fmt.Errorf("decode: %d trailing bytes", len(rest))
	}
	return v, nil
}

func decodeValue(data []byte, depth int) (Value, []byte, error) {
	if depth > MaxValueDepth {
		return Value{}, nil, fmt.Errorf("decode: max value depth exceeded")
	}
	if len(data) < 1 {
		return Value{}, nil, fmt.Errorf("decode: unexpected end of input")
	}
	kind := ValueKind(data[0])
	data = data[1:]
	switch kind {
	case VBool:
		if len(data) < 1 {
			return Value{}, nil, fmt.Errorf("decode: truncated bool")
		}
		return Value{Kind: VBool, Bool: data[0] != 0}, data[1:], nil
	case VU8:
		if len(data) < 1 {
			return Value{}, nil, fmt.Errorf("decode: truncated u8")
		}
		return Value{Kind: VU8, U8: data[0]}, data[1:], nil
	case VU32, VI32:
		u, rest, err := readU32(data)
		if err != nil {
			return Value{}, nil, err
		}
		if kind == VU32 {
			return Value{Kind: VU32, U32: u}, rest, nil
		}
		return Value{Kind: VI32, I32: int32(u)}, rest, nil
	case VU64, VI64:
		u, rest, err := readU64(data)
		if err != nil {
			return Value{}, nil, err
		}
		if kind == VU64 {
			return Value{Kind: VU64, U64: u}, rest, nil
		}
		return Value{Kind: VI64, I64: int64(u)}, rest, nil
	case VString:
		b, rest, err := readBytes(data)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{Kind: VString, Str: string(b)}, rest, nil
	case VBytes:
		b, rest, err := readBytes(data)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{Kind: VBytes, Bytes: b}, rest, nil
	case VTuple:
		n, rest, err := readU32(data)
		if err != nil {
			return Value{}, nil, err
		}
		items := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			var e Value
			e, rest, err = decodeValue(rest, depth+1)
			if err != nil {
				return Value{}, nil, err
			}
			items = append(items, e)
		}
		return Value{Kind: VTuple, Tuple: items}, rest, nil
	case VEnum:
		if len(data) < 1 {
			return Value{}, nil, fmt.Errorf("decode: truncated enum discriminant")
		}
		disc := data[0]
		n, rest, err := readU32(data[1:])
		if err != nil {
			return Value{}, nil, err
		}
		fields := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			var e Value
			e, rest, err = decodeValue(rest, depth+1)
			if err != nil {
				return Value{}, nil, err
			}
			fields = append(fields, e)
		}
		return Value{Kind: VEnum, EnumDiscriminant: disc, EnumFields: fields}, rest, nil
	case VArray:
		n, rest, err := readU32(data)
		if err != nil {
			return Value{}, nil, err
		}
		items := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			var e Value
			e, rest, err = decodeValue(rest, depth+1)
			if err != nil {
				return Value{}, nil, err
			}
			items = append(items, e)
		}
		return Value{Kind: VArray, Array: items}, rest, nil
	case VMap:
		n, rest, err := readU32(data)
		if err != nil {
			return Value{}, nil, err
		}
		keys := make([]Value, 0, n)
		vals := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			var k, val Value
			k, rest, err = decodeValue(rest, depth+1)
			if err != nil {
				return Value{}, nil, err
			}
			val, rest, err = decodeValue(rest, depth+1)
			if err != nil {
				return Value{}, nil, err
			}
			keys = append(keys, k)
			vals = append(vals, val)
		}
		return Value{Kind: VMap, MapKeys: keys, MapValues: vals}, rest, nil
	case VSet:
		n, rest, err := readU32(data)
		if err != nil {
			return Value{}, nil, err
		}
		items := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			var e Value
			e, rest, err = decodeValue(rest, depth+1)
			if err != nil {
				return Value{}, nil, err
			}
			items = append(items, e)
		}
		return Value{Kind: VSet, Set: items}, rest, nil
	case VAddress:
		if len(data) < 30 {
			return Value{}, nil, fmt.Errorf("decode: truncated address")
		}
		var id NodeId
		copy(id[:], data[:30])
		return Value{Kind: VAddress, Address: id}, data[30:], nil
	case VOwn:
		if len(data) < 30 {
			return Value{}, nil, fmt.Errorf("decode: truncated own")
		}
		var id NodeId
		copy(id[:], data[:30])
		return Value{Kind: VOwn, Own: Own{NodeId: id}}, data[30:], nil
	case VDecimal:
		if len(data) < 1 {
			return Value{}, nil, fmt.Errorf("decode: truncated decimal sign")
		}
		neg := data[0] != 0
		raw, rest, err := readBytes(data[1:])
		if err != nil {
			return Value{}, nil, err
		}
		n := new(big.Int).SetBytes(raw)
		if neg {
			n.Neg(n)
		}
		return Value{Kind: VDecimal, Decimal: NewDecimalRaw(n)}, rest, nil
	case VNonFungibleLocalId:
		b, rest, err := readBytes(data)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{Kind: VNonFungibleLocalId, NonFungibleLocalId: string(b)}, rest, nil
	case VManifestBucket, VManifestProof, VManifestAddressReservation, VManifestNamedAddress:
		b, rest, err := readBytes(data)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{Kind: kind, ManifestName: string(b)}, rest, nil
	case VManifestExpression:
		if len(data) < 1 {
			return Value{}, nil, fmt.Errorf("decode: truncated expression")
		}
		return Value{Kind: VManifestExpression, ExprKind: ManifestExpressionKind(data[0])}, data[1:], nil
	case VManifestBlobRef:
		if len(data) < 32 {
			return Value{}, nil, fmt.Errorf("decode: truncated blob ref")
		}
		var h [32]byte
		copy(h[:], data[:32])
		return Value{Kind: VManifestBlobRef, BlobHash: h}, data[32:], nil
	default:
		return Value{}, nil, fmt.Errorf("decode: unknown value kind %d", kind)
	}
}

func readU32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("decode: truncated u32")
	}
	return binary.BigEndian.Uint32(data[:4]), data[4:], nil
}

func readU64(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("decode: truncated u64")
	}
	return binary.BigEndian.Uint64(data[:8]), data[8:], nil
}

func readBytes(data []byte) ([]byte, []byte, error) {
	n, rest, err := readU32(data)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < uint64(n) {
		return nil, nil, fmt.Errorf("decode: truncated byte string")
	}
	return append([]byte(nil), rest[:n]...), rest[n:], nil
}

// scanOwnedAndReferenced walks v collecting every Own (moved nodes) and
// Address (referenced globals) it contains. The kernel uses this on
// invocation arguments and return values to build the cross-frame message.
func scanOwnedAndReferenced(v Value) (owned []NodeId, refs []NodeId) {
	var walk func(Value)
	walk = func(v Value) {
		switch v.Kind {
		case VOwn:
			owned = append(owned, v.Own.NodeId)
		case VAddress:
			refs = append(refs, v.Address)
		case VTuple:
			for _, e := range v.Tuple {
				walk(e)
			}
		case VEnum:
			for _, e := range v.EnumFields {
				walk(e)
			}
		case VArray:
			for _, e := range v.Array {
				walk(e)
			}
		case VSet:
			for _, e := range v.Set {
				walk(e)
			}
		case VMap:
			for i := range v.MapKeys {
				walk(v.MapKeys[i])
				walk(v.MapValues[i])
			}
		}
	}
	walk(v)
	return owned, refs
}
