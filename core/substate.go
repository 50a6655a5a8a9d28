package core

import "fmt"

// ModuleId selects which side-module of a node a substate belongs to.
type ModuleId uint8

const (
	ModuleTypeInfo ModuleId = iota
	ModuleObject
	ModuleMetadata
	ModuleRoyalty
	ModuleAccessRules
	ModuleVirtualized
)

// SubstateKeyKind discriminates the three SubstateKey variants.
type SubstateKeyKind uint8

const (
	KeyTuple SubstateKeyKind = iota
	KeyMap
	KeySorted
)

// SubstateKey addresses one substate within (NodeId, ModuleId). Tuple is a
// single field index; Map is an arbitrary-length KV/index key; Sorted
// prefixes the key with a 2-byte priority that orders ascending before the
// key itself.
type SubstateKey struct {
	Kind        SubstateKeyKind
	Field       uint8  // valid when Kind == KeyTuple
	MapKey      []byte // valid when Kind == KeyMap
	SortPrefix  uint16 // valid when Kind == KeySorted
	SortMapKey  []byte // valid when Kind == KeySorted
}

func TupleKey(field uint8) SubstateKey { return SubstateKey{Kind: KeyTuple, Field: field} }
func MapKey(key []byte) SubstateKey    { return SubstateKey{Kind: KeyMap, MapKey: append([]byte(nil), key...)} }
func SortedKey(prefix uint16, key []byte) SubstateKey {
	return SubstateKey{Kind: KeySorted, SortPrefix: prefix, SortMapKey: append([]byte(nil), key...)}
}

// encode produces the canonical db_sort_key bytes: for Sorted keys the
// 2-byte priority prefix orders lexicographically before the key, which
// this byte layout gives for free.
func (k SubstateKey) encode() []byte {
	switch k.Kind {
	case KeyTuple:
		return []byte{byte(KeyTuple), k.Field}
	case KeyMap:
		out := make([]byte, 0, 1+len(k.MapKey))
		out = append(out, byte(KeyMap))
		return append(out, k.MapKey...)
	case KeySorted:
		out := make([]byte, 0, 3+len(k.SortMapKey))
		out = append(out, byte(KeySorted), byte(k.SortPrefix>>8), byte(k.SortPrefix))
		return append(out, k.SortMapKey...)
	default:
		panic("unknown substate key kind")
	}
}

// decodeSubstateKey inverts encode, used when a caller only has the
// encoded form of a key (e.g. iterating a heap node's module map) and
// needs the structured SubstateKey back.
func decodeSubstateKey(b []byte) (SubstateKey, error) {
	if len(b) < 1 {
		return SubstateKey{}, fmt.Errorf("decode substate key: empty")
	}
	switch SubstateKeyKind(b[0]) {
	case KeyTuple:
		if len(b) != 2 {
			return SubstateKey{}, fmt.Errorf("decode substate key: malformed tuple key")
		}
		return TupleKey(b[1]), nil
	case KeyMap:
		return MapKey(b[1:]), nil
	case KeySorted:
		if len(b) < 3 {
			return SubstateKey{}, fmt.Errorf("decode substate key: malformed sorted key")
		}
		prefix := uint16(b[1])<<8 | uint16(b[2])
		return SortedKey(prefix, b[3:]), nil
	default:
		return SubstateKey{}, fmt.Errorf("decode substate key: unknown kind %d", b[0])
	}
}

func (k SubstateKey) String() string {
	switch k.Kind {
	case KeyTuple:
		return fmt.Sprintf("Tuple(%d)", k.Field)
	case KeyMap:
		return fmt.Sprintf("Map(%x)", k.MapKey)
	case KeySorted:
		return fmt.Sprintf("Sorted(%d,%x)", k.SortPrefix, k.SortMapKey)
	}
	return "?"
}

// SubstateAddr is the full (node, module, key) address of a substate.
type SubstateAddr struct {
	Node   NodeId
	Module ModuleId
	Key    SubstateKey
}

func (a SubstateAddr) dbKey() string {
	return string(append(append(a.Node[:], byte(a.Module)), a.Key.encode()...))
}

// Own is a move-only reference to a node. Encountering an Own(x) in a
// substate's value is the sole way ownership of x is recorded in storage;
// acyclicity is enforced by the kernel never allowing the same NodeId to
// be wrapped in two live Own values simultaneously.
type Own struct {
	NodeId NodeId
}

// GlobalAddressRef is a reference (not an ownership transfer) to a global
// node, the other payload `Value` may carry across a call boundary.
type GlobalAddressRef struct {
	NodeId NodeId
}

// SubstateValue is the self-describing payload stored at a SubstateAddr.
// TypeInfo is the mandatory substate every node carries; Data is an
// encoded Value (see value.go) for every other module.
type SubstateValue struct {
	TypeInfo *TypeInfo
	Data     []byte
}

// TypeInfo substate variants.
type TypeInfoKind uint8

const (
	TypeInfoObject TypeInfoKind = iota
	TypeInfoKeyValueStore
	TypeInfoIndex
	TypeInfoSortedIndex
)

type TypeInfo struct {
	Kind           TypeInfoKind
	Blueprint      string // valid for TypeInfoObject
	Global         bool   // valid for TypeInfoObject
	OuterObject    *NodeId
	KVSchema       string // valid for TypeInfoKeyValueStore
}

// encodeSubstateValue/decodeSubstateValue serialize a SubstateValue for
// Track's read-through cache only; it is not the wire format (that
// applies to manifest-level encoded values, not the cache's internal
// bookkeeping).
func encodeSubstateValue(v SubstateValue) ([]byte, error) {
	enc := Value{Kind: VTuple, Tuple: []Value{
		U32Value(uint32(boolByte(v.TypeInfo != nil))),
		BytesValue(v.Data),
	}}
	if v.TypeInfo != nil {
		enc.Tuple = append(enc.Tuple, U32Value(uint32(v.TypeInfo.Kind)), StringValue(v.TypeInfo.Blueprint), BoolValue(v.TypeInfo.Global))
	}
	return EncodeValue(enc)
}

func decodeSubstateValue(data []byte) (SubstateValue, error) {
	v, err := DecodeValue(data)
	if err != nil || v.Kind != VTuple || len(v.Tuple) < 2 {
		return SubstateValue{}, fmt.Errorf("decode cached substate value: malformed")
	}
	out := SubstateValue{Data: v.Tuple[1].Bytes}
	if v.Tuple[0].U32 != 0 && len(v.Tuple) >= 5 {
		out.TypeInfo = &TypeInfo{
			Kind:      TypeInfoKind(v.Tuple[2].U32),
			Blueprint: v.Tuple[3].Str,
			Global:    v.Tuple[4].Bool,
		}
	}
	return out, nil
}
