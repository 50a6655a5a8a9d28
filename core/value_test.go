package core

import (
	"bytes"
	"testing"
)

func TestValueRoundTrip(t *testing.T) {
	var nodeID NodeId
	nodeID[0] = byte(EntityGlobalAccount)

	cases := []Value{
		BoolValue(true),
		U64Value(42),
		StringValue("hello"),
		BytesValue([]byte{1, 2, 3}),
		DecimalValue(NewDecimalFromInt64(7)),
		OwnValue(nodeID),
		AddressValue(nodeID),
		{Kind: VTuple, Tuple: []Value{U64Value(1), StringValue("x")}},
		{Kind: VEnum, EnumDiscriminant: 2, EnumFields: []Value{BoolValue(false)}},
		{Kind: VArray, Array: []Value{U64Value(1), U64Value(2), U64Value(3)}},
		{Kind: VMap, MapKeys: []Value{StringValue("a")}, MapValues: []Value{U64Value(1)}},
		{Kind: VManifestBucket, ManifestName: "xrd_bucket"},
		{Kind: VManifestExpression, ExprKind: ExprEntireWorktop},
		{Kind: VManifestBlobRef, BlobHash: [32]byte{0xAA}},
	}

	for i, v := range cases {
		enc, err := EncodeValue(v)
		if err != nil {
			t.Fatalf("case %d: encode: %v", i, err)
		}
		if len(enc) == 0 {
			t.Fatalf("case %d: empty encoding", i)
		}
		dec, err := DecodeValue(enc)
		if err != nil {
			t.Fatalf("case %d: decode: %v", i, err)
		}
		reenc, err := EncodeValue(dec)
		if err != nil {
			t.Fatalf("case %d: re-encode: %v", i, err)
		}
		if !bytes.Equal(enc, reenc) {
			t.Fatalf("case %d: round trip mismatch: %x != %x", i, enc, reenc)
		}
	}
}

func TestDecodeValueRejectsUnknownKind(t *testing.T) {
	if _, err := DecodeValue([]byte{0xFF}); err == nil {
		t.Fatal("expected error for unknown value kind")
	}
}

func TestDecodeValueRejectsExcessiveDepth(t *testing.T) {
	// A tuple of length 1 nested deeper than MaxValueDepth.
	var buf []byte
	for i := 0; i < MaxValueDepth+2; i++ {
		buf = append(buf, byte(VTuple))
		buf = appendU32(buf, 1)
	}
	buf = append(buf, byte(VBool), 1)
	if _, err := DecodeValue(buf); err == nil {
		t.Fatal("expected max-depth error")
	}
}

func TestScanOwnedAndReferenced(t *testing.T) {
	var owned, ref NodeId
	owned[0] = byte(EntityInternalFungibleVault)
	ref[0] = byte(EntityGlobalAccount)

	v := Value{Kind: VTuple, Tuple: []Value{OwnValue(owned), AddressValue(ref)}}
	o, r := scanOwnedAndReferenced(v)
	if len(o) != 1 || o[0] != owned {
		t.Fatalf("expected owned %v, got %v", owned, o)
	}
	if len(r) != 1 || r[0] != ref {
		t.Fatalf("expected ref %v, got %v", ref, r)
	}
}
