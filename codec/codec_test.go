package codec

import (
	"errors"
	"math"
	"strings"
	"testing"

	"async-rpc/protocol"
)

func sampleStruct() *Struct {
	inner := &Struct{Fields: []Field{
		{ID: 1, Value: String("inner")},
		{ID: 2, Value: Double(math.NaN())},
	}}
	return &Struct{Name: "Sample", Fields: []Field{
		{ID: 1, Value: Bool(true)},
		{ID: 2, Value: Byte(-3)},
		{ID: 3, Value: I16(-512)},
		{ID: 4, Value: I32(1 << 20)},
		{ID: 5, Value: I64(-1 << 50)},
		{ID: 6, Value: Double(2.5)},
		{ID: 7, Value: String("héllo")},
		{ID: 8, Value: Binary{0xff, 0x00, 0xfe}},
		{ID: 9, Value: inner},
		{ID: 10, Value: &Map{KeyType: protocol.STRING, ValueType: protocol.LIST, Entries: []MapEntry{
			{Key: String("a"), Value: &List{ElemType: protocol.I32, Elems: []Value{I32(1), I32(2)}}},
			{Key: String("b"), Value: &List{ElemType: protocol.I32}},
		}}},
		{ID: 11, Value: &Set{ElemType: protocol.I64, Elems: []Value{I64(7), I64(8)}}},
	}}
}

func TestBinaryCodecRoundTrip(t *testing.T) {
	c := &BinaryCodec{}
	in := sampleStruct()
	data, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out, err := c.Decode(data, protocol.STRUCT)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !Equal(in, out) {
		a, _ := ToJSON(in)
		b, _ := ToJSON(out)
		t.Fatalf("round trip mismatch:\n in=%s\nout=%s", a, b)
	}
	if _, ok := out.(*Struct).Field(8).(Binary); !ok {
		t.Errorf("non-UTF-8 payload should decode as Binary, got %T", out.(*Struct).Field(8))
	}
	if _, ok := out.(*Struct).Field(7).(String); !ok {
		t.Errorf("UTF-8 payload should decode as String, got %T", out.(*Struct).Field(7))
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	c := &BinaryCodec{Config: &protocol.Config{MaxDepth: 1}}
	data, err := c.Encode(&Struct{Fields: []Field{{ID: 1, Value: &Struct{}}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Decode(data, protocol.STRUCT); !errors.Is(err, protocol.ErrDepthLimit) {
		t.Fatalf("expect ErrDepthLimit, got %v", err)
	}

	flat, _ := c.Encode(&Struct{Fields: []Field{{ID: 1, Value: I32(1)}}})
	if _, err := c.Decode(flat, protocol.STRUCT); err != nil {
		t.Fatalf("flat struct at depth 1 failed: %v", err)
	}
}

func TestEncodeRejectsMistypedElement(t *testing.T) {
	c := &BinaryCodec{}
	_, err := c.Encode(&List{ElemType: protocol.I32, Elems: []Value{I32(1), String("x")}})
	if err == nil {
		t.Fatal("expect an error for a STRING element in an I32 list")
	}
}

func TestStructSetAndField(t *testing.T) {
	s := &Struct{}
	s.Set(3, I32(1))
	s.Set(1, String("a"))
	s.Set(3, I32(2))
	if len(s.Fields) != 2 {
		t.Fatalf("expect 2 fields, got %d", len(s.Fields))
	}
	if got := s.Field(3); got != I32(2) {
		t.Fatalf("Field(3) = %v, want 2", got)
	}
	if got := s.Field(9); got != nil {
		t.Fatalf("Field(9) = %v, want nil", got)
	}
}

func TestNilFieldsOmitted(t *testing.T) {
	c := &BinaryCodec{}
	data, err := c.Encode(&Struct{Fields: []Field{{ID: 1, Value: nil}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 1 || data[0] != byte(protocol.STOP) {
		t.Fatalf("encoded % X, want a lone STOP", data)
	}
}

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"string-binary", String("ab"), Binary("ab"), true},
		{"nan", Double(math.NaN()), Double(math.NaN()), true},
		{"different ints", I32(1), I32(2), false},
		{"different types", I32(1), I64(1), false},
		{"nil", nil, nil, true},
		{"nil-value", nil, I32(0), false},
		{"list order", &List{ElemType: protocol.I32, Elems: []Value{I32(1), I32(2)}},
			&List{ElemType: protocol.I32, Elems: []Value{I32(2), I32(1)}}, false},
	}
	for _, tc := range cases {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: Equal = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestToJSON(t *testing.T) {
	v := &Struct{Fields: []Field{
		{ID: 0, Value: I32(5)},
		{ID: 2, Value: Binary{0xff}},
		{ID: 3, Value: &Map{KeyType: protocol.STRING, ValueType: protocol.BOOL, Entries: []MapEntry{
			{Key: String("k"), Value: Bool(true)},
		}}},
	}}
	got, err := ToJSON(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"0":5,"2":"/w==","3":[["k",true]]}`
	if string(got) != want {
		t.Fatalf("ToJSON = %s, want %s", got, want)
	}

	indented, err := ToJSONIndent(v)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(indented), "\n  \"0\": 5") {
		t.Fatalf("ToJSONIndent not indented: %s", indented)
	}
}
