package core

import (
	"testing"
)

func TestObjectString(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		want string
	}{
		{"null", Null{}, "null"},
		{"true", Bool(true), "true"},
		{"int", Int(-42), "-42"},
		{"real", Real(0.5), "0.5"},
		{"whole real", Real(3), "3"},
		{"literal string", String("a(b)c"), `(a\(b\)c)`},
		{"backslash", String(`x\y`), `(x\\y)`},
		{"binary string", String("\x00\xff"), "<00FF>"},
		{"name", Name("Type"), "/Type"},
		{"name with space", Name("A B"), "/A#20B"},
		{"name with delimiter", Name("a/b"), "/a#2Fb"},
		{"array", Array{Int(1), Name("X"), nil}, "[1 /X null]"},
		{"reference", IndirectRef{Number: 12, Generation: 0}, "12 0 R"},
		{"dict sorted", Dict{"Length": Int(3), "Filter": Name("FlateDecode")}, "<</Filter /FlateDecode/Length 3>>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obj.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObjectTypeString(t *testing.T) {
	tests := []struct {
		typ  ObjectType
		want string
	}{
		{ObjNull, "Null"},
		{ObjDict, "Dict"},
		{ObjIndirect, "IndirectRef"},
		{ObjectType(99), "Unknown"},
		{ObjectType(-1), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("ObjectType(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestDictAccessors(t *testing.T) {
	d := Dict{
		"Type":     Name("Page"),
		"Count":    Int(3),
		"Kids":     Array{IndirectRef{Number: 4}},
		"Res":      Dict{"Font": Null{}},
		"Contents": IndirectRef{Number: 5},
	}

	if n, ok := d.GetName("Type"); !ok || n != "Page" {
		t.Errorf("GetName() = %v, %v", n, ok)
	}
	if i, ok := d.GetInt("Count"); !ok || i != 3 {
		t.Errorf("GetInt() = %v, %v", i, ok)
	}
	if a, ok := d.GetArray("Kids"); !ok || len(a) != 1 {
		t.Errorf("GetArray() = %v, %v", a, ok)
	}
	if _, ok := d.GetDict("Res"); !ok {
		t.Error("GetDict() failed")
	}
	if r, ok := d.GetIndirectRef("Contents"); !ok || r.Number != 5 {
		t.Errorf("GetIndirectRef() = %v, %v", r, ok)
	}
	if _, ok := d.GetInt("Type"); ok {
		t.Error("GetInt() on a name should fail")
	}
	if !d.Has("Kids") || d.Has("Missing") {
		t.Error("Has() returned wrong result")
	}
	if len(d.Keys()) != 5 {
		t.Errorf("Keys() length = %d, want 5", len(d.Keys()))
	}
}

func TestDictClone(t *testing.T) {
	d := Dict{"A": Int(1)}
	c := d.Clone()
	c["B"] = Int(2)
	delete(c, "A")

	if !d.Has("A") || d.Has("B") {
		t.Errorf("Clone() shares storage with original: %v", d)
	}
}

func TestArrayGet(t *testing.T) {
	a := Array{Int(1), Int(2)}
	if a.Get(1) != Int(2) {
		t.Errorf("Get(1) = %v, want 2", a.Get(1))
	}
	if a.Get(2) != nil || a.Get(-1) != nil {
		t.Error("Get() out of range should return nil")
	}
}

func TestStreamString(t *testing.T) {
	s := &Stream{Dict: Dict{"Length": Int(4)}, Data: []byte("q Q\n")}
	want := "<</Length 4>>\nstream\nq Q\n\nendstream"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if s.Type() != ObjStream {
		t.Errorf("Type() = %v, want Stream", s.Type())
	}
}
