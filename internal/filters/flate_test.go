package filters

import (
	"bytes"
	"compress/zlib"
	"testing"
)

// zlibCompress compresses data for testing
func zlibCompress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func TestFlateDecode(t *testing.T) {
	content := []byte("BT /F1 12 Tf 1 0 0 rg (Hello) Tj ET")

	tests := []struct {
		name   string
		params Params
	}{
		{"nil params", nil},
		{"predictor 1", Params{"Predictor": 1}},
		{"unrelated params", Params{"Columns": 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlateDecode(zlibCompress(content), tt.params)
			if err != nil {
				t.Fatalf("FlateDecode() error = %v", err)
			}
			if !bytes.Equal(got, content) {
				t.Errorf("FlateDecode() = %q, want %q", got, content)
			}
		})
	}
}

func TestFlateDecodeInvalid(t *testing.T) {
	if _, err := FlateDecode([]byte("not zlib data"), nil); err == nil {
		t.Error("expected error for invalid zlib data")
	}
}

func TestFlateDecodeUnsupportedPredictor(t *testing.T) {
	_, err := FlateDecode(zlibCompress([]byte{1, 2, 3}), Params{"Predictor": 7})
	if err == nil {
		t.Error("expected error for unsupported predictor")
	}
}

func TestFlateEncodeRoundTrip(t *testing.T) {
	content := []byte("q 0.5020 0.1255 0.1255 rg 0 0 100 100 re f Q")

	encoded, err := FlateEncode(content)
	if err != nil {
		t.Fatalf("FlateEncode() error = %v", err)
	}
	if bytes.Equal(encoded, content) {
		t.Fatal("FlateEncode() returned input unchanged")
	}

	decoded, err := FlateDecode(encoded, nil)
	if err != nil {
		t.Fatalf("FlateDecode() error = %v", err)
	}
	if !bytes.Equal(decoded, content) {
		t.Errorf("round trip = %q, want %q", decoded, content)
	}
}

func TestPNGPredictor(t *testing.T) {
	params := Params{"Predictor": 12, "Columns": 3, "Colors": 1}

	tests := []struct {
		name string
		data []byte
		want []byte
	}{
		{
			name: "none",
			data: []byte{0, 1, 2, 3, 0, 4, 5, 6},
			want: []byte{1, 2, 3, 4, 5, 6},
		},
		{
			name: "sub",
			data: []byte{1, 1, 1, 1, 1, 2, 2, 2},
			want: []byte{1, 2, 3, 2, 4, 6},
		},
		{
			name: "up",
			data: []byte{0, 1, 2, 3, 2, 1, 1, 1},
			want: []byte{1, 2, 3, 2, 3, 4},
		},
		{
			name: "average",
			data: []byte{0, 2, 4, 6, 3, 1, 1, 1},
			want: []byte{2, 4, 6, 2, 4, 6},
		},
		{
			name: "paeth",
			data: []byte{0, 1, 2, 3, 4, 0, 0, 0},
			want: []byte{1, 2, 3, 1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlateDecode(zlibCompress(tt.data), params)
			if err != nil {
				t.Fatalf("FlateDecode() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPNGPredictorErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		params Params
	}{
		{"wrong bits per component", []byte{0, 1, 2, 3}, Params{"Predictor": 12, "Columns": 3, "BitsPerComponent": 16}},
		{"wrong row size", []byte{0, 1, 2}, Params{"Predictor": 12, "Columns": 3}},
		{"unknown row filter", []byte{9, 1, 2, 3}, Params{"Predictor": 12, "Columns": 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FlateDecode(zlibCompress(tt.data), tt.params); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTIFFPredictor2(t *testing.T) {
	data := []byte{10, 1, 1, 20, 2, 2}
	got, err := FlateDecode(zlibCompress(data), Params{"Predictor": 2, "Columns": 3, "Colors": 1})
	if err != nil {
		t.Fatalf("FlateDecode() error = %v", err)
	}
	want := []byte{10, 11, 12, 20, 22, 24}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPaeth(t *testing.T) {
	tests := []struct {
		a, b, c, want byte
	}{
		{0, 0, 0, 0},
		{10, 0, 0, 10},
		{0, 10, 0, 10},
		{10, 20, 10, 20},
		{20, 10, 10, 20},
		{5, 5, 10, 5},
	}

	for _, tt := range tests {
		if got := paeth(tt.a, tt.b, tt.c); got != tt.want {
			t.Errorf("paeth(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
		}
	}
}

func TestGetIntParam(t *testing.T) {
	params := Params{"A": 5, "B": int64(6), "C": 7.0, "D": "8"}

	tests := []struct {
		key  string
		want int
	}{
		{"A", 5},
		{"B", 6},
		{"C", 7},
		{"D", 99},
		{"missing", 99},
	}

	for _, tt := range tests {
		if got := getIntParam(params, tt.key, 99); got != tt.want {
			t.Errorf("getIntParam(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}

	if got := getIntParam(nil, "A", 3); got != 3 {
		t.Errorf("getIntParam(nil) = %d, want 3", got)
	}
}
