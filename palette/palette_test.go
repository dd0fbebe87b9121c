package palette

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfrecolor/recolor"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want recolor.Color
	}{
		{"#FF0000", recolor.Color{R: 1}},
		{"00ff00", recolor.Color{G: 1}},
		{"#802020", recolor.Color{R: 0.502, G: 0.1255, B: 0.1255}},
		{"#000000", recolor.Color{}},
		{"#010203", recolor.Color{R: 0.0039, G: 0.0078, B: 0.0118}},
		{"##abcdef", recolor.Color{R: 0.6706, G: 0.8039, B: 0.9373}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHexInvalid(t *testing.T) {
	for _, in := range []string{"", "#", "#FFF", "#FF00000", "#GG0000", "#+f0000", "red", "# FF000"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseHex(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidColorFormat)
		})
	}
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFor("colors.json"))
	assert.Equal(t, FormatYAML, FormatFor("colors.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("dir/COLORS.YML"))
	assert.Equal(t, FormatJSON, FormatFor("colors.txt"))
	assert.Equal(t, FormatJSON, FormatFor("colors"))
	assert.Equal(t, "yaml", FormatYAML.String())
}

func TestParseJSON(t *testing.T) {
	data := []byte(`[
		{"target": "#FF0000", "replacement": "#0000FF"},
		{"target": "00FF00", "replacement": "#802020"}
	]`)

	rules, err := Parse(data, FormatJSON)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, recolor.Rule{Target: recolor.Color{R: 1}, Replacement: recolor.Color{B: 1}}, rules[0])
	assert.Equal(t, recolor.Color{G: 1}, rules[1].Target)
	assert.Equal(t, recolor.Color{R: 0.502, G: 0.1255, B: 0.1255}, rules[1].Replacement)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
- target: "#FF0000"
  replacement: "#0000FF"
- target: "00ff00"
  replacement: "802020"
`)

	rules, err := Parse(data, FormatYAML)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, recolor.Color{B: 1}, rules[0].Replacement)
	assert.Equal(t, recolor.Color{G: 1}, rules[1].Target)
}

func TestParseKeepsOrderAndDuplicates(t *testing.T) {
	data := []byte(`[
		{"target": "#FF0000", "replacement": "#0000FF"},
		{"target": "#FF0000", "replacement": "#00FF00"}
	]`)

	rules, err := Parse(data, FormatJSON)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	got, ok := rules.Match(recolor.Color{R: 1})
	require.True(t, ok)
	assert.Equal(t, recolor.Color{B: 1}, got)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		want   error
	}{
		{"bad json", `[{"target": "#FF0000",`, FormatJSON, ErrRuleFileMalformed},
		{"not a list", `{"target": "#FF0000", "replacement": "#0000FF"}`, FormatJSON, ErrRuleFileMalformed},
		{"empty json", ``, FormatJSON, ErrRuleFileMalformed},
		{"missing replacement", `[{"target": "#FF0000"}]`, FormatJSON, ErrRuleFileMalformed},
		{"missing target yaml", "- replacement: '#0000FF'\n", FormatYAML, ErrRuleFileMalformed},
		{"empty target", `[{"target": "", "replacement": "#0000FF"}]`, FormatJSON, ErrInvalidColorFormat},
		{"empty replacement yaml", "- target: '#FF0000'\n  replacement: ''\n", FormatYAML, ErrInvalidColorFormat},
		{"bad yaml", "- target: [\n", FormatYAML, ErrRuleFileMalformed},
		{"bad color", `[{"target": "#FF00", "replacement": "#0000FF"}]`, FormatJSON, ErrInvalidColorFormat},
		{
			"one bad record aborts",
			`[{"target": "#FF0000", "replacement": "#0000FF"}, {"target": "#ZZ0000", "replacement": "#0000FF"}]`,
			FormatJSON, ErrInvalidColorFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := Parse([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, rules)
		})
	}
}

func TestParseEmptyList(t *testing.T) {
	rules, err := Parse([]byte(`[]`), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "colors.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"target": "#FF0000", "replacement": "#0000FF"}]`), 0o644))
	rules, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	yamlPath := filepath.Join(dir, "colors.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- target: '#FF0000'\n  replacement: '#0000FF'\n"), 0o644))
	rules, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrRuleFileNotFound)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`nope`), 0o644))
	_, err = Load(badPath)
	assert.ErrorIs(t, err, ErrRuleFileMalformed)
}

func TestRecordsRoundTrip(t *testing.T) {
	records := []Record{
		{Target: "#FF0000", Replacement: "#802020"},
		{Target: "#12AB34", Replacement: "#000000"},
	}
	rules, err := FromRecords(records)
	require.NoError(t, err)
	assert.Equal(t, records, Records(rules))
}

func TestDefaults(t *testing.T) {
	rules := Defaults()
	require.Len(t, rules, 1)
	assert.Equal(t, "#FF0000", rules[0].Target.Hex())
	assert.Equal(t, "#802020", rules[0].Replacement.Hex())

	want, err := ParseHex("#802020")
	require.NoError(t, err)
	assert.Equal(t, want, rules[0].Replacement)
}

func TestSwatch(t *testing.T) {
	rules := recolor.Rules{
		{Target: recolor.Color{R: 1}, Replacement: recolor.Color{B: 1}},
		{Target: recolor.Color{G: 1}, Replacement: recolor.Color{R: 0.502, G: 0.1255, B: 0.1255}},
	}

	img := Swatch(rules)
	b := img.Bounds()
	assert.Equal(t, swatchWidth, b.Dx())
	assert.Equal(t, swatchPad+2*swatchRow, b.Dy())

	center := swatchBox / 2
	assertRGB(t, color.RGBA{R: 0xff, A: 0xff}, img.At(swatchPad+center, swatchPad+center))
	assertRGB(t, color.RGBA{G: 0xff, A: 0xff}, img.At(swatchPad+center, swatchPad+swatchRow+center))

	replX := swatchPad + swatchBox + swatchPad + swatchLabelW + swatchArrowW + center
	assertRGB(t, color.RGBA{B: 0xff, A: 0xff}, img.At(replX, swatchPad+center))
	assertRGB(t, color.RGBA{R: 0x80, G: 0x20, B: 0x20, A: 0xff}, img.At(replX, swatchPad+swatchRow+center))

	assertRGB(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, img.At(0, 0))
}

func TestSwatchEmpty(t *testing.T) {
	img := Swatch(nil)
	assert.Equal(t, swatchPad, img.Bounds().Dy())
}

func assertRGB(t *testing.T, want color.RGBA, got color.Color) {
	t.Helper()
	assert.Equal(t, want, color.RGBAModel.Convert(got))
}
