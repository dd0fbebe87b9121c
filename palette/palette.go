package palette

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/pdfrecolor/recolor"
)

var (
	ErrInvalidColorFormat = errors.Base("invalid color format, expected #RRGGBB")
	ErrRuleFileNotFound   = errors.Base("rule file not found")
	ErrRuleFileMalformed  = errors.Base("malformed rule file")
)

// Format is a rule file encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatFor picks the format from the file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Record is one rule as written in a rule file.
type Record struct {
	Target      string `json:"target" yaml:"target"`
	Replacement string `json:"replacement" yaml:"replacement"`
}

// fileRecord tells a missing key apart from an empty value.
type fileRecord struct {
	Target      *string `json:"target" yaml:"target"`
	Replacement *string `json:"replacement" yaml:"replacement"`
}

// Rule converts the record into an engine rule.
func (r Record) Rule() (recolor.Rule, error) {
	target, err := ParseHex(r.Target)
	if err != nil {
		return recolor.Rule{}, errors.Errorf("parsing target: %w", err)
	}
	replacement, err := ParseHex(r.Replacement)
	if err != nil {
		return recolor.Rule{}, errors.Errorf("parsing replacement: %w", err)
	}
	return recolor.Rule{Target: target, Replacement: replacement}, nil
}

// ParseHex parses a hex color such as "#eb6f92". Leading '#' characters are
// optional. Each channel is scaled to [0, 1] and rounded to four decimals.
func ParseHex(s string) (recolor.Color, error) {
	hex := strings.TrimLeft(s, "#")
	if len(hex) != 6 {
		return recolor.Color{}, errors.Errorf("%w: %q", ErrInvalidColorFormat, s)
	}

	var ch [3]float64
	for i := range ch {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return recolor.Color{}, errors.Errorf("%w: %q", ErrInvalidColorFormat, s)
		}
		ch[i] = round4(float64(v) / 255.0)
	}
	return recolor.Color{R: ch[0], G: ch[1], B: ch[2]}, nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Parse decodes rule records in the given format and converts them in
// order.
func Parse(data []byte, format Format) (recolor.Rules, error) {
	var raw []fileRecord
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, errors.Errorf("%w: %v", ErrRuleFileMalformed, err)
	}

	records := make([]Record, len(raw))
	for i, r := range raw {
		if r.Target == nil || r.Replacement == nil {
			return nil, errors.Errorf("%w: rule %d needs both target and replacement", ErrRuleFileMalformed, i)
		}
		records[i] = Record{Target: *r.Target, Replacement: *r.Replacement}
	}
	return FromRecords(records)
}

// FromRecords converts records into rules, failing on the first bad one.
func FromRecords(records []Record) (recolor.Rules, error) {
	rules := make(recolor.Rules, 0, len(records))
	for i, rec := range records {
		rule, err := rec.Rule()
		if err != nil {
			return nil, errors.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Load reads and parses the rule file at path.
func Load(path string) (recolor.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Errorf("%w: %s", ErrRuleFileNotFound, path)
		}
		return nil, errors.Errorf("reading rule file: %w", err)
	}
	rules, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, errors.Errorf("loading %s: %w", path, err)
	}
	return rules, nil
}

// Records converts rules back into their hex record form.
func Records(rules recolor.Rules) []Record {
	out := make([]Record, len(rules))
	for i, r := range rules {
		out[i] = Record{Target: r.Target.Hex(), Replacement: r.Replacement.Hex()}
	}
	return out
}

// Defaults returns the built-in rule set: pure red, which reads poorly on
// screen and in print, becomes a dark crimson.
func Defaults() recolor.Rules {
	return recolor.Rules{
		{
			Target:      recolor.Color{R: 1, G: 0, B: 0},
			Replacement: recolor.Color{R: round4(128.0 / 255), G: round4(32.0 / 255), B: round4(32.0 / 255)},
		},
	}
}
