// Package value is the JSON value model shared by expected and actual test
// outputs: parsing in strict, literal and raw modes plus structural equality.
//
// Values are nil, bool, json.Number, float64 (non-finite literals only),
// string, []any and map[string]any.
package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"
)

// Mode records which parser accepted an output.
type Mode int

const (
	ModeJSON Mode = iota
	ModeLiteral
	ModeRaw
)

func (m Mode) String() string {
	switch m {
	case ModeJSON:
		return "json"
	case ModeLiteral:
		return "literal"
	default:
		return "raw"
	}
}

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("empty value")

// ParseOutput interprets program output: strict JSON first, then literal
// syntax, then the trimmed text as a string. It never fails.
func ParseOutput(stdout string) (any, Mode) {
	text := strings.TrimSpace(stdout)
	if v, err := ParseJSON([]byte(text)); err == nil {
		return v, ModeJSON
	}
	if v, err := ParseLiteral(text); err == nil {
		return v, ModeLiteral
	}
	return text, ModeRaw
}

// ParseJSON decodes exactly one JSON value, keeping numbers exact.
func ParseJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

// Equal compares two values structurally. Numbers compare by exact value
// across representations, so 2 and 2.0 are equal; a string never equals a
// number.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	}
	if isNumber(a) && isNumber(b) {
		return numbersEqual(a, b)
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case json.Number, float64, float32, int, int64, int32, uint, uint64:
		return true
	}
	return false
}

func numbersEqual(a, b any) bool {
	fa, aSpecial := special(a)
	fb, bSpecial := special(b)
	if aSpecial || bSpecial {
		return aSpecial && bSpecial && fa == fb
	}
	ra, okA := toRat(a)
	rb, okB := toRat(b)
	if !okA || !okB {
		// Exponents beyond big.Rat's range still compare by their text.
		na, isA := a.(json.Number)
		nb, isB := b.(json.Number)
		return isA && isB && normalizeNumber(na) == normalizeNumber(nb)
	}
	return ra.Cmp(rb) == 0
}

func normalizeNumber(n json.Number) string {
	s := strings.ToLower(n.String())
	return strings.Replace(s, "e+", "e", 1)
}

// special reports non-finite floats, which have no exact rational form.
func special(v any) (float64, bool) {
	f, ok := v.(float64)
	if ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return f, true
	}
	return 0, false
}

func toRat(v any) (*big.Rat, bool) {
	r := new(big.Rat)
	switch n := v.(type) {
	case json.Number:
		return r.SetString(n.String())
	case float64:
		return r.SetFloat64(n), true
	case float32:
		return r.SetFloat64(float64(n)), true
	case int:
		return r.SetInt64(int64(n)), true
	case int64:
		return r.SetInt64(n), true
	case int32:
		return r.SetInt64(int64(n)), true
	case uint:
		return r.SetUint64(uint64(n)), true
	case uint64:
		return r.SetUint64(n), true
	}
	return nil, false
}

// Marshal renders a value for diagnostics. Values JSON cannot carry, such
// as NaN, are rendered as their text in a JSON string.
func Marshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprint(v))
	}
	return data
}
