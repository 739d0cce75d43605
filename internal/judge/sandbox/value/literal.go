package value

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseLiteral parses a JSON-or-Python literal: True/False/None, quoted
// strings in either quote style, numbers, lists, tuples, sets and dicts.
// Tuples and sets become lists; non-string dict keys are rendered as text.
func ParseLiteral(s string) (any, error) {
	p := &literalParser{src: s}
	p.skipSpace()
	if p.eof() {
		return nil, ErrEmpty
	}
	v, err := p.parseValue(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected trailing input")
	}
	return v, nil
}

const maxLiteralDepth = 512

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *literalParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("literal at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) parseValue(depth int) (any, error) {
	if depth > maxLiteralDepth {
		return nil, p.errorf("nesting too deep")
	}
	p.skipSpace()
	switch c := p.peek(); {
	case c == '[':
		p.pos++
		return p.parseSequence(']', depth)
	case c == '(':
		p.pos++
		return p.parseSequence(')', depth)
	case c == '{':
		p.pos++
		return p.parseBraces(depth)
	case c == '"' || c == '\'':
		return p.parseString()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseKeyword()
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

func (p *literalParser) parseSequence(closer byte, depth int) (any, error) {
	items := []any{}
	for {
		p.skipSpace()
		if p.peek() == closer {
			p.pos++
			return items, nil
		}
		v, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return items, nil
		default:
			return nil, p.errorf("expected ',' or %q", closer)
		}
	}
}

// parseBraces handles both dicts and sets; the first separator decides.
func (p *literalParser) parseBraces(depth int) (any, error) {
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return map[string]any{}, nil
	}
	first, err := p.parseValue(depth + 1)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != ':' {
		items := []any{first}
		for {
			p.skipSpace()
			switch p.peek() {
			case '}':
				p.pos++
				return items, nil
			case ',':
				p.pos++
				p.skipSpace()
				if p.peek() == '}' {
					continue
				}
				v, err := p.parseValue(depth + 1)
				if err != nil {
					return nil, err
				}
				items = append(items, v)
			default:
				return nil, p.errorf("expected ',' or '}' in set")
			}
		}
	}

	obj := map[string]any{}
	key := first
	for {
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' in dict")
		}
		p.pos++
		v, err := p.parseValue(depth + 1)
		if err != nil {
			return nil, err
		}
		obj[keyString(key)] = v
		p.skipSpace()
		switch p.peek() {
		case '}':
			p.pos++
			return obj, nil
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == '}' {
				p.pos++
				return obj, nil
			}
			if key, err = p.parseValue(depth + 1); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf("expected ',' or '}' in dict")
		}
	}
}

// keyString mirrors how a JSON encoder would render a non-string key.
func keyString(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return string(Marshal(v))
	}
}

func (p *literalParser) parseString() (any, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return nil, p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if err := p.parseEscape(&b); err != nil {
				return nil, err
			}
		case c == '\n':
			return nil, p.errorf("newline in string")
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *literalParser) parseEscape(b *strings.Builder) error {
	if p.eof() {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case '0':
		b.WriteByte(0)
	case '\\', '\'', '"', '/':
		b.WriteByte(c)
	case 'x':
		return p.writeCodePoint(b, 2)
	case 'u':
		return p.writeCodePoint(b, 4)
	case 'U':
		return p.writeCodePoint(b, 8)
	default:
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *literalParser) writeCodePoint(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("short escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("bad escape")
	}
	p.pos += digits
	b.WriteRune(rune(n))
	return nil
}

func (p *literalParser) parseNumber() (any, error) {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if text == "-" || text == "+" {
		if isIdentStart(p.peek()) {
			word := p.readIdent()
			if f, ok := nonFinite(word); ok {
				if text == "-" {
					f = -f
				}
				return f, nil
			}
		}
		return nil, p.errorf("invalid number")
	}
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, p.errorf("invalid number %q", text)
	}
	text = strings.TrimPrefix(text, "+")
	if strings.HasPrefix(text, ".") || strings.HasPrefix(text, "-.") || strings.HasSuffix(text, ".") {
		return json.Number(r.FloatString(precision(text))), nil
	}
	return json.Number(text), nil
}

// precision keeps the digits written after the decimal point.
func precision(text string) int {
	i := strings.IndexByte(text, '.')
	if i < 0 {
		return 0
	}
	n := 0
	for _, c := range text[i+1:] {
		if c < '0' || c > '9' {
			break
		}
		n++
	}
	if n == 0 {
		return 1
	}
	return n
}

func (p *literalParser) parseKeyword() (any, error) {
	word := p.readIdent()
	switch word {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null":
		return nil, nil
	}
	if f, ok := nonFinite(word); ok {
		return f, nil
	}
	return nil, p.errorf("unknown name %q", word)
}

func (p *literalParser) readIdent() string {
	start := p.pos
	for !p.eof() && (isIdentStart(p.src[p.pos]) || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func nonFinite(word string) (float64, bool) {
	switch word {
	case "inf", "Infinity":
		return math.Inf(1), true
	case "nan", "NaN":
		return math.NaN(), true
	}
	return 0, false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
