// Package suite models test suites: named groups of input/output cases that
// keep the order in which they were written.
package suite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TestCase pairs an input with the expected output, both raw JSON. A nil
// Output marks a malformed case; it stays in its group and fails when run.
type TestCase struct {
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
}

// TestGroup is one named, ordered list of cases.
type TestGroup struct {
	Name  string
	Cases []TestCase
}

// Suite is the ordered list of groups of one submission.
type Suite struct {
	Groups []TestGroup
	// Skipped lists groups whose value was not a list of test cases.
	Skipped []string
}

// CaseName is the outcome name of the i-th case of a group.
func CaseName(group string, i int) string {
	return group + "_" + strconv.Itoa(i)
}

// Len is the total number of cases.
func (s Suite) Len() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Cases)
	}
	return n
}

// UnmarshalJSON decodes a JSON object of group name to case list, keeping
// key order. Groups that are not arrays are skipped.
func (s *Suite) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("test suite must be a JSON object")
	}
	out := Suite{Groups: []TestGroup{}}
	seen := map[string]int{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("group %q: %w", name, err)
		}
		cases, ok := decodeCases(raw)
		if !ok {
			out.Skipped = append(out.Skipped, name)
			continue
		}
		// A repeated key keeps its first position and its last value.
		if i, dup := seen[name]; dup {
			out.Groups[i].Cases = cases
			continue
		}
		seen[name] = len(out.Groups)
		out.Groups = append(out.Groups, TestGroup{Name: name, Cases: cases})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON writes the groups back as an ordered JSON object.
func (s Suite) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range s.Groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		cases := g.Cases
		if cases == nil {
			cases = []TestCase{}
		}
		body, err := json.Marshal(cases)
		if err != nil {
			return nil, err
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeCases(raw json.RawMessage) ([]TestCase, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, false
	}
	cases := make([]TestCase, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			cases = append(cases, TestCase{})
			continue
		}
		cases = append(cases, TestCase{Input: fields["input"], Output: fields["output"]})
	}
	return cases, true
}

// Parse decodes a suite from JSON text.
func Parse(data []byte) (Suite, error) {
	var s Suite
	if err := json.Unmarshal(data, &s); err != nil {
		return Suite{}, err
	}
	return s, nil
}
