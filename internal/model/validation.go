package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CheckResult is the outcome of a single named quality check
type CheckResult struct {
	Name   string
	Passed bool
}

// Checks keeps check results in evaluation order. It encodes as a JSON
// object whose keys appear in that order.
type Checks []CheckResult

// Get returns the result for name and whether the check exists.
func (c Checks) Get(name string) (passed, ok bool) {
	for _, r := range c {
		if r.Name == name {
			return r.Passed, true
		}
	}
	return false, false
}

// CountPassed returns how many checks passed.
func (c Checks) CountPassed() int {
	n := 0
	for _, r := range c {
		if r.Passed {
			n++
		}
	}
	return n
}

func (c Checks) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatBool(r.Passed))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Checks) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("checks: expected JSON object, got %v", tok)
	}

	out := Checks{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("checks: expected string key, got %v", tok)
		}
		var passed bool
		if err := dec.Decode(&passed); err != nil {
			return fmt.Errorf("checks: value for %q: %w", name, err)
		}
		out = append(out, CheckResult{Name: name, Passed: passed})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// ValidationReport is the scored outcome of the deterministic quality gate.
// Score is the passed fraction of Checks and Passed is true only when every check passed.
type ValidationReport struct {
	Passed bool     `json:"passed"`
	Score  float64  `json:"score"`
	Issues []string `json:"issues"`
	Checks Checks   `json:"checks"`
}

// RepairIssue describes one failed check in repair terms
type RepairIssue struct {
	Code             string   `json:"code"`
	Message          string   `json:"message"`
	TargetSectionIDs []string `json:"targetSectionIds"`
	RequiredAction   string   `json:"requiredAction"`
}

// RepairSpec tells the reviser what to change and where
type RepairSpec struct {
	Issues             []RepairIssue `json:"issues"`
	Instructions       []string      `json:"instructions"`
	MustEditSectionIDs []string      `json:"mustEditSectionIds"`
}

// IsEmpty reports whether there is nothing to repair.
func (s *RepairSpec) IsEmpty() bool {
	return len(s.Issues) == 0 && len(s.Instructions) == 0 && len(s.MustEditSectionIDs) == 0
}

// OnlyTargets reports whether the spec targets exactly the given section id.
func (s *RepairSpec) OnlyTargets(id string) bool {
	return len(s.MustEditSectionIDs) == 1 && s.MustEditSectionIDs[0] == id
}
