package hexbuild

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Rule is one named build step: a set of outputs it produces, the inputs
// it reads, and the shell commands that produce the outputs from the
// inputs.
type Rule struct {
	Name     string   `json:"name"`
	Outputs  []string `json:"outputs"`
	Inputs   []string `json:"inputs"`
	Commands []string `json:"commands"`
}

// RuleSet is the parsed contents of a Hexfile: the rules making up a build,
// plus the names of environment variables that participate in the build
// fingerprint.
type RuleSet struct {
	Environ []string `json:"environ"`
	Rules   []Rule   `json:"rules"`
}

// ParseRuleSet decodes a Hexfile and validates it.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("could not parse Hexfile: %v", err)}
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks the structural invariants a Hexfile must satisfy:
// every output lives under `out/`, no two rules share a name, and no two
// rules claim the same output.
func (rs *RuleSet) Validate() error {
	seenNames := make(map[string]bool, len(rs.Rules))
	seenOutputs := make(map[string]string, len(rs.Rules))

	for _, rule := range rs.Rules {
		if rule.Name == "" {
			return &ValidationError{Message: "rule has no name"}
		}
		if seenNames[rule.Name] {
			return &ValidationError{Message: fmt.Sprintf("duplicate rule name `%s`", rule.Name)}
		}
		seenNames[rule.Name] = true

		for _, output := range rule.Outputs {
			if _, err := NewPath(output); err != nil {
				return &ValidationError{Message: err.Error()}
			}
			if !(len(output) >= 4 && output[:4] == "out/") {
				return &ValidationError{Message: fmt.Sprintf("Output `%s` is not in `out/`", output)}
			}
			if owner, ok := seenOutputs[output]; ok {
				return &ValidationError{
					Message: fmt.Sprintf("output `%s` is claimed by both rule `%s` and rule `%s`", output, owner, rule.Name),
				}
			}
			seenOutputs[output] = rule.Name
		}

		for _, input := range rule.Inputs {
			if _, err := NewPath(input); err != nil {
				return &ValidationError{Message: err.Error()}
			}
		}
	}

	return nil
}

// RuleByName returns the rule with the given name, if any.
func (rs *RuleSet) RuleByName(name string) (Rule, bool) {
	for _, rule := range rs.Rules {
		if rule.Name == name {
			return rule, true
		}
	}
	return Rule{}, false
}

// RuleByOutput returns the rule that produces the given output path, if any.
func (rs *RuleSet) RuleByOutput(output string) (Rule, bool) {
	for _, rule := range rs.Rules {
		for _, o := range rule.Outputs {
			if o == output {
				return rule, true
			}
		}
	}
	return Rule{}, false
}

// Targets returns every rule name and every output path, sorted and
// deduplicated, for `--list-targets`.
func (rs *RuleSet) Targets() []string {
	seen := make(map[string]bool)
	var targets []string
	for _, rule := range rs.Rules {
		if !seen[rule.Name] {
			seen[rule.Name] = true
			targets = append(targets, rule.Name)
		}
		for _, output := range rule.Outputs {
			if !seen[output] {
				seen[output] = true
				targets = append(targets, output)
			}
		}
	}
	sort.Strings(targets)
	return targets
}
