package hexbuild

import "testing"

func TestParseRuleSet(t *testing.T) {
	input := []byte(`{
		"rules": [
		  {
		    "name": "out/lib.o",
		    "outputs": ["out/lib.o"],
		    "inputs": ["lib.c", "lib.h"],
		    "commands": ["gcc -o out/lib.o -c lib.c"]
		  },
		  {
		    "name": "out/main",
		    "outputs": ["out/main"],
		    "inputs": ["out/lib.o", "out/main.o"],
		    "commands": ["gcc -o out/main out/lib.o out/main.o"]
		  },
		  {
		    "name": "out/main.o",
		    "outputs": ["out/main.o"],
		    "inputs": ["lib.h", "main.c"],
		    "commands": ["gcc -o out/main.o -c main.c"]
		  }
		]
	}`)

	rs, err := ParseRuleSet(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rs.Rules))
	}

	rule, ok := rs.RuleByName("out/lib.o")
	if !ok {
		t.Fatal("expected to find rule out/lib.o")
	}
	if len(rule.Inputs) != 2 {
		t.Errorf("expected 2 inputs, got %d", len(rule.Inputs))
	}

	_, ok = rs.RuleByOutput("out/main")
	if !ok {
		t.Fatal("expected to find a rule producing out/main")
	}
}

func TestParseRuleSetRejectsOutputOutsideOutDir(t *testing.T) {
	input := []byte(`{
		"rules": [
		  {
		    "name": "foo",
		    "outputs": ["target/foo"],
		    "inputs": [],
		    "commands": ["touch target/foo"]
		  }
		]
	}`)

	_, err := ParseRuleSet(input)
	if err == nil {
		t.Fatal("expected an error for an output outside out/")
	}
	want := "Output `target/foo` is not in `out/`"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestParseRuleSetRejectsDuplicateOutput(t *testing.T) {
	input := []byte(`{
		"rules": [
		  {"name": "a", "outputs": ["out/x"], "inputs": [], "commands": ["touch out/x"]},
		  {"name": "b", "outputs": ["out/x"], "inputs": [], "commands": ["touch out/x"]}
		]
	}`)

	if _, err := ParseRuleSet(input); err == nil {
		t.Fatal("expected an error for two rules claiming the same output")
	}
}

func TestParseRuleSetRejectsDuplicateName(t *testing.T) {
	input := []byte(`{
		"rules": [
		  {"name": "a", "outputs": ["out/x"], "inputs": [], "commands": []},
		  {"name": "a", "outputs": ["out/y"], "inputs": [], "commands": []}
		]
	}`)

	if _, err := ParseRuleSet(input); err == nil {
		t.Fatal("expected an error for duplicate rule names")
	}
}

func TestTargets(t *testing.T) {
	rs := &RuleSet{
		Rules: []Rule{
			{Name: "foo", Outputs: []string{"out/foo"}},
			{Name: "foo.o", Outputs: []string{"out/foo.o"}},
		},
	}

	got := rs.Targets()
	want := []string{"foo", "foo.o", "out/foo", "out/foo.o"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}
