package hexbuild

import "testing"

func TestRuleHashChangesWithInputsCommandsAndEnv(t *testing.T) {
	vfs := NewFakeVFS()
	if err := vfs.Write(MustPath("test.txt"), []byte("test")); err != nil {
		t.Fatal(err)
	}
	if err := vfs.Write(MustPath("out/test.txt"), []byte("test")); err != nil {
		t.Fatal(err)
	}

	rule := Rule{
		Name:     "test",
		Outputs:  []string{"out/test.txt"},
		Inputs:   []string{"test.txt"},
		Commands: []string{"cp test.txt out/test.txt"},
	}
	env := map[string]string{"ENV1": "env1", "ENV2": "env2"}

	f := NewFingerprinter(vfs, env)

	base, err := f.RuleHash(rule)
	if err != nil {
		t.Fatal(err)
	}

	// Hashing twice gives the same value.
	again, err := f.RuleHash(rule)
	if err != nil {
		t.Fatal(err)
	}
	if again != base {
		t.Errorf("hashing twice should be stable: %q != %q", again, base)
	}

	hashes := map[string]bool{base: true}

	// Changing the output's bytes does not affect the hash.
	if err := vfs.Write(MustPath("out/test.txt"), []byte("test2")); err != nil {
		t.Fatal(err)
	}
	afterOutputChange, err := f.RuleHash(rule)
	if err != nil {
		t.Fatal(err)
	}
	if afterOutputChange != base {
		t.Error("changing an output file should not affect the rule hash")
	}

	// Changing an input file changes the hash.
	if err := vfs.Write(MustPath("test.txt"), []byte("test2")); err != nil {
		t.Fatal(err)
	}
	afterInputChange, err := f.RuleHash(rule)
	if err != nil {
		t.Fatal(err)
	}
	if hashes[afterInputChange] {
		t.Error("changing an input should change the rule hash")
	}
	hashes[afterInputChange] = true

	// Changing the commands changes the hash.
	changedRule := rule
	changedRule.Commands = []string{"/usr/bin/cp test.txt out/test.txt"}
	afterCommandChange, err := f.RuleHash(changedRule)
	if err != nil {
		t.Fatal(err)
	}
	if hashes[afterCommandChange] {
		t.Error("changing the commands should change the rule hash")
	}
	hashes[afterCommandChange] = true

	// Changing the environment changes the hash.
	changedEnv := map[string]string{"ENV1": "different-env1", "ENV2": "env2"}
	f2 := NewFingerprinter(vfs, changedEnv)
	afterEnvChange, err := f2.RuleHash(rule)
	if err != nil {
		t.Fatal(err)
	}
	if hashes[afterEnvChange] {
		t.Error("changing the environment should change the rule hash")
	}
}

func TestRuleHashIsHexString(t *testing.T) {
	vfs := NewFakeVFS()
	if err := vfs.Write(MustPath("test.txt"), []byte("test")); err != nil {
		t.Fatal(err)
	}

	rule := Rule{Outputs: []string{}, Inputs: []string{"test.txt"}, Commands: []string{"echo hi"}}
	f := NewFingerprinter(vfs, nil)

	hash, err := f.RuleHash(rule)
	if err != nil {
		t.Fatal(err)
	}
	if len(hash) != 64 {
		t.Errorf("expected a 64-char hex digest, got %d chars: %q", len(hash), hash)
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')) {
			t.Errorf("expected upper-case hex digits, got %q", hash)
			break
		}
	}
}

func TestRuleHashMissingInputIsError(t *testing.T) {
	vfs := NewFakeVFS()
	rule := Rule{Inputs: []string{"missing.txt"}}
	f := NewFingerprinter(vfs, nil)

	if _, err := f.RuleHash(rule); err == nil {
		t.Fatal("expected an error hashing a rule whose input does not exist")
	}
}
