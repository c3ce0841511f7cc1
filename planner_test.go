package hexbuild

import "testing"

func rule(name string, outputs, inputs []string) Rule {
	return Rule{Name: name, Outputs: outputs, Inputs: inputs, Commands: []string{"true"}}
}

func TestPlanBasics(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		rule("out/main", []string{"out/main"}, []string{"out/lib.o", "out/main.o"}),
		rule("out/lib.o", []string{"out/lib.o"}, []string{"lib.c"}),
		rule("out/main.o", []string{"out/main.o"}, []string{"main.c"}),
	}}

	plan, err := Plan(rs, []string{"out/main"})
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(plan.Tasks))
	}
	want := "Task: out/lib.o\n" +
		"  Used by tasks: out/main\n" +
		"Task: out/main\n" +
		"  Depends on tasks: out/lib.o, out/main.o\n" +
		"Task: out/main.o\n" +
		"  Used by tasks: out/main\n"
	if got := plan.Summary(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPlanReusesTasks(t *testing.T) {
	// out/a and out/b both depend on out/lib.o; its task must appear once
	// in the plan, not twice.
	rs := &RuleSet{Rules: []Rule{
		rule("out/a", []string{"out/a"}, []string{"out/lib.o"}),
		rule("out/b", []string{"out/b"}, []string{"out/lib.o"}),
		rule("out/lib.o", []string{"out/lib.o"}, []string{"lib.c"}),
	}}

	plan, err := Plan(rs, []string{"out/a", "out/b"})
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Tasks) != 3 {
		t.Fatalf("expected 3 tasks (lib.o shared), got %d", len(plan.Tasks))
	}

	libTask := plan.Tasks["out/lib.o"]
	if len(libTask.UsedBy) != 2 {
		t.Errorf("expected lib.o to be used by 2 tasks, got %d", len(libTask.UsedBy))
	}
}

func TestPlanSkipsTopLevelTasksAlreadyMade(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		rule("out/a", []string{"out/a"}, nil),
		rule("out/b", []string{"out/b"}, nil),
	}}

	// Requesting the same target twice should not duplicate its task.
	plan, err := Plan(rs, []string{"out/a", "out/a", "out/b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(plan.Tasks))
	}
}

func TestPlanRuleWithMultipleOutputs(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		rule("gen", []string{"out/a", "out/b"}, nil),
		rule("out/consumer", []string{"out/consumer"}, []string{"out/a", "out/b"}),
	}}

	plan, err := Plan(rs, []string{"out/consumer"})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("expected 2 tasks (gen produces both outputs once), got %d", len(plan.Tasks))
	}

	genTask, ok := plan.Tasks["gen"]
	if !ok {
		t.Fatal("expected a task for rule `gen`")
	}
	if len(genTask.UsedBy) != 1 {
		t.Errorf("expected gen to be depended on once despite producing two inputs, got %d", len(genTask.UsedBy))
	}
}

func TestPlanNoSuchOutput(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		rule("out/main", []string{"out/main"}, []string{"out/missing.o"}),
	}}

	_, err := Plan(rs, []string{"out/main"})
	if err == nil {
		t.Fatal("expected an error for an input with no producing rule")
	}
	want := "No rule exists to build `out/missing.o`"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestPlanNoSuchRule(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		rule("out/main", []string{"out/main"}, nil),
	}}

	_, err := Plan(rs, []string{"nonexistent"})
	if err == nil {
		t.Fatal("expected an error for a target naming no rule")
	}
	want := "No rule exists named `nonexistent`"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestPlanCycle(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		rule("out/a", []string{"out/a"}, []string{"out/b"}),
		rule("out/b", []string{"out/b"}, []string{"out/a"}),
	}}

	_, err := Plan(rs, []string{"out/a"})
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	want := "Rule cycle involving rule `out/a`"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
