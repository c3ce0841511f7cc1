package hexbuild

import (
	"fmt"
	"sort"
)

// BuildPlan is the result of planning a build: one Task per rule reachable
// from the requested targets, wired together by AddDependency, ready for
// the Conductor to execute.
type BuildPlan struct {
	TargetRules []string // rule names the caller asked to build, in request order
	Tasks       map[string]*Task
}

// Plan resolves targets (rule names or output paths) against rs into a
// BuildPlan. Planning fails if a target names an output with no producing
// rule, a target names a rule that doesn't exist, or the dependency graph
// contains a cycle.
func Plan(rs *RuleSet, targets []string) (*BuildPlan, error) {
	p := &planner{
		rs:         rs,
		taskByRule: make(map[string]*Task),
	}
	return p.plan(targets)
}

type planner struct {
	rs         *RuleSet
	taskByRule map[string]*Task
}

func (p *planner) plan(targets []string) (*BuildPlan, error) {
	var targetRules []string
	for _, target := range targets {
		ruleName, err := p.planOneTarget(target, map[string]bool{})
		if err != nil {
			return nil, &PlanningError{Message: err.Error()}
		}
		targetRules = append(targetRules, ruleName)
	}
	return &BuildPlan{TargetRules: targetRules, Tasks: p.taskByRule}, nil
}

// planOneTarget resolves a single target to the name of the rule that
// builds it, recursively planning every rule that target's rule depends
// on through output-valued inputs. targetsInProgress is the set of rule
// names on the current recursion stack, used to detect cycles.
func (p *planner) planOneTarget(target string, targetsInProgress map[string]bool) (string, error) {
	targetPath, err := NewPath(target)
	if err != nil {
		return "", err
	}

	var ruleName string
	if targetPath.IsOutput() {
		rule, ok := p.rs.RuleByOutput(target)
		if !ok {
			return "", fmt.Errorf("No rule exists to build `%s`", target)
		}
		ruleName = rule.Name
	} else {
		ruleName = target
	}

	if targetsInProgress[ruleName] {
		return "", fmt.Errorf("Rule cycle involving rule `%s`", ruleName)
	}

	if _, ok := p.taskByRule[ruleName]; ok {
		// Already planned; nothing more to do.
		return ruleName, nil
	}

	rule, ok := p.rs.RuleByName(ruleName)
	if !ok {
		return "", fmt.Errorf("No rule exists named `%s`", ruleName)
	}

	inProgress := make(map[string]bool, len(targetsInProgress)+1)
	for name := range targetsInProgress {
		inProgress[name] = true
	}
	inProgress[ruleName] = true

	task := NewTask(rule)

	for _, input := range rule.Inputs {
		inputPath, err := NewPath(input)
		if err != nil {
			return "", err
		}
		if !inputPath.IsOutput() {
			continue
		}
		inputRuleName, err := p.planOneTarget(input, inProgress)
		if err != nil {
			return "", err
		}
		AddDependency(task, p.taskByRule[inputRuleName])
	}

	p.taskByRule[ruleName] = task

	return ruleName, nil
}

// Summary renders a BuildPlan as a deterministic, human-readable string of
// each task's dependency edges, used by tests.
func (bp *BuildPlan) Summary() string {
	names := make([]string, 0, len(bp.Tasks))
	for name := range bp.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	var out string
	for _, name := range names {
		task := bp.Tasks[name]
		out += fmt.Sprintf("Task: %s\n", name)
		if deps := taskNames(task.DependsOn); len(deps) > 0 {
			out += fmt.Sprintf("  Depends on tasks: %s\n", joinStrings(deps))
		}
		if users := taskNames(task.UsedBy); len(users) > 0 {
			out += fmt.Sprintf("  Used by tasks: %s\n", joinStrings(users))
		}
	}
	return out
}

func taskNames(tasks []*Task) []string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		t.Lock()
		names[i] = t.Rule.Name
		t.Unlock()
	}
	return names
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
