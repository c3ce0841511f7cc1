package hexbuild

import (
	"sort"
	"sync"
)

// Task is a single scheduler node: the rule it builds, the tasks it
// depends on, the tasks that depend on it, and how many of its
// dependencies are still unbuilt. Every field is guarded by mu; callers
// must never read or write a Task's fields without holding its lock.
type Task struct {
	mu sync.Mutex

	Rule       Rule
	DependsOn  []*Task
	UsedBy     []*Task
	unbuiltDeps int
	built       bool
}

// NewTask creates a task for the given rule with no dependencies yet.
func NewTask(rule Rule) *Task {
	return &Task{Rule: rule}
}

// AddDependency records that `from` depends on `to`, updating both tasks'
// dependency lists. It is a no-op if the dependency is already recorded.
func AddDependency(from, to *Task) {
	to.mu.Lock()
	toName := to.Rule.Name
	to.mu.Unlock()

	from.mu.Lock()
	defer from.mu.Unlock()
	for _, dep := range from.DependsOn {
		dep.mu.Lock()
		same := dep.Rule.Name == toName
		dep.mu.Unlock()
		if same {
			return
		}
	}
	from.DependsOn = append(from.DependsOn, to)
	from.unbuiltDeps++

	to.mu.Lock()
	to.UsedBy = append(to.UsedBy, from)
	to.mu.Unlock()
}

// ReadyToRun reports whether every dependency has finished building and
// this task itself has not yet been built. Must be called with the task's
// lock held.
func (t *Task) ReadyToRun() bool {
	return t.unbuiltDeps == 0 && !t.built
}

// DependencyFinished records that one dependency completed, returning the
// number of dependencies still outstanding. Must be called with the task's
// lock held.
func (t *Task) DependencyFinished() int {
	if t.unbuiltDeps == 0 {
		panic("DependencyFinished called with no unbuilt dependencies")
	}
	t.unbuiltDeps--
	return t.unbuiltDeps
}

// MarkBuilt records that this task finished building. Must be called with
// the task's lock held.
func (t *Task) MarkBuilt() {
	if t.built {
		panic("MarkBuilt called twice for the same task")
	}
	t.built = true
}

// Lock and Unlock expose the task's mutex to callers (the Conductor) that
// need to hold it across several field accesses.
func (t *Task) Lock()   { t.mu.Lock() }
func (t *Task) Unlock() { t.mu.Unlock() }

// workList is the set of tasks the Conductor has in flight, shared among
// the conductor goroutine and every worker goroutine behind a single mutex
// and condition variable.
type workList struct {
	mu   sync.Mutex
	cond *sync.Cond

	pending []*Task         // ready to run, LIFO
	running map[string]bool // rule names currently executing
	failed  bool
}

func newWorkList() *workList {
	wl := &workList{running: make(map[string]bool)}
	wl.cond = sync.NewCond(&wl.mu)
	return wl
}

// push adds a task that has become ready to run.
func (wl *workList) push(t *Task) {
	wl.mu.Lock()
	wl.pending = append(wl.pending, t)
	wl.cond.Broadcast()
	wl.mu.Unlock()
}

// pop blocks until a task is available, the build has failed, or there is
// nothing left pending or running, in which case it returns (nil, false).
func (wl *workList) pop() (*Task, bool) {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	for {
		if wl.failed {
			return nil, false
		}
		if len(wl.pending) == 0 && len(wl.running) == 0 {
			return nil, false
		}
		if len(wl.pending) > 0 {
			last := len(wl.pending) - 1
			t := wl.pending[last]
			wl.pending = wl.pending[:last]

			t.mu.Lock()
			name := t.Rule.Name
			t.mu.Unlock()
			wl.running[name] = true

			return t, true
		}
		wl.cond.Wait()
	}
}

// finishAndSchedule removes t from the running set and, on success, walks
// dependents (the tasks that depended on t, i.e. t.UsedBy) decrementing each
// one's unbuilt-dependency count and pushing any that become ready — all
// under a single acquisition of wl.mu. Folding "remove from running" and
// "push newly-ready dependents" into one critical section matters: if a
// caller instead called a separate finish() and then separate push() calls,
// another worker blocked in pop() could observe pending == 0 && running == 0
// in the gap between them and exit the scheduler loop before the
// just-unblocked dependents are ever scheduled. On failure it marks the
// whole build failed and clears pending work instead.
func (wl *workList) finishAndSchedule(t *Task, err error, dependents []*Task) {
	t.mu.Lock()
	name := t.Rule.Name
	t.mu.Unlock()

	wl.mu.Lock()
	defer wl.mu.Unlock()

	delete(wl.running, name)

	if err != nil {
		wl.failed = true
		wl.pending = nil
		wl.cond.Broadcast()
		return
	}

	for _, dep := range dependents {
		dep.mu.Lock()
		remaining := dep.DependencyFinished()
		dep.mu.Unlock()
		if remaining == 0 {
			wl.pending = append(wl.pending, dep)
		}
	}
	wl.cond.Broadcast()
}

// runningNames returns a sorted snapshot of currently running rule names,
// used for diagnostics.
func (wl *workList) runningNames() []string {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	names := make([]string, 0, len(wl.running))
	for name := range wl.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
