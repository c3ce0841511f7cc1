package hexbuild

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// DefaultWorkerCount is how many workers Conduct spawns when the caller
// doesn't override it.
const DefaultWorkerCount = 4

// Conductor runs a BuildPlan to completion: it seeds every task with no
// unbuilt dependencies onto a shared workList, spawns Workers workers that
// pull tasks off it, and waits for the list to drain.
type Conductor struct {
	VFS     VFS
	Cache   *Cache
	Workers int
	Logger  hclog.Logger
	NoColor bool
}

// NewConductor returns a Conductor with the spec's default worker count.
func NewConductor(vfs VFS, cache *Cache, logger hclog.Logger) *Conductor {
	return &Conductor{VFS: vfs, Cache: cache, Workers: DefaultWorkerCount, Logger: logger}
}

// Conduct runs plan to completion. It returns the first error any worker
// reports; on success it runs the cache's garbage collector once.
func (c *Conductor) Conduct(plan *BuildPlan) error {
	wl := newWorkList()

	for _, task := range plan.Tasks {
		task.Lock()
		ready := task.ReadyToRun()
		task.Unlock()
		if ready {
			wl.push(task)
		}
	}

	colors := newStatusColors(colorEnabled(c.NoColor))

	var wg sync.WaitGroup
	var firstErrMu sync.Mutex
	var firstErr error

	workers := c.Workers
	if workers <= 0 {
		workers = DefaultWorkerCount
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := c.runWorker(workerID, wl, colors); err != nil {
				firstErrMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				firstErrMu.Unlock()
			}
		}(i)
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	return c.Cache.MaybeGC()
}

// runWorker repeatedly pulls a task off wl, builds it (via the cache or the
// isolated executor), and schedules any dependent task that becomes ready,
// until wl reports there is nothing left to do or a prior worker failed.
func (c *Conductor) runWorker(workerID int, wl *workList, colors statusColors) error {
	executor := NewIsolatedExecutor(workerID, c.VFS)

	for {
		task, ok := wl.pop()
		if !ok {
			return nil
		}

		task.Lock()
		rule := task.Rule
		task.Unlock()

		err := c.buildOne(workerID, rule, executor, colors)

		task.Lock()
		if err == nil {
			task.MarkBuilt()
		}
		usedBy := append([]*Task(nil), task.UsedBy...)
		task.Unlock()

		wl.finishAndSchedule(task, err, usedBy)

		if err != nil {
			c.Logger.Error("build failed", "worker", workerID, "rule", rule.Name, "error", err)
			return err
		}
	}
}

// buildOne builds a single rule: a cache hit restores its outputs without
// running any command; a miss runs the rule in an isolated sandbox and
// inserts the result into the cache.
func (c *Conductor) buildOne(workerID int, rule Rule, executor *IsolatedExecutor, colors statusColors) error {
	start := time.Now()

	hit, err := c.Cache.Retrieve(rule)
	var corrupt *CorruptCacheError
	if errors.As(err, &corrupt) {
		// Retrieve has already deleted the corrupt inputmap; rebuild.
		c.Logger.Info("discarded corrupt cache entry", "worker", workerID, "rule", rule.Name, "error", err)
		hit, err = false, nil
	}
	if err != nil {
		return err
	}
	if hit {
		c.Logger.Info("cache hit", "worker", workerID, "rule", rule.Name,
			"duration", time.Since(start).String())
		fmt.Fprintln(os.Stderr, colors.CacheHit("[worker %d] Retrieved outputs of %s from cache", workerID, rule.Name))
		return nil
	}

	if err := executor.Build(rule, func(line string) {
		c.Logger.Debug(line, "worker", workerID, "rule", rule.Name)
		fmt.Fprintf(os.Stderr, "[worker %d] %s\n", workerID, line)
	}); err != nil {
		fmt.Fprintln(os.Stderr, colors.Fail("[worker %d] %v", workerID, err))
		return err
	}

	if err := c.Cache.Insert(rule); err != nil {
		return err
	}

	c.Logger.Info("built", "worker", workerID, "rule", rule.Name,
		"duration", time.Since(start).String())
	fmt.Fprintln(os.Stderr, colors.Success("[worker %d] Built %s", workerID, rule.Name))

	return nil
}
