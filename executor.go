package hexbuild

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// IsolatedExecutor runs one worker's build commands inside a private
// sandbox directory, `.hex/work/<worker>`, so that a rule which forgets to
// declare an input tends to fail instead of silently succeeding against
// stray files in the main tree.
type IsolatedExecutor struct {
	root Path
	vfs  VFS
}

// NewIsolatedExecutor returns the sandbox manager for the given worker ID.
func NewIsolatedExecutor(workerID int, vfs VFS) *IsolatedExecutor {
	return &IsolatedExecutor{
		root: MustPath(fmt.Sprintf(".hex/work/%d", workerID)),
		vfs:  vfs,
	}
}

// Root returns the sandbox's root path.
func (e *IsolatedExecutor) Root() Path {
	return e.root
}

// Clean removes the sandbox directory entirely, if it exists.
func (e *IsolatedExecutor) Clean() error {
	exists, err := e.vfs.Exists(e.root)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return e.vfs.RemoveAll(e.root)
}

// CreateRoot creates the sandbox root directory.
func (e *IsolatedExecutor) CreateRoot() error {
	return e.vfs.CreateDirAll(e.root)
}

// CopyInputs copies each input, file or directory tree, from the main
// workspace into the sandbox, preserving relative structure. Directory
// inputs are copied concurrently, entry by entry, via errgroup.
func (e *IsolatedExecutor) CopyInputs(inputs []string) error {
	for _, input := range inputs {
		src, err := NewPath(input)
		if err != nil {
			return err
		}
		isFile, err := e.vfs.IsFile(src)
		if err != nil {
			return err
		}
		dst := e.root.Child(src.String())
		if isFile {
			if err := e.vfs.Copy(src, dst); err != nil {
				return err
			}
			continue
		}

		entries, err := e.vfs.TreeWalk(src)
		if err != nil {
			return err
		}
		var g errgroup.Group
		for _, entry := range entries {
			entry := entry
			if entry == src {
				continue
			}
			relative := entry.String()[len(src.String())+1:]
			entryDst := dst.Child(relative)
			g.Go(func() error {
				isEntryFile, err := e.vfs.IsFile(entry)
				if err != nil {
					return err
				}
				if isEntryFile {
					return e.vfs.Copy(entry, entryDst)
				}
				return e.vfs.CreateDirAll(entryDst)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// PrepareOutputDirectories creates the parent directory of each output
// inside the sandbox, so the rule's commands can write to them directly.
func (e *IsolatedExecutor) PrepareOutputDirectories(outputs []string) error {
	for _, output := range outputs {
		dir := filepath.Dir(output)
		if dir == "." || dir == "" {
			continue
		}
		if err := e.vfs.CreateDirAll(e.root.Child(dir)); err != nil {
			return err
		}
	}
	return nil
}

// Run executes rule.Commands inside the sandbox via `$SHELL -c`, stopping
// at the first failing command. The sandbox is left intact for inspection
// on failure.
func (e *IsolatedExecutor) Run(rule Rule, stderr func(line string)) error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "sh"
	}

	for _, command := range rule.Commands {
		if stderr != nil {
			stderr(fmt.Sprintf("Running: %s", command))
		}

		cmd := exec.Command(shell, "-c", command)
		cmd.Dir = e.root.String()
		var outBuf, errBuf bytes.Buffer
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf

		if err := cmd.Run(); err != nil {
			os.Stdout.Write(outBuf.Bytes())
			os.Stderr.Write(errBuf.Bytes())
			return &CommandFailedError{RuleName: rule.Name, Command: command, Err: err}
		}
		os.Stdout.Write(outBuf.Bytes())
		os.Stderr.Write(errBuf.Bytes())
	}
	return nil
}

// CopyOutputs copies each output from the sandbox back to the main
// workspace.
func (e *IsolatedExecutor) CopyOutputs(outputs []string) error {
	for _, output := range outputs {
		dst, err := NewPath(output)
		if err != nil {
			return err
		}
		src := e.root.Child(dst.String())
		if err := e.vfs.Copy(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// Build runs a rule to completion inside this executor's sandbox: clean,
// create, copy inputs in, prepare output directories, run the recipe, copy
// outputs out, then clean again.
func (e *IsolatedExecutor) Build(rule Rule, stderr func(line string)) error {
	if err := e.Clean(); err != nil {
		return err
	}
	if err := e.CreateRoot(); err != nil {
		return err
	}
	if err := e.CopyInputs(rule.Inputs); err != nil {
		return err
	}
	if err := e.PrepareOutputDirectories(rule.Outputs); err != nil {
		return err
	}
	if err := e.Run(rule, stderr); err != nil {
		return err
	}
	if err := e.CopyOutputs(rule.Outputs); err != nil {
		return err
	}
	return e.Clean()
}
