package hexbuild

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// FakeVFS is an in-memory VFS used by tests. Unlike RealVFS it tracks
// modification times with a monotonic logical clock instead of wall-clock
// time, so that GC eviction-order tests are deterministic: every Write
// ticks the clock forward by one, and Modtime reports that tick.
type FakeVFS struct {
	fs afero.Fs

	mu      sync.Mutex
	clock   int64
	modtime map[string]int64
}

// NewFakeVFS constructs an empty in-memory VFS.
func NewFakeVFS() *FakeVFS {
	return &FakeVFS{
		fs:      afero.NewMemMapFs(),
		modtime: make(map[string]int64),
	}
}

func (v *FakeVFS) tick(path string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := v.clock
	v.clock++
	v.modtime[path] = t
	return t
}

func (v *FakeVFS) Copy(source, destination Path) error {
	contents, err := afero.ReadFile(v.fs, source.String())
	if err != nil {
		return err
	}
	return v.Write(destination, contents)
}

func (v *FakeVFS) CreateDirAll(path Path) error {
	return v.fs.MkdirAll(path.String(), 0o755)
}

func (v *FakeVFS) Exists(path Path) (bool, error) {
	return afero.Exists(v.fs, path.String())
}

func (v *FakeVFS) FileSize(path Path) (int64, error) {
	info, err := v.fs.Stat(path.String())
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (v *FakeVFS) IsFile(path Path) (bool, error) {
	exists, err := afero.Exists(v.fs, path.String())
	if err != nil || !exists {
		return false, err
	}
	info, err := v.fs.Stat(path.String())
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (v *FakeVFS) ListDir(path Path) ([]Path, error) {
	entries, err := afero.ReadDir(v.fs, path.String())
	if err != nil {
		return nil, err
	}
	result := make([]Path, 0, len(entries))
	for _, entry := range entries {
		result = append(result, path.Child(entry.Name()))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

func (v *FakeVFS) Modtime(path Path) (int64, error) {
	exists, err := afero.Exists(v.fs, path.String())
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("file not found: %s", path)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.modtime[path.String()], nil
}

func (v *FakeVFS) Read(path Path) ([]byte, error) {
	return afero.ReadFile(v.fs, path.String())
}

func (v *FakeVFS) RemoveAll(path Path) error {
	prefix := path.String()
	v.mu.Lock()
	for tracked := range v.modtime {
		if tracked == prefix || len(tracked) > len(prefix) && tracked[:len(prefix)+1] == prefix+"/" {
			delete(v.modtime, tracked)
		}
	}
	v.mu.Unlock()
	return v.fs.RemoveAll(prefix)
}

func (v *FakeVFS) RemoveFile(path Path) error {
	v.mu.Lock()
	delete(v.modtime, path.String())
	v.mu.Unlock()
	return v.fs.Remove(path.String())
}

func (v *FakeVFS) Rename(oldPath, newPath Path) error {
	if err := v.fs.MkdirAll(filepath.Dir(newPath.String()), 0o755); err != nil {
		return err
	}
	if err := v.fs.Rename(oldPath.String(), newPath.String()); err != nil {
		return err
	}
	v.mu.Lock()
	v.modtime[newPath.String()] = v.modtime[oldPath.String()]
	delete(v.modtime, oldPath.String())
	v.mu.Unlock()
	return nil
}

// TreeWalk lists path and everything beneath it. FakeVFS has no concept of
// .gitignore; tests that need ignore behavior exercise RealVFS instead.
func (v *FakeVFS) TreeWalk(path Path) ([]Path, error) {
	isFile, err := v.IsFile(path)
	if err != nil {
		return nil, err
	}
	if isFile {
		return []Path{path}, nil
	}

	var result []Path
	err = afero.Walk(v.fs, path.String(), func(walked string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		p, perr := NewPath(walked)
		if perr != nil {
			return perr
		}
		result = append(result, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

func (v *FakeVFS) Write(path Path, contents []byte) error {
	if err := v.fs.MkdirAll(filepath.Dir(path.String()), 0o755); err != nil {
		return err
	}
	if err := afero.WriteFile(v.fs, path.String(), contents, 0o644); err != nil {
		return err
	}
	v.tick(path.String())
	return nil
}
