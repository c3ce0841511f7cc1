package hexbuild

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// RealVFS is the VFS backed by the actual operating system file system.
type RealVFS struct {
	fs      afero.Fs
	ignores *gitignore.GitIgnore // nil if no .gitignore was found
}

// NewRealVFS constructs a RealVFS rooted at the process's current directory.
// If a `.gitignore` file exists there, TreeWalk skips paths it matches.
func NewRealVFS() *RealVFS {
	v := &RealVFS{fs: afero.NewOsFs()}
	if ignores, err := gitignore.CompileIgnoreFile(".gitignore"); err == nil {
		v.ignores = ignores
	}
	return v
}

func (v *RealVFS) Copy(source, destination Path) error {
	contents, err := afero.ReadFile(v.fs, source.String())
	if err != nil {
		return err
	}
	if err := v.fs.MkdirAll(filepath.Dir(destination.String()), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(v.fs, destination.String(), contents, 0o644)
}

func (v *RealVFS) CreateDirAll(path Path) error {
	return v.fs.MkdirAll(path.String(), 0o755)
}

func (v *RealVFS) Exists(path Path) (bool, error) {
	return afero.Exists(v.fs, path.String())
}

func (v *RealVFS) FileSize(path Path) (int64, error) {
	info, err := v.fs.Stat(path.String())
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (v *RealVFS) IsFile(path Path) (bool, error) {
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

func (v *RealVFS) ListDir(path Path) ([]Path, error) {
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

func (v *RealVFS) Modtime(path Path) (int64, error) {
	info, err := v.fs.Stat(path.String())
	if err != nil {
		return 0, err
	}
	return info.ModTime().Unix(), nil
}

func (v *RealVFS) Read(path Path) ([]byte, error) {
	return afero.ReadFile(v.fs, path.String())
}

func (v *RealVFS) RemoveAll(path Path) error {
	return v.fs.RemoveAll(path.String())
}

func (v *RealVFS) RemoveFile(path Path) error {
	return v.fs.Remove(path.String())
}

func (v *RealVFS) Rename(oldPath, newPath Path) error {
	if err := v.fs.MkdirAll(filepath.Dir(newPath.String()), 0o755); err != nil {
		return err
	}
	return v.fs.Rename(oldPath.String(), newPath.String())
}

// TreeWalk recursively lists path and everything beneath it, in sorted
// order, skipping anything matched by a root `.gitignore`. If path names a
// plain file, the result is that single entry.
func (v *RealVFS) TreeWalk(path Path) ([]Path, error) {
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
		if v.ignores != nil && v.ignores.MatchesPath(walked) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		p, perr := NewPath(walked)
		if perr != nil {
			return perr
		}
		result = append(result, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", path, err)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result, nil
}

func (v *RealVFS) Write(path Path, contents []byte) error {
	if err := v.fs.MkdirAll(filepath.Dir(path.String()), 0o755); err != nil {
		return err
	}
	// Write atomically via a side file, then rename, matching the
	// original's posix VFS.
	sideFile := path.String() + ".tmp"
	if err := afero.WriteFile(v.fs, sideFile, contents, 0o644); err != nil {
		return err
	}
	return v.fs.Rename(sideFile, path.String())
}
