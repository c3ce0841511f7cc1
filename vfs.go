package hexbuild

// VFS is an abstract file system that can be faked out for testing. It is
// the single seam between the build engine's logic (Fingerprinter, Cache,
// Isolated Executor) and actual storage, so that the GC and cache-hit
// invariants in the test suite can run against a fast, deterministic
// in-memory implementation instead of touching disk.
type VFS interface {
	Copy(source, destination Path) error
	CreateDirAll(path Path) error
	Exists(path Path) (bool, error)
	FileSize(path Path) (int64, error)
	IsFile(path Path) (bool, error)
	ListDir(path Path) ([]Path, error)
	Modtime(path Path) (int64, error)
	Read(path Path) ([]byte, error)
	RemoveAll(path Path) error
	RemoveFile(path Path) error
	Rename(oldPath, newPath Path) error
	TreeWalk(path Path) ([]Path, error)
	Write(path Path, contents []byte) error
}
