package hexbuild

import (
	"sort"
	"strings"
)

const (
	defaultMaxCacheBytes    = 200 * 1024 * 1024
	defaultTargetCacheBytes = 100 * 1024 * 1024
)

var cacheRoot = MustPath(".hex/cache")

// Cache is the content-addressed store of previously built outputs. It
// holds two kinds of files under cacheRoot:
//
//   - inputmaps/<rule-hash>: a newline-separated list of output hashes, one
//     per output of the rule, in the same order the rule declares them.
//   - outputs/<output-hash>: the output bytes themselves, addressed by the
//     tree hash of their own content. The same output hash can be shared by
//     several inputmaps.
type Cache struct {
	vfs           VFS
	fingerprinter *Fingerprinter

	MaxBytes    int64
	TargetBytes int64
}

// NewCache creates the cache directory structure (if absent) and returns a
// Cache backed by vfs, keying entries with fingerprinter.
func NewCache(vfs VFS, fingerprinter *Fingerprinter) (*Cache, error) {
	if err := vfs.CreateDirAll(cacheRoot.Child("inputmaps")); err != nil {
		return nil, err
	}
	if err := vfs.CreateDirAll(cacheRoot.Child("outputs")); err != nil {
		return nil, err
	}
	return &Cache{
		vfs:           vfs,
		fingerprinter: fingerprinter,
		MaxBytes:      defaultMaxCacheBytes,
		TargetBytes:   defaultTargetCacheBytes,
	}, nil
}

// Retrieve restores rule's outputs from the cache if a matching inputmap
// exists. It reports (true, nil) on a cache hit, (false, nil) on a miss,
// and a CorruptCacheError if the inputmap doesn't have one hash per output.
func (c *Cache) Retrieve(rule Rule) (bool, error) {
	ruleHash, err := c.fingerprinter.RuleHash(rule)
	if err != nil {
		return false, err
	}
	inputmapPath := cacheRoot.Child("inputmaps").Child(ruleHash)

	exists, err := c.vfs.Exists(inputmapPath)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	contents, err := c.vfs.Read(inputmapPath)
	if err != nil {
		return false, err
	}
	outputHashes := splitInputmap(string(contents))

	if len(outputHashes) != len(rule.Outputs) {
		// The inputmap doesn't match the shape of the rule it was keyed
		// for. Treat it as corrupt: discard it and report a miss (false,
		// with a CorruptCacheError) rather than restoring a partial or
		// misaligned set of outputs.
		_ = c.vfs.RemoveFile(inputmapPath)
		return false, &CorruptCacheError{
			RuleName: rule.Name,
			Reason:   "inputmap output count does not match rule output count",
		}
	}

	for i, outputPath := range rule.Outputs {
		path, err := NewPath(outputPath)
		if err != nil {
			return false, err
		}
		cachedPath := cacheRoot.Child("outputs").Child(outputHashes[i])
		_ = c.vfs.RemoveFile(path)
		if err := c.vfs.Copy(cachedPath, path); err != nil {
			return false, err
		}
	}

	return true, nil
}

// Insert adds rule's current outputs to the cache, keyed by the rule's
// fingerprint hash.
func (c *Cache) Insert(rule Rule) error {
	outputHashes := make([]string, len(rule.Outputs))
	for i, outputPath := range rule.Outputs {
		path, err := NewPath(outputPath)
		if err != nil {
			return err
		}
		outputHash, err := c.fingerprinter.TreeHash(path)
		if err != nil {
			return err
		}
		cachedPath := cacheRoot.Child("outputs").Child(outputHash)
		if err := c.vfs.Copy(path, cachedPath); err != nil {
			return err
		}
		outputHashes[i] = outputHash
	}

	ruleHash, err := c.fingerprinter.RuleHash(rule)
	if err != nil {
		return err
	}
	inputmapPath := cacheRoot.Child("inputmaps").Child(ruleHash)
	return c.vfs.Write(inputmapPath, []byte(strings.Join(outputHashes, "\n")+"\n"))
}

type cacheFile struct {
	path    Path
	size    int64
	modtime int64
}

// MaybeGC evicts the oldest cached outputs once the cache exceeds MaxBytes,
// deleting until total size is back under TargetBytes, then sweeps
// inputmaps that reference missing outputs and outputs no remaining
// inputmap references.
func (c *Cache) MaybeGC() error {
	outputsDir := cacheRoot.Child("outputs")

	entries, err := c.vfs.ListDir(outputsDir)
	if err != nil {
		return err
	}

	var files []cacheFile
	var totalSize int64
	for _, path := range entries {
		isFile, err := c.vfs.IsFile(path)
		if err != nil {
			return err
		}
		if !isFile {
			continue
		}
		size, err := c.vfs.FileSize(path)
		if err != nil {
			return err
		}
		modtime, err := c.vfs.Modtime(path)
		if err != nil {
			return err
		}
		files = append(files, cacheFile{path: path, size: size, modtime: modtime})
		totalSize += size
	}

	if totalSize <= c.MaxBytes {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modtime < files[j].modtime })

	remaining := make(map[string]bool)
	for _, f := range files {
		if totalSize <= c.TargetBytes {
			remaining[f.path.String()] = true
			continue
		}
		if err := c.vfs.RemoveFile(f.path); err != nil {
			return err
		}
		totalSize -= f.size
	}

	referenced, err := c.cleanupOrphanedInputmaps(remaining)
	if err != nil {
		return err
	}
	return c.cleanupOrphanedOutputs(remaining, referenced)
}

// cleanupOrphanedInputmaps deletes inputmaps that reference an output no
// longer present in `remaining`, returning the set of outputs that valid
// (surviving) inputmaps still reference.
func (c *Cache) cleanupOrphanedInputmaps(remaining map[string]bool) (map[string]bool, error) {
	inputmapsDir := cacheRoot.Child("inputmaps")
	entries, err := c.vfs.ListDir(inputmapsDir)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool)

	for _, inputmapPath := range entries {
		isFile, err := c.vfs.IsFile(inputmapPath)
		if err != nil {
			return nil, err
		}
		if !isFile {
			continue
		}

		contents, err := c.vfs.Read(inputmapPath)
		if err != nil {
			return nil, err
		}

		var thisInputmapOutputs []string
		missing := false
		for _, outputHash := range splitInputmap(string(contents)) {
			outputPath := cacheRoot.Child("outputs").Child(outputHash).String()
			thisInputmapOutputs = append(thisInputmapOutputs, outputPath)
			if !remaining[outputPath] {
				missing = true
				break
			}
		}

		if missing {
			if err := c.vfs.RemoveFile(inputmapPath); err != nil {
				return nil, err
			}
			continue
		}
		for _, outputPath := range thisInputmapOutputs {
			referenced[outputPath] = true
		}
	}

	return referenced, nil
}

// cleanupOrphanedOutputs deletes any surviving output no valid inputmap
// references.
func (c *Cache) cleanupOrphanedOutputs(remaining, referenced map[string]bool) error {
	for outputPath := range remaining {
		if referenced[outputPath] {
			continue
		}
		path, err := NewPath(outputPath)
		if err != nil {
			return err
		}
		if err := c.vfs.RemoveFile(path); err != nil {
			return err
		}
	}
	return nil
}

// splitInputmap splits an inputmap's newline-separated hash list, dropping
// the single trailing empty element produced by the file's final newline.
func splitInputmap(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
