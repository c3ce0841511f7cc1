package hexbuild

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Fingerprinter computes the content-addressed hashes that key the cache:
// RuleHash covers a rule's definition, the projected environment, and the
// full byte-content of its inputs; TreeHash covers a single file or
// directory tree by itself (used to name cached outputs).
type Fingerprinter struct {
	vfs VFS
	env map[string]string
}

// NewFingerprinter builds a Fingerprinter over the given VFS, hashing only
// the environment variables named by env.
func NewFingerprinter(vfs VFS, env map[string]string) *Fingerprinter {
	return &Fingerprinter{vfs: vfs, env: env}
}

// RuleHash hashes a rule's shape (outputs, inputs, commands), the projected
// environment, and the content of every input tree. Two rules with the
// same shape and environment but different input bytes hash differently;
// changing an *output*'s bytes never affects the hash.
func (f *Fingerprinter) RuleHash(rule Rule) (string, error) {
	h := sha256.New()

	hashUint(h, len(rule.Outputs))
	for _, output := range rule.Outputs {
		hashString(h, output)
	}
	hashUint(h, len(rule.Inputs))
	for _, input := range rule.Inputs {
		hashString(h, input)
	}
	hashUint(h, len(rule.Commands))
	for _, command := range rule.Commands {
		hashString(h, command)
	}

	names := make([]string, 0, len(f.env))
	for name := range f.env {
		names = append(names, name)
	}
	sort.Strings(names)
	hashUint(h, len(names))
	for _, name := range names {
		hashString(h, name)
		hashString(h, f.env[name])
	}

	digests, err := f.hashTrees(rule.Inputs)
	if err != nil {
		return "", err
	}
	hashUint(h, len(digests))
	for _, d := range digests {
		h.Write(d)
	}

	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}

// TreeHash hashes a single file or directory tree, independent of any rule.
func (f *Fingerprinter) TreeHash(path Path) (string, error) {
	digest, err := f.hashTree(path)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(digest)), nil
}

// hashTrees hashes each input tree concurrently via errgroup, writing each
// digest into a pre-sized slice at its original index so that the combined
// digest order never depends on completion order.
func (f *Fingerprinter) hashTrees(inputs []string) ([][]byte, error) {
	digests := make([][]byte, len(inputs))
	var g errgroup.Group
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			path, err := NewPath(input)
			if err != nil {
				return err
			}
			digest, err := f.hashTree(path)
			if err != nil {
				return err
			}
			digests[i] = digest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}

// hashTree hashes a file or directory tree's sorted entries: each entry's
// path, a kind marker (0 = file, 1 = directory), and for files its full
// byte content.
func (f *Fingerprinter) hashTree(path Path) ([]byte, error) {
	exists, err := f.vfs.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s does not exist", path)
	}

	h := sha256.New()
	entries, err := f.vfs.TreeWalk(path)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		hashString(h, entry.String())
		isFile, err := f.vfs.IsFile(entry)
		if err != nil {
			return nil, err
		}
		if isFile {
			hashUint(h, 0)
			contents, err := f.vfs.Read(entry)
			if err != nil {
				return nil, err
			}
			hashBytes(h, contents)
		} else {
			hashUint(h, 1)
		}
	}
	return h.Sum(nil), nil
}

type hasher interface {
	Write(p []byte) (int, error)
}

func hashUint(h hasher, value int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(value))
	h.Write(buf[:])
}

func hashBytes(h hasher, value []byte) {
	hashUint(h, len(value))
	h.Write(value)
}

func hashString(h hasher, value string) {
	hashBytes(h, []byte(value))
}
