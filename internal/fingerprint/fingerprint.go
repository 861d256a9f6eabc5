// Package fingerprint computes content digests of directory trees and records
// the baselines incremental tasks are compared against.
package fingerprint

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
)

// Fingerprint is the hex encoded BLAKE3 digest of some content.
type Fingerprint string

// Empty reports whether f carries no digest.
func (f Fingerprint) Empty() bool {
	return f == ""
}

// Short returns the first 12 hex characters, for logs.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

const (
	markerAbsent  = "absent"
	markerPresent = "present"
	markerFile    = "file"
)

// Directories digests the trees rooted at paths.
// Each regular file contributes its root-relative slash path and content; timestamps
// and permissions are ignored. Symlinks to regular files are hashed through their
// target; links to directories and dangling links are skipped. A missing root
// contributes an absent marker so that a directory appearing or disappearing changes
// the result. The roots form a set: their order and repetitions do not matter.
func Directories(paths ...string) (Fingerprint, error) {
	seen := make(map[string]bool, len(paths))
	digests := make([]string, 0, len(paths))
	for _, path := range paths {
		root := filepath.Clean(path)
		if seen[root] {
			continue
		}
		seen[root] = true

		digest, err := digestRoot(root)
		if err != nil {
			return "", err
		}
		digests = append(digests, digest)
	}
	sort.Strings(digests)
	return Strings(digests...), nil
}

func digestRoot(root string) (string, error) {
	records, marker, err := digestTree(root)
	if err != nil {
		return "", err
	}
	hasher := blake3.New()
	if _, err := fmt.Fprintf(hasher, "root\x00%s\n", marker); err != nil {
		return "", fmt.Errorf("hash root %s: %w", root, err)
	}
	for _, record := range records {
		if _, err := io.WriteString(hasher, record); err != nil {
			return "", fmt.Errorf("hash root %s: %w", root, err)
		}
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// Strings digests an ordered list of values, e.g. flags or classpath entries.
func Strings(values ...string) Fingerprint {
	hasher := blake3.New()
	for _, v := range values {
		_, _ = fmt.Fprintf(hasher, "%d\x00%s\n", len(v), v)
	}
	return Fingerprint(fmt.Sprintf("%x", hasher.Sum(nil)))
}

// Combine folds several fingerprints into one. Order matters.
func Combine(parts ...Fingerprint) Fingerprint {
	values := make([]string, len(parts))
	for i, p := range parts {
		values[i] = string(p)
	}
	return Strings(values...)
}

func digestTree(root string) ([]string, string, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, markerAbsent, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		sum, err := digestFile(root)
		if err != nil {
			return nil, "", err
		}
		return []string{fmt.Sprintf("%s\x00%s\n", filepath.Base(root), sum)}, markerFile, nil
	}

	var records []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sum, err := digestFile(path)
		if err != nil {
			return err
		}
		records = append(records, fmt.Sprintf("%s\x00%s\n", filepath.ToSlash(rel), sum))
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(records)
	return records, markerPresent, nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
