// Package filex contains filesystem helpers for the client: preparing the
// download directory and saving downloaded artifacts without leaving partial
// files behind.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidName = errors.New("invalid file name")

// EnsureDir creates dir (relative paths resolve against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SanitizeName reduces a server-supplied name to a single path element.
func SanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.FromSlash(name))
	if base == "." || base == ".." || base == string(filepath.Separator) || strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// DirSaver writes artifacts into a single directory.
type DirSaver struct {
	Dir string
}

func NewDirSaver(dir string) (*DirSaver, error) {
	abs, err := EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &DirSaver{Dir: abs}, nil
}

// Save streams content produced by fill into Dir/name. The data goes to a
// temporary file first and is renamed into place only when fill succeeds,
// so a failed download never leaves a truncated artifact.
func (s *DirSaver) Save(name string, fill func(w io.Writer) error) (string, error) {
	base, err := SanitizeName(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.Dir, "."+base+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	dst := filepath.Join(s.Dir, base)
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename %s: %w", dst, err)
	}
	return dst, nil
}
