// Package storage is the sandboxed local file store for configuration
// documents. Every name is restricted to a conservative charset and every
// resolved path must stay inside the symlink-resolved root before any
// content is read or written.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/gommon/random"

	"github.com/btnalit/clash-cfg-edit/internal/logger"
)

var (
	ErrInvalidName = errors.New("storage: invalid filename")
	ErrNotFound    = errors.New("storage: file not found")
	ErrDenied      = errors.New("storage: access denied")
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

type FileInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

type Store struct {
	l    *logger.Logger
	root string
}

// ValidName reports whether the name is safe to use inside the store:
// conservative charset, no path separators, no traversal.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	normalized := filepath.Clean(name)
	if strings.Contains(normalized, "..") ||
		strings.ContainsAny(normalized, `/\`) ||
		filepath.IsAbs(normalized) {
		return false
	}
	return namePattern.MatchString(name)
}

// YamlName reports whether the name carries a YAML extension.
func YamlName(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// resolve maps a validated name to an absolute path and confirms it stays
// under the real (symlink-resolved) root.
func (s *Store) resolve(name string) (string, error) {
	if !ValidName(name) {
		return "", errors.WithStack(ErrInvalidName)
	}

	realRoot, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return "", errors.WithStack(err)
	}

	path := filepath.Join(realRoot, name)

	// The file itself may be a symlink; follow it when it exists.
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = path
		} else {
			return "", errors.WithStack(err)
		}
	}

	if resolved != realRoot && !strings.HasPrefix(resolved, realRoot+string(filepath.Separator)) {
		return "", errors.WithStack(ErrDenied)
	}

	return resolved, nil
}

// List returns the YAML documents in the store.
func (s *Store) List() ([]FileInfo, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	files := make([]FileInfo, 0, len(dirEntries))
	for _, entry := range dirEntries {
		name := entry.Name()
		if entry.IsDir() || !YamlName(name) || !ValidName(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     name,
			Path:     name,
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	return files, nil
}

func (s *Store) Read(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithStack(ErrNotFound)
		}
		return nil, errors.WithStack(err)
	}
	if stat.IsDir() {
		return nil, errors.WithStack(ErrNotFound)
	}

	data, err := os.ReadFile(path)
	return data, errors.WithStack(err)
}

func (s *Store) Write(name string, data []byte) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	err = os.WriteFile(path, data, 0644)
	return errors.WithStack(err)
}

func (s *Store) Delete(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	if err = os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.WithStack(ErrNotFound)
		}
		return errors.WithStack(err)
	}
	return nil
}

// SaveTimestamped writes the data under "<prefix>-YYYYMMDD-HHMMSS.yaml"
// and returns the generated name.
func (s *Store) SaveTimestamped(prefix string, data []byte) (string, error) {
	name := fmt.Sprintf("%s-%s.yaml", prefix, time.Now().Format("20060102-150405"))
	if err := s.Write(name, data); err != nil {
		return "", err
	}
	return name, nil
}

// SaveUpload stores uploaded content under a unique name carrying the
// original extension.
func (s *Store) SaveUpload(original string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	if ext != ".yaml" && ext != ".yml" {
		return "", errors.WithStack(ErrInvalidName)
	}

	name := fmt.Sprintf("upload-%d-%s%s", time.Now().UnixMilli(), random.String(8), ext)
	if err := s.Write(name, data); err != nil {
		return "", err
	}
	return name, nil
}

// New creates the store, making sure the root directory exists.
func New(root string, l *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.WithStack(err)
	}

	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Store{l: l, root: absolute}, nil
}
