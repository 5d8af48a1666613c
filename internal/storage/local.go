package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"captioner/internal/services"
)

// Local stores subtitle files on the local filesystem.
type Local struct {
	root string
}

// NewLocal returns a backend rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{root: dir}
}

// Root returns the directory files are written beneath.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) resolve(fileName, tenantID string) (string, error) {
	rel, err := objectPath(fileName, tenantID)
	if err != nil {
		return "", err
	}
	if l.root == "" {
		return "", services.Wrap(services.ErrConfiguration, stage, "path", "local storage directory not configured", nil)
	}
	return filepath.Join(l.root, filepath.FromSlash(rel)), nil
}

// Upload writes content atomically and returns a file:// URL.
func (l *Local) Upload(ctx context.Context, content, fileName, tenantID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := l.resolve(fileName, tenantID)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrExternal, stage, "upload", "create directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", services.Wrap(services.ErrExternal, stage, "upload", "create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrExternal, stage, "upload", "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrExternal, stage, "upload", "close temp file", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrExternal, stage, "upload", "chmod temp file", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrExternal, stage, "upload", "rename temp file", err)
	}
	return fileURL(target)
}

// Content reads a stored file. A missing file reports false without error.
func (l *Local) Content(ctx context.Context, fileName, tenantID string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	target, err := l.resolve(fileName, tenantID)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, services.Wrap(services.ErrExternal, stage, "content", "", err)
	}
	return string(data), true, nil
}

// Delete removes a stored file and reports whether it existed.
func (l *Local) Delete(ctx context.Context, fileName, tenantID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	target, err := l.resolve(fileName, tenantID)
	if err != nil {
		return false, err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrExternal, stage, "delete", "", err)
	}
	return true, nil
}

// Check ensures the root directory exists.
func (l *Local) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.root == "" {
		return services.Wrap(services.ErrConfiguration, stage, "check", "local storage directory not configured", nil)
	}
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stage, "check", fmt.Sprintf("create %s", l.root), err)
	}
	return nil
}

func fileURL(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", services.Wrap(services.ErrExternal, stage, "upload", "resolve absolute path", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
