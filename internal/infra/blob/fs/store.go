// Package fs implements the blob store over a directory, writing each blob
// to a temporary file beside its destination and renaming it into place.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"tacticsdb/internal/blob/core"
)

// tempPrefix marks in-flight writes; List never reports them.
const tempPrefix = ".tmp-"

// Store implements core.Store on an afero filesystem. Keys map to relative
// file paths under the root.
type Store struct {
	fs     afero.Fs
	root   string
	rename func(oldpath, newpath string) error
}

// Option configures a Store.
type Option func(*Store)

// WithFs runs the store on fsys instead of the host filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(s *Store) { s.fs = fsys }
}

// WithRename replaces the final rename step. Tests use it to simulate a
// process dying after the temporary file is written.
func WithRename(rename func(oldpath, newpath string) error) Option {
	return func(s *Store) { s.rename = rename }
}

// New returns a filesystem-backed blob store rooted at root, creating it if needed.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		root = "./data"
	}
	s := &Store{fs: afero.NewOsFs(), root: root}
	for _, opt := range opts {
		opt(s)
	}
	if s.rename == nil {
		s.rename = s.fs.Rename
	}
	if err := s.fs.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Root returns the directory the store writes into.
func (s *Store) Root() string { return s.root }

// sanitizeKey ensures key doesn't escape root and forbids path traversal and absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	clean := path.Clean(filepath.ToSlash(key))
	if strings.HasPrefix(path.Base(clean), tempPrefix) {
		return "", fmt.Errorf("invalid key %q: reserved prefix", key)
	}
	return clean, nil
}

func (s *Store) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

// Put streams r into a temporary file in the destination directory, syncs
// it and renames it over the destination. The previous blob, if any, stays
// intact until the rename succeeds.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Info{}, err
	}
	dir := filepath.Dir(dataPath)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return core.Info{}, err
	}
	tmp, err := afero.TempFile(s.fs, dir, tempPrefix+"*")
	if err != nil {
		return core.Info{}, err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = s.fs.Remove(tmpName)
		}
	}()
	h := sha256.New()
	size, copyErr := io.Copy(io.MultiWriter(tmp, h), r)
	if copyErr != nil {
		_ = tmp.Close()
		return core.Info{}, copyErr
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return core.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return core.Info{}, err
	}
	if err := s.rename(tmpName, dataPath); err != nil {
		return core.Info{}, fmt.Errorf("blob %s: commit: %w", key, err)
	}
	committed = true
	st, err := s.fs.Stat(dataPath)
	if err != nil {
		return core.Info{}, err
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = contentTypeFor(key)
	}
	return core.Info{
		Key:          key,
		Size:         size,
		ContentType:  contentType,
		ETag:         hex.EncodeToString(h.Sum(nil)),
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: st.ModTime().UTC(),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	file, err := s.fs.Open(dataPath)
	if err != nil {
		return core.Info{}, nil, err
	}
	st, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return core.Info{}, nil, err
	}
	if st.IsDir() {
		_ = file.Close()
		return core.Info{}, nil, &os.PathError{Op: "open", Path: dataPath, Err: fs.ErrNotExist}
	}
	return s.info(key, st), file, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	st, err := s.fs.Stat(dataPath)
	if err != nil {
		return core.Info{}, err
	}
	if st.IsDir() {
		return core.Info{}, &os.PathError{Op: "stat", Path: dataPath, Err: fs.ErrNotExist}
	}
	return s.info(key, st), nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	dataPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if _, err := s.fs.Stat(dataPath); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := s.fs.Remove(dataPath); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := afero.Walk(s.fs, s.root, func(p string, st os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if st.IsDir() || strings.HasPrefix(st.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			infos = append(infos, s.info(key, st))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) info(key string, st os.FileInfo) core.Info {
	return core.Info{Key: key, Size: st.Size(), ContentType: contentTypeFor(key), LastModified: st.ModTime().UTC()}
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".yaml", ".yml":
		return "application/yaml"
	case "":
		return ""
	}
	return mime.TypeByExtension(path.Ext(key))
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
