package blob

import (
	"github.com/spf13/afero"

	"tacticsdb/internal/infra/blob/fs"
)

// FilesystemOption configures the filesystem driver.
type FilesystemOption = fs.Option

// WithFs runs the filesystem driver on fsys, typically afero.NewMemMapFs in tests.
func WithFs(fsys afero.Fs) FilesystemOption { return fs.WithFs(fsys) }

// WithRename replaces the filesystem driver's final rename step.
func WithRename(rename func(oldpath, newpath string) error) FilesystemOption {
	return fs.WithRename(rename)
}

// NewFilesystem constructs a filesystem-backed blob.Store rooted at the provided path.
// Returns blob.Store to encourage call sites to depend on the interface instead of
// concrete implementations.
func NewFilesystem(root string, opts ...FilesystemOption) (Store, error) {
	return fs.New(root, opts...)
}
