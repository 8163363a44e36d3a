// Package drivers implements the storage-facing collaborators a Session
// needs: a per-user chroot filesystem and, in jsonusers, the user store
// itself.
package drivers

import (
	"github.com/spf13/afero"
)

// NewChrootFs returns an afero.Fs rooted at root, creating it if it does
// not exist yet. Every path a Session passes to it is already resolved
// and contained by sandbox.Resolve; this is the filesystem boundary that
// makes that containment actually effective at the syscall level, the
// way the teacher's own drivers package backs ClientDriver with
// afero.NewBasePathFs.
func NewChrootFs(base afero.Fs, root string) (afero.Fs, error) {
	if err := base.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	return afero.NewBasePathFs(base, root), nil
}
