package fsstore

import "os"

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

// FileOptions sets permissions for created files and their parent
// directories. Zero values mean owner-only access.
type FileOptions struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

func (o FileOptions) normalized() FileOptions {
	if o.DirPerm == 0 {
		o.DirPerm = defaultDirPerm
	}
	if o.FilePerm == 0 {
		o.FilePerm = defaultFilePerm
	}
	return o
}
