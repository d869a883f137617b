package guardfile

import (
	"io/fs"
	"os"
	"time"
)

// Metadata describes a file. The embedded fs.FileInfo supplies size,
// permission bits and modification time; the extra timestamps are filled
// where the platform exposes them and are zero otherwise.
type Metadata struct {
	fs.FileInfo
	Accessed time.Time
	Changed  time.Time // Inode change time
	Created  time.Time // Zero if the filesystem has no birth time
}

// Len returns the file length in bytes.
func (m *Metadata) Len() int64 {
	return m.Size()
}

// Permissions returns the permission bits.
func (m *Metadata) Permissions() fs.FileMode {
	return m.Mode().Perm()
}

func metadata(f *os.File) (*Metadata, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	md := &Metadata{FileInfo: info}
	times(f, md)
	return md, nil
}
