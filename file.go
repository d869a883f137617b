// Guarded file handle.
//
// File forwards every operation to the *os.File it owns. Before each
// disk-affecting call it takes the process-wide DiskLock in the mode listed
// in the table below and releases it when the call returns, whether or not
// the call failed. Handles built with Config.NoLock skip the lock entirely.
//
//	Read, ReadVectored, Write, WriteVectored   shared
//	Flush, Seek, ReadAt, WriteAt               shared
//	SyncAll, SyncData, SetLen                  exclusive
//	Metadata, Name, Close                      not guarded
package guardfile

import (
	"io"
	"os"
)

// Config holds handle options. The zero value participates in locking.
type Config struct {
	NoLock bool // Bypass the global disk lock
}

// File is a guarded wrapper around an open *os.File.
type File struct {
	f      *os.File  // Owned exclusively once wrapped
	lock   *DiskLock // Global lock, nil when noLock
	noLock bool      // Fixed at construction
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.ReaderAt        = (*File)(nil)
	_ io.WriterAt        = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// New wraps an already open file. The caller must not use f directly
// afterwards; File is the sole access path.
func New(f *os.File, config Config) *File {
	file := &File{f: f, noLock: config.NoLock}
	if !config.NoLock {
		file.lock = GlobalDiskLock()
	}
	return file
}

// NoLock reports whether the handle bypasses the global disk lock.
func (f *File) NoLock() bool {
	return f.noLock
}

// guard acquires the global lock per policy. Callers defer the result:
//
//	defer f.guard(LockShared)()
func (f *File) guard(mode LockMode) func() {
	if f.noLock {
		return func() {}
	}
	return f.lock.Acquire(mode)
}

// Read reads from the current position and advances it.
func (f *File) Read(p []byte) (int, error) {
	defer f.guard(LockShared)()
	return f.f.Read(p)
}

// ReadVectored fills bufs in order from the current position.
func (f *File) ReadVectored(bufs [][]byte) (int, error) {
	defer f.guard(LockShared)()
	return readv(f.f, bufs)
}

// Write writes at the current position and advances it.
func (f *File) Write(p []byte) (int, error) {
	defer f.guard(LockShared)()
	return f.f.Write(p)
}

// WriteVectored writes bufs in order at the current position. A count short
// of the combined length is always accompanied by an error.
func (f *File) WriteVectored(bufs [][]byte) (int, error) {
	defer f.guard(LockShared)()
	return writev(f.f, bufs)
}

// Flush exists for callers that treat File as a buffered stream. *os.File
// has nothing to flush, so it only takes and drops the lock.
func (f *File) Flush() error {
	defer f.guard(LockShared)()
	if f.f == nil {
		return os.ErrInvalid
	}
	return nil
}

// Seek sets the position for the next Read or Write. whence is one of
// io.SeekStart, io.SeekCurrent or io.SeekEnd.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	defer f.guard(LockShared)()
	return f.f.Seek(offset, whence)
}

// ReadAt reads len(p) bytes from off. The position used by Read, Write and
// Seek is not affected.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	defer f.guard(LockShared)()
	return f.f.ReadAt(p, off)
}

// WriteAt writes p at off without moving the sequential position. Writing
// past the end extends the file; the gap reads back as zeros.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	defer f.guard(LockShared)()
	return f.f.WriteAt(p, off)
}

// Metadata describes the file. It never takes the lock.
func (f *File) Metadata() (*Metadata, error) {
	return metadata(f.f)
}

// SyncAll commits content and metadata to stable storage.
func (f *File) SyncAll() error {
	defer f.guard(LockExclusive)()
	return f.f.Sync()
}

// SyncData commits content to stable storage, skipping metadata that is not
// needed to read it back where the platform allows.
func (f *File) SyncData() error {
	defer f.guard(LockExclusive)()
	return fdatasync(f.f)
}

// SetLen truncates or extends the file to exactly size bytes. The sequential
// position is left where it was.
func (f *File) SetLen(size int64) error {
	defer f.guard(LockExclusive)()
	return f.f.Truncate(size)
}

// Name returns the name the underlying file was opened with.
func (f *File) Name() string {
	if f.f == nil {
		return ""
	}
	return f.f.Name()
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

func (f *File) String() string {
	if f.f == nil {
		return "guardfile.File(<nil>)"
	}
	mode := "locked"
	if f.noLock {
		mode = "unlocked"
	}
	return "guardfile.File(" + f.f.Name() + ", " + mode + ")"
}
