// Compressed snapshots of guarded files.
//
// Dump reads the file only through positioned reads, so it can run while
// the owning engine keeps using the sequential cursor. Writers that modify
// the file during a Dump produce a snapshot whose checksum will not verify
// on Restore; callers that need a consistent image quiesce writers first.
package guardfile

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// SnapshotConfig holds snapshot options. Zero values select the defaults.
type SnapshotConfig struct {
	Algorithm  int // Checksum algorithm (default AlgXXHash3)
	Level      int // zstd level (default LevelFastest)
	BufferSize int // Copy buffer for the checksum pass (default 64 KiB)
}

func (c *SnapshotConfig) defaults() {
	if c.Algorithm == 0 {
		c.Algorithm = AlgXXHash3
	}
	if c.Level == 0 {
		c.Level = LevelFastest
	}
	if c.BufferSize <= 0 {
		c.BufferSize = checksumBuffer
	}
}

// Dump writes a header followed by the zstd-compressed content of f.
func Dump(w io.Writer, f *File, config SnapshotConfig) (*Header, error) {
	config.defaults()

	md, err := f.Metadata()
	if err != nil {
		return nil, err
	}
	size := md.Size()

	sum, err := checksum(f, size, config.Algorithm, config.BufferSize)
	if err != nil {
		return nil, err
	}

	hdr := &Header{
		Version:   SnapshotVersion,
		Algorithm: config.Algorithm,
		Timestamp: now(),
		Size:      size,
		Checksum:  sum,
	}
	buf, err := hdr.encode()
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(buf); err != nil {
		return nil, err
	}

	n, err := compress(w, io.NewSectionReader(f, 0, size), config.Level)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, fmt.Errorf("%w: read %d of %d bytes", ErrSizeMismatch, n, size)
	}
	return hdr, nil
}

// Restore replaces the content of f with the snapshot read from r.
//
// The body is decoded twice. The first pass only hashes it, and f is left
// untouched unless the body decompresses to exactly the recorded size and
// checksum. The second pass truncates f, rewrites it from offset 0 with
// positioned writes, syncs, and checksums the file again. The sequential
// cursor is not moved.
func Restore(f *File, r io.ReadSeeker) (*Header, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	body, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return hdr, err
	}

	if err := verifyBody(hdr, r); err != nil {
		return hdr, err
	}
	if _, err := r.Seek(body, io.SeekStart); err != nil {
		return hdr, err
	}

	if err := f.SetLen(0); err != nil {
		return hdr, err
	}

	n, err := decompress(io.NewOffsetWriter(f, 0), r)
	if err != nil {
		return hdr, err
	}
	if n != hdr.Size {
		return hdr, fmt.Errorf("%w: wrote %d of %d bytes", ErrSizeMismatch, n, hdr.Size)
	}

	if err := f.SyncAll(); err != nil {
		return hdr, err
	}

	sum, err := Checksum(f, hdr.Size, hdr.Algorithm)
	if err != nil {
		return hdr, err
	}
	if sum != hdr.Checksum {
		return hdr, fmt.Errorf("%w: got %s, want %s", ErrChecksum, sum, hdr.Checksum)
	}
	return hdr, nil
}

// verifyBody decodes the compressed body into a hash and checks it against
// the header.
func verifyBody(hdr *Header, r io.Reader) error {
	h, err := newHash(hdr.Algorithm)
	if err != nil {
		return err
	}
	n, err := decompress(h, r)
	if err != nil {
		return err
	}
	if n != hdr.Size {
		return fmt.Errorf("%w: body holds %d of %d bytes", ErrSizeMismatch, n, hdr.Size)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != hdr.Checksum {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksum, sum, hdr.Checksum)
	}
	return nil
}

func now() int64 {
	return time.Now().UnixMilli()
}
