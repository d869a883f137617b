// Content checksums for guarded files.
//
// A checksum covers a byte range read through io.SectionReader, so it can
// be taken from a File that other goroutines are reading and writing
// sequentially without disturbing their position. Three algorithms are
// supported, selectable via SnapshotConfig.Algorithm.
package guardfile

import (
	"encoding/hex"
	"fmt"
	"hash"
	"hash/fnv"
	"io"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Checksum algorithm constants.
const (
	AlgXXHash3 = 1 // Default, fastest
	AlgFNV1a   = 2 // No external dependencies
	AlgBlake2b = 3 // Cryptographic, 256 bit
)

// checksumBuffer is the default copy buffer size used when hashing a range.
const checksumBuffer = 64 * 1024

func newHash(alg int) (hash.Hash, error) {
	switch alg {
	case AlgXXHash3:
		return xxh3.New(), nil
	case AlgFNV1a:
		return fnv.New64a(), nil
	case AlgBlake2b:
		h, _ := blake2b.New256(nil) // only fails for oversized keys
		return h, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, alg)
	}
}

// Checksum hashes the first size bytes of r and returns the digest as
// lowercase hex. xxHash3 and FNV-1a produce 16 characters, Blake2b 64.
func Checksum(r io.ReaderAt, size int64, alg int) (string, error) {
	return checksum(r, size, alg, checksumBuffer)
}

func checksum(r io.ReaderAt, size int64, alg int, bufSize int) (string, error) {
	h, err := newHash(alg)
	if err != nil {
		return "", err
	}

	section := io.NewSectionReader(r, 0, size)
	n, err := io.CopyBuffer(h, section, make([]byte, bufSize))
	if err != nil {
		return "", err
	}
	if n != size {
		return "", io.ErrUnexpectedEOF
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Checksum hashes the whole file as it stands when Metadata is taken.
func (f *File) Checksum(alg int) (string, error) {
	md, err := f.Metadata()
	if err != nil {
		return "", err
	}
	return Checksum(f, md.Size(), alg)
}

// AlgorithmName returns the short name used on the command line.
func AlgorithmName(alg int) string {
	switch alg {
	case AlgXXHash3:
		return "xxh3"
	case AlgFNV1a:
		return "fnv1a"
	case AlgBlake2b:
		return "blake2b"
	default:
		return ""
	}
}

// ParseAlgorithm is the inverse of AlgorithmName.
func ParseAlgorithm(name string) (int, error) {
	switch name {
	case "xxh3", "xxhash3":
		return AlgXXHash3, nil
	case "fnv1a", "fnv":
		return AlgFNV1a, nil
	case "blake2b":
		return AlgBlake2b, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}
