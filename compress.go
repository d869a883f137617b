// Compression for snapshot bodies.
//
// Bodies are streamed through zstd so that snapshotting a large file never
// holds more than the encoder window in memory.
package guardfile

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Compression levels accepted by SnapshotConfig.Level.
const (
	LevelFastest = int(zstd.SpeedFastest)
	LevelDefault = int(zstd.SpeedDefault)
	LevelBetter  = int(zstd.SpeedBetterCompression)
	LevelBest    = int(zstd.SpeedBestCompression)
)

// compress copies src into a zstd frame written to dst and returns the
// number of uncompressed bytes consumed.
func compress(dst io.Writer, src io.Reader, level int) (int64, error) {
	// Zero frames keep an empty body a valid zstd stream.
	enc, err := zstd.NewWriter(dst,
		zstd.WithEncoderLevel(zstd.EncoderLevel(level)),
		zstd.WithZeroFrames(true))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(enc, src)
	if err != nil {
		enc.Close()
		return n, err
	}
	return n, enc.Close()
}

// decompress copies the zstd stream in src to dst and returns the number
// of decompressed bytes written.
func decompress(dst io.Writer, src io.Reader) (int64, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return 0, fmt.Errorf("%w: zstd: %w", ErrDecompress, err)
	}
	defer dec.Close()

	w := &errWriter{w: dst}
	n, err := io.Copy(w, dec)
	if err != nil {
		if w.err != nil {
			return n, err // destination failure, not a bad stream
		}
		return n, fmt.Errorf("%w: zstd: %w", ErrDecompress, err)
	}
	return n, nil
}

// errWriter remembers the first write error so decompress can tell a
// failing destination apart from a corrupt stream.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil && e.err == nil {
		e.err = err
	}
	return n, err
}
