//go:build !linux

package guardfile

import "os"

// readv fills the first non-empty buffer with a single Read.
func readv(f *os.File, bufs [][]byte) (int, error) {
	for _, b := range bufs {
		if len(b) > 0 {
			return f.Read(b)
		}
	}
	return f.Read(nil)
}

// writev writes each buffer in turn. os.File.Write already loops until the
// buffer is done or an error occurs.
func writev(f *os.File, bufs [][]byte) (int, error) {
	written := 0
	for _, b := range bufs {
		n, err := f.Write(b)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// fdatasync falls back to a full sync. On darwin os.File.Sync issues
// F_FULLFSYNC, which is already stronger than fdatasync.
func fdatasync(f *os.File) error {
	return f.Sync()
}

func times(f *os.File, md *Metadata) {}
