//go:build linux

package guardfile

import (
	"io"
	"io/fs"
	"os"
	"slices"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// maxIovec is IOV_MAX on Linux. Longer vectors fail with EINVAL.
const maxIovec = 1024

// readv issues a single readv(2) at the current position. Like os.File.Read
// it reports io.EOF when nothing is left and at least one byte was asked for.
func readv(f *os.File, bufs [][]byte) (int, error) {
	if len(bufs) > maxIovec {
		bufs = bufs[:maxIovec]
	}
	want := 0
	for _, b := range bufs {
		want += len(b)
	}

	rc, err := f.SyscallConn()
	if err != nil {
		return 0, err
	}

	var n int
	var operr error
	err = rc.Read(func(fd uintptr) bool {
		for {
			n, operr = unix.Readv(int(fd), bufs)
			if operr != unix.EINTR {
				return operr != unix.EAGAIN
			}
		}
	})
	if err != nil {
		return 0, &fs.PathError{Op: "readv", Path: f.Name(), Err: err}
	}
	if operr != nil {
		return 0, &fs.PathError{Op: "readv", Path: f.Name(), Err: operr}
	}
	if n == 0 && want > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// writev writes every buffer, issuing further writev(2) calls after a
// partial write the way os.File.Write loops over write(2).
func writev(f *os.File, bufs [][]byte) (int, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return 0, err
	}

	// Cloned so trimming consumed buffers never touches the caller's slice.
	bufs = slices.Clone(bufs)
	written := 0
	for {
		bufs = slices.DeleteFunc(bufs, func(b []byte) bool { return len(b) == 0 })
		if len(bufs) == 0 {
			return written, nil
		}

		var n int
		var operr error
		err := rc.Write(func(fd uintptr) bool {
			for {
				n, operr = unix.Writev(int(fd), bufs[:min(len(bufs), maxIovec)])
				if operr != unix.EINTR {
					return operr != unix.EAGAIN
				}
			}
		})
		if err != nil {
			return written, &fs.PathError{Op: "writev", Path: f.Name(), Err: err}
		}
		if operr != nil {
			return written, &fs.PathError{Op: "writev", Path: f.Name(), Err: operr}
		}
		if n == 0 {
			return written, io.ErrUnexpectedEOF
		}
		written += n

		for n > 0 {
			if n < len(bufs[0]) {
				bufs[0] = bufs[0][n:]
				break
			}
			n -= len(bufs[0])
			bufs = bufs[1:]
		}
	}
}

func fdatasync(f *os.File) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var operr error
	err = rc.Control(func(fd uintptr) {
		for {
			operr = unix.Fdatasync(int(fd))
			if operr != unix.EINTR {
				return
			}
		}
	})
	if err != nil {
		return &fs.PathError{Op: "fdatasync", Path: f.Name(), Err: err}
	}
	if operr != nil {
		return &fs.PathError{Op: "fdatasync", Path: f.Name(), Err: operr}
	}
	return nil
}

// times fills the access, change and birth timestamps from statx(2),
// falling back to the Stat_t already held by the FileInfo on kernels
// without statx.
func times(f *os.File, md *Metadata) {
	var stx unix.Statx_t
	var operr error

	rc, err := f.SyscallConn()
	if err == nil {
		err = rc.Control(func(fd uintptr) {
			operr = unix.Statx(int(fd), "", unix.AT_EMPTY_PATH|unix.AT_STATX_SYNC_AS_STAT,
				unix.STATX_ATIME|unix.STATX_CTIME|unix.STATX_BTIME, &stx)
		})
	}
	if err != nil || operr != nil {
		if st, ok := md.Sys().(*syscall.Stat_t); ok {
			md.Accessed = time.Unix(st.Atim.Unix())
			md.Changed = time.Unix(st.Ctim.Unix())
		}
		return
	}

	if stx.Mask&unix.STATX_ATIME != 0 {
		md.Accessed = statxTime(stx.Atime)
	}
	if stx.Mask&unix.STATX_CTIME != 0 {
		md.Changed = statxTime(stx.Ctime)
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		md.Created = statxTime(stx.Btime)
	}
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}
