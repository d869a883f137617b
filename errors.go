// Package guardfile provides a file handle decorator for storage engines that
// issue disk I/O from many goroutines at once.
//
// A File owns an open *os.File and forwards the usual stream operations to
// it: sequential Read/Write/Seek, positioned ReadAt/WriteAt, Metadata,
// SyncAll/SyncData and SetLen. Unless constructed with Config.NoLock, every
// disk-affecting call is bracketed by a hold on a single process-wide
// DiskLock. Reads, writes and seeks take the lock shared and run alongside
// each other; SetLen and the sync calls take it exclusively, so a truncate
// can never interleave with an in-flight write issued through another
// guarded handle.
//
// Errors from the operating system are returned exactly as *os.File
// reports them. The sentinel errors below belong to the checksum and
// snapshot helpers layered on top of File.
package guardfile

import "errors"

// Sentinel errors for programmatic handling with errors.Is.
var (
	ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")
	ErrCorruptHeader    = errors.New("corrupt snapshot header")
	ErrHeaderTooLarge   = errors.New("snapshot header too large")
	ErrChecksum         = errors.New("checksum mismatch")
	ErrDecompress       = errors.New("decompression failed")
	ErrSizeMismatch     = errors.New("snapshot size mismatch")
)
