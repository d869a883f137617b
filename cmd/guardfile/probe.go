package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"

	"github.com/jpl-au/guardfile"
)

type probeStep struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type probeReport struct {
	Path   string      `json:"path"`
	NoLock bool        `json:"no_lock"`
	Steps  []probeStep `json:"steps"`
	Passed int         `json:"passed"`
}

// probeChecks run in order against the same handle; each assumes the file
// state left by the previous one.
var probeChecks = []struct {
	name string
	run  func(f *guardfile.File) error
}{
	{"reset", probeReset},
	{"write-seek-read", probeSequential},
	{"write-at-extend", probeWriteAt},
	{"positioned-cursor", probePositionedCursor},
	{"vectored", probeVectored},
	{"set-len", probeSetLen},
	{"sync", probeSync},
}

func runProbe(f *guardfile.File, logger hclog.Logger) probeReport {
	report := probeReport{Path: f.Name(), NoLock: f.NoLock()}
	for _, c := range probeChecks {
		step := probeStep{Name: c.name, OK: true}
		if err := c.run(f); err != nil {
			step.OK = false
			step.Error = err.Error()
			logger.Warn("probe step failed", "step", c.name, "error", err)
		} else {
			report.Passed++
			logger.Debug("probe step passed", "step", c.name)
		}
		report.Steps = append(report.Steps, step)
	}
	return report
}

func size(f *guardfile.File) (int64, error) {
	md, err := f.Metadata()
	if err != nil {
		return 0, err
	}
	return md.Len(), nil
}

func probeReset(f *guardfile.File) error {
	if err := f.SetLen(0); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekStart)
	return err
}

func probeSequential(f *guardfile.File) error {
	n, err := f.Write([]byte("hello"))
	if err != nil {
		return err
	}
	if n != 5 {
		return fmt.Errorf("write returned %d, want 5", n)
	}
	pos, err := f.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}
	if pos != 0 {
		return fmt.Errorf("seek returned %d, want 0", pos)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(f, buf); err != nil {
		return err
	}
	if string(buf) != "hello" {
		return fmt.Errorf("read %q, want %q", buf, "hello")
	}
	return nil
}

func probeWriteAt(f *guardfile.File) error {
	if _, err := f.WriteAt([]byte("X"), 10); err != nil {
		return err
	}
	n, err := size(f)
	if err != nil {
		return err
	}
	if n != 11 {
		return fmt.Errorf("length %d after write-at, want 11", n)
	}
	buf := make([]byte, 6)
	if _, err := f.ReadAt(buf, 5); err != nil {
		return err
	}
	if !bytes.Equal(buf, []byte{0, 0, 0, 0, 0, 'X'}) {
		return fmt.Errorf("bytes 5..10 = %q, want zero gap then X", buf)
	}
	return nil
}

func probePositionedCursor(f *guardfile.File) error {
	before, err := f.Seek(2, io.SeekStart)
	if err != nil {
		return err
	}
	if _, err := f.ReadAt(make([]byte, 4), 0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte("Y"), 11); err != nil {
		return err
	}
	after, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if before != after {
		return fmt.Errorf("cursor moved from %d to %d", before, after)
	}
	return nil
}

func probeVectored(f *guardfile.File) error {
	start, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	n, err := f.WriteVectored([][]byte{[]byte("ab"), []byte("cd")})
	if err != nil {
		return err
	}
	if n != 4 {
		return fmt.Errorf("write-vectored returned %d, want 4", n)
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return err
	}
	first := make([]byte, 2)
	n, err = f.ReadVectored([][]byte{first, make([]byte, 2)})
	if err != nil {
		return err
	}
	if n < 2 || string(first) != "ab" {
		return fmt.Errorf("read-vectored returned %d, %q", n, first)
	}
	return nil
}

func probeSetLen(f *guardfile.File) error {
	orig, err := size(f)
	if err != nil {
		return err
	}
	prefix := make([]byte, orig)
	if _, err := f.ReadAt(prefix, 0); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if err := f.SetLen(orig + 4096); err != nil {
		return err
	}
	if n, _ := size(f); n != orig+4096 {
		return fmt.Errorf("length %d after extend, want %d", n, orig+4096)
	}
	if err := f.SetLen(orig); err != nil {
		return err
	}
	if n, _ := size(f); n != orig {
		return fmt.Errorf("length %d after truncate, want %d", n, orig)
	}

	got := make([]byte, orig)
	if _, err := f.ReadAt(got, 0); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if !bytes.Equal(got, prefix) {
		return errors.New("leading bytes changed by extend and truncate")
	}
	return nil
}

func probeSync(f *guardfile.File) error {
	before, err := f.Checksum(guardfile.AlgXXHash3)
	if err != nil {
		return err
	}
	if err := f.SyncData(); err != nil {
		return err
	}
	if err := f.SyncAll(); err != nil {
		return err
	}
	after, err := f.Checksum(guardfile.AlgXXHash3)
	if err != nil {
		return err
	}
	if before != after {
		return errors.New("content changed by sync")
	}
	return nil
}
