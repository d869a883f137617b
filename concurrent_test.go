package guardfile

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"
)

// TestNoLockIgnoresGlobalLock holds the global lock exclusively. A NoLock
// handle must still complete every operation, destructive ones included.
func TestNoLockIgnoresGlobalLock(t *testing.T) {
	f := openTestFile(t, Config{NoLock: true})

	release := GlobalDiskLock().Exclusive()
	defer release()

	blocked, _ := blocks(func() {
		f.Write([]byte("free"))
		f.WriteVectored([][]byte{[]byte("!")})
		f.Flush()
		f.Seek(0, io.SeekStart)
		f.Read(make([]byte, 2))
		f.ReadVectored([][]byte{make([]byte, 2)})
		f.ReadAt(make([]byte, 2), 0)
		f.WriteAt([]byte("x"), 10)
		f.SetLen(20)
		f.SyncData()
		f.SyncAll()
	}, 2*time.Second)
	if blocked {
		t.Fatal("NoLock handle waited on the global lock")
	}
}

// TestLockedWaitsForExclusive checks that every guarded operation on a
// locked handle waits while someone else holds the global lock exclusively.
func TestLockedWaitsForExclusive(t *testing.T) {
	f := openTestFile(t, Config{})
	f.Write([]byte("0123456789"))

	ops := map[string]func(){
		"Read":          func() { f.Read(make([]byte, 1)) },
		"ReadVectored":  func() { f.ReadVectored([][]byte{make([]byte, 1)}) },
		"Write":         func() { f.Write([]byte("w")) },
		"WriteVectored": func() { f.WriteVectored([][]byte{[]byte("w")}) },
		"Flush":         func() { f.Flush() },
		"Seek":          func() { f.Seek(0, io.SeekStart) },
		"ReadAt":        func() { f.ReadAt(make([]byte, 1), 0) },
		"WriteAt":       func() { f.WriteAt([]byte("w"), 0) },
		"SyncAll":       func() { f.SyncAll() },
		"SyncData":      func() { f.SyncData() },
		"SetLen":        func() { f.SetLen(10) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			release := GlobalDiskLock().Exclusive()
			blocked, done := blocks(op, 50*time.Millisecond)
			release()
			if !blocked {
				t.Errorf("%s ran while the global lock was held exclusively", name)
			}
			waitDone(t, done, name)
		})
	}
}

// TestMetadataNotGuarded checks that Metadata never waits on the lock.
func TestMetadataNotGuarded(t *testing.T) {
	f := openTestFile(t, Config{})

	release := GlobalDiskLock().Exclusive()
	defer release()

	blocked, _ := blocks(func() { f.Metadata() }, time.Second)
	if blocked {
		t.Error("Metadata waited on the global lock")
	}
}

// TestSharedOperationsInterleave shows that the shared mode does not
// serialise reads and writes: with a shared hold outstanding, two locked
// handles still write concurrently. This is coordination, not a safety
// guarantee for overlapping writes.
func TestSharedOperationsInterleave(t *testing.T) {
	a := openTestFile(t, Config{})
	b := openTestFile(t, Config{})

	release := GlobalDiskLock().Shared()
	defer release()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, f := range []*File{a, b} {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < 100; i++ {
				f.Write([]byte("data"))
				f.ReadAt(make([]byte, 4), 0)
			}
		}()
	}

	blocked, _ := blocks(func() {
		close(start)
		wg.Wait()
	}, 2*time.Second)
	if blocked {
		t.Fatal("shared operations waited on an outstanding shared hold")
	}

	if fileSize(t, a) != 400 || fileSize(t, b) != 400 {
		t.Errorf("sizes = %d, %d; want 400", fileSize(t, a), fileSize(t, b))
	}
}

// TestDestructiveWaitsForShared checks that SetLen and the sync calls wait
// for in-flight shared holders, so a truncate cannot race a write.
func TestDestructiveWaitsForShared(t *testing.T) {
	f := openTestFile(t, Config{})
	f.Write([]byte("0123456789"))

	for name, op := range map[string]func(){
		"SetLen":   func() { f.SetLen(5) },
		"SyncAll":  func() { f.SyncAll() },
		"SyncData": func() { f.SyncData() },
	} {
		t.Run(name, func(t *testing.T) {
			release := GlobalDiskLock().Shared()
			blocked, done := blocks(op, 50*time.Millisecond)
			release()
			if !blocked {
				t.Errorf("%s ran during a shared hold", name)
			}
			waitDone(t, done, name)
		})
	}
}

// TestLockReleasedOnError makes every guarded call fail and then checks
// the global lock is free.
func TestLockReleasedOnError(t *testing.T) {
	f := openTestFile(t, Config{})
	f.Close()

	f.Read(make([]byte, 1))
	f.ReadVectored([][]byte{make([]byte, 1)})
	f.Write([]byte("x"))
	f.WriteVectored([][]byte{[]byte("x")})
	f.Seek(0, io.SeekStart)
	f.ReadAt(make([]byte, 1), 0)
	f.WriteAt([]byte("x"), 0)
	f.SyncAll()
	f.SyncData()
	f.SetLen(0)

	if mode := GlobalDiskLock().Mode(); mode != LockNone {
		t.Fatalf("global lock mode = %v after failed calls, want none", mode)
	}
	blocked, _ := blocks(func() { GlobalDiskLock().Exclusive()() }, time.Second)
	if blocked {
		t.Error("global lock still held after failed calls")
	}
}

// TestConcurrentPositionedWrites shares one handle between goroutines that
// write disjoint regions with WriteAt.
func TestConcurrentPositionedWrites(t *testing.T) {
	f := openTestFile(t, Config{})

	const workers = 8
	const chunk = 512

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			data := bytes.Repeat([]byte{byte('a' + n)}, chunk)
			if _, err := f.WriteAt(data, int64(n*chunk)); err != nil {
				t.Errorf("WriteAt: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		got := make([]byte, chunk)
		if _, err := f.ReadAt(got, int64(i*chunk)); err != nil {
			t.Fatalf("ReadAt: %v", err)
		}
		if !bytes.Equal(got, bytes.Repeat([]byte{byte('a' + i)}, chunk)) {
			t.Errorf("region %d corrupted", i)
		}
	}
}

// TestConcurrentHandlesWithTruncate runs writers on several locked handles
// while another goroutine repeatedly truncates its own file.
func TestConcurrentHandlesWithTruncate(t *testing.T) {
	var handles []*File
	for i := 0; i < 4; i++ {
		handles = append(handles, openTestFile(t, Config{}))
	}
	truncated := openTestFile(t, Config{})

	var wg sync.WaitGroup
	for i, f := range handles {
		i, f := i, f
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				line := fmt.Sprintf("%d:%03d\n", i, j)
				if _, err := f.Write([]byte(line)); err != nil {
					t.Errorf("Write: %v", err)
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			truncated.WriteAt([]byte("data"), 0)
			if err := truncated.SetLen(0); err != nil {
				t.Errorf("SetLen: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	for _, f := range handles {
		if got := fileSize(t, f); got != 50*6 {
			t.Errorf("size = %d, want %d", got, 50*6)
		}
	}
	if got := fileSize(t, truncated); got != 0 {
		t.Errorf("truncated size = %d, want 0", got)
	}
}
