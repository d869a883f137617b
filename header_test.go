package guardfile

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestHeaderEncodeSize(t *testing.T) {
	tests := []struct {
		name string
		hdr  Header
	}{
		{"blake2b 1 TiB", Header{Algorithm: AlgBlake2b, Timestamp: 1700000000000, Size: 1 << 40, Checksum: strings.Repeat("f", 64)}},
		{"blake2b 10 GB", Header{Algorithm: AlgBlake2b, Timestamp: 1700000000000, Size: 1e10, Checksum: strings.Repeat("f", 64)}},
		{"widest fields", Header{Algorithm: AlgBlake2b, Timestamp: math.MaxInt64, Size: math.MaxInt64, Checksum: strings.Repeat("f", 64)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdr := tt.hdr
			hdr.Version = SnapshotVersion
			buf, err := hdr.encode()
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if len(buf) != HeaderSize {
				t.Errorf("len = %d, want %d", len(buf), HeaderSize)
			}
			if buf[HeaderSize-1] != '\n' {
				t.Error("header not newline terminated")
			}
			if bytes.Contains(buf[:HeaderSize-1], []byte("\n")) {
				t.Error("header contains an embedded newline")
			}

			got, err := ReadHeader(bytes.NewReader(buf))
			if err != nil {
				t.Fatalf("ReadHeader: %v", err)
			}
			if *got != hdr {
				t.Errorf("ReadHeader = %+v, want %+v", got, hdr)
			}
		})
	}
}

func TestHeaderTooLarge(t *testing.T) {
	hdr := &Header{Version: SnapshotVersion, Algorithm: AlgXXHash3, Checksum: strings.Repeat("a", HeaderSize)}
	_, err := hdr.encode()
	if !errors.Is(err, ErrHeaderTooLarge) {
		t.Errorf("encode oversized = %v, want ErrHeaderTooLarge", err)
	}
	if errors.Is(err, ErrCorruptHeader) {
		t.Error("write-side limit reported as a corrupt header")
	}
}

func TestReadHeader(t *testing.T) {
	want := &Header{Version: SnapshotVersion, Algorithm: AlgFNV1a, Timestamp: 42, Size: 7, Checksum: "00112233aabbccdd"}
	buf, _ := want.encode()

	got, err := ReadHeader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if *got != *want {
		t.Errorf("ReadHeader = %+v, want %+v", got, want)
	}
}

func TestReadHeaderMalformed(t *testing.T) {
	valid, _ := (&Header{Version: SnapshotVersion, Algorithm: AlgXXHash3}).encode()

	pad := func(s string) []byte {
		b := bytes.Repeat([]byte{' '}, HeaderSize)
		copy(b, s)
		b[HeaderSize-1] = '\n'
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", valid[:HeaderSize/2]},
		{"no newline", append(bytes.TrimRight(valid, "\n"), ' ')},
		{"not json", pad("not json at all")},
		{"wrong version", pad(`{"_v":9,"_alg":1,"_ts":0,"_n":0,"_sum":""}`)},
		{"bad algorithm", pad(`{"_v":1,"_alg":7,"_ts":0,"_n":0,"_sum":""}`)},
		{"negative size", pad(`{"_v":1,"_alg":1,"_ts":0,"_n":-4,"_sum":""}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadHeader(bytes.NewReader(tt.data)); !errors.Is(err, ErrCorruptHeader) {
				t.Errorf("ReadHeader = %v, want ErrCorruptHeader", err)
			}
		})
	}
}
