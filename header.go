// Snapshot header.
//
// The header is exactly HeaderSize bytes: a JSON object padded with spaces
// and terminated with a newline. It records what the compressed body must
// decode to so Restore can verify the result.
package guardfile

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// HeaderSize is the fixed size of the snapshot header in bytes.
const HeaderSize = 256

// SnapshotVersion is the header version written by Dump.
const SnapshotVersion = 1

// Header describes a snapshot body.
type Header struct {
	Version   int    `json:"_v"`   // 1=Current
	Algorithm int    `json:"_alg"` // Checksum algorithm (1=xxHash3, 2=FNV1a, 3=Blake2b)
	Timestamp int64  `json:"_ts"`  // Unix milliseconds when written
	Size      int64  `json:"_n"`   // Uncompressed content length
	Checksum  string `json:"_sum"` // Hex digest of the content
}

// ReadHeader reads and validates a snapshot header.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptHeader, err)
	}
	if buf[HeaderSize-1] != '\n' {
		return nil, ErrCorruptHeader
	}

	var hdr Header
	if err := json.Unmarshal(bytes.TrimSpace(buf), &hdr); err != nil {
		return nil, ErrCorruptHeader
	}
	if hdr.Version != SnapshotVersion || hdr.Size < 0 || AlgorithmName(hdr.Algorithm) == "" {
		return nil, ErrCorruptHeader
	}
	return &hdr, nil
}

// encode serialises the header to exactly HeaderSize bytes with padding.
func (h *Header) encode() ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}

	if len(data) > HeaderSize-1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, len(data))
	}

	buf := bytes.Repeat([]byte{' '}, HeaderSize)
	copy(buf, data)
	buf[HeaderSize-1] = '\n'
	return buf, nil
}
