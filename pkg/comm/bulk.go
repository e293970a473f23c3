package comm

import (
	"fmt"
	"io"
)

// DefaultChunkSize is the read size of bulk transfers, about one second
// of data at 115200 baud.
const DefaultChunkSize = 14400

// ReadBulk reads chunks from r until a read returns nothing.
func ReadBulk(r io.Reader, chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var data []byte
	chunk := make([]byte, chunkSize)
	for {
		n, err := r.Read(chunk)
		data = append(data, chunk[:n]...)
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			return data, &TransportError{Op: "read", Err: err}
		}
		if n == 0 {
			return data, nil
		}
	}
}

// ExpectLength verifies a bulk transfer delivered at least n bytes.
func ExpectLength(data []byte, n int) error {
	if len(data) < n {
		return fmt.Errorf("%w: got %d of %d bytes", ErrShortTransfer, len(data), n)
	}
	return nil
}
