package source

import (
	"bufio"
	"fmt"
)

// maxFrameSize guards against a corrupted stream producing an unbounded
// frame read.
const maxFrameSize = 10 * 1024 * 1024

// scanJPEG reads one complete JPEG image (SOI through EOI marker) from a
// concatenated JPEG byte stream, discarding any bytes before the SOI marker.
func scanJPEG(r *bufio.Reader) ([]byte, error) {
	if err := findJPEGStart(r); err != nil {
		return nil, err
	}
	return readUntilJPEGEnd(r)
}

// findJPEGStart consumes bytes until the FF D8 start-of-image marker.
func findJPEGStart(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != 0xFF {
			continue
		}
		b, err = r.ReadByte()
		if err != nil {
			return err
		}
		if b == 0xD8 {
			return nil
		}
	}
}

// readUntilJPEGEnd collects bytes through the FF D9 end-of-image marker.
func readUntilJPEGEnd(r *bufio.Reader) ([]byte, error) {
	data := []byte{0xFF, 0xD8}

	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		data = append(data, b)

		if b == 0xFF {
			next, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			data = append(data, next)
			if next == 0xD9 {
				return data, nil
			}
		}

		if len(data) > maxFrameSize {
			return nil, fmt.Errorf("jpeg frame exceeds %d bytes", maxFrameSize)
		}
	}
}
