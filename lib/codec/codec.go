package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// --------------------------------------------------------------------------
// Primitive Serializers
// --------------------------------------------------------------------------

// The table file format is built from exactly two primitives: unsigned
// 64-bit integers and length-prefixed byte strings. Both are written
// little-endian. Any sequence of primitives written with the encoders is
// decodable by the decoders in the same order; a short read is a fatal
// decode error.

// WriteUint64 writes v as exactly 8 bytes in little-endian order.
func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write uint64: %w", err)
	}
	return nil
}

// ReadUint64 reads exactly 8 little-endian bytes and returns the value.
// A truncated stream yields a wrapped io.ErrUnexpectedEOF.
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteString writes s as its length in uint64 followed by exactly that
// many bytes.
func WriteString(w io.Writer, s string) error {
	if err := WriteUint64(w, uint64(len(s))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write string payload: %w", err)
	}
	return nil
}

// ReadString reads a string written with WriteString.
func ReadString(r io.Reader) (string, error) {
	n, err := ReadUint64(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read string payload: %w", err)
	}
	return string(buf), nil
}
