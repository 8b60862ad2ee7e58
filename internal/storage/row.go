package storage

// Package storage - Row codec
//
// EDUCATIONAL NOTES:
// ------------------
// A Row is the only record shape this engine ever stores: a 32-bit
// primary key plus two short strings. The wire format is
// length-prefixed rather than fixed-width so that a leaf's slotted
// page can pack rows tightly:
//
//	[id:4][ulen:2][username:ulen][elen:2][email:elen]
//
// The first four bytes of every serialized row are always the id, so
// a leaf can read a cell's key without deserializing the rest of the
// record.

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MaxUsernameLen is the maximum encodable username length in bytes.
	MaxUsernameLen = 31
	// MaxEmailLen is the maximum encodable email length in bytes.
	MaxEmailLen = 254

	// MinRowSize is the smallest possible serialized row (empty strings).
	MinRowSize = 4 + 2 + 2
	// MaxRowSize is the largest possible serialized row.
	MaxRowSize = 4 + 2 + MaxUsernameLen + 2 + MaxEmailLen
)

// ErrFieldTooLong is returned when a row's username or email exceeds
// the wire format's encodable length.
var ErrFieldTooLong = errors.New("storage: field exceeds maximum length")

// Row is the single logical record type this engine persists.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

// SerializedSize returns the exact number of bytes Serialize(row) would
// produce, without allocating.
func (r Row) SerializedSize() int {
	return 4 + 2 + len(r.Username) + 2 + len(r.Email)
}

// Validate reports whether the row's fields fit the wire format.
func (r Row) Validate() error {
	if len(r.Username) > MaxUsernameLen {
		return fmt.Errorf("%w: username %d bytes (max %d)", ErrFieldTooLong, len(r.Username), MaxUsernameLen)
	}
	if len(r.Email) > MaxEmailLen {
		return fmt.Errorf("%w: email %d bytes (max %d)", ErrFieldTooLong, len(r.Email), MaxEmailLen)
	}
	return nil
}

// Serialize writes the row's wire form into dest, which must be at
// least r.SerializedSize() bytes, and returns the number of bytes
// written.
func Serialize(r Row, dest []byte) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	need := r.SerializedSize()
	if len(dest) < need {
		return 0, fmt.Errorf("storage: serialize buffer too small: have %d need %d", len(dest), need)
	}

	off := 0
	binary.LittleEndian.PutUint32(dest[off:], r.ID)
	off += 4

	ulen := uint16(len(r.Username))
	binary.LittleEndian.PutUint16(dest[off:], ulen)
	off += 2
	off += copy(dest[off:], r.Username)

	elen := uint16(len(r.Email))
	binary.LittleEndian.PutUint16(dest[off:], elen)
	off += 2
	off += copy(dest[off:], r.Email)

	return off, nil
}

// Deserialize reads a row back out of its wire form.
func Deserialize(src []byte) (Row, error) {
	if len(src) < MinRowSize {
		return Row{}, fmt.Errorf("storage: record too short to deserialize: %d bytes", len(src))
	}
	off := 0
	id := binary.LittleEndian.Uint32(src[off:])
	off += 4

	ulen := int(binary.LittleEndian.Uint16(src[off:]))
	off += 2
	if off+ulen > len(src) {
		return Row{}, errors.New("storage: truncated username in record")
	}
	username := string(src[off : off+ulen])
	off += ulen

	if off+2 > len(src) {
		return Row{}, errors.New("storage: truncated record (missing email length)")
	}
	elen := int(binary.LittleEndian.Uint16(src[off:]))
	off += 2
	if off+elen > len(src) {
		return Row{}, errors.New("storage: truncated email in record")
	}
	email := string(src[off : off+elen])

	return Row{ID: id, Username: username, Email: email}, nil
}
