package storage

import (
	"errors"
	"testing"
)

func TestRowRoundTrip(t *testing.T) {
	cases := []Row{
		{ID: 1, Username: "alice", Email: "a@x"},
		{ID: 0, Username: "", Email: ""},
		{ID: 4294967295, Username: "thirty-one-bytes-exactly-here!!", Email: "z"},
	}
	for _, r := range cases {
		buf := make([]byte, r.SerializedSize())
		n, err := Serialize(r, buf)
		if err != nil {
			t.Fatalf("Serialize(%+v): %v", r, err)
		}
		if n != r.SerializedSize() {
			t.Errorf("Serialize(%+v) wrote %d bytes, SerializedSize()=%d", r, n, r.SerializedSize())
		}
		got, err := Deserialize(buf[:n])
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		if got != r {
			t.Errorf("round trip mismatch: got %+v want %+v", got, r)
		}
	}
}

func TestRowValidateTooLong(t *testing.T) {
	r := Row{ID: 1, Username: string(make([]byte, MaxUsernameLen+1))}
	if err := r.Validate(); !errors.Is(err, ErrFieldTooLong) {
		t.Errorf("expected ErrFieldTooLong, got %v", err)
	}

	r2 := Row{ID: 1, Email: string(make([]byte, MaxEmailLen+1))}
	if err := r2.Validate(); !errors.Is(err, ErrFieldTooLong) {
		t.Errorf("expected ErrFieldTooLong, got %v", err)
	}
}

func TestDeserializeTruncated(t *testing.T) {
	if _, err := Deserialize([]byte{1, 2, 3}); err == nil {
		t.Error("expected error deserializing a too-short buffer")
	}
}

func TestRowSizeBounds(t *testing.T) {
	min := Row{}
	if min.SerializedSize() != MinRowSize {
		t.Errorf("empty row size = %d, want %d", min.SerializedSize(), MinRowSize)
	}
	max := Row{Username: string(make([]byte, MaxUsernameLen)), Email: string(make([]byte, MaxEmailLen))}
	if max.SerializedSize() != MaxRowSize {
		t.Errorf("max row size = %d, want %d", max.SerializedSize(), MaxRowSize)
	}
}
