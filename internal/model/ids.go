package model

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ID is an opaque 32-byte identifier used for clients, users and risk tiers.
type ID [32]byte

// Address is a 20-byte account address used for tokens, protocols and owners.
type Address [20]byte

// HashID derives an ID from a human label (keccak256 of its UTF-8 bytes).
func HashID(label string) ID {
	var id ID
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(label))
	copy(id[:], h.Sum(nil))
	return id
}

// ParseID parses a 0x-prefixed or bare 64 character hex string.
func ParseID(s string) (ID, error) {
	var id ID
	if err := decodeFixed(s, id[:]); err != nil {
		return ID{}, fmt.Errorf("parse id: %w", err)
	}
	return id, nil
}

// ParseAddress parses a 0x-prefixed or bare 40 character hex string.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := decodeFixed(s, a[:]); err != nil {
		return Address{}, fmt.Errorf("parse address: %w", err)
	}
	return a, nil
}

// MustAddress is ParseAddress for constants and tests.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func decodeFixed(s string, dst []byte) error {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*len(dst) {
		return fmt.Errorf("want %d hex chars, got %d", 2*len(dst), len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}

func (id ID) IsZero() bool { return id == ID{} }
func (a Address) IsZero() bool { return a == Address{} }
func (id ID) String() string { return "0x" + hex.EncodeToString(id[:]) }
func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// Short returns an abbreviated form for logs and reports.
func (id ID) Short() string { return id.String()[:10] }

// Short returns an abbreviated form for logs and reports.
func (a Address) Short() string { return a.String()[:10] }

func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ID) UnmarshalText(b []byte) error {
	v, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(b []byte) error {
	v, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
