// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package rlp

import (
	"fmt"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/holiman/uint256"
)

const (
	// ErrInvalidEncoding is returned for any malformed or non-canonical input.
	ErrInvalidEncoding = common.ConstError("invalid RLP encoding")
	// ErrUnexpectedType is returned when a string was found where a list was
	// expected, or vice versa.
	ErrUnexpectedType = common.ConstError("unexpected RLP item type")
)

// Decode decodes a single RLP item spanning the whole input. Decoded strings
// reference the input buffer, which must thus not be modified while the result
// is in use. Non-canonical encodings and trailing bytes are rejected.
func Decode(rlp []byte) (Item, error) {
	item, size, err := decode(rlp)
	if err != nil {
		return nil, err
	}
	if size != uint64(len(rlp)) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidEncoding, uint64(len(rlp))-size)
	}
	return item, nil
}

// DecodeList is like Decode but requires the top level item to be a list.
func DecodeList(rlp []byte) (List, error) {
	item, err := Decode(rlp)
	if err != nil {
		return List{}, err
	}
	return AsList(item)
}

// decode decodes the first item of an RLP stream. It returns the item and the
// number of bytes it occupies in the stream.
func decode(rlp []byte) (Item, uint64, error) {
	if len(rlp) == 0 {
		return nil, 0, fmt.Errorf("%w: input is empty", ErrInvalidEncoding)
	}

	l := rlp[0]
	switch {
	case l < 0x80: // single byte
		return String{Str: rlp[0:1]}, 1, nil

	case l <= 0xb7: // short string
		length := uint64(l - 0x80)
		if uint64(len(rlp)) < length+1 {
			return nil, 0, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidEncoding, length+1, len(rlp))
		}
		if length == 1 && rlp[1] < 0x80 {
			return nil, 0, fmt.Errorf("%w: single byte %x in string form", ErrInvalidEncoding, rlp[1])
		}
		return String{Str: rlp[1 : length+1]}, length + 1, nil

	case l < 0xc0: // long string
		offset, length, err := readLongSize(rlp, l-0xb7)
		if err != nil {
			return nil, 0, err
		}
		return String{Str: rlp[offset : offset+length]}, offset + length, nil

	case l <= 0xf7: // short list
		length := uint64(l - 0xc0)
		if uint64(len(rlp)) < length+1 {
			return nil, 0, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidEncoding, length+1, len(rlp))
		}
		items, err := decodeList(rlp[1 : length+1])
		if err != nil {
			return nil, 0, err
		}
		return List{Items: items}, length + 1, nil

	default: // long list
		offset, length, err := readLongSize(rlp, l-0xf7)
		if err != nil {
			return nil, 0, err
		}
		items, err := decodeList(rlp[offset : offset+length])
		if err != nil {
			return nil, 0, err
		}
		return List{Items: items}, offset + length, nil
	}
}

// readLongSize parses the size of a long string or list. It returns the offset
// of the payload and its length, making sure the payload is within the input.
func readLongSize(rlp []byte, sizeLength byte) (uint64, uint64, error) {
	length, err := readSize(rlp[1:], sizeLength)
	if err != nil {
		return 0, 0, err
	}
	if rlp[1] == 0 {
		return 0, 0, fmt.Errorf("%w: size with leading zero", ErrInvalidEncoding)
	}
	if length < 56 {
		return 0, 0, fmt.Errorf("%w: long form used for size %d", ErrInvalidEncoding, length)
	}
	offset := uint64(sizeLength) + 1
	if uint64(len(rlp))-offset < length {
		return 0, 0, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidEncoding, offset+length, len(rlp))
	}
	return offset, length, nil
}

// decodeList decodes all items of a list payload, the list prefix already
// being removed.
func decodeList(rlp []byte) ([]Item, error) {
	items := make([]Item, 0, 8)
	buf := rlp
	for len(buf) > 0 {
		item, offset, err := decode(buf)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		buf = buf[offset:]
	}
	return items, nil
}

func readSize(b []byte, slen byte) (uint64, error) {
	if slen == 0 || slen > 8 {
		return 0, fmt.Errorf("%w: unsupported size length %d", ErrInvalidEncoding, slen)
	}
	if int(slen) > len(b) {
		return 0, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidEncoding, slen, len(b))
	}
	var s uint64
	for _, cur := range b[:slen] {
		s = s<<8 | uint64(cur)
	}
	return s, nil
}

// AsList casts the given item into a list.
func AsList(item Item) (List, error) {
	if list, ok := item.(List); ok {
		return list, nil
	}
	return List{}, fmt.Errorf("%w: expected list, got %T", ErrUnexpectedType, item)
}

// AsString casts the given item into a string.
func AsString(item Item) (String, error) {
	if str, ok := item.(String); ok {
		return str, nil
	}
	return String{}, fmt.Errorf("%w: expected string, got %T", ErrUnexpectedType, item)
}

// Uint64 interprets the string as a canonical big-endian integer.
func (s String) Uint64() (uint64, error) {
	if len(s.Str) > 8 {
		return 0, fmt.Errorf("%w: integer of %d bytes exceeds 64 bit", ErrInvalidEncoding, len(s.Str))
	}
	if len(s.Str) > 0 && s.Str[0] == 0 {
		return 0, fmt.Errorf("%w: integer with leading zero", ErrInvalidEncoding)
	}
	var res uint64
	for _, cur := range s.Str {
		res = res<<8 | uint64(cur)
	}
	return res, nil
}

// Uint256 interprets the string as a canonical big-endian integer.
func (s String) Uint256() (*uint256.Int, error) {
	if len(s.Str) > 32 {
		return nil, fmt.Errorf("%w: integer of %d bytes exceeds 256 bit", ErrInvalidEncoding, len(s.Str))
	}
	if len(s.Str) > 0 && s.Str[0] == 0 {
		return nil, fmt.Errorf("%w: integer with leading zero", ErrInvalidEncoding)
	}
	return new(uint256.Int).SetBytes(s.Str), nil
}

// Hash interprets the string as a 32-byte hash.
func (s String) Hash() (common.Hash, error) {
	res, err := common.BytesToHash(s.Str)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return res, nil
}

// StringAt returns the string item at the given position of the list.
func (l List) StringAt(pos int) (String, error) {
	if pos >= len(l.Items) {
		return String{}, fmt.Errorf("%w: no item at position %d of %d", ErrInvalidEncoding, pos, len(l.Items))
	}
	return AsString(l.Items[pos])
}

// ListAt returns the list item at the given position of the list.
func (l List) ListAt(pos int) (List, error) {
	if pos >= len(l.Items) {
		return List{}, fmt.Errorf("%w: no item at position %d of %d", ErrInvalidEncoding, pos, len(l.Items))
	}
	return AsList(l.Items[pos])
}
