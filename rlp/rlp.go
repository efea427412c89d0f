// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package rlp implements the Recursive-Length Prefix encoding used for
// snapshot chunks, account records and trie nodes.
//
// The definition of the RLP encoding can be found here:
// https://ethereum.org/en/developers/docs/data-structures-and-encoding/rlp
//
// An item is either a string of bytes or a list of items. Encoders in this
// package know the exact encoded length of every item before writing it, which
// the chunking code relies on to respect its size budgets.
package rlp

import (
	"encoding/binary"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/holiman/uint256"
)

// Item is an interface for everything that can be RLP encoded by this package.
type Item interface {
	// write writes the RLP encoding of this item to the given writer.
	write(writer) writer

	// getEncodedLength computes the encoded length of this item in bytes.
	getEncodedLength() int
}

// Encode is a convenience function for serializing an item structure.
func Encode(item Item) []byte {
	return EncodeInto(make([]byte, 0, item.getEncodedLength()), item)
}

// EncodeInto appends the encoding of the given item to dst.
func EncodeInto(dst []byte, item Item) []byte {
	writer := writer(dst)
	return item.write(writer)
}

// EncodedLength returns the number of bytes Encode would produce for the item.
func EncodedLength(item Item) int {
	return item.getEncodedLength()
}

// ListLength returns the encoded size of a list whose items take up
// payloadLength bytes in total.
func ListLength(payloadLength int) int {
	return payloadLength + getEncodedLengthLength(payloadLength)
}

// writer is a specialized writer for this package writing encoded RLP
// content in a pre-allocated buffer.
type writer []byte

func (w writer) Write(data []byte) writer {
	return append(w, data...)
}

func (w writer) Put(c byte) writer {
	return append(w, c)
}

// ----------------------------------------------------------------------------
//                           Core Item Types
// ----------------------------------------------------------------------------

// String is the atomic ground type of an RLP input structure representing a
// (potentially empty) string of bytes.
type String struct {
	Str []byte
}

func (s String) write(writer writer) writer {
	l := len(s.Str)
	// Single-element strings are encoded as a single byte if the
	// value is small enough.
	if l == 1 && s.Str[0] < 0x80 {
		return writer.Write(s.Str)
	}
	writer = encodeLength(l, 0x80, writer)
	return writer.Write(s.Str)
}

func (s String) getEncodedLength() int {
	l := len(s.Str)
	if l == 1 && s.Str[0] < 0x80 {
		return 1
	}
	return l + getEncodedLengthLength(l)
}

// Hash holds a pointer to a hash to be encoded as a 32-byte string without
// converting the array into a slice first.
type Hash struct {
	Hash *common.Hash
}

func (s Hash) write(writer writer) writer {
	writer = encodeLength(common.HashSize, 0x80, writer)
	return writer.Write(s.Hash[:])
}

func (s Hash) getEncodedLength() int {
	return common.HashSize + 1
}

// List composes a list of items into a new item to be serialized.
type List struct {
	Items []Item
}

func (l List) write(writer writer) writer {
	length := 0
	for i := 0; i < len(l.Items); i++ {
		length += l.Items[i].getEncodedLength()
	}
	writer = encodeLength(length, 0xc0, writer)
	for i := 0; i < len(l.Items); i++ {
		writer = l.Items[i].write(writer)
	}
	return writer
}

func (l List) getEncodedLength() int {
	sum := 0
	for _, item := range l.Items {
		sum += item.getEncodedLength()
	}
	return sum + getEncodedLengthLength(sum)
}

// Encoded allows for embedding an already RLP encoded data fragment in a new
// RLP encoding. The data is not validated.
type Encoded struct {
	Data []byte
}

func (e Encoded) write(writer writer) writer {
	return writer.Write(e.Data)
}

func (e Encoded) getEncodedLength() int {
	return len(e.Data)
}

// encodeLength is utility function used by String and List structures to
// encode the length of the string or list in the output stream.
func encodeLength(length int, offset byte, writer writer) writer {
	if length < 56 {
		return writer.Put(offset + byte(length))
	}
	numBytesForLength := getNumBytes(uint64(length))
	writer = writer.Put(offset + 55 + numBytesForLength)
	for i := byte(0); i < numBytesForLength; i++ {
		writer = writer.Put(byte(length >> (8 * (numBytesForLength - i - 1))))
	}
	return writer
}

// getNumBytes computes the minimum number of bytes required to represent
// the given value in big-endian encoding.
func getNumBytes(value uint64) byte {
	if value == 0 {
		return 0
	}
	for res := byte(1); ; res++ {
		if value >>= 8; value == 0 {
			return res
		}
	}
}

func getEncodedLengthLength(length int) int {
	if length < 56 {
		return 1
	}
	return int(getNumBytes(uint64(length))) + 1
}

// ----------------------------------------------------------------------------
//                           Utility Item Types
// ----------------------------------------------------------------------------

// Uint64 is an Item encoding unsigned integers into RLP by interpreting them
// as a string of bytes. The bytes are derived from the integer value by
// encoding it in big-endian byte order and removing leading zero-bytes.
type Uint64 struct {
	Value uint64
}

func (u Uint64) write(writer writer) writer {
	if u.Value == 0 {
		return writer.Put(0x80)
	}
	var buffer [8]byte
	binary.BigEndian.PutUint64(buffer[:], u.Value)
	return String{Str: buffer[8-getNumBytes(u.Value):]}.write(writer)
}

func (u Uint64) getEncodedLength() int {
	if u.Value < 0x80 {
		return 1
	}
	return 1 + int(getNumBytes(u.Value))
}

// Uint256 encodes a 256-bit unsigned integer the same way Uint64 does. A nil
// value is encoded as zero.
type Uint256 struct {
	Value *uint256.Int
}

func (u Uint256) write(writer writer) writer {
	if u.Value == nil || u.Value.IsUint64() {
		return Uint64{Value: u.uint64()}.write(writer)
	}
	return String{Str: u.Value.Bytes()}.write(writer)
}

func (u Uint256) getEncodedLength() int {
	if u.Value == nil || u.Value.IsUint64() {
		return Uint64{Value: u.uint64()}.getEncodedLength()
	}
	return 1 + u.Value.ByteLen()
}

func (u Uint256) uint64() uint64 {
	if u.Value == nil {
		return 0
	}
	return u.Value.Uint64()
}
