// Package packet implements the fixed-layout UDP datagram framing used to
// carry cluster messages: fragmentation of an arbitrary byte buffer into
// 1024-byte datagrams and reassembly of a packet group back into the
// original buffer.
package packet

import (
	"encoding/binary"
	"errors"
	"unicode/utf8"
)

const (
	// Size is the total wire size of one datagram, in bytes.
	Size = 1024
	// UUIDLen is the width of the uuid field, ASCII.
	UUIDLen = 36
	// totalLen is the width of the total-fragment-count field.
	totalLen = 4
	// indexLen is the width of the fragment-index field.
	indexLen = 4
	// DataLen is the width of the payload field carried by one datagram.
	DataLen = Size - UUIDLen - totalLen - indexLen

	headerLen = UUIDLen + totalLen + indexLen
)

// ErrMalformed is returned by Decode when a buffer cannot possibly be a
// valid packet (wrong size, uuid field that is not valid UTF-8). A malformed datagram is
// discarded silently by the transport; this error exists for tests and
// for the debug-level log line the transport emits when dropping one.
var ErrMalformed = errors.New("packet: malformed datagram")

// Packet is one fragment of a larger logical message.
type Packet struct {
	UUID  string
	Total uint32
	Index uint32
	Data  []byte
}

// Encode renders a Packet into its fixed 1024-byte wire form. The data
// field is right-padded with zeros when shorter than DataLen.
func Encode(p Packet) []byte {
	buf := make([]byte, Size)
	copy(buf[:UUIDLen], p.UUID)
	binary.BigEndian.PutUint32(buf[UUIDLen:UUIDLen+totalLen], p.Total)
	binary.BigEndian.PutUint32(buf[UUIDLen+totalLen:headerLen], p.Index)
	copy(buf[headerLen:], p.Data)
	return buf
}

// Decode parses a raw datagram into a Packet. It returns ErrMalformed for
// anything that cannot be a valid fragment: wrong length or a uuid field
// that is not valid UTF-8/ASCII. Decode does not know the original payload
// length of the last fragment; trailing zero padding is trimmed by the
// caller once the group is complete and the true length is known from the
// deserialized payload itself.
func Decode(buf []byte) (Packet, error) {
	if len(buf) != Size {
		return Packet{}, ErrMalformed
	}
	uuidBytes := buf[:UUIDLen]
	if !utf8.Valid(uuidBytes) {
		return Packet{}, ErrMalformed
	}
	return Packet{
		UUID:  string(uuidBytes),
		Total: binary.BigEndian.Uint32(buf[UUIDLen : UUIDLen+totalLen]),
		Index: binary.BigEndian.Uint32(buf[UUIDLen+totalLen : headerLen]),
		Data:  append([]byte(nil), buf[headerLen:]...),
	}, nil
}

// Fragment splits payload into the Packets needed to carry it, all sharing
// uuid. The last fragment is short; Encode pads it to DataLen with zeros.
func Fragment(uuid string, payload []byte) []Packet {
	total := (len(payload) + DataLen - 1) / DataLen
	if total == 0 {
		total = 1
	}
	packets := make([]Packet, 0, total)
	for i := 0; i < total; i++ {
		start := i * DataLen
		end := start + DataLen
		if end > len(payload) {
			end = len(payload)
		}
		packets = append(packets, Packet{
			UUID:  uuid,
			Total: uint32(total),
			Index: uint32(i),
			Data:  payload[start:end],
		})
	}
	return packets
}
