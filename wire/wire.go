// Package wire implements the message serializer: object to byte buffer
// (stable, self-describing JSON via the teacher's codec package) with an
// optional HMAC-SHA1 integrity suffix, and back. Verification always
// precedes deserialization; a verification failure is a typed error, never
// a panic, so the processor can drop and log a warning per spec §4.2/§7.
package wire

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/witlox/dcron/codec"
)

// ErrUnknownKind is returned when an envelope names a Kind this version of
// the wire format does not recognize.
var ErrUnknownKind = errors.New("wire: unknown message kind")

// ErrHMACMismatch is returned when a message carries an HMAC suffix that
// does not verify, or is missing one when verification was requested.
var ErrHMACMismatch = errors.New("wire: hmac verification failed")

// ErrTruncated is returned when the buffer is shorter than its own declared
// length prefix — an incomplete or corrupt reassembly.
var ErrTruncated = errors.New("wire: truncated frame")

const (
	lengthPrefixLen = 8 // uint64 BE, byte length of the JSON envelope
	hmacLen         = sha1.Size
)

var jsonCodec = codec.JsonCodec()

type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode serializes msg to a byte buffer suitable for packet.Fragment: an
// 8-byte length prefix, the JSON envelope, and — when hmacKey is non-nil —
// a single space followed by the 20-byte HMAC-SHA1 of the envelope bytes.
// The length prefix is what lets reassembly trim the last fragment's zero
// padding without guessing (spec §4.2 permits a length-prefixed framing in
// place of using the last space byte as the split marker).
func Encode(msg Message, hmacKey []byte) ([]byte, error) {
	payload, err := jsonCodec.EncodeToBytes(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding payload: %w", err)
	}
	b, err := jsonCodec.EncodeToBytes(envelope{Kind: msg.Kind(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("wire: encoding envelope: %w", err)
	}

	out := make([]byte, lengthPrefixLen, lengthPrefixLen+len(b)+1+hmacLen)
	binary.BigEndian.PutUint64(out, uint64(len(b)))
	out = append(out, b...)
	if hmacKey != nil {
		mac := hmac.New(sha1.New, hmacKey)
		mac.Write(b)
		out = append(out, ' ')
		out = append(out, mac.Sum(nil)...)
	}
	return out, nil
}

// Decode verifies (when hmacKey is non-nil) and deserializes a buffer
// produced by Encode. Verification happens before any JSON is parsed.
func Decode(buf []byte, hmacKey []byte) (Message, error) {
	if len(buf) < lengthPrefixLen {
		return nil, ErrTruncated
	}
	n := binary.BigEndian.Uint64(buf[:lengthPrefixLen])
	rest := buf[lengthPrefixLen:]
	if uint64(len(rest)) < n {
		return nil, ErrTruncated
	}
	b := rest[:n]

	if hmacKey != nil {
		suffix := rest[n:]
		if len(suffix) < 1+hmacLen || suffix[0] != ' ' {
			return nil, ErrHMACMismatch
		}
		got := suffix[1 : 1+hmacLen]
		mac := hmac.New(sha1.New, hmacKey)
		mac.Write(b)
		if !hmac.Equal(got, mac.Sum(nil)) {
			return nil, ErrHMACMismatch
		}
	}

	var env envelope
	if err := jsonCodec.DecodeBytes(b, &env); err != nil {
		return nil, fmt.Errorf("wire: decoding envelope: %w", err)
	}
	return decodePayload(env.Kind, env.Payload)
}

func decodePayload(kind string, payload json.RawMessage) (Message, error) {
	switch kind {
	case KindStatus:
		var m Status
		if err := jsonCodec.DecodeBytes(payload, &m); err != nil {
			return nil, fmt.Errorf("wire: decoding status: %w", err)
		}
		return m, nil
	case KindJob:
		var m Job
		if err := jsonCodec.DecodeBytes(payload, &m); err != nil {
			return nil, fmt.Errorf("wire: decoding job: %w", err)
		}
		return m, nil
	case KindRebalance:
		var m Rebalance
		if err := jsonCodec.DecodeBytes(payload, &m); err != nil {
			return nil, fmt.Errorf("wire: decoding rebalance: %w", err)
		}
		return m, nil
	case KindRun:
		var m Run
		if err := jsonCodec.DecodeBytes(payload, &m); err != nil {
			return nil, fmt.Errorf("wire: decoding run: %w", err)
		}
		return m, nil
	case KindKill:
		var m Kill
		if err := jsonCodec.DecodeBytes(payload, &m); err != nil {
			return nil, fmt.Errorf("wire: decoding kill: %w", err)
		}
		return m, nil
	case KindToggle:
		var m Toggle
		if err := jsonCodec.DecodeBytes(payload, &m); err != nil {
			return nil, fmt.Errorf("wire: decoding toggle: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}
