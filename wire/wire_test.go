package wire

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTripNoHMAC(t *testing.T) {
	want := Status{IP: "10.0.0.1", Load: 0.42, Time: time.Unix(1000, 0).UTC(), State: StateRunning}
	buf, err := Encode(want, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(buf, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	s, ok := got.(Status)
	if !ok {
		t.Fatalf("decoded type = %T, want Status", got)
	}
	if s != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", s, want)
	}
}

func TestEncodeDecodeRoundTripWithHMAC(t *testing.T) {
	key := []byte("shared-secret")
	want := Toggle{Job: Job{Pattern: "* * * * *", Command: "echo 1"}}
	buf, err := Encode(want, key)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(buf, key)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tg, ok := got.(Toggle)
	if !ok {
		t.Fatalf("decoded type = %T, want Toggle", got)
	}
	if tg.Job.Pattern != want.Job.Pattern || tg.Job.Command != want.Job.Command {
		t.Errorf("round trip mismatch: got %+v, want %+v", tg, want)
	}
}

func TestHMACBitFlipFailsVerification(t *testing.T) {
	key := []byte("shared-secret")
	msg := Run{Job: Job{Pattern: "@hourly", Command: "echo hi"}}
	buf, err := Encode(msg, key)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := range buf {
		flipped := append([]byte(nil), buf...)
		flipped[i] ^= 0x01
		if _, err := Decode(flipped, key); err == nil {
			t.Errorf("flipping bit at byte %d: expected verification failure, got none", i)
		}
	}
}

func TestMissingHMACWhenExpectedFails(t *testing.T) {
	msg := Status{IP: "10.0.0.2", Load: 0, Time: time.Now().UTC(), State: StateRunning}
	buf, err := Encode(msg, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(buf, []byte("expected-key")); err != ErrHMACMismatch {
		t.Errorf("got err %v, want ErrHMACMismatch", err)
	}
}

func TestUnknownKindFails(t *testing.T) {
	// Build an envelope with a bogus kind directly, bypassing Encode's
	// Message-typed signature (which can't express an invalid kind).
	b, err := jsonCodec.EncodeToBytes(envelope{Kind: "bogus", Payload: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("encoding envelope: %v", err)
	}
	buf := lenPrefix(uint64(len(b)))
	buf = append(buf, b...)
	if _, err := Decode(buf, nil); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("got err %v, want ErrUnknownKind", err)
	}
}

func lenPrefix(n uint64) []byte {
	buf := make([]byte, lengthPrefixLen)
	for i := 0; i < lengthPrefixLen; i++ {
		buf[lengthPrefixLen-1-i] = byte(n >> (8 * i))
	}
	return buf
}
