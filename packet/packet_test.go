package packet

import (
	"bytes"
	"math/rand"
	"testing"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	r := rand.New(rand.NewSource(1))
	if _, err := r.Read(b); err != nil {
		t.Fatalf("generating random payload: %v", err)
	}
	return b
}

func TestFragmentCount(t *testing.T) {
	cases := []int{0, 1, DataLen - 1, DataLen, DataLen + 1, 10 * DataLen}
	for _, n := range cases {
		payload := randomBytes(t, n)
		frags := Fragment("00000000-0000-0000-0000-000000000000", payload)
		want := (n + DataLen - 1) / DataLen
		if want == 0 {
			want = 1
		}
		if len(frags) != want {
			t.Errorf("len(payload)=%d: got %d fragments, want %d", n, len(frags), want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := Packet{UUID: "11111111-1111-1111-1111-111111111111", Total: 3, Index: 1, Data: []byte("hello")}
	buf := Encode(p)
	if len(buf) != Size {
		t.Fatalf("encoded size = %d, want %d", len(buf), Size)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.UUID != p.UUID || got.Total != p.Total || got.Index != p.Index {
		t.Errorf("Decode round-trip mismatch: got %+v", got)
	}
	if !bytes.Equal(got.Data[:len(p.Data)], p.Data) {
		t.Errorf("Decode data mismatch: got %q, want prefix %q", got.Data, p.Data)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode(make([]byte, Size-1)); err != ErrMalformed {
		t.Errorf("short buffer: got err %v, want ErrMalformed", err)
	}
	bad := make([]byte, Size)
	bad[0] = 0xff
	bad[1] = 0xfe
	if _, err := Decode(bad); err != ErrMalformed {
		t.Errorf("invalid uuid utf8: got err %v, want ErrMalformed", err)
	}
}

func TestGroupReassembly(t *testing.T) {
	const n = 10 * DataLen
	payload := randomBytes(t, n)
	uuid := "22222222-2222-2222-2222-222222222222"
	frags := Fragment(uuid, payload)

	g := NewGroup(uuid)
	for _, f := range frags {
		g.Add(f)
	}
	if !g.Complete() {
		t.Fatal("expected group to be complete")
	}
	got := g.Assemble()
	if !bytes.Equal(got[:n], payload) {
		t.Error("reassembled payload does not match original")
	}
}

func TestGroupIncompleteWithoutOneFragment(t *testing.T) {
	payload := randomBytes(t, 5*DataLen)
	uuid := "33333333-3333-3333-3333-333333333333"
	frags := Fragment(uuid, payload)

	for skip := range frags {
		g := NewGroup(uuid)
		for i, f := range frags {
			if i == skip {
				continue
			}
			g.Add(f)
		}
		if g.Complete() {
			t.Errorf("group should be incomplete when fragment %d is missing", skip)
		}
	}
}

func TestGroupOutOfOrderArrival(t *testing.T) {
	payload := randomBytes(t, 7*DataLen+13)
	uuid := "44444444-4444-4444-4444-444444444444"
	frags := Fragment(uuid, payload)

	g := NewGroup(uuid)
	for i := len(frags) - 1; i >= 0; i-- {
		g.Add(frags[i])
	}
	if !g.Complete() {
		t.Fatal("expected group to be complete regardless of arrival order")
	}
}
