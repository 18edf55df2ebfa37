package packet

// Group accumulates the fragments of one logical message, keyed by the
// message's uuid. Fragments may arrive in any order; a group reports
// Complete() once every index in [0, Total) has been seen.
type Group struct {
	UUID     string
	Total    uint32
	fragments map[uint32][]byte
}

// NewGroup creates an empty reassembly group for uuid.
func NewGroup(uuid string) *Group {
	return &Group{UUID: uuid, fragments: make(map[uint32][]byte)}
}

// Add records one fragment. Fragments for a uuid must agree on Total;
// a fragment reporting a different Total than one already seen is ignored
// (the sender restarted the message under the same uuid, which the spec
// does not guarantee never happens, but re-broadcast means a fresh uuid
// will supersede it within one heartbeat period regardless).
func (g *Group) Add(p Packet) {
	if g.Total == 0 {
		g.Total = p.Total
	} else if g.Total != p.Total {
		return
	}
	g.fragments[p.Index] = p.Data
}

// Complete reports whether every fragment index in [0, Total) has arrived.
func (g *Group) Complete() bool {
	if g.Total == 0 {
		return false
	}
	for i := uint32(0); i < g.Total; i++ {
		if _, ok := g.fragments[i]; !ok {
			return false
		}
	}
	return true
}

// Assemble concatenates the fragments in index order. The caller is
// responsible for trimming any trailing zero padding belonging to the
// last fragment — the true payload length is carried inside the
// serialized message itself (see package wire), not at the packet layer,
// since a fixed-size datagram has no notion of "this is the last byte of
// real data" on its own.
func (g *Group) Assemble() []byte {
	buf := make([]byte, 0, int(g.Total)*DataLen)
	for i := uint32(0); i < g.Total; i++ {
		buf = append(buf, g.fragments[i]...)
	}
	return buf
}

// FragmentCount returns the number of fragments currently buffered.
func (g *Group) FragmentCount() int {
	return len(g.fragments)
}
