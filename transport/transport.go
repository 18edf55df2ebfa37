// Package transport is the node's UDP broadcast edge: a single socket
// shared between the sender (broadcast datagrams) and the receiver
// (bound listener), wired up as a lifecycle.Component the same way the
// teacher wires up its other long-running services — spec §4/§5.
package transport

import (
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/witlox/dcron/l3"
	"github.com/witlox/dcron/lifecycle"
	"github.com/witlox/dcron/packet"
	"github.com/witlox/dcron/uuid"
	"github.com/witlox/dcron/wire"
)

var logger = l3.Get()

// Sink receives raw datagrams off the wire, handing them to the
// processor's queue. It is satisfied by *processor.Processor.
type Sink interface {
	Enqueue(datagram []byte) error
}

// Transport owns the UDP socket. The sender targets the limited broadcast
// address 255.255.255.255 with SO_BROADCAST set; the receiver listens on
// the same port.
type Transport struct {
	port    int
	sink    Sink
	hmacKey []byte

	mu   sync.Mutex
	conn *net.UDPConn
	wg   sync.WaitGroup
	done chan struct{}
}

// New creates a Transport bound to port, feeding every received datagram
// to sink. hmacKey may be nil to disable message integrity verification.
// sink may be nil if set later via SetSink, before Start — useful when the
// sink itself depends on the Transport as its Broadcaster.
func New(port int, sink Sink, hmacKey []byte) *Transport {
	return &Transport{port: port, sink: sink, hmacKey: hmacKey}
}

// SetSink assigns the datagram sink. Must be called before Start; the
// receive loop reads it without further synchronization once running.
func (t *Transport) SetSink(sink Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}

// Component wraps Transport as a lifecycle.Component for registration
// with a ComponentManager.
func (t *Transport) Component() lifecycle.Component {
	return &lifecycle.SimpleComponent{
		CompId:    "transport",
		StartFunc: t.start,
		StopFunc:  t.stop,
	}
}

func (t *Transport) start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: t.port})
	if err != nil {
		return fmt.Errorf("transport: listening on :%d: %w", t.port, err)
	}
	if err := setBroadcast(conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("transport: enabling SO_BROADCAST: %w", err)
	}

	t.conn = conn
	t.done = make(chan struct{})
	t.wg.Add(1)
	go t.receiveLoop(conn, t.done)
	logger.InfoF("transport: listening on :%d", t.port)
	return nil
}

func (t *Transport) stop() error {
	t.mu.Lock()
	conn := t.conn
	done := t.done
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	close(done)
	err := conn.Close()
	t.wg.Wait()
	return err
}

func (t *Transport) receiveLoop(conn *net.UDPConn, done chan struct{}) {
	defer t.wg.Done()
	buf := make([]byte, packet.Size)
	for {
		select {
		case <-done:
			return
		default:
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-done:
				return
			default:
				logger.WarnF("transport: read error: %v", err)
				continue
			}
		}
		if n != packet.Size {
			logger.DebugF("transport: dropping datagram of unexpected length %d", n)
			continue
		}
		if err := t.sink.Enqueue(buf[:n]); err != nil {
			logger.WarnF("transport: enqueueing datagram: %v", err)
		}
	}
}

// Broadcast fragments msg under a freshly generated message uuid and
// sends every fragment to the broadcast address 255.255.255.255. A send failure is
// reported but not retried here — spec §7 treats it as "warn and retry on
// next heartbeat", which is the caller's responsibility since Broadcast
// itself is stateless per call.
func (t *Transport) Broadcast(msg wire.Message) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("transport: not started")
	}

	payload, err := wire.Encode(msg, t.hmacKey)
	if err != nil {
		return fmt.Errorf("transport: encoding message: %w", err)
	}

	id, err := uuid.V4()
	if err != nil {
		return fmt.Errorf("transport: generating message uuid: %w", err)
	}

	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: t.port}
	for _, frag := range packet.Fragment(id.String(), payload) {
		if _, err := conn.WriteToUDP(packet.Encode(frag), dst); err != nil {
			return fmt.Errorf("transport: sending fragment %d/%d: %w", frag.Index, frag.Total, err)
		}
	}
	return nil
}

func setBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
