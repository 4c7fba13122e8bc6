// Package udp is the reference zhe.Transport implementation: plain
// UDP unicast plus IPv4 multicast group membership for the scout/
// mconduit rendezvous addresses, using golang.org/x/net/ipv4 for
// group join/leave the way a real deployment would rather than
// reimplementing IGMP membership calls by hand.
//
// The engine itself (pkg/zhe) never spawns a goroutine; this package
// does, for the same reason the teacher's transport layer does: a
// blocking read has to live somewhere, and it is the transport's job
// to own that, not the engine's (spec §5's "Shared-resource policy").
package udp

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/jim1993/zhe/pkg/zhe"
)

// datagram is one received packet, tagged with its source.
type datagram struct {
	payload []byte
	src     *net.UDPAddr
}

// Addr adapts *net.UDPAddr to zhe.Address.
type Addr struct {
	udp *net.UDPAddr
}

func (a Addr) String() string {
	if a.udp == nil {
		return ""
	}
	return a.udp.String()
}

func (a Addr) Equal(o zhe.Address) bool {
	return o != nil && o.String() == a.String()
}

// Transport is a zhe.Transport backed by a single UDP socket, with
// optional IPv4 multicast group membership for discovery/mconduit
// addresses.
type Transport struct {
	conn  *net.UDPConn
	pconn *ipv4.PacketConn

	recvCh  chan datagram
	pending *datagram

	ctx    context.Context
	cancel context.CancelFunc
}

var _ zhe.Transport = (*Transport)(nil)

// Listen opens a UDP socket on laddr ("host:port", "" host binds all
// interfaces) and starts the background read loop.
func Listen(laddr string) (*Transport, error) {
	addr, err := net.ResolveUDPAddr("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve %q: %w", laddr, err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("udp: listen %q: %w", laddr, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		conn:   conn,
		pconn:  ipv4.NewPacketConn(conn),
		recvCh: make(chan datagram, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	go t.poll()
	return t, nil
}

// JoinGroup joins the IPv4 multicast group named by addr ("host:port")
// on every available interface, so SCOUT/mconduit traffic addressed
// to it is received.
func (t *Transport) JoinGroup(addr string) error {
	gaddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("udp: resolve group %q: %w", addr, err)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("udp: list interfaces: %w", err)
	}
	joined := false
	for i := range ifaces {
		if err := t.pconn.JoinGroup(&ifaces[i], &net.UDPAddr{IP: gaddr.IP}); err == nil {
			joined = true
		}
	}
	if !joined {
		return fmt.Errorf("udp: could not join group %q on any interface", addr)
	}
	return nil
}

// poll is the one background goroutine this package runs: it blocks
// on ReadFromUDP and forwards each datagram to recvCh until Close.
func (t *Transport) poll() {
	buf := make([]byte, 65535)
	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.ctx.Done():
				return
			default:
				continue
			}
		}
		cp := append([]byte(nil), buf[:n]...)
		select {
		case t.recvCh <- datagram{payload: cp, src: src}:
		case <-t.ctx.Done():
			return
		}
	}
}

// Wait blocks up to timeoutMs for a datagram to become receivable.
func (t *Transport) Wait(timeoutMs int) bool {
	if t.pending != nil {
		return true
	}
	if timeoutMs <= 0 {
		select {
		case d := <-t.recvCh:
			t.pending = &d
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case d := <-t.recvCh:
		t.pending = &d
		return true
	case <-timer.C:
		return false
	case <-t.ctx.Done():
		return false
	}
}

// Recv copies one pending datagram into buf, non-blocking.
func (t *Transport) Recv(buf []byte) (int, zhe.Address, error) {
	if t.pending == nil {
		select {
		case d := <-t.recvCh:
			t.pending = &d
		default:
			return 0, nil, nil
		}
	}
	d := t.pending
	t.pending = nil
	n := copy(buf, d.payload)
	return n, Addr{d.src}, nil
}

// Send transmits buf to dst.
func (t *Transport) Send(buf []byte, dst zhe.Address) (bool, error) {
	a, ok := dst.(Addr)
	if !ok {
		return false, fmt.Errorf("udp: Send: dst is not a udp.Addr: %T", dst)
	}
	if _, err := t.conn.WriteToUDP(buf, a.udp); err != nil {
		return false, err
	}
	return true, nil
}

// ParseAddr resolves a "host:port" string.
func (t *Transport) ParseAddr(s string) (zhe.Address, error) {
	a, err := net.ResolveUDPAddr("udp4", s)
	if err != nil {
		return nil, err
	}
	return Addr{a}, nil
}

// Close stops the read loop and releases the socket.
func (t *Transport) Close() error {
	t.cancel()
	return t.conn.Close()
}
