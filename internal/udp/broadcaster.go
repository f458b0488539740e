package udp

import (
	"fmt"
	"net"
	"time"

	"i2cgps/internal/i2cgps"
	"i2cgps/internal/nmea"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

// Broadcaster sends NMEA sentences to a single UDP destination, which may be
// a broadcast address.
type Broadcaster struct {
	dest string
	conn udpConn
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	return newBroadcaster(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newBroadcaster(
	dest string,
	resolve func(network, address string) (*net.UDPAddr, error),
	dial func(network string, laddr, raddr *net.UDPAddr) (udpConn, error),
) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{
		dest: dest,
		conn: conn,
	}, nil
}

func (b *Broadcaster) Dest() string { return b.dest }

func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

// PublishReading sends RMC followed by GGA in one datagram.
func (b *Broadcaster) PublishReading(now time.Time, r i2cgps.Reading) error {
	payload := nmea.RMC(r, now) + nmea.GGA(r, now)
	return b.Send([]byte(payload))
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
