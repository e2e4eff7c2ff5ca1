package publish

import (
	"encoding/json"
	"fmt"
	"net"
)

type udpConn interface {
	Write([]byte) (int, error)
	Close() error
}

type (
	resolveUDPFunc func(network, address string) (*net.UDPAddr, error)
	dialUDPFunc    func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)
)

// UDP sends every record as one JSON datagram {"source":...,"data":...} to a
// fixed destination, for displays that listen on a UDP port.
type UDP struct {
	dest string
	conn udpConn
}

type udpDatagram struct {
	Source string `json:"source"`
	Data   any    `json:"data"`
}

func NewUDP(dest string) (*UDP, error) {
	return newUDP(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newUDP(dest string, resolve resolveUDPFunc, dial dialUDPFunc) (*UDP, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &UDP{dest: dest, conn: conn}, nil
}

func (u *UDP) Publish(source string, v any) error {
	b, err := json.Marshal(udpDatagram{Source: source, Data: v})
	if err != nil {
		return fmt.Errorf("udp marshal %s: %w", source, err)
	}
	if _, err := u.conn.Write(b); err != nil {
		return fmt.Errorf("udp send %s to %s: %w", source, u.dest, err)
	}
	return nil
}

func (u *UDP) Close() {
	if u == nil || u.conn == nil {
		return
	}
	_ = u.conn.Close()
}
