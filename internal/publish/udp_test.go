package publish

import (
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	writes   [][]byte
	writeErr error
	closed   bool
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestNewUDP_DialsResolvedAddr(t *testing.T) {
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}
	u, err := newUDP("127.0.0.1:4000", net.ResolveUDPAddr, func(network string, _, raddr *net.UDPAddr) (udpConn, error) {
		assert.Equal(t, "udp", network)
		gotRaddr = raddr
		return fc, nil
	})
	require.NoError(t, err)

	require.NotNil(t, gotRaddr)
	assert.Equal(t, 4000, gotRaddr.Port)
	assert.True(t, gotRaddr.IP.Equal(net.IPv4(127, 0, 0, 1)))

	u.Close()
	assert.True(t, fc.closed)
}

func TestNewUDP_ResolveFailure(t *testing.T) {
	resolveErr := errors.New("nope")
	_, err := newUDP("bad:addr",
		func(string, string) (*net.UDPAddr, error) { return nil, resolveErr },
		func(string, *net.UDPAddr, *net.UDPAddr) (udpConn, error) { return &fakeConn{}, nil },
	)
	assert.ErrorIs(t, err, resolveErr)
}

func TestUDP_PublishDatagram(t *testing.T) {
	fc := &fakeConn{}
	u := &UDP{dest: "x", conn: fc}

	require.NoError(t, u.Publish("javad", map[string]int{"n": 1}))
	require.Len(t, fc.writes, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal(fc.writes[0], &got))
	assert.Equal(t, "javad", got["source"])
	assert.Equal(t, map[string]any{"n": float64(1)}, got["data"])
}

func TestUDP_PublishErrors(t *testing.T) {
	fc := &fakeConn{writeErr: errors.New("unreachable")}
	u := &UDP{dest: "x", conn: fc}
	assert.ErrorContains(t, u.Publish("ais", 1), "unreachable")
	assert.Error(t, u.Publish("ais", make(chan int)))
}

func TestUDP_RealSocket(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	u, err := NewUDP(pc.LocalAddr().String())
	require.NoError(t, err)
	defer u.Close()

	require.NoError(t, u.Publish("gnss", "fix"))
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 256)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"gnss","data":"fix"}`, string(buf[:n]))
}
