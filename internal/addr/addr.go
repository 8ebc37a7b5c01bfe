// Package addr defines the socket-address identity shared by the routing
// table, the peer channel map, and every wire packet header.
package addr

import (
	"fmt"
	"net"
	"strconv"
)

// NeighborAddr identifies a node by the socket address of its listener.
// It is used both for directly connected neighbors and for any node
// reachable through them (the ultimate target of a routing entry).
//
// NeighborAddr is comparable and immutable, so it can be used directly
// as a map key in RoutingTable and PeerChannel.
type NeighborAddr struct {
	IP   string
	Port uint16
}

// Parse splits a "host:port" string into a NeighborAddr.
func Parse(s string) (NeighborAddr, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return NeighborAddr{}, fmt.Errorf("addr: parse %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return NeighborAddr{}, fmt.Errorf("addr: parse port %q: %w", portStr, err)
	}
	return NeighborAddr{IP: host, Port: uint16(port)}, nil
}

// FromTCPAddr converts a resolved net.TCPAddr into a NeighborAddr.
func FromTCPAddr(a *net.TCPAddr) NeighborAddr {
	return NeighborAddr{IP: a.IP.String(), Port: uint16(a.Port)}
}

func (a NeighborAddr) String() string {
	return net.JoinHostPort(a.IP, strconv.FormatUint(uint64(a.Port), 10))
}

// Zero reports whether a is the unset value.
func (a NeighborAddr) Zero() bool {
	return a.IP == "" && a.Port == 0
}
