// Package wire implements the framed, checksummed packet codec and the
// closed set of packet shapes multiplexed over a morganite TCP connection.
//
// Frame format (spec §6.1):
//
//	+------------------------------+--------------------------+
//	| CommonHeader (exactly 53 B)  | payload (`length` bytes) |
//	+------------------------------+--------------------------+
//
// CommonHeader is a JSON object with fixed-width, zero-padded decimal
// string fields so that the header is always exactly 53 bytes, no matter
// the payload size. The payload is the JSON serialization of the Routed
// or Routing packet variant named by the header's type_id.
package wire

import (
	"fmt"

	"github.com/AnnsAnns/morganite/internal/addr"
)

// TypeID is the wire ABI discriminator carried in the CommonHeader.
// These values are stable and MUST NOT be renumbered.
type TypeID byte

const (
	TypeMessage TypeID = 1 // Routed  — user-visible payload
	TypeCR      TypeID = 2 // Routing — connect request
	TypeCRR     TypeID = 3 // Routing — CR reply, carries sender's table
	TypeSCC     TypeID = 4 // Routing — liveness probe, empty table
	TypeSCCR    TypeID = 5 // Routing — liveness probe ack
	TypeSTU     TypeID = 6 // Routing — scheduled table update
)

func (t TypeID) String() string {
	switch t {
	case TypeMessage:
		return "MESSAGE"
	case TypeCR:
		return "CR"
	case TypeCRR:
		return "CRR"
	case TypeSCC:
		return "SCC"
	case TypeSCCR:
		return "SCCR"
	case TypeSTU:
		return "STU"
	default:
		return fmt.Sprintf("TypeID(%d)", byte(t))
	}
}

// IsRoutingType reports whether id names a Routing sub-type.
func IsRoutingType(id TypeID) bool {
	switch id {
	case TypeCR, TypeCRR, TypeSCC, TypeSCCR, TypeSTU:
		return true
	default:
		return false
	}
}

// SharedHeader is carried by both packet variants. source_* identifies the
// ORIGIN listener, not the immediate sender; dest_* is the ultimate
// destination; ttl is decremented on every forward hop.
type SharedHeader struct {
	SourceIP   string `json:"source_ip"`
	SourcePort uint16 `json:"source_port"`
	DestIP     string `json:"dest_ip"`
	DestPort   uint16 `json:"dest_port"`
	TTL        uint8  `json:"ttl"`
}

// NewSharedHeader builds a header from typed addresses.
func NewSharedHeader(source, dest addr.NeighborAddr, ttl uint8) SharedHeader {
	return SharedHeader{
		SourceIP:   source.IP,
		SourcePort: source.Port,
		DestIP:     dest.IP,
		DestPort:   dest.Port,
		TTL:        ttl,
	}
}

// Source returns the origin listener address.
func (h SharedHeader) Source() addr.NeighborAddr {
	return addr.NeighborAddr{IP: h.SourceIP, Port: h.SourcePort}
}

// Dest returns the ultimate destination address.
func (h SharedHeader) Dest() addr.NeighborAddr {
	return addr.NeighborAddr{IP: h.DestIP, Port: h.DestPort}
}

// WireRoutingEntry is one row of an advertised routing table. next_* is set
// by the sender to its OWN listener address; the receiver stores hop_count
// exactly as sent and does not add a hop of its own.
type WireRoutingEntry struct {
	TargetIP   string `json:"target_ip"`
	TargetPort uint16 `json:"target_port"`
	NextIP     string `json:"next_ip"`
	NextPort   uint16 `json:"next_port"`
	HopCount   int32  `json:"hop_count"`
}

// Target returns the advertised entry's destination address.
func (e WireRoutingEntry) Target() addr.NeighborAddr {
	return addr.NeighborAddr{IP: e.TargetIP, Port: e.TargetPort}
}

// Next returns the advertiser's own listener address, as written by the sender.
func (e WireRoutingEntry) Next() addr.NeighborAddr {
	return addr.NeighborAddr{IP: e.NextIP, Port: e.NextPort}
}

// NewWireRoutingEntry builds an advertised entry. next is always the
// advertiser's own listener address (see Next doc above).
func NewWireRoutingEntry(target, next addr.NeighborAddr, hopCount int32) WireRoutingEntry {
	return WireRoutingEntry{
		TargetIP:   target.IP,
		TargetPort: target.Port,
		NextIP:     next.IP,
		NextPort:   next.Port,
		HopCount:   hopCount,
	}
}

// RoutedPacket carries a single application message (type_id = 1).
type RoutedPacket struct {
	Header   SharedHeader `json:"header"`
	Nickname string       `json:"nickname"`
	Message  string       `json:"message"`
}

// RoutingPacket carries control traffic (type_id ∈ {2..6}). Table is empty
// for pure probes (SCC); the Quit-triggered STU built by the per-connection
// task carries every known target with hop_count 32 (spec §4.4 event A).
type RoutingPacket struct {
	Header SharedHeader       `json:"header"`
	Table  []WireRoutingEntry `json:"table"`
}

// Packet is the closed tagged union of everything that can cross the wire.
// Exactly one of Routed/Routing is populated, selected by TypeID.
type Packet struct {
	TypeID  TypeID
	Routed  *RoutedPacket
	Routing *RoutingPacket
}

// NewRoutedPacket builds a MESSAGE packet.
func NewRoutedPacket(header SharedHeader, nickname, message string) Packet {
	return Packet{
		TypeID: TypeMessage,
		Routed: &RoutedPacket{Header: header, Nickname: nickname, Message: message},
	}
}

// NewRoutingPacket builds a Routing packet of the given sub-type.
func NewRoutingPacket(typeID TypeID, header SharedHeader, table []WireRoutingEntry) Packet {
	if table == nil {
		table = []WireRoutingEntry{}
	}
	return Packet{
		TypeID:  typeID,
		Routing: &RoutingPacket{Header: header, Table: table},
	}
}

// Header returns the SharedHeader common to either variant.
func (p Packet) Header() SharedHeader {
	if p.Routed != nil {
		return p.Routed.Header
	}
	return p.Routing.Header
}

// WithHeader returns a shallow copy of p with its header replaced.
func (p Packet) WithHeader(h SharedHeader) Packet {
	switch p.TypeID {
	case TypeMessage:
		r := *p.Routed
		r.Header = h
		return Packet{TypeID: p.TypeID, Routed: &r}
	default:
		r := *p.Routing
		r.Header = h
		return Packet{TypeID: p.TypeID, Routing: &r}
	}
}
