package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"strconv"
)

// CommonHeaderSize is the fixed width of the JSON preamble in front of
// every frame's payload. Encode fails if a serialized header ever comes
// out a different size — that would silently desynchronize every peer
// still reading frames off this stream.
const CommonHeaderSize = 53

// MaxFrameSize is the hard ceiling on a single buffered frame. It exists
// to bound memory use against a misbehaving or hostile peer; crossing it
// is always treated as a fatal framing error for the connection.
const MaxFrameSize = 8 * 1024 * 1024

type commonHeaderJSON struct {
	Length string `json:"length"`
	CRC32  string `json:"crc32"`
	TypeID string `json:"type_id"`
}

func encodeCommonHeader(length, crc uint32, typeID TypeID) ([]byte, error) {
	if length > 99999 {
		return nil, fmt.Errorf("%w: length %d does not fit 5 digits", ErrFieldOverflow, length)
	}
	if typeID > 9 {
		return nil, fmt.Errorf("%w: type_id %d does not fit 1 digit", ErrFieldOverflow, typeID)
	}
	b, err := json.Marshal(commonHeaderJSON{
		Length: fmt.Sprintf("%05d", length),
		CRC32:  fmt.Sprintf("%010d", crc),
		TypeID: strconv.Itoa(int(typeID)),
	})
	if err != nil {
		return nil, fmt.Errorf("wire: marshal common header: %w", err)
	}
	if len(b) != CommonHeaderSize {
		return nil, ErrHeaderSize
	}
	return b, nil
}

func decodeCommonHeader(b []byte) (length, crc uint32, typeID TypeID, err error) {
	var h commonHeaderJSON
	if err := json.Unmarshal(b, &h); err != nil {
		return 0, 0, 0, fmt.Errorf("wire: parse common header: %w", err)
	}
	l, err := strconv.ParseUint(h.Length, 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("wire: parse length field: %w", err)
	}
	c, err := strconv.ParseUint(h.CRC32, 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("wire: parse crc32 field: %w", err)
	}
	t, err := strconv.ParseUint(h.TypeID, 10, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("wire: parse type_id field: %w", err)
	}
	return uint32(l), uint32(c), TypeID(t), nil
}

func marshalPayload(p Packet) ([]byte, error) {
	switch {
	case p.Routed != nil:
		return json.Marshal(p.Routed)
	case p.Routing != nil:
		return json.Marshal(p.Routing)
	default:
		return nil, fmt.Errorf("wire: packet has neither Routed nor Routing set")
	}
}

func unmarshalPayload(typeID TypeID, body []byte) (Packet, error) {
	if typeID == TypeMessage {
		var rp RoutedPacket
		if err := json.Unmarshal(body, &rp); err != nil {
			return Packet{}, fmt.Errorf("wire: decode routed payload: %w", err)
		}
		return Packet{TypeID: typeID, Routed: &rp}, nil
	}
	if IsRoutingType(typeID) {
		var rp RoutingPacket
		if err := json.Unmarshal(body, &rp); err != nil {
			return Packet{}, fmt.Errorf("wire: decode routing payload: %w", err)
		}
		if rp.Table == nil {
			rp.Table = []WireRoutingEntry{}
		}
		return Packet{TypeID: typeID, Routing: &rp}, nil
	}
	return Packet{}, fmt.Errorf("%w: %d", ErrUnknownTypeID, typeID)
}

// Encode serializes p as header+payload and appends the bytes to buf.
func Encode(p Packet, buf *bytes.Buffer) error {
	payload, err := marshalPayload(p)
	if err != nil {
		return err
	}
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	header, err := encodeCommonHeader(uint32(len(payload)), crc32.ChecksumIEEE(payload), p.TypeID)
	if err != nil {
		return err
	}
	buf.Write(header)
	buf.Write(payload)
	return nil
}

// EncodeTo is a convenience wrapper that writes the encoded frame directly
// to w (typically the connection's socket).
func EncodeTo(w io.Writer, p Packet) error {
	var buf bytes.Buffer
	if err := Encode(p, &buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

type decodeState int

const (
	awaitingHeader decodeState = iota
	awaitingBody
)

// Codec is a stateful stream decoder. It is fed bytes as they arrive off a
// socket and, once a complete frame is buffered, yields the decoded Packet.
// A Codec must only ever be driven by a single goroutine — concurrent
// Feed/Next calls on the same Codec are forbidden (spec §4.1).
type Codec struct {
	state  decodeState
	length uint32
	crc    uint32
	typeID TypeID
	buf    bytes.Buffer
}

// NewCodec returns a Codec ready to decode a fresh connection.
func NewCodec() *Codec {
	return &Codec{state: awaitingHeader}
}

// Feed appends newly read bytes to the internal buffer. It fails fatally
// if the buffer would grow past MaxFrameSize before a frame can be drained
// — a misbehaving peer flooding bytes that never resolve to a valid frame.
func (c *Codec) Feed(p []byte) error {
	if c.buf.Len()+len(p) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	c.buf.Write(p)
	return nil
}

// Next attempts to decode one packet from the buffered bytes. ok is false
// (with a nil error) when more bytes are needed — this is the normal,
// non-fatal "try again once more data arrives" case. A non-nil error is
// always fatal for the owning connection.
func (c *Codec) Next() (pkt Packet, ok bool, err error) {
	for {
		switch c.state {
		case awaitingHeader:
			if c.buf.Len() < CommonHeaderSize {
				return Packet{}, false, nil
			}
			header := make([]byte, CommonHeaderSize)
			c.buf.Read(header) //nolint:errcheck // bytes.Buffer.Read never errors once Len() checked
			length, crc, typeID, err := decodeCommonHeader(header)
			if err != nil {
				return Packet{}, false, err
			}
			if length > MaxFrameSize {
				return Packet{}, false, ErrFrameTooLarge
			}
			c.length, c.crc, c.typeID = length, crc, typeID
			c.state = awaitingBody
		case awaitingBody:
			if uint32(c.buf.Len()) < c.length {
				return Packet{}, false, nil
			}
			body := make([]byte, c.length)
			c.buf.Read(body) //nolint:errcheck
			c.state = awaitingHeader
			if crc32.ChecksumIEEE(body) != c.crc {
				return Packet{}, false, ErrChecksumMismatch
			}
			pkt, err := unmarshalPayload(c.typeID, body)
			if err != nil {
				return Packet{}, false, err
			}
			return pkt, true, nil
		}
	}
}
