// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Frame sequence          |
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Rotation          | float32        | 4            | Wheel rotation (rad)    |
| Normal Color      | [3]uint8       | 3            | Clamped RGB             |
| Highlight Color   | [3]uint8       | 3            | Clamped RGB             |
| Column Count      | uint16         | 2            | Number of columns (N)   |
| Columns           | []Column       | N * 5        | Height + highlight flag |
+-----------------------------------------------------------------------------+

Column:

|<---- 4 Bytes ---->|<-- 1 Byte -->|
+-------------------+--------------+
|   Height (f32)    | Highlighted  |
+-------------------+--------------+
*/

// HeaderSize is the fixed part of a packet.
const HeaderSize = 4 + 8 + 4 + 3 + 3 + 2

// ColumnSize is the encoded size of one column.
const ColumnSize = 5

// ErrShortPacket is returned when a packet is smaller than its header says.
var ErrShortPacket = errors.New("short packet")

// Column is one encoded wheel column.
type Column struct {
	Height      float32
	Highlighted uint8
}

// header mirrors the fixed packet fields for binary.Write.
type header struct {
	Sequence       uint32
	Timestamp      int64
	Rotation       float32
	NormalColor    [3]uint8
	HighlightColor [3]uint8
	ColumnCount    uint16
}

// Packet is one frame as sent on the wire.
type Packet struct {
	Sequence       uint32
	Timestamp      int64
	Rotation       float32
	NormalColor    [3]uint8
	HighlightColor [3]uint8
	Columns        []Column
}

// Encode writes the packet into buf, replacing its contents.
func (p *Packet) Encode(buf *bytes.Buffer) error {
	if len(p.Columns) > math.MaxUint16 {
		return fmt.Errorf("%d columns exceed the packet limit", len(p.Columns))
	}
	buf.Reset()
	h := header{
		Sequence:       p.Sequence,
		Timestamp:      p.Timestamp,
		Rotation:       p.Rotation,
		NormalColor:    p.NormalColor,
		HighlightColor: p.HighlightColor,
		ColumnCount:    uint16(len(p.Columns)),
	}
	if err := binary.Write(buf, binary.BigEndian, &h); err != nil {
		return err
	}
	return binary.Write(buf, binary.BigEndian, p.Columns)
}

// Decode parses a packet produced by Encode.
func Decode(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(data))
	}
	var h header
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return Packet{}, err
	}
	if want := HeaderSize + int(h.ColumnCount)*ColumnSize; len(data) < want {
		return Packet{}, fmt.Errorf("%w: %d bytes, header declares %d", ErrShortPacket, len(data), want)
	}
	p := Packet{
		Sequence:       h.Sequence,
		Timestamp:      h.Timestamp,
		Rotation:       h.Rotation,
		NormalColor:    h.NormalColor,
		HighlightColor: h.HighlightColor,
		Columns:        make([]Column, h.ColumnCount),
	}
	if err := binary.Read(r, binary.BigEndian, p.Columns); err != nil {
		return Packet{}, err
	}
	return p, nil
}
