// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"
)

func TestPacketLayout(t *testing.T) {
	p := Packet{
		Sequence:       7,
		Timestamp:      1_700_000_000_000_000_000,
		Rotation:       -1.5,
		NormalColor:    [3]uint8{255, 255, 255},
		HighlightColor: [3]uint8{255, 0, 0},
		Columns: []Column{
			{Height: 12.5, Highlighted: 0},
			{Height: 500, Highlighted: 1},
		},
	}

	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	data := buf.Bytes()

	if want := HeaderSize + 2*ColumnSize; len(data) != want {
		t.Fatalf("packet size = %d, want %d", len(data), want)
	}
	if got := binary.BigEndian.Uint32(data[0:4]); got != 7 {
		t.Errorf("sequence = %d, want 7", got)
	}
	if got := int64(binary.BigEndian.Uint64(data[4:12])); got != p.Timestamp {
		t.Errorf("timestamp = %d, want %d", got, p.Timestamp)
	}
	if got := math.Float32frombits(binary.BigEndian.Uint32(data[12:16])); got != -1.5 {
		t.Errorf("rotation = %f, want -1.5", got)
	}
	if !bytes.Equal(data[16:22], []byte{255, 255, 255, 255, 0, 0}) {
		t.Errorf("colors = %v", data[16:22])
	}
	if got := binary.BigEndian.Uint16(data[22:24]); got != 2 {
		t.Errorf("column count = %d, want 2", got)
	}
	second := data[HeaderSize+ColumnSize:]
	if got := math.Float32frombits(binary.BigEndian.Uint32(second[0:4])); got != 500 || second[4] != 1 {
		t.Errorf("second column = %f/%d, want 500/1", got, second[4])
	}
}

func TestPacketDecode(t *testing.T) {
	p := Packet{Sequence: 3, Timestamp: 42, Rotation: 0.25, Columns: []Column{{1, 0}, {2, 1}, {3, 0}}}
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Sequence != 3 || got.Timestamp != 42 || got.Rotation != 0.25 || !slices.Equal(got.Columns, p.Columns) {
		t.Errorf("Decode() = %+v, want %+v", got, p)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Header Only Fragment", buf.Bytes()[:HeaderSize-1]},
		{"Truncated Columns", buf.Bytes()[:buf.Len()-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, ErrShortPacket) {
				t.Errorf("Decode() error = %v, want ErrShortPacket", err)
			}
		})
	}
}

func TestPacketEncodeReusesBuffer(t *testing.T) {
	var buf bytes.Buffer
	long := Packet{Columns: make([]Column, 64)}
	short := Packet{Columns: make([]Column, 2)}

	long.Encode(&buf)
	short.Encode(&buf)
	if buf.Len() != HeaderSize+2*ColumnSize {
		t.Errorf("Encode() kept stale bytes: %d", buf.Len())
	}
}
