// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"forestric/internal/analysis"
	applog "forestric/internal/log"
	"forestric/internal/transport"
)

/*
Packet layout (BigEndian)

|<- 4 ->|<--- 8 --->|<- 4 ->|<- 4 ->|<- 2 ->|<-- N -->|
+-------+-----------+-------+-------+-------+---------+
|  Seq  | Timestamp |  Pos  | Peak  |   N   |  Bins   |
|uint32 |  int64 ns |float32|float32|uint16 | N*uint8 |
+-------+-----------+-------+-------+-------+---------+
*/

// HeaderSize is the number of bytes before the bins.
const HeaderSize = 4 + 8 + 4 + 4 + 2

// maxBins keeps a packet inside a conservative UDP payload size.
const maxBins = 1400 - HeaderSize

// Publisher is a transport that packs spectrum frames into datagrams.
type Publisher struct {
	sender interface {
		Send([]byte) error
		Close() error
	}
	mu     sync.Mutex
	packet bytes.Buffer
	sent   uint64
}

// NewPublisher sends to targetAddress.
func NewPublisher(targetAddress string) (*Publisher, error) {
	sender, err := NewSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return &Publisher{sender: sender}, nil
}

// Send packs and transmits an analysis.SpectrumFrame.
func (p *Publisher) Send(data any) error {
	frame, ok := data.(analysis.SpectrumFrame)
	if !ok {
		return errors.Wrapf(transport.ErrUnsupportedPayload, "udp publisher got %T", data)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.packet.Reset()
	if err := AppendPacket(&p.packet, frame); err != nil {
		return err
	}
	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		return err
	}
	p.sent++
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", frame.Seq, p.packet.Len())
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	applog.Debugf("UDPPublisher: Closing after %d packets", p.sent)
	return p.sender.Close()
}

// AppendPacket writes the binary form of frame to buf.
func AppendPacket(buf *bytes.Buffer, frame analysis.SpectrumFrame) error {
	bins := frame.Bins
	if len(bins) > maxBins {
		bins = bins[:maxBins]
	}
	header := struct {
		Seq       uint32
		Timestamp int64
		Position  float32
		Peak      float32
		Count     uint16
	}{
		Seq:       frame.Seq,
		Timestamp: frame.Time.UnixNano(),
		Position:  float32(frame.Position),
		Peak:      frame.Peak,
		Count:     uint16(len(bins)),
	}
	if err := binary.Write(buf, binary.BigEndian, header); err != nil {
		return errors.Wrap(err, "failed to pack packet header")
	}
	buf.Write(bins)
	return nil
}

// ParsePacket decodes a datagram produced by AppendPacket. Band levels are
// not carried.
func ParsePacket(data []byte) (analysis.SpectrumFrame, error) {
	if len(data) < HeaderSize {
		return analysis.SpectrumFrame{}, errors.Errorf("packet too short: %d bytes", len(data))
	}
	seq := binary.BigEndian.Uint32(data[0:4])
	ts := int64(binary.BigEndian.Uint64(data[4:12]))
	pos := math.Float32frombits(binary.BigEndian.Uint32(data[12:16]))
	peak := math.Float32frombits(binary.BigEndian.Uint32(data[16:20]))
	n := int(binary.BigEndian.Uint16(data[20:22]))
	if len(data) != HeaderSize+n {
		return analysis.SpectrumFrame{}, errors.Errorf("packet declares %d bins but carries %d", n, len(data)-HeaderSize)
	}
	return analysis.SpectrumFrame{
		Seq:      seq,
		Time:     time.Unix(0, ts),
		Position: float64(pos),
		Peak:     peak,
		Bins:     append([]uint8(nil), data[HeaderSize:]...),
	}, nil
}

var _ transport.Transport = (*Publisher)(nil)
