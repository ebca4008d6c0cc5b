// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"forestric/internal/analysis"
	"forestric/internal/transport"
)

func TestPacketRoundTrip(t *testing.T) {
	t.Parallel()

	frame := analysis.SpectrumFrame{
		Seq:      42,
		Time:     time.Unix(1700000000, 123),
		Position: 12.5,
		Peak:     0.75,
		Bins:     []uint8{0, 128, 255},
	}
	var buf bytes.Buffer
	if err := AppendPacket(&buf, frame); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != HeaderSize+3 {
		t.Fatalf("packet is %d bytes, want %d", buf.Len(), HeaderSize+3)
	}

	got, err := ParsePacket(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Seq != 42 || got.Position != 12.5 || got.Peak != 0.75 || !got.Time.Equal(frame.Time) {
		t.Errorf("header = %+v", got)
	}
	if !bytes.Equal(got.Bins, frame.Bins) {
		t.Errorf("bins = %v", got.Bins)
	}

	if _, err := ParsePacket(buf.Bytes()[:10]); err == nil {
		t.Error("short packet should fail")
	}
	if _, err := ParsePacket(buf.Bytes()[:buf.Len()-1]); err == nil {
		t.Error("truncated bins should fail")
	}
}

func TestPublisher_SendsOverUDP(t *testing.T) {
	t.Parallel()

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("no loopback UDP: %v", err)
	}
	defer listener.Close()

	pub, err := NewPublisher(listener.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}

	if err := pub.Send("not a frame"); !errors.Is(err, transport.ErrUnsupportedPayload) {
		t.Errorf("Send(string) = %v, want ErrUnsupportedPayload", err)
	}
	if err := pub.Send(analysis.SpectrumFrame{Seq: 3, Bins: make([]uint8, 256)}); err != nil {
		t.Fatal(err)
	}

	listener.SetReadDeadline(time.Now().Add(5 * time.Second))
	packet := make([]byte, 2048)
	n, _, err := listener.ReadFromUDP(packet)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got, err := ParsePacket(packet[:n])
	if err != nil {
		t.Fatal(err)
	}
	if got.Seq != 3 || len(got.Bins) != 256 {
		t.Errorf("received seq %d with %d bins", got.Seq, len(got.Bins))
	}

	if err := pub.Close(); err != nil {
		t.Fatal(err)
	}
	if err := pub.Send(analysis.SpectrumFrame{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}

func TestNewPublisher_BadAddress(t *testing.T) {
	t.Parallel()

	if _, err := NewPublisher("not an address"); err == nil {
		t.Error("expected resolve error")
	}
}
