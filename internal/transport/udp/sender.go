// SPDX-License-Identifier: MIT

// Package udp publishes spectrum frames as compact binary datagrams.
package udp

import (
	"net"
	"sync"

	"github.com/pkg/errors"

	applog "forestric/internal/log"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("UDP sender is closed")

// Sender writes datagrams to one target address.
type Sender struct {
	conn *net.UDPConn
	mu   sync.Mutex // Protects conn during Close
}

// NewSender dials targetAddress, e.g. "127.0.0.1:9090".
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve UDP target address '%s'", targetAddress)
	}

	// No local bind needed for sending.
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial UDP for target '%s'", targetAddress)
	}

	applog.Infof("UDP Sender: Connection established to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits data as one packet.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		return errors.Wrap(err, "failed to send UDP packet")
	}
	return nil
}

// Close closes the connection. Later calls are no-ops.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	applog.Debugf("UDP Sender: Closing connection to %s", s.conn.RemoteAddr())
	err := s.conn.Close()
	s.conn = nil
	return errors.Wrap(err, "failed to close UDP connection")
}
