package stream

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

const (
	// DefaultPort is the UDP port receivers listen on.
	DefaultPort = 5005

	// multicastTTL keeps the stream on the local segment.
	multicastTTL = 1
)

// Transport delivers encoded packets to receivers.
type Transport interface {
	Send(packet []byte) error
	Close() error
}

// Sender writes packets to a UDP multicast group.
type Sender struct {
	conn  *net.UDPConn
	group *net.UDPAddr
}

// NewSender connects to the given multicast group address.
func NewSender(group *net.UDPAddr) (*Sender, error) {
	if group == nil || group.IP == nil {
		return nil, fmt.Errorf("stream: multicast group address required")
	}
	if !group.IP.IsMulticast() {
		return nil, fmt.Errorf("stream: %v is not a multicast address", group.IP)
	}

	conn, err := net.DialUDP("udp4", nil, group)
	if err != nil {
		return nil, fmt.Errorf("stream: dial %v: %w", group, err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastTTL(multicastTTL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("stream: set multicast TTL: %w", err)
	}

	return &Sender{conn: conn, group: group}, nil
}

// Group returns the multicast destination.
func (s *Sender) Group() *net.UDPAddr {
	return s.group
}

// Send writes one packet. A short write is reported as an error so the
// caller can count it against its drop statistics.
func (s *Sender) Send(packet []byte) error {
	n, err := s.conn.Write(packet)
	if err != nil {
		return fmt.Errorf("stream: send to %v: %w", s.group, err)
	}
	if n != len(packet) {
		return fmt.Errorf("stream: short write to %v: %d of %d bytes", s.group, n, len(packet))
	}
	return nil
}

// Close releases the socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// DeriveGroup maps a node's unicast IPv4 address to its stream group:
// 239.100 followed by the address's low two octets. Every node thereby
// publishes on a distinct group without coordination.
func DeriveGroup(unicast net.IP, port int) (*net.UDPAddr, error) {
	ip4 := unicast.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("stream: unicast address must be IPv4: %v", unicast)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("stream: invalid port: %d", port)
	}
	return &net.UDPAddr{
		IP:   net.IPv4(239, 100, ip4[2], ip4[3]),
		Port: port,
	}, nil
}

// LocalUnicastIP returns the first non-loopback IPv4 address of any up
// interface, for deriving the default stream group.
func LocalUnicastIP() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("stream: list interface addresses: %w", err)
	}
	for _, addr := range addrs {
		ipn, ok := addr.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		if ip4 := ipn.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("stream: no non-loopback IPv4 address found")
}
