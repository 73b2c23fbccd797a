package stream

import (
	"net"
	"testing"
	"time"
)

func TestDeriveGroup(t *testing.T) {
	tests := []struct {
		name    string
		unicast net.IP
		port    int
		want    string
		wantErr bool
	}{
		{"typical lan address", net.IPv4(192, 168, 4, 17), DefaultPort, "239.100.4.17:5005", false},
		{"ten net", net.IPv4(10, 0, 12, 200), 6000, "239.100.12.200:6000", false},
		{"ipv6 rejected", net.ParseIP("fe80::1"), DefaultPort, "", true},
		{"bad port", net.IPv4(192, 168, 1, 1), 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveGroup(tt.unicast, tt.port)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DeriveGroup() error: %v", err)
			}
			if got.String() != tt.want {
				t.Fatalf("DeriveGroup() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewSenderRejectsUnicastGroup(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 1), Port: DefaultPort}
	if _, err := NewSender(addr); err == nil {
		t.Fatal("expected error for non-multicast group")
	}
	if _, err := NewSender(nil); err == nil {
		t.Fatal("expected error for nil group")
	}
}

func TestSenderDelivers(t *testing.T) {
	group := &net.UDPAddr{IP: net.IPv4(239, 100, 77, 1), Port: 0}

	recv, err := net.ListenMulticastUDP("udp4", nil, &net.UDPAddr{IP: group.IP, Port: 0})
	if err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}
	defer recv.Close()
	group.Port = recv.LocalAddr().(*net.UDPAddr).Port

	s, err := NewSender(group)
	if err != nil {
		t.Skipf("multicast send unavailable: %v", err)
	}
	defer s.Close()

	payload := []byte{0x01, 0x02, 0x03}
	if err := s.Send(payload); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	recv.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, _, err := recv.ReadFromUDP(buf)
	if err != nil {
		t.Skipf("multicast receive unavailable: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("received %d bytes, want %d", n, len(payload))
	}
}
