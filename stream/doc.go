// Package stream converts rendered sample blocks into wire bytes and
// sends them as fixed-cadence multicast datagrams.
//
// The payload is L24: each sample scaled by 2^23-1 and packed as three
// big-endian two's-complement bytes. An optional 12-byte RTP-style
// header (sequence number, timestamp) supports receivers that expect
// RTP framing. The multicast group is derived from the node's own
// unicast address: 239.100 followed by the address's low two octets.
package stream
