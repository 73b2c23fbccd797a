package stream_test

import (
	"fmt"
	"net"

	"github.com/asorsynth/asor-core/stream"
)

func ExampleEncoder_EncodeBlock() {
	e, _ := stream.NewEncoder(2)
	pkt, _ := e.EncodeBlock([]float64{0, 1})
	fmt.Printf("% x\n", pkt)

	// Output:
	// 00 00 00 7f ff ff
}

func ExampleDeriveGroup() {
	group, _ := stream.DeriveGroup(net.IPv4(192, 168, 4, 17), stream.DefaultPort)
	fmt.Println(group)

	// Output:
	// 239.100.4.17:5005
}
