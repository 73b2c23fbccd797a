package control

import (
	"fmt"

	"github.com/chabad360/go-osc/osc"
)

// Client sends control messages to a remote node.
type Client struct {
	c *osc.Client
}

// Dial connects a client to addr ("host:port").
func Dial(addr string) (*Client, error) {
	c, err := osc.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", addr, err)
	}
	return &Client{c: c}, nil
}

// SetParameter sets a named bus parameter to a value in [0, 1].
func (c *Client) SetParameter(name string, value float64) error {
	if name == "" {
		return fmt.Errorf("control: parameter name required")
	}
	return c.c.Send(osc.NewMessage("/param/"+name, float32(value)))
}

// RecallPatch recalls a patch slot on the remote node.
func (c *Client) RecallPatch(slot int) error {
	return c.c.Send(osc.NewMessage("/patch/recall", int32(slot)))
}

// SavePatch saves the remote node's current values to a patch slot.
func (c *Client) SavePatch(slot int) error {
	return c.c.Send(osc.NewMessage("/patch/save", int32(slot)))
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.c.Close()
}
