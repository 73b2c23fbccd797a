package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/chabad360/go-osc/osc"

	"github.com/asorsynth/asor-core/dsp/core"
	"github.com/asorsynth/asor-core/engine"
)

// DefaultPort is the UDP port the control server listens on.
const DefaultPort = 9000

// Option configures a Server.
type Option func(*Server)

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server receives OSC packets and applies them to an engine. Parameter
// writes and patch operations both queue onto the engine's control
// loop, which stays the sole writer of every bus slot.
type Server struct {
	log        *log.Logger
	eng        *engine.Engine
	conn       net.PacketConn
	dispatcher *osc.Dispatcher
}

// NewServer binds a control server to addr ("host:port").
func NewServer(addr string, eng *engine.Engine, opts ...Option) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("control: engine required")
	}

	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("control: listen %s: %w", addr, err)
	}

	s := &Server{
		log:        log.Default(),
		eng:        eng,
		conn:       conn,
		dispatcher: &osc.Dispatcher{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if err := s.register(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Server) register() error {
	bus := s.eng.Bus()
	for _, name := range bus.Names() {
		slot, err := bus.Slot(name)
		if err != nil {
			return err
		}
		addr := "/param/" + name
		err = s.dispatcher.AddMethodFunc(addr, func(msg *osc.Message) {
			v, ok := floatArg(msg, 0)
			if !ok {
				s.log.Printf("[osc] %s: bad argument %v", msg.Address, msg.Arguments)
				return
			}
			value := core.Clamp(v, 0, 1)
			s.eng.Do(func() {
				slot.Store(value)
				s.eng.MarkChanged()
			})
		})
		if err != nil {
			return fmt.Errorf("control: register %s: %w", addr, err)
		}
	}

	err := s.dispatcher.AddMethodFunc("/patch/recall", func(msg *osc.Message) {
		if n, ok := intArg(msg, 0); ok {
			s.eng.RecallPatch(n)
		}
	})
	if err != nil {
		return fmt.Errorf("control: register /patch/recall: %w", err)
	}

	err = s.dispatcher.AddMethodFunc("/patch/save", func(msg *osc.Message) {
		if n, ok := intArg(msg, 0); ok {
			s.eng.SavePatch(n)
		}
	})
	if err != nil {
		return fmt.Errorf("control: register /patch/save: %w", err)
	}
	return nil
}

// Run receives and dispatches packets until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	s.log.Printf("[osc] listening on %v", s.Addr())
	buf := make([]byte, 65535)
	for {
		n, from, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("control: read: %w", err)
		}

		msg, err := osc.NewMessageFromData(buf[:n])
		if err != nil {
			s.log.Printf("[osc] drop malformed packet from %v: %v", from, err)
			continue
		}
		s.dispatcher.Dispatch(msg, from)
	}
}

// floatArg extracts a numeric argument as float64.
func floatArg(msg *osc.Message, idx int) (float64, bool) {
	if idx >= len(msg.Arguments) {
		return 0, false
	}
	switch v := msg.Arguments[idx].(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// intArg extracts an integer argument.
func intArg(msg *osc.Message, idx int) (int, bool) {
	if idx >= len(msg.Arguments) {
		return 0, false
	}
	switch v := msg.Arguments[idx].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
