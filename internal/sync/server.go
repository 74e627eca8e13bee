package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"

	"go.uber.org/zap"
)

type subscribeRequest struct {
	Subscribe []string `json:"subscribe"`
}

// Server accepts line-oriented TCP subscribers and registers them with the hub.
type Server struct {
	Addr string
	Hub  *Hub
	Log  *zap.Logger

	ln net.Listener
}

func NewServer(addr string, hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Addr: addr, Hub: hub, Log: log}
}

// Listen binds the address; Serve must be called afterwards.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.Log.Info("tcp sync listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// ListenAddr is the bound address, useful when Addr asked for port 0.
func (s *Server) ListenAddr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve runs until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Log.Warn("tcp sync accept", zap.Error(err))
			continue
		}

		s.Hub.Add(conn)
		s.Hub.Welcome(conn)
		s.Log.Debug("tcp sync client connected", zap.String("remote", conn.RemoteAddr().String()))

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Log.Debug("tcp sync client disconnected", zap.String("remote", c.RemoteAddr().String()))
			}()

			// the only thing a subscriber may send is {"subscribe": [...types]}
			sc := bufio.NewScanner(c)
			for sc.Scan() {
				var req subscribeRequest
				if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
					s.Log.Debug("tcp sync bad request", zap.Error(err))
					continue
				}
				s.Hub.SetFilter(c, ParseFilter(req.Subscribe))
			}
		}(conn)
	}
}
