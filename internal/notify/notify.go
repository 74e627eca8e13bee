// Package notify pushes new-episode announcements to UDP clients that have
// registered with {"type":"register","userId":"..."}.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"
)

const (
	RegisterMessageType   = "register"
	NewEpisodeMessageType = "new_episode"
)

type RegisterMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type NewEpisodeMessage struct {
	Type      string `json:"type"`
	AnimeID   string `json:"animeId"`
	EpisodeID string `json:"episodeId"`
	Slug      string `json:"slug"`
	Season    int    `json:"season"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
}

type Client struct {
	UserID string
	Addr   *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

type Server struct {
	addr     string
	registry *Registry
	log      *zap.Logger

	mu   sync.RWMutex
	conn *net.UDPConn
}

func NewServer(addr string, registry *Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{addr: addr, registry: registry, log: log}
}

// Listen binds the UDP socket. Run calls it when it has not been called yet.
func (s *Server) Listen() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.log.Info("udp notify listening", zap.String("addr", conn.LocalAddr().String()))
	return nil
}

func (s *Server) LocalAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Run reads register messages until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if s.LocalAddr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.log.Debug("invalid udp message", zap.String("from", addr.String()), zap.Error(err))
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		s.registry.Register(msg.UserID, addr)
		s.log.Info("udp client registered", zap.String("user_id", msg.UserID), zap.String("addr", addr.String()))
	}
}

// NewEpisode announces an episode to every registered client.
func (s *Server) NewEpisode(msg NewEpisodeMessage) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		s.log.Debug("udp notify server not running")
		return
	}

	msg.Type = NewEpisodeMessageType
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("marshal new_episode", zap.Error(err))
		return
	}

	for _, client := range s.registry.Snapshot() {
		s.sendWithRetry(conn, client, payload)
	}
}

func (s *Server) sendWithRetry(conn *net.UDPConn, client Client, payload []byte) {
	if err := sendOnce(conn, client, payload); err == nil {
		return
	}
	if err := sendOnce(conn, client, payload); err != nil {
		s.log.Warn("udp notify failed, dropping client",
			zap.String("user_id", client.UserID), zap.Error(err))
		s.registry.Remove(client.UserID)
	}
}

func sendOnce(conn *net.UDPConn, client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
