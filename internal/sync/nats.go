package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher forwards events to <prefix>.<event type> subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	log    *zap.Logger
}

func ConnectNATS(url, prefix string, log *zap.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("animehub"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNATSPublisher(conn, prefix, log), nil
}

func NewNATSPublisher(conn *nats.Conn, prefix string, log *zap.Logger) *NATSPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	if prefix == "" {
		prefix = "animehub"
	}
	return &NATSPublisher{conn: conn, prefix: prefix, log: log}
}

func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(ev Event) {
	ev = Stamp(ev)
	b, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("marshal nats event", zap.Error(err))
		return
	}
	if err := p.conn.Publish(p.Subject(ev.Type), b); err != nil {
		p.log.Warn("nats publish", zap.String("type", ev.Type), zap.Error(err))
	}
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
