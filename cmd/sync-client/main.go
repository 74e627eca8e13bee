package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"animehub/internal/logger"
	"animehub/internal/sync"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9091", "TCP sync server address")
	natsURL := flag.String("nats", "", "subscribe to NATS at this URL instead of the TCP feed")
	prefix := flag.String("prefix", "animehub", "NATS subject prefix")
	only := flag.String("type", "", "only print events of this type, e.g. anime.status")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	log := logger.Must("sync-client", "development", "info", "console")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := printer{only: *only, pretty: *pretty}

	if *natsURL != "" {
		if err := subscribe(ctx, *natsURL, *prefix, p); err != nil {
			log.Fatal("nats", zap.Error(err))
		}
		return
	}

	for ctx.Err() == nil {
		if err := tail(ctx, *addr, p, log); err != nil && ctx.Err() == nil {
			log.Warn("disconnected", zap.String("addr", *addr), zap.Error(err))
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

type printer struct {
	only   string
	pretty bool
}

func (p printer) print(line []byte) {
	var ev sync.Event
	if err := json.Unmarshal(line, &ev); err != nil {
		fmt.Println(string(line))
		return
	}
	if p.only != "" && ev.Type != p.only {
		return
	}
	if !p.pretty {
		fmt.Println(string(line))
		return
	}
	var obj map[string]any
	_ = json.Unmarshal(line, &obj)
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Println(string(b))
}

func tail(ctx context.Context, addr string, p printer, log *zap.Logger) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	log.Info("connected", zap.String("addr", addr))
	if p.only != "" {
		req, _ := json.Marshal(map[string][]string{"subscribe": {p.only}})
		if _, err := conn.Write(append(req, '\n')); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		p.print(sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return fmt.Errorf("server closed the connection")
}

func subscribe(ctx context.Context, url, prefix string, p printer) error {
	nc, err := nats.Connect(url, nats.Name("animehub-sync-client"))
	if err != nil {
		return err
	}
	defer nc.Close()

	subject := strings.TrimSuffix(prefix, ".") + ".>"
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		p.print(m.Data)
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return nil
}
