package notify

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegisterMessage(t *testing.T) {
	msg, err := parseRegisterMessage([]byte(`{"type":"register","userId":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.UserID)

	_, err = parseRegisterMessage([]byte(`{"type":"register"}`))
	assert.Error(t, err)
	_, err = parseRegisterMessage([]byte(`nope`))
	assert.Error(t, err)
}

func TestRegisterAndAnnounce(t *testing.T) {
	reg := NewRegistry()
	srv := NewServer("127.0.0.1:0", reg, nil)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Run(ctx) }()

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.WriteTo([]byte(`{"type":"register","userId":"u1"}`), srv.LocalAddr())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(reg.Snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.NewEpisode(NewEpisodeMessage{AnimeID: "a1", EpisodeID: "e1", Season: 1, Number: 3})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := client.ReadFrom(buf)
	require.NoError(t, err)

	var got NewEpisodeMessage
	require.NoError(t, json.Unmarshal(buf[:n], &got))
	assert.Equal(t, NewEpisodeMessageType, got.Type)
	assert.Equal(t, 3, got.Number)
}

func TestNewEpisodeWithoutSocketIsNoop(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewRegistry(), nil)
	srv.NewEpisode(NewEpisodeMessage{AnimeID: "a1"})
}
