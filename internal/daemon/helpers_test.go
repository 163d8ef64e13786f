package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

var discard = slog.New(slog.DiscardHandler)

// testSocketPath returns a short unique socket path; t.TempDir can exceed
// the Unix socket path limit on some systems.
func testSocketPath(t *testing.T) string {
	t.Helper()
	socketPath := filepath.Join("/tmp", fmt.Sprintf("treasurebot-test-%d.sock", time.Now().UnixNano()))
	t.Cleanup(func() { os.Remove(socketPath) })
	return socketPath
}

// botCore is a loaded index behind a Service.
type botCore struct {
	provider  *index.StaticProvider
	scheduler *refresh.Scheduler
	service   *Service
}

func newBotCore(t *testing.T, load bool) *botCore {
	t.Helper()
	p := index.NewStaticProvider("sheets",
		&index.Table{Location: "Harv's Island", Rows: [][]string{{"Lucky Cat", "Wand"}}},
		&index.Table{Location: "Dom's Island", Rows: [][]string{{"lucky cat"}}},
	)
	idx := index.New("items")
	b := index.NewBuilder(index.WithRetry(boterrors.RetryConfig{}), index.WithLogger(discard))
	s := refresh.New(idx, b, []index.Provider{p}, refresh.Config{Logger: discard})
	t.Cleanup(s.Stop)
	if load {
		_, err := s.Refresh(context.Background())
		require.NoError(t, err)
	}
	return &botCore{
		provider:  p,
		scheduler: s,
		service:   NewService(resolve.New(resolve.DefaultOptions(), idx), refresh.NewGroup(s), "!", "console"),
	}
}

// serve runs a server for h and returns a client for it.
func serve(t *testing.T, h RequestHandler) *Client {
	t.Helper()
	cfg := Config{SocketPath: testSocketPath(t), LockPath: "unused", Timeout: 5 * time.Second}
	srv := NewServer(cfg, h, discard)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})

	client := NewClient(cfg)
	require.Eventually(t, client.IsRunning, 2*time.Second, 5*time.Millisecond)
	return client
}
