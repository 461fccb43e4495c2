package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Watch/internal/protocol"
	"github.com/gorilla/websocket"
)

func TestWebsocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":      "ws://localhost:8080/ws",
		"https://watch.example.com/": "wss://watch.example.com/ws",
		"ws://host/ws":               "ws://host/ws",
		"http://host/prefix":         "ws://host/prefix/ws",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := WebsocketURL(in)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Fatalf("got %q, want %q", got, want)
			}
		})
	}
	if _, err := WebsocketURL("ftp://host"); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}

func TestConnRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			mt, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err := ws.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, err := Dial(ctx, srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- conn.Run(ctx, func(data []byte) error {
			kind, err := protocol.KindOf(data)
			if err == nil {
				got <- string(kind)
			}
			return err
		})
	}()

	if err := conn.Send(protocol.NewSeek("AB12", 3)); err != nil {
		t.Fatal(err)
	}
	select {
	case k := <-got:
		if k != "seek" {
			t.Fatalf("echoed kind = %q", k)
		}
	case <-ctx.Done():
		t.Fatal("no echo")
	}

	cancel()
	if err := <-done; err != nil && !strings.Contains(err.Error(), "closed") {
		t.Fatalf("Run returned %v", err)
	}
}
