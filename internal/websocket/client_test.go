// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// setupWebSocketServer runs a test server whose handler receives the
// upgraded server-side connection.
func setupWebSocketServer(t *testing.T, handler func(t *testing.T, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(t, conn)
	}))
}

func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	return conn
}

func waitForSignal(t *testing.T, ch <-chan bool, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Errorf("%s: timeout after %v", msg, timeout)
	}
}

func TestNewClient(t *testing.T) {
	hub := NewHub()

	server := setupWebSocketServer(t, func(t *testing.T, conn *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	client := NewClient(hub, conn)
	if client == nil {
		t.Fatal("NewClient returned nil")
	}
	if client.hub != hub || client.conn != conn {
		t.Error("client wiring incorrect")
	}
	if cap(client.send) != sendBuffer {
		t.Errorf("send capacity = %d, want %d", cap(client.send), sendBuffer)
	}
}

func TestClientIDsIncrease(t *testing.T) {
	hub := NewHub()
	a := &Client{id: clientIDCounter.Add(1), hub: hub}
	b := &Client{id: clientIDCounter.Add(1), hub: hub}
	if b.ID() <= a.ID() {
		t.Errorf("IDs not increasing: %d then %d", a.ID(), b.ID())
	}
}

func TestClientTimingConstants(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be shorter than pongWait %v", pingPeriod, pongWait)
	}
}

func TestClientWritePumpDeliversEnvelope(t *testing.T) {
	hub := NewHub()

	received := make(chan bool, 1)
	server := setupWebSocketServer(t, func(t *testing.T, conn *websocket.Conn) {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read message: %v", err)
			return
		}
		if msgType != websocket.TextMessage {
			t.Errorf("message type = %d, want text", msgType)
		}
		if string(data) != `{"type":"attendance.check_in"}` {
			t.Errorf("payload = %q", data)
		}
		received <- true
	})
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	client := NewClient(hub, conn)
	go client.writePump()

	client.send <- []byte(`{"type":"attendance.check_in"}`)

	waitForSignal(t, received, time.Second, "envelope not received")
}

func TestClientReadPumpUnregistersOnClose(t *testing.T) {
	hub := NewHub()

	unregistered := make(chan bool, 1)
	go func() {
		select {
		case <-hub.Unregister:
			unregistered <- true
		case <-time.After(2 * time.Second):
		}
	}()

	server := setupWebSocketServer(t, func(t *testing.T, conn *websocket.Conn) {
		conn.Close()
	})
	defer server.Close()

	conn := dialWebSocket(t, server)

	client := NewClient(hub, conn)
	go client.readPump()

	waitForSignal(t, unregistered, time.Second, "client not unregistered after close")
}

func TestClientReadPumpDiscardsInbound(t *testing.T) {
	hub := NewHub()
	// Drain the unregister that fires when the server closes at the end.
	go func() { <-hub.Unregister }()

	serverDone := make(chan bool, 1)
	server := setupWebSocketServer(t, func(t *testing.T, conn *websocket.Conn) {
		for i := 0; i < 3; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, []byte("chatter")); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
		serverDone <- true
	})
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	// Note the roles flip here: the test server plays the browser, the
	// Client reads what it sends. Inbound frames must be swallowed
	// without closing the connection.
	client := NewClient(hub, conn)
	go client.readPump()

	waitForSignal(t, serverDone, time.Second, "server writes failed")
}

func TestClientWritePumpClosesOnChannelClose(t *testing.T) {
	hub := NewHub()

	receivedClose := make(chan bool, 1)
	server := setupWebSocketServer(t, func(t *testing.T, conn *websocket.Conn) {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					receivedClose <- true
				}
				return
			}
		}
	})
	defer server.Close()

	conn := dialWebSocket(t, server)

	client := NewClient(hub, conn)
	go client.writePump()

	time.Sleep(50 * time.Millisecond)
	close(client.send)

	select {
	case <-receivedClose:
	case <-time.After(time.Second):
		// The connection may tear down before the close frame is read.
	}
}

func TestClientStartRoundTrip(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()
	defer cancel()
	time.Sleep(10 * time.Millisecond)

	received := make(chan []byte, 1)
	server := setupWebSocketServer(t, func(t *testing.T, conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- data
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	client := NewClient(hub, conn)
	hub.Register <- client
	client.Start()
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast([]byte(`{"type":"detection.frame","payload":{"seq":1}}`))

	select {
	case data := <-received:
		if !strings.Contains(string(data), "detection.frame") {
			t.Errorf("payload = %q", data)
		}
	case <-time.After(time.Second):
		t.Error("broadcast did not reach the wire")
	}
}
