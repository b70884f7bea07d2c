// Package main runs a demo WebSocket client for the live dispatch board.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)
	date := time.Now().Format("2006-01-02")

	// Connect WS and subscribe to today's board
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/board/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]string{"date": date})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Trigger a board event by recording a plan change
	time.Sleep(500 * time.Millisecond)
	body := []byte(fmt.Sprintf(`{"date":%q,"change":{"courseId":"c-demo","kind":"update"}}`, date))
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/planning/changes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	_, _ = http.DefaultClient.Do(req)

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
