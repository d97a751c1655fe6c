// Package main runs a demo WebSocket client for optimization notifications.
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

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5052"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Pick the first vehicle on the board
	resp, err := http.Get(base + "/api/vehicles")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var vehicles []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&vehicles); err != nil {
		log.Fatal(err)
	}
	if len(vehicles) == 0 {
		log.Fatal("no vehicles on the board, seed first")
	}
	vehicleID := vehicles[0].ID
	log.Printf("Vehicle ID: %s", vehicleID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/api/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var n struct {
				VehicleID string `json:"vehicleId"`
			}
			if err := c.ReadJSON(&n); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- route changed for %s", n.VehicleID)
		}
	}()

	// Trigger an optimization round
	time.Sleep(500 * time.Millisecond)
	body, _ := json.Marshal(map[string]string{"vehicleId": vehicleID})
	optResp, err := http.Post(base+"/api/optimize", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	_ = optResp.Body.Close()
	log.Printf("optimize enqueued: %s", optResp.Status)

	// The shuffle worker takes about a second; wait for the notification
	select {
	case <-time.After(5 * time.Second):
		log.Print("no notification received")
	case <-done:
	}
}
