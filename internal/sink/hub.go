// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/imu_dashboard/internal/present"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 16
	writeWait         = 5 * time.Second
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	socket *websocket.Conn
	send   chan []byte
}

// write pumps queued frames to the socket until send is closed.
func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// read discards inbound messages and returns when the peer goes away.
func (c *client) read() {
	defer c.socket.Close()
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub broadcasts frames as JSON to every connected websocket. A client whose
// queue is full misses frames rather than stalling the others.
type Hub struct {
	// forward holds frames to send to all clients.
	forward chan []byte
	join    chan *client
	leave   chan *client
	clients map[*client]bool
	// latest is replayed to clients as they join.
	latest []byte
	done   chan struct{}
}

// NewHub makes a hub; call Run before serving.
func NewHub() *Hub {
	return &Hub{
		forward: make(chan []byte, messageBufferSize),
		join:    make(chan *client),
		leave:   make(chan *client),
		clients: make(map[*client]bool),
		done:    make(chan struct{}),
	}
}

// Run serves joins, leaves and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.join:
			h.clients[c] = true
			if h.latest != nil {
				c.send <- h.latest
			}
			log.Printf("hub: client joined (%d connected)", len(h.clients))
		case c := <-h.leave:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			log.Printf("hub: client left (%d connected)", len(h.clients))
		case msg := <-h.forward:
			h.latest = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
				}
			}
		}
	}
}

// Render queues f for broadcast. If the hub is backed up the frame is dropped;
// the next one supersedes it anyway.
func (h *Hub) Render(f present.Frame) error {
	msg, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	select {
	case h.forward <- msg:
	default:
	}
	return nil
}

// ServeHTTP upgrades the request and keeps the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Printf("hub: upgrade: %v", err)
		return
	}
	c := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
	}
	select {
	case h.join <- c:
	case <-h.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case h.leave <- c:
		case <-h.done:
		}
	}()
	go c.write()
	c.read()
}
