// Command matchserver is a stand-in match service for trying matchload
// locally. Every queue join is matched after -match-delay and the session
// ends -session-length after the client's first input.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type server struct {
	matchDelay    time.Duration
	sessionLength time.Duration

	mu      sync.Mutex
	waiting map[string]chan struct{} // token -> signalled on queue join
	nextID  atomic.Int64
}

func main() {
	port := flag.Int("port", 8080, "Listening port")
	matchDelay := flag.Duration("match-delay", 200*time.Millisecond, "Delay between queue join and session.started")
	sessionLength := flag.Duration("session-length", 500*time.Millisecond, "Delay between the first input and session.ended")
	flag.Parse()

	s := &server{
		matchDelay:    *matchDelay,
		sessionLength: *sessionLength,
		waiting:       make(map[string]chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/queue/join", s.handleJoin)
	mux.HandleFunc("/ws", s.handleStream)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("match server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"ok": true}, "error": nil})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{"data": nil, "error": "bad credentials"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  map[string]any{"token": "tok-" + creds.Username},
		"error": nil,
	})
}

func (s *server) handleJoin(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)
	s.mu.Lock()
	ch, ok := s.waiting[token]
	if ok {
		delete(s.waiting, token)
	}
	s.mu.Unlock()
	if !ok {
		respondJSON(w, http.StatusConflict, map[string]any{"data": nil, "error": "no stream for token"})
		return
	}
	close(ch)
	respondJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"queued": true}, "error": nil})
}

func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	joined := make(chan struct{})
	s.mu.Lock()
	s.waiting[token] = joined
	s.mu.Unlock()

	go s.playSession(conn, token, joined)
}

func (s *server) playSession(conn *websocket.Conn, token string, joined <-chan struct{}) {
	defer conn.Close()
	defer func() {
		s.mu.Lock()
		delete(s.waiting, token)
		s.mu.Unlock()
	}()

	seq := 0
	send := func(event string, payload map[string]any) error {
		seq++
		return conn.WriteJSON(map[string]any{"t": "event", "event": event, "seq": seq, "p": payload})
	}

	if err := send("auth_state", map[string]any{"state": "authenticated"}); err != nil {
		return
	}
	select {
	case <-joined:
	case <-time.After(time.Minute):
		return
	}

	sessionID := fmt.Sprintf("sess-%d", s.nextID.Add(1))
	if err := send("session.created", map[string]any{"sessionId": sessionID}); err != nil {
		return
	}
	time.Sleep(s.matchDelay)
	if err := send("session.started", map[string]any{"sessionId": sessionID, "tick": 0}); err != nil {
		return
	}

	if _, _, err := conn.ReadMessage(); err != nil {
		return
	}
	time.Sleep(s.sessionLength)
	if err := send("session.ended", map[string]any{"sessionId": sessionID}); err != nil {
		return
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func bearer(r *http.Request) string {
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
