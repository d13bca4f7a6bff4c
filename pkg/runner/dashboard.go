// synthctl/pkg/runner/dashboard.go

package runner

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mkowalik/synthctl/pkg/logging"
)

// Dashboard streams run status snapshots to websocket clients while a
// one-shot run is in progress.
type Dashboard struct {
	runner         *Runner
	port           int
	updateInterval time.Duration
	clients        map[*websocket.Conn]bool
	clientsMutex   sync.Mutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local status endpoint, no origin restriction.
	},
}

func NewDashboard(runner *Runner, port int, updateInterval time.Duration) *Dashboard {
	return &Dashboard{
		runner:         runner,
		port:           port,
		updateInterval: updateInterval,
		clients:        make(map[*websocket.Conn]bool),
	}
}

// Start serves the status endpoints. It blocks until the listener
// fails, so callers run it in a goroutine.
func (d *Dashboard) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Server is running")
	})
	mux.HandleFunc("/events", d.handleWebSocket)

	go d.broadcastUpdates()

	addr := fmt.Sprintf(":%d", d.port)
	logging.Logger.Info().Str("addr", addr).Msg("Run status dashboard starting")
	return http.ListenAndServe(addr, mux)
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Error upgrading to WebSocket")
		return
	}
	defer conn.Close()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Dashboard client connected")

	d.clientsMutex.Lock()
	d.clients[conn] = true
	d.clientsMutex.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.clientsMutex.Lock()
	delete(d.clients, conn)
	d.clientsMutex.Unlock()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Dashboard client disconnected")
}

func (d *Dashboard) broadcastUpdates() {
	ticker := time.NewTicker(d.updateInterval)
	defer ticker.Stop()

	for range ticker.C {
		status := d.runner.Status()
		message, err := json.Marshal(status)
		if err != nil {
			logging.Logger.Error().Err(err).Msg("Error marshaling run status")
			continue
		}

		d.clientsMutex.Lock()
		for client := range d.clients {
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.Logger.Debug().Err(err).Msg("Dropping dashboard client")
				client.Close()
				delete(d.clients, client)
			}
		}
		d.clientsMutex.Unlock()
	}
}
