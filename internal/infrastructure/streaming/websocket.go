package streaming

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"capture-bridge/internal/application"
	"capture-bridge/internal/domain"
)

// Callback event names.
const (
	EventVolmeter              = "volmeter"
	EventTextureFrameAvailable = "textureFrameAvailable"
	EventDiagnostic            = "diagnostic"
)

const (
	defaultClientQueue = 64
	writeWait          = 5 * time.Second
	dropLogPeriod      = time.Second
)

// ErrClientClosed is returned when sending to a disconnected client.
var ErrClientClosed = errors.New("websocket client closed")

// Event is a callback pushed to every client.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// VolmeterData is the payload of a volmeter event.
type VolmeterData struct {
	SourceID  string    `json:"source_id"`
	Magnitude []float32 `json:"magnitude"`
	Peak      []float32 `json:"peak"`
	InputPeak []float32 `json:"inputPeak"`
}

// TextureFrameData is the payload of a textureFrameAvailable event.
type TextureFrameData struct {
	TextureID int64 `json:"texture_id"`
}

// DiagnosticData is the payload of a diagnostic event.
type DiagnosticData struct {
	SourceID string `json:"source_id"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Count    uint64 `json:"count,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	Valid    *bool  `json:"valid,omitempty"`
}

// Hub fans callback events out to connected websocket clients.
type Hub struct {
	logger    application.Logger
	queueSize int

	mutex   sync.Mutex
	clients map[string]*Client

	dropped     atomic.Uint64
	lastDropLog atomic.Int64
}

// NewHub creates an empty hub. queueSize bounds the pending messages per
// client; 0 means the default.
func NewHub(logger application.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultClientQueue
	}
	return &Hub{
		logger:    logger,
		queueSize: queueSize,
		clients:   make(map[string]*Client),
	}
}

// Client is one connected websocket peer. Writes go through a single writer
// goroutine.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// Attach registers conn and starts its writer.
func (h *Hub) Attach(conn *websocket.Conn) *Client {
	c := &Client{
		id:     uuid.NewString(),
		conn:   conn,
		hub:    h,
		send:   make(chan []byte, h.queueSize),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}

	h.mutex.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mutex.Unlock()

	go c.writePump()
	h.logger.Info("websocket client connected", "client", c.id, "remote", conn.RemoteAddr().String(), "clients", n)
	return c
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast queues an event for every client. Clients with a full queue
// miss the event.
func (h *Hub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		h.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mutex.Unlock()

	for _, c := range clients {
		if !c.trySend(msg) {
			n := h.dropped.Add(1)
			if shouldLog(&h.lastDropLog, dropLogPeriod) {
				h.logger.Debug("websocket client queue full, dropping event", "client", c.id, "event", event, "dropped", n)
			}
		}
	}
}

// OnAudioLevels publishes a volmeter event.
func (h *Hub) OnAudioLevels(sourceID string, frame domain.AudioFrame) {
	peaks := frame.PeakVector()
	h.Broadcast(EventVolmeter, VolmeterData{
		SourceID:  sourceID,
		Magnitude: frame.LevelVector(),
		Peak:      peaks,
		InputPeak: peaks,
	})
}

// OnDiagnostic publishes a diagnostic event.
func (h *Hub) OnDiagnostic(sourceID string, d domain.Diagnostic) {
	data := DiagnosticData{
		SourceID: sourceID,
		Kind:     d.Kind.String(),
		Message:  d.String(),
		Count:    d.Count,
		DeviceID: d.DeviceID,
	}
	if d.Kind == domain.DiagnosticFormatChanged {
		valid := d.Valid
		data.Valid = &valid
	}
	h.Broadcast(EventDiagnostic, data)
}

// TextureFrameAvailable publishes a textureFrameAvailable event.
func (h *Hub) TextureFrameAvailable(textureID int64) {
	h.Broadcast(EventTextureFrameAvailable, TextureFrameData{TextureID: textureID})
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mutex.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

func (h *Hub) detach(c *Client) {
	h.mutex.Lock()
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mutex.Unlock()
	h.logger.Info("websocket client disconnected", "client", c.id, "clients", n)
}

// ID returns the client identifier.
func (c *Client) ID() string { return c.id }

// Send queues v as JSON, waiting for room. It fails once the client is closed.
func (c *Client) Send(v interface{}) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.closed:
		return ErrClientClosed
	}
}

func (c *Client) trySend(msg []byte) bool {
	select {
	case <-c.closed:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close detaches the client, sends a close frame and closes the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		<-c.done
		c.hub.detach(c)

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		if err != nil {
			c.hub.logger.Debug("websocket close frame failed", "client", c.id, "error", err)
		}
		c.conn.Close()
	})
}

// Done is closed once the writer has stopped.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) writePump() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.logger.Error("websocket write failed", "client", c.id, "error", err)
				go c.Close()
				<-c.closed
				return
			}
		}
	}
}

func shouldLog(last *atomic.Int64, period time.Duration) bool {
	now := time.Now().UnixNano()
	for {
		prev := last.Load()
		if prev != 0 && time.Duration(now-prev) < period {
			return false
		}
		if last.CompareAndSwap(prev, now) {
			return true
		}
	}
}
