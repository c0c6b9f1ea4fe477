package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Hub owns the WebSocket connections and routes room events to them. It
// implements Broadcaster. Rooms call into the hub with their lock held, so
// the hub never calls into a room while holding its own lock.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	// members maps room code to player id to the bound connection.
	members map[string]map[string]*Client

	unregister chan *Client
	done       chan struct{}

	upgrader websocket.Upgrader
	config   ConnectionConfig
	games    *GameService
}

// Client is one WebSocket connection. Its room binding is guarded by the
// hub lock.
type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte

	roomCode   string
	playerID   string
	playerName string

	closeOnce sync.Once
}

type HubStats struct {
	Clients int `json:"clients"`
	Rooms   int `json:"rooms"`
	Players int `json:"players"`
}

func NewHub(games *GameService, config ConnectionConfig) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		members:    make(map[string]map[string]*Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		games:  games,
	}
}

// Run processes disconnects until ctx is done, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.unregister:
			h.mu.Lock()
			if !h.clients[client] {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, client)
			close(client.send)
			code, playerID, name := client.roomCode, client.playerID, client.playerName
			h.unbindLocked(client)
			total := len(h.clients)
			h.mu.Unlock()

			log.Debug().
				Str("client_id", client.id).
				Str("room", code).
				Str("name", name).
				Int("clients", total).
				Msg("client unregistered")

			if code != "" {
				if err := h.games.Leave(code, playerID); err != nil && !errors.Is(err, ErrNotInRoom) && !errors.Is(err, ErrRoomNotFound) {
					log.Warn().Err(err).Str("room", code).Str("player_id", playerID).Msg("leave on disconnect failed")
				}
			}
		}
	}
}

// ServeWS upgrades the request and starts the connection pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, h.config.SendBuffer),
	}

	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	log.Debug().Str("client_id", client.id).Int("clients", total).Msg("client registered")

	go client.writePump()
	go client.readPump()
	return nil
}

// Broadcast implements Broadcaster.
func (h *Hub) Broadcast(roomCode string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("marshal message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.members[roomCode] {
		client.enqueue(data)
	}
}

// SendTo implements Broadcaster.
func (h *Hub) SendTo(roomCode, playerID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("marshal message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.members[roomCode][playerID]; ok {
		client.enqueue(data)
	}
}

// Evict implements Broadcaster. The connection stays open and unjoined.
func (h *Hub) Evict(roomCode, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.members[roomCode][playerID]; ok {
		h.unbindLocked(client)
	}
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := HubStats{Clients: len(h.clients), Rooms: len(h.members)}
	for _, players := range h.members {
		stats.Players += len(players)
	}
	return stats
}

func (h *Hub) bind(client *Client, roomCode string, p *Player) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}
	if h.members[roomCode] == nil {
		h.members[roomCode] = make(map[string]*Client)
	}
	h.members[roomCode][p.ID] = client
	client.roomCode = roomCode
	client.playerID = p.ID
	client.playerName = p.Name
}

func (h *Hub) unbindLocked(client *Client) {
	if client.roomCode == "" {
		return
	}
	if players := h.members[client.roomCode]; players != nil {
		delete(players, client.playerID)
		if len(players) == 0 {
			delete(h.members, client.roomCode)
		}
	}
	client.roomCode = ""
	client.playerID = ""
	client.playerName = ""
}

func (h *Hub) binding(client *Client) (string, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.roomCode, client.playerID
}

func (h *Hub) reply(client *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("marshal message")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[client] {
		client.enqueue(data)
	}
}

func (h *Hub) replyError(client *Client, err error) {
	if errors.Is(err, ErrRoomFull) {
		h.reply(client, NewMessage(EventRoomFull, nil))
		return
	}
	h.reply(client, NewMessage(EventRoomError, RoomErrorPayload{Code: ErrorCode(err), Message: err.Error()}))
}

func (h *Hub) replyBadRequest(client *Client, message string) {
	h.reply(client, NewMessage(EventRoomError, RoomErrorPayload{Code: CodeBadRequest, Message: message}))
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.close()
	}
}

// enqueue never blocks. A client that cannot keep up is disconnected;
// the read side then unregisters it. Callers hold the hub lock.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("client_id", c.id).Str("room", c.roomCode).Msg("send buffer full, dropping client")
		c.close()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.socket.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.close()
	}()

	config := c.hub.config
	c.socket.SetReadLimit(config.MaxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(config.ReadTimeout))
	c.socket.SetPongHandler(func(string) error {
		c.socket.SetReadDeadline(time.Now().Add(config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("unexpected WebSocket close")
			}
			return
		}
		c.socket.SetReadDeadline(time.Now().Add(config.ReadTimeout))

		var msg InboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.replyBadRequest(c, "message is not valid JSON")
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	config := c.hub.config
	ticker := time.NewTicker(config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(config.WriteTimeout))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(config.WriteTimeout))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func decodePayload(msg InboundMessage, v interface{}) error {
	if len(msg.Payload) == 0 {
		return errors.New("payload is required")
	}
	return json.Unmarshal(msg.Payload, v)
}

// handleMessage runs on the client's read goroutine.
func (h *Hub) handleMessage(c *Client, msg InboundMessage) {
	if msg.Version != 0 && msg.Version != ProtocolVersion {
		h.replyBadRequest(c, fmt.Sprintf("unsupported protocol version %d", msg.Version))
		return
	}

	switch msg.Type {
	case CmdPing:
		h.reply(c, NewMessage(EventPong, nil))

	case CmdJoinRoom:
		var p JoinRoomPayload
		if err := decodePayload(msg, &p); err != nil {
			h.replyBadRequest(c, "join-room: "+err.Error())
			return
		}
		h.join(c, p)

	case CmdAnswer:
		var p AnswerPayload
		if err := decodePayload(msg, &p); err != nil {
			h.replyBadRequest(c, "answer: "+err.Error())
			return
		}
		code, playerID, err := h.member(c, p.RoomCode)
		if err != nil {
			h.replyError(c, err)
			return
		}
		if _, err := h.games.SubmitAnswer(code, playerID, p.Option); err != nil {
			h.replyError(c, err)
		}

	case CmdStartQuiz, CmdRequestNextQuestion, CmdEndQuiz, CmdKick:
		var p RoomCommandPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				h.replyBadRequest(c, msg.Type+": "+err.Error())
				return
			}
		}
		if err := h.hostCommand(c, msg.Type, p); err != nil {
			h.replyError(c, err)
		}

	case CmdLeaveRoom:
		h.mu.Lock()
		code, playerID := c.roomCode, c.playerID
		h.unbindLocked(c)
		h.mu.Unlock()
		if code == "" {
			h.replyError(c, ErrNotInRoom)
			return
		}
		if err := h.games.Leave(code, playerID); err != nil && !errors.Is(err, ErrNotInRoom) {
			h.replyError(c, err)
		}

	case CmdRequestState:
		var p RoomCommandPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				h.replyBadRequest(c, "request-state: "+err.Error())
				return
			}
		}
		code, playerID := h.binding(c)
		if code != "" && (p.RoomCode == "" || NormalizeCode(p.RoomCode) == code) {
			if err := h.games.SendState(code, playerID); err != nil {
				h.replyError(c, err)
			}
			return
		}
		snap, err := h.games.GetRoom(context.Background(), p.RoomCode)
		if err != nil {
			h.replyError(c, err)
			return
		}
		h.reply(c, NewMessage(EventRoomState, snap))

	default:
		log.Debug().Str("client_id", c.id).Str("type", msg.Type).Msg("unknown message type")
		h.replyBadRequest(c, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (h *Hub) join(c *Client, p JoinRoomPayload) {
	code := NormalizeCode(p.RoomCode)
	if code == "" {
		h.replyBadRequest(c, "join-room: roomCode is required")
		return
	}

	// Joining another room leaves the current one first.
	h.mu.Lock()
	prevCode, prevPlayer := c.roomCode, c.playerID
	h.unbindLocked(c)
	h.mu.Unlock()
	if prevCode != "" {
		if err := h.games.Leave(prevCode, prevPlayer); err != nil && !errors.Is(err, ErrNotInRoom) {
			log.Warn().Err(err).Str("room", prevCode).Msg("leave before rejoin failed")
		}
	}

	_, err := h.games.Join(code, p.Name, p.HostToken, func(player *Player) {
		h.bind(c, code, player)
	})
	if err != nil {
		log.Debug().Err(err).Str("room", code).Str("name", p.Name).Msg("join rejected")
		h.replyError(c, err)
	}
}

// member returns the client's binding, checking it against the room code
// the client named, if any.
func (h *Hub) member(c *Client, roomCode string) (string, string, error) {
	code, playerID := h.binding(c)
	if code == "" {
		return "", "", ErrNotInRoom
	}
	if roomCode != "" && NormalizeCode(roomCode) != code {
		return "", "", ErrNotInRoom
	}
	return code, playerID, nil
}

func (h *Hub) hostCommand(c *Client, command string, p RoomCommandPayload) error {
	code, playerID, err := h.member(c, p.RoomCode)
	if err != nil {
		return err
	}
	if !h.games.IsHost(code, playerID) {
		return ErrNotHost
	}

	switch command {
	case CmdStartQuiz:
		return h.games.StartQuiz(code)
	case CmdRequestNextQuestion:
		return h.games.NextQuestion(code)
	case CmdEndQuiz:
		return h.games.EndQuiz(code)
	case CmdKick:
		if p.PlayerID == "" {
			return fmt.Errorf("%w: playerId is required", ErrBadRequest)
		}
		return h.games.Kick(code, p.PlayerID)
	}
	return nil
}
