package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"livequiz/services"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Conn is a player's WebSocket connection to a livequiz server.
type Conn struct {
	ws *websocket.Conn
	// gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

// WebSocketURL turns a server base URL such as http://host:8080 into the
// address of its /ws endpoint.
func WebSocketURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func Dial(ctx context.Context, server string) (*Conn, error) {
	wsURL, err := WebSocketURL(server)
	if err != nil {
		return nil, err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Conn{ws: ws}, nil
}

func (c *Conn) Send(messageType string, payload interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(services.NewMessage(messageType, payload))
}

// Next blocks until the server sends an event.
func (c *Conn) Next() (Event, error) {
	var ev Event
	if err := c.ws.ReadJSON(&ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (c *Conn) JoinRoom(roomCode, name, hostToken string) error {
	return c.Send(services.CmdJoinRoom, services.JoinRoomPayload{Name: name, RoomCode: roomCode, HostToken: hostToken})
}

func (c *Conn) Answer(roomCode, option string) error {
	return c.Send(services.CmdAnswer, services.AnswerPayload{Option: option, RoomCode: roomCode})
}

func (c *Conn) StartQuiz(roomCode string) error {
	return c.Send(services.CmdStartQuiz, services.RoomCommandPayload{RoomCode: roomCode})
}

func (c *Conn) NextQuestion(roomCode string) error {
	return c.Send(services.CmdRequestNextQuestion, services.RoomCommandPayload{RoomCode: roomCode})
}

func (c *Conn) EndQuiz(roomCode string) error {
	return c.Send(services.CmdEndQuiz, services.RoomCommandPayload{RoomCode: roomCode})
}

func (c *Conn) Kick(roomCode, playerID string) error {
	return c.Send(services.CmdKick, services.RoomCommandPayload{RoomCode: roomCode, PlayerID: playerID})
}

func (c *Conn) Leave(roomCode string) error {
	return c.Send(services.CmdLeaveRoom, services.RoomCommandPayload{RoomCode: roomCode})
}

func (c *Conn) RequestState(roomCode string) error {
	return c.Send(services.CmdRequestState, services.RoomCommandPayload{RoomCode: roomCode})
}

func (c *Conn) Ping() error {
	return c.Send(services.CmdPing, nil)
}

func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}
