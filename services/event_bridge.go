package services

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const DefaultSubjectPrefix = "livequiz.rooms"

// EventBridge mirrors room broadcasts onto NATS subjects of the form
// <prefix>.<ROOMCODE>.<type>. Direct messages and evictions stay local.
type EventBridge struct {
	nc     *nats.Conn
	prefix string
}

func NewEventBridge(nc *nats.Conn, prefix string) *EventBridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &EventBridge{nc: nc, prefix: prefix}
}

func (b *EventBridge) Subject(roomCode, messageType string) string {
	return fmt.Sprintf("%s.%s.%s", b.prefix, NormalizeCode(roomCode), messageType)
}

// Broadcast hands the message to the NATS client's outbound buffer and
// never waits on the network.
func (b *EventBridge) Broadcast(roomCode string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("room", roomCode).Str("type", msg.Type).Msg("marshal bridged event")
		return
	}

	err = b.nc.PublishMsg(&nats.Msg{
		Subject: b.Subject(roomCode, msg.Type),
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{msg.Type},
			"Room-Code":  []string{NormalizeCode(roomCode)},
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("room", roomCode).Str("type", msg.Type).Msg("publish bridged event")
	}
}

func (b *EventBridge) SendTo(string, string, Message) {}

func (b *EventBridge) Evict(string, string) {}
