/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors station events between processes over Redis
// pub/sub or NATS, so chat bots and announcers can follow a station that
// runs elsewhere.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/stationloop/internal/events"
)

// SubjectPrefix namespaces event channels and subjects.
const SubjectPrefix = "stationloop.events."

// message is the wire form shared by both transports.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func unmarshalMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event message: %w", err)
	}
	if msg.EventType == "" {
		return nil, fmt.Errorf("event message without type")
	}
	return &msg, nil
}

func subject(eventType events.EventType) string {
	return SubjectPrefix + string(eventType)
}

// NewNodeID returns an identifier unique to this process.
func NewNodeID() string {
	return uuid.NewString()
}

// deliverRemote hands a message received from the network to local
// subscribers, dropping our own echoes.
func deliverRemote(local events.Publisher, nodeID string, data []byte) error {
	msg, err := unmarshalMessage(data)
	if err != nil {
		return err
	}
	if msg.NodeID == nodeID {
		return nil
	}
	if msg.Payload == nil {
		msg.Payload = events.Payload{}
	}
	msg.Payload["source_node"] = msg.NodeID
	local.Publish(msg.EventType, msg.Payload)
	return nil
}
