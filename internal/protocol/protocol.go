// Package protocol implements the JSON array-of-messages wire format
// described in spec.md §6, replacing the teacher's fixed binary struct
// encoding (internal/network in the source repo). A frame is a JSON array
// of messages; each message is `[name, payload]`, `[name, payload,
// callId]`, or `[callId, result]` — grounded in
// original_source/python_server/server/socket_client.py::on_message and
// services/compressor.py.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Precision is the Compressor's fixed-point scale (spec.md §6).
const Precision = 100

// Compress rounds a coordinate/angle into the wire integer encoding.
func Compress(v float64) int { return int(0.5 + v*Precision) }

// Decompress reverses Compress.
func Decompress(v int) float64 { return float64(v) / Precision }

// Message is one decoded element of an inbound frame.
type Message struct {
	// Name is the event name, for a 2- or 3-element message.
	Name string
	// IsReply is true when this message is a `[callId, result]` reply to
	// a previously sent outbound call.
	IsReply bool
	// CallID is the numeric call id: the third element of an inbound
	// request, or the first element of a reply.
	CallID int64
	// HasCallID reports whether the sender attached a call id (3-element
	// request form) that expects a `[callId, result]` reply.
	HasCallID bool
	// Payload is the raw, still-encoded second element (nil if absent).
	Payload json.RawMessage
}

// DecodeFrame parses one inbound text frame into its component messages.
func DecodeFrame(data []byte) ([]Message, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("protocol: invalid frame: %w", err)
	}
	msgs := make([]Message, 0, len(raw))
	for _, r := range raw {
		var parts []json.RawMessage
		if err := json.Unmarshal(r, &parts); err != nil {
			return nil, fmt.Errorf("protocol: invalid message: %w", err)
		}
		if len(parts) == 0 {
			continue
		}
		m, err := decodeMessage(parts)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func decodeMessage(parts []json.RawMessage) (Message, error) {
	var head interface{}
	if err := json.Unmarshal(parts[0], &head); err != nil {
		return Message{}, fmt.Errorf("protocol: invalid message head: %w", err)
	}
	switch v := head.(type) {
	case string:
		m := Message{Name: v}
		if len(parts) > 1 {
			m.Payload = parts[1]
		}
		if len(parts) > 2 {
			var id int64
			if err := json.Unmarshal(parts[2], &id); err != nil {
				return Message{}, fmt.Errorf("protocol: invalid callId: %w", err)
			}
			m.CallID = id
			m.HasCallID = true
		}
		return m, nil
	case float64:
		m := Message{IsReply: true, CallID: int64(v)}
		if len(parts) > 1 {
			m.Payload = parts[1]
		}
		return m, nil
	default:
		return Message{}, fmt.Errorf("protocol: unrecognized message head %v", head)
	}
}

// OutMessage is one element to encode into an outbound frame.
type OutMessage struct {
	// Name is the event name for a one-way/request message. Zero value
	// ("") is only valid when ReplyTo is set, producing a pure reply.
	Name string
	// Data is the payload, omitted from the wire array entirely when nil
	// and ReplyTo is unset (one-way event with no payload).
	Data interface{}
	// HasData distinguishes "no payload" from "payload is JSON null".
	HasData bool
	// ReplyTo, when non-nil, turns this into a `[callId, result]` reply
	// instead of a `[name, ...]` event.
	ReplyTo *int64
	// CallID, when non-nil, appends a call id to a `[name, payload,
	// callId]` request expecting a reply.
	CallID *int64
}

// Event builds a one-way `[name]` or `[name, data]` message.
func Event(name string, data interface{}) OutMessage {
	if data == nil {
		return OutMessage{Name: name}
	}
	return OutMessage{Name: name, Data: data, HasData: true}
}

// Request builds a `[name, data, callId]` message expecting a reply.
func Request(name string, data interface{}, callID int64) OutMessage {
	m := Event(name, data)
	m.CallID = &callID
	return m
}

// Reply builds a `[callId, result]` message replying to an inbound call.
func Reply(callID int64, result interface{}) OutMessage {
	return OutMessage{ReplyTo: &callID, Data: result, HasData: true}
}

// EncodeFrame serializes a batch of outbound messages into one wire frame.
func EncodeFrame(msgs []OutMessage) ([]byte, error) {
	arr := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		arr = append(arr, m.encode())
	}
	return json.Marshal(arr)
}

func (m OutMessage) encode() []interface{} {
	if m.ReplyTo != nil {
		return []interface{}{*m.ReplyTo, m.Data}
	}
	item := []interface{}{m.Name}
	if m.HasData || m.CallID != nil {
		item = append(item, m.Data)
	}
	if m.CallID != nil {
		item = append(item, *m.CallID)
	}
	return item
}
