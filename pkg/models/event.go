package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reaction is one emoji reaction with its count.
type Reaction struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MessageRef is the nested message object carried by edit and delete
// subtypes.
type MessageRef struct {
	TS       string `json:"ts,omitempty"`
	Text     string `json:"text,omitempty"`
	ThreadTS string `json:"thread_ts,omitempty"`
	Channel  string `json:"channel,omitempty"`
}

// ReactionItem identifies the message a reaction event targets.
type ReactionItem struct {
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
}

// InnerEvent is the platform event inside an envelope. Which fields are
// populated depends on type/subtype; Classify resolves it into a variant.
type InnerEvent struct {
	Type            string        `json:"type"`
	Subtype         string        `json:"subtype,omitempty"`
	Channel         string        `json:"channel,omitempty"`
	User            string        `json:"user,omitempty"`
	Text            string        `json:"text,omitempty"`
	TS              string        `json:"ts,omitempty"`
	ThreadTS        string        `json:"thread_ts,omitempty"`
	Reactions       []Reaction    `json:"reactions,omitempty"`
	Message         *MessageRef   `json:"message,omitempty"`
	PreviousMessage *MessageRef   `json:"previous_message,omitempty"`
	Item            *ReactionItem `json:"item,omitempty"`
	Reaction        string        `json:"reaction,omitempty"`
	EventTS         string        `json:"event_ts,omitempty"`
}

// EventEnvelope is the outer callback payload.
type EventEnvelope struct {
	EventID   string     `json:"event_id"`
	EventTime int64      `json:"event_time,omitempty"`
	EventTS   string     `json:"event_ts,omitempty"`
	TeamID    string     `json:"team_id,omitempty"`
	Type      string     `json:"type"`
	Event     InnerEvent `json:"event"`
}

// Validate checks the minimal envelope shape.
func (e *EventEnvelope) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	if e.Event.Type == "" {
		return fmt.Errorf("event.type is required")
	}
	return nil
}

// ParseEnvelope decodes and validates an envelope from raw JSON.
func ParseEnvelope(raw []byte) (*EventEnvelope, error) {
	var envelope EventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding event payload: %w", err)
	}
	if err := envelope.Validate(); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// ThreadEvent is the resolved form of an inner event: exactly one variant
// per event shape the reducer handles.
type ThreadEvent interface {
	isThreadEvent()
}

// NewMessageEvent is a plain message posting into a thread (or starting one).
type NewMessageEvent struct {
	Channel   string
	TS        string
	ThreadTS  string
	User      string
	Text      string
	Reactions []Reaction
}

// MessageChangedEvent replaces the text of an existing message.
type MessageChangedEvent struct {
	Channel  string
	TS       string
	ThreadTS string
	Text     string
}

// MessageDeletedEvent tombstones an existing message.
type MessageDeletedEvent struct {
	Channel  string
	TS       string
	ThreadTS string
}

// ReactionEvent adjusts one reaction count on a message.
type ReactionEvent struct {
	Channel string
	TS      string
	Name    string
	Delta   int
}

func (NewMessageEvent) isThreadEvent()     {}
func (MessageChangedEvent) isThreadEvent() {}
func (MessageDeletedEvent) isThreadEvent() {}
func (ReactionEvent) isThreadEvent()       {}

// Classify resolves the inner event into its ThreadEvent variant, applying
// the channel/ts fallback rules for each shape. It returns nil when the
// event is unsupported or lacks a resolvable target; such events are
// discarded.
func (e *InnerEvent) Classify() ThreadEvent {
	switch {
	case e.Type == "message" && e.Subtype == "message_changed":
		channel := firstNonEmpty(e.Channel, refChannel(e.Message), refChannel(e.PreviousMessage))
		if e.Message == nil || channel == "" || e.Message.TS == "" {
			return nil
		}
		return MessageChangedEvent{
			Channel:  channel,
			TS:       e.Message.TS,
			ThreadTS: firstNonEmpty(e.Message.ThreadTS, e.Message.TS),
			Text:     e.Message.Text,
		}
	case e.Type == "message" && e.Subtype == "message_deleted":
		target := e.PreviousMessage
		if target == nil {
			target = e.Message
		}
		channel := firstNonEmpty(e.Channel, refChannel(e.Message), refChannel(e.PreviousMessage))
		if target == nil || channel == "" || target.TS == "" {
			return nil
		}
		return MessageDeletedEvent{
			Channel:  channel,
			TS:       target.TS,
			ThreadTS: firstNonEmpty(target.ThreadTS, target.TS),
		}
	case e.Type == "message" && e.Subtype == "":
		if e.Channel == "" || e.TS == "" {
			return nil
		}
		return NewMessageEvent{
			Channel:   e.Channel,
			TS:        e.TS,
			ThreadTS:  firstNonEmpty(e.ThreadTS, e.TS),
			User:      e.User,
			Text:      e.Text,
			Reactions: e.Reactions,
		}
	case e.Type == "reaction_added" || e.Type == "reaction_removed":
		channel := e.Channel
		ts := e.TS
		if e.Item != nil {
			channel = firstNonEmpty(e.Item.Channel, channel)
			ts = firstNonEmpty(e.Item.TS, ts)
		}
		if channel == "" || ts == "" || e.Reaction == "" {
			return nil
		}
		delta := 1
		if e.Type == "reaction_removed" {
			delta = -1
		}
		return ReactionEvent{Channel: channel, TS: ts, Name: e.Reaction, Delta: delta}
	default:
		return nil
	}
}

// HotSignal reports whether the event should route to the hot queue: the
// text carries an escalation phrase or the payload reactions include
// rotating_light.
func (e *InnerEvent) HotSignal() bool {
	text := strings.ToLower(e.Text)
	for _, signal := range hotSignals {
		if strings.Contains(text, signal) {
			return true
		}
	}
	for _, r := range e.Reactions {
		if r.Name == "rotating_light" {
			return true
		}
	}
	return false
}

var hotSignals = []string{"decision needed", "by friday", "blocker", "urgent", "evt"}

func refChannel(ref *MessageRef) string {
	if ref == nil {
		return ""
	}
	return ref.Channel
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
