package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		raw := []byte(`{
			"event_id": "Ev001",
			"team_id": "T001",
			"type": "event_callback",
			"event": {"type": "message", "channel": "C001", "ts": "1.000", "text": "hello"}
		}`)
		envelope, err := ParseEnvelope(raw)
		require.NoError(t, err)
		assert.Equal(t, "Ev001", envelope.EventID)
		assert.Equal(t, "message", envelope.Event.Type)
	})

	t.Run("missing event_id", func(t *testing.T) {
		_, err := ParseEnvelope([]byte(`{"type": "event_callback", "event": {"type": "message"}}`))
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseEnvelope([]byte(`{`))
		require.Error(t, err)
	})
}

func TestClassify_NewMessage(t *testing.T) {
	event := InnerEvent{Type: "message", Channel: "C1", TS: "2.000", User: "U1", Text: "hi"}
	variant := event.Classify()
	require.NotNil(t, variant)

	msg, ok := variant.(NewMessageEvent)
	require.True(t, ok)
	assert.Equal(t, "C1", msg.Channel)
	assert.Equal(t, "2.000", msg.TS)
	assert.Equal(t, "2.000", msg.ThreadTS, "thread_ts defaults to ts")

	event.ThreadTS = "1.000"
	msg = event.Classify().(NewMessageEvent)
	assert.Equal(t, "1.000", msg.ThreadTS)
}

func TestClassify_NewMessageMissingTarget(t *testing.T) {
	assert.Nil(t, (&InnerEvent{Type: "message", TS: "2.000"}).Classify())
	assert.Nil(t, (&InnerEvent{Type: "message", Channel: "C1"}).Classify())
}

func TestClassify_MessageChanged(t *testing.T) {
	event := InnerEvent{
		Type:    "message",
		Subtype: "message_changed",
		Message: &MessageRef{TS: "2.000", Text: "edited", ThreadTS: "1.000", Channel: "C2"},
	}
	variant := event.Classify()
	require.NotNil(t, variant)

	changed, ok := variant.(MessageChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "C2", changed.Channel, "channel falls back to message.channel")
	assert.Equal(t, "2.000", changed.TS)
	assert.Equal(t, "1.000", changed.ThreadTS)
	assert.Equal(t, "edited", changed.Text)

	// Outer channel wins when present.
	event.Channel = "C1"
	changed = event.Classify().(MessageChangedEvent)
	assert.Equal(t, "C1", changed.Channel)

	// thread_ts falls back to the edited message ts.
	event.Message.ThreadTS = ""
	changed = event.Classify().(MessageChangedEvent)
	assert.Equal(t, "2.000", changed.ThreadTS)
}

func TestClassify_MessageDeleted(t *testing.T) {
	event := InnerEvent{
		Type:            "message",
		Subtype:         "message_deleted",
		Channel:         "C1",
		PreviousMessage: &MessageRef{TS: "2.000", ThreadTS: "1.000"},
	}
	deleted, ok := event.Classify().(MessageDeletedEvent)
	require.True(t, ok)
	assert.Equal(t, "C1", deleted.Channel)
	assert.Equal(t, "2.000", deleted.TS)
	assert.Equal(t, "1.000", deleted.ThreadTS)

	// Falls back to message when previous_message is absent.
	event.PreviousMessage = nil
	event.Message = &MessageRef{TS: "3.000"}
	deleted, ok = event.Classify().(MessageDeletedEvent)
	require.True(t, ok)
	assert.Equal(t, "3.000", deleted.TS)
	assert.Equal(t, "3.000", deleted.ThreadTS)

	// No target at all discards the event.
	event.Message = nil
	assert.Nil(t, event.Classify())
}

func TestClassify_Reactions(t *testing.T) {
	added := InnerEvent{
		Type:     "reaction_added",
		Item:     &ReactionItem{Channel: "C1", TS: "2.000"},
		Reaction: "rotating_light",
	}
	reaction, ok := added.Classify().(ReactionEvent)
	require.True(t, ok)
	assert.Equal(t, "C1", reaction.Channel)
	assert.Equal(t, "2.000", reaction.TS)
	assert.Equal(t, "rotating_light", reaction.Name)
	assert.Equal(t, 1, reaction.Delta)

	removed := InnerEvent{Type: "reaction_removed", Channel: "C1", TS: "2.000", Reaction: "eyes"}
	reaction, ok = removed.Classify().(ReactionEvent)
	require.True(t, ok)
	assert.Equal(t, -1, reaction.Delta)

	missingName := InnerEvent{Type: "reaction_added", Channel: "C1", TS: "2.000"}
	assert.Nil(t, missingName.Classify())
}

func TestClassify_Unsupported(t *testing.T) {
	assert.Nil(t, (&InnerEvent{Type: "channel_created"}).Classify())
	assert.Nil(t, (&InnerEvent{Type: "message", Subtype: "bot_message", Channel: "C1", TS: "1"}).Classify())
}

func TestHotSignal(t *testing.T) {
	cases := []struct {
		name  string
		event InnerEvent
		want  bool
	}{
		{"decision needed", InnerEvent{Text: "Decision NEEDED on the bracket"}, true},
		{"by friday", InnerEvent{Text: "need this by Friday"}, true},
		{"blocker", InnerEvent{Text: "this is a blocker"}, true},
		{"urgent", InnerEvent{Text: "URGENT: review"}, true},
		{"evt substring", InnerEvent{Text: "prEVTest"}, true},
		{"rotating_light reaction", InnerEvent{Text: "calm", Reactions: []Reaction{{Name: "rotating_light", Count: 1}}}, true},
		{"other reaction", InnerEvent{Text: "calm", Reactions: []Reaction{{Name: "eyes", Count: 2}}}, false},
		{"plain", InnerEvent{Text: "nothing special"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.event.HotSignal())
		})
	}
}

func TestMessageReactionTotal(t *testing.T) {
	msg := Message{Reactions: []Reaction{{Name: "eyes", Count: 2}, {Name: "rocket", Count: 3}}}
	assert.Equal(t, 5, msg.ReactionTotal())
	assert.Equal(t, 0, (&Message{}).ReactionTotal())
}
