package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"gorm.io/datatypes"

	"github.com/digestkit/digestd/pkg/enrich"
	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/store"
	"github.com/digestkit/digestd/pkg/vector"
)

// PipelineExecutor folds one event into its thread: message mutation,
// aggregate recompute from the full message set, enrichment, embedding,
// metric increment.
type PipelineExecutor struct {
	store *store.Store
	now   func() float64
}

// NewPipelineExecutor creates the executor. now may be nil for wall-clock
// time.
func NewPipelineExecutor(st *store.Store, now func() float64) *PipelineExecutor {
	if now == nil {
		now = func() float64 {
			return float64(time.Now().UnixNano()) / float64(time.Second)
		}
	}
	return &PipelineExecutor{store: st, now: now}
}

// Execute runs the fold and, when it completes, bumps the lane's processed
// counter. Discarded and duplicate events still count as processed.
func (e *PipelineExecutor) Execute(ctx context.Context, job Job) error {
	if err := e.fold(ctx, job); err != nil {
		return err
	}
	if err := e.store.IncrementQueueMetric(ctx, string(job.Lane), e.now()); err != nil {
		slog.Warn("Failed to bump queue metric", "lane", string(job.Lane), "error", err)
	}
	return nil
}

// fold applies the event's mutation and refreshes the thread. A nil return
// with no thread refresh means the event was discarded: unsupported shape,
// duplicate (channel, ts), or a reaction on a message never seen.
func (e *PipelineExecutor) fold(ctx context.Context, job Job) error {
	resolved := job.Envelope.Event.Classify()
	if resolved == nil {
		slog.Debug("Discarding unsupported event",
			"event_id", job.EventID,
			"type", job.Envelope.Event.Type,
			"subtype", job.Envelope.Event.Subtype)
		return nil
	}

	var threadTS, channel string
	switch ev := resolved.(type) {
	case models.NewMessageEvent:
		msg := &models.Message{
			Channel:   ev.Channel,
			TS:        ev.TS,
			ThreadTS:  ev.ThreadTS,
			User:      ev.User,
			Text:      ev.Text,
			Reactions: datatypes.NewJSONSlice(ev.Reactions),
			CreatedAt: e.now(),
		}
		inserted, err := e.store.InsertMessage(ctx, msg)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		threadTS, channel = ev.ThreadTS, ev.Channel

	case models.MessageChangedEvent:
		if err := e.store.UpdateMessageText(ctx, ev.Channel, ev.TS, ev.Text, e.now()); err != nil {
			return err
		}
		threadTS, channel = ev.ThreadTS, ev.Channel

	case models.MessageDeletedEvent:
		if err := e.store.MarkMessageDeleted(ctx, ev.Channel, ev.TS, e.now()); err != nil {
			return err
		}
		threadTS, channel = ev.ThreadTS, ev.Channel

	case models.ReactionEvent:
		if err := e.store.AdjustMessageReaction(ctx, ev.Channel, ev.TS, ev.Name, ev.Delta); err != nil {
			return err
		}
		msg, err := e.store.GetMessage(ctx, ev.Channel, ev.TS)
		if err != nil {
			return err
		}
		if msg == nil {
			return nil
		}
		threadTS, channel = msg.ThreadTS, ev.Channel

	default:
		return fmt.Errorf("unhandled event variant %T", resolved)
	}

	if channel == "" {
		return nil
	}
	return e.refreshThread(ctx, threadTS, channel)
}

// refreshThread recomputes the aggregates from the full message set (not
// incrementally, so out-of-order edits and deletions converge), then
// re-enriches and re-embeds. Enrichment and embedding store failures are
// logged and the job is still acknowledged.
func (e *PipelineExecutor) refreshThread(ctx context.Context, threadTS, channel string) error {
	messages, err := e.store.ListThreadMessages(ctx, threadTS)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	createdAt, err := strconv.ParseFloat(threadTS, 64)
	if err != nil {
		createdAt = e.now()
	}
	lastActivity := 0.0
	replyCount := 0
	reactionCount := 0
	participantSet := make(map[string]struct{})
	for i := range messages {
		if ts, err := strconv.ParseFloat(messages[i].TS, 64); err == nil && ts > lastActivity {
			lastActivity = ts
		}
		if messages[i].TS != threadTS {
			replyCount++
		}
		reactionCount += messages[i].ReactionTotal()
		if messages[i].User != "" {
			participantSet[messages[i].User] = struct{}{}
		}
	}
	participants := make([]string, 0, len(participantSet))
	for user := range participantSet {
		participants = append(participants, user)
	}
	sort.Strings(participants)

	thread := &models.Thread{
		ThreadTS:      threadTS,
		Channel:       channel,
		RootTS:        threadTS,
		CreatedAt:     createdAt,
		LastActivity:  lastActivity,
		ReplyCount:    replyCount,
		ReactionCount: reactionCount,
		Participants:  datatypes.NewJSONSlice(participants),
	}
	if err := e.store.UpsertThread(ctx, thread); err != nil {
		return err
	}

	result := enrich.Enrich(messages)
	item := &models.DigestItem{
		ThreadTS:  threadTS,
		Channel:   channel,
		Title:     result.Title,
		Labels:    datatypes.NewJSONSlice(result.Labels),
		Entities:  datatypes.NewJSONType(result.Entities),
		Urgency:   result.Urgency,
		Summary:   result.Summary,
		UpdatedAt: e.now(),
	}
	if err := e.store.UpsertDigestItem(ctx, item); err != nil {
		slog.Error("Failed to store digest item", "thread_ts", threadTS, "error", err)
		return nil
	}

	vec := vector.Embed(enrich.ThreadText(messages))
	if err := e.store.UpsertEmbedding(ctx, threadTS, vec, e.now()); err != nil {
		slog.Error("Failed to store embedding", "thread_ts", threadTS, "error", err)
	}
	return nil
}
