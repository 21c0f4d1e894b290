// Package store is the persistence adapter: typed reads and writes for
// every entity, on top of GORM. Callers supply timestamps; lookups return
// nil (not an error) when a row is absent.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/digestkit/digestd/pkg/models"
)

// Store wraps the ORM handle.
type Store struct {
	db *gorm.DB
}

// New creates a Store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InsertDedupe marks an event id as seen. It returns true only for the
// first sighting.
func (s *Store) InsertDedupe(ctx context.Context, eventID string, receivedAt float64) (bool, error) {
	rec := models.DedupeRecord{EventID: eventID, ReceivedAt: receivedAt}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if tx.Error != nil {
		return false, fmt.Errorf("inserting dedupe record: %w", tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// SaveRawEvent stores (or replaces) the raw payload for an event.
func (s *Store) SaveRawEvent(ctx context.Context, eventID string, receivedAt float64, payload []byte) error {
	rec := models.RawEvent{
		EventID:    eventID,
		ReceivedAt: receivedAt,
		Payload:    datatypes.JSON(payload),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("saving raw event: %w", err)
	}
	return nil
}

// ListRawEvents returns up to limit raw events, newest first.
func (s *Store) ListRawEvents(ctx context.Context, limit int) ([]models.RawEvent, error) {
	var events []models.RawEvent
	err := s.db.WithContext(ctx).
		Order("received_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("listing raw events: %w", err)
	}
	return events, nil
}

// InsertMessage stores a message if (channel, ts) is new. It returns true
// only when the row was inserted.
func (s *Store) InsertMessage(ctx context.Context, msg *models.Message) (bool, error) {
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(msg)
	if tx.Error != nil {
		return false, fmt.Errorf("inserting message: %w", tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// GetMessage returns the message at (channel, ts), or nil.
func (s *Store) GetMessage(ctx context.Context, channel, ts string) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("channel = ? AND ts = ?", channel, ts).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching message: %w", err)
	}
	return &msg, nil
}

// UpdateMessageText replaces the text of a message, stamps the edit time,
// and clears any tombstone.
func (s *Store) UpdateMessageText(ctx context.Context, channel, ts, text string, editedAt float64) error {
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("channel = ? AND ts = ?", channel, ts).
		Updates(map[string]any{
			"text":       text,
			"edited_at":  editedAt,
			"is_deleted": false,
		}).Error
	if err != nil {
		return fmt.Errorf("updating message text: %w", err)
	}
	return nil
}

// MarkMessageDeleted tombstones a message. The row and its reactions stay.
func (s *Store) MarkMessageDeleted(ctx context.Context, channel, ts string, deletedAt float64) error {
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("channel = ? AND ts = ?", channel, ts).
		Updates(map[string]any{
			"is_deleted": true,
			"edited_at":  deletedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("marking message deleted: %w", err)
	}
	return nil
}

// AdjustMessageReaction applies a ±1 reaction delta, clamping at zero and
// dropping zero-count entries. A missing message is a no-op.
func (s *Store) AdjustMessageReaction(ctx context.Context, channel, ts, name string, delta int) error {
	msg, err := s.GetMessage(ctx, channel, ts)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	reactions := []models.Reaction(msg.Reactions)
	found := false
	for i := range reactions {
		if reactions[i].Name == name {
			reactions[i].Count += delta
			found = true
			break
		}
	}
	if !found && delta > 0 {
		reactions = append(reactions, models.Reaction{Name: name, Count: delta})
	}
	pruned := reactions[:0]
	for _, r := range reactions {
		if r.Count > 0 {
			pruned = append(pruned, r)
		}
	}

	err = s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("channel = ? AND ts = ?", channel, ts).
		Update("reactions", datatypes.JSONSlice[models.Reaction](pruned)).Error
	if err != nil {
		return fmt.Errorf("updating message reactions: %w", err)
	}
	return nil
}

// ListThreadMessages returns all messages of a thread in numeric ts order,
// tombstones included.
func (s *Store) ListThreadMessages(ctx context.Context, threadTS string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("thread_ts = ?", threadTS).
		Order("CAST(ts AS REAL) ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("listing thread messages: %w", err)
	}
	return messages, nil
}

// UpsertThread writes a thread aggregate. On conflict only the recomputed
// fields move; channel, root_ts, and created_at keep their first values.
func (s *Store) UpsertThread(ctx context.Context, thread *models.Thread) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "thread_ts"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_activity", "reply_count", "reaction_count", "participants",
			}),
		}).
		Create(thread).Error
	if err != nil {
		return fmt.Errorf("upserting thread: %w", err)
	}
	return nil
}

// GetThread returns a thread aggregate, or nil.
func (s *Store) GetThread(ctx context.Context, threadTS string) (*models.Thread, error) {
	var thread models.Thread
	err := s.db.WithContext(ctx).Where("thread_ts = ?", threadTS).First(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching thread: %w", err)
	}
	return &thread, nil
}

// ListThreads returns up to limit threads, most recently active first.
func (s *Store) ListThreads(ctx context.Context, limit int) ([]models.Thread, error) {
	var threads []models.Thread
	err := s.db.WithContext(ctx).
		Order("last_activity DESC").
		Limit(limit).
		Find(&threads).Error
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	return threads, nil
}

// UpsertDigestItem writes the full enriched item for a thread.
func (s *Store) UpsertDigestItem(ctx context.Context, item *models.DigestItem) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "thread_ts"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"channel", "title", "labels", "entities", "urgency", "summary", "updated_at",
			}),
		}).
		Create(item).Error
	if err != nil {
		return fmt.Errorf("upserting digest item: %w", err)
	}
	return nil
}

// ListDigestItems returns up to limit items, most recently updated first.
func (s *Store) ListDigestItems(ctx context.Context, limit int) ([]models.DigestItem, error) {
	var items []models.DigestItem
	err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing digest items: %w", err)
	}
	return items, nil
}

// ListCandidateItems returns the digest items inside the retrieval window,
// optionally restricted to a channel set, plus the embedding vectors for
// those of them that have one.
func (s *Store) ListCandidateItems(ctx context.Context, sinceTS float64, channels []string) ([]models.DigestItem, map[string][]float64, error) {
	query := s.db.WithContext(ctx).Where("updated_at >= ?", sinceTS)
	if len(channels) > 0 {
		query = query.Where("channel IN ?", channels)
	}
	var items []models.DigestItem
	if err := query.Find(&items).Error; err != nil {
		return nil, nil, fmt.Errorf("listing candidate items: %w", err)
	}
	if len(items) == 0 {
		return items, map[string][]float64{}, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ThreadTS
	}
	var embeddings []models.Embedding
	if err := s.db.WithContext(ctx).Where("thread_ts IN ?", ids).Find(&embeddings).Error; err != nil {
		return nil, nil, fmt.Errorf("listing candidate embeddings: %w", err)
	}
	vectors := make(map[string][]float64, len(embeddings))
	for _, e := range embeddings {
		vectors[e.ThreadTS] = []float64(e.Vector)
	}
	return items, vectors, nil
}

// UpsertEmbedding writes the thread vector.
func (s *Store) UpsertEmbedding(ctx context.Context, threadTS string, vec []float64, updatedAt float64) error {
	rec := models.Embedding{
		ThreadTS:  threadTS,
		Dim:       len(vec),
		Vector:    vec,
		UpdatedAt: updatedAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "thread_ts"}},
			DoUpdates: clause.AssignmentColumns([]string{"dim", "vector", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upserting embedding: %w", err)
	}
	return nil
}

// GetEmbedding returns the thread vector, or nil.
func (s *Store) GetEmbedding(ctx context.Context, threadTS string) (*models.Embedding, error) {
	var rec models.Embedding
	err := s.db.WithContext(ctx).Where("thread_ts = ?", threadTS).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching embedding: %w", err)
	}
	return &rec, nil
}

// IncrementQueueMetric bumps the processed counter for a queue.
func (s *Store) IncrementQueueMetric(ctx context.Context, queueName string, processedAt float64) error {
	rec := models.QueueMetric{
		QueueName:       queueName,
		ProcessedCount:  1,
		LastProcessedAt: processedAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "queue_name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"processed_count":   gorm.Expr("processed_count + 1"),
				"last_processed_at": processedAt,
			}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("incrementing queue metric: %w", err)
	}
	return nil
}

// ListQueueMetrics returns all per-queue counters.
func (s *Store) ListQueueMetrics(ctx context.Context) ([]models.QueueMetric, error) {
	var metrics []models.QueueMetric
	if err := s.db.WithContext(ctx).Find(&metrics).Error; err != nil {
		return nil, fmt.Errorf("listing queue metrics: %w", err)
	}
	return metrics, nil
}
