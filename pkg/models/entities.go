// Package models defines the persistence entities, the inbound event
// envelope, and the JSON view types shared across the service layers.
package models

import (
	"gorm.io/datatypes"
)

// DedupeRecord marks an event id as seen. The insert-if-absent on this table
// is the at-most-once guard for the whole pipeline.
type DedupeRecord struct {
	EventID    string  `gorm:"column:event_id;primaryKey" json:"event_id"`
	ReceivedAt float64 `gorm:"column:received_at" json:"received_at"`
}

func (DedupeRecord) TableName() string { return "dedupe_events" }

// RawEvent keeps the full inbound payload for replay and debugging.
type RawEvent struct {
	EventID    string         `gorm:"column:event_id;primaryKey" json:"event_id"`
	ReceivedAt float64        `gorm:"column:received_at;index" json:"received_at"`
	Payload    datatypes.JSON `gorm:"column:payload" json:"payload"`
}

func (RawEvent) TableName() string { return "raw_events" }

// Message is one chat message keyed by (channel, ts). Deletions are
// tombstones: the row stays and keeps its reactions.
type Message struct {
	Channel   string                         `gorm:"column:channel;primaryKey" json:"channel"`
	TS        string                         `gorm:"column:ts;primaryKey" json:"ts"`
	ThreadTS  string                         `gorm:"column:thread_ts;index" json:"thread_ts"`
	User      string                         `gorm:"column:user" json:"user"`
	Text      string                         `gorm:"column:text" json:"text"`
	Reactions datatypes.JSONSlice[Reaction]  `gorm:"column:reactions" json:"reactions"`
	CreatedAt float64                        `gorm:"column:created_at" json:"created_at"`
	EditedAt  *float64                       `gorm:"column:edited_at" json:"edited_at,omitempty"`
	IsDeleted bool                           `gorm:"column:is_deleted" json:"is_deleted"`
}

func (Message) TableName() string { return "messages" }

// ReactionTotal sums the message's reaction counts.
func (m *Message) ReactionTotal() int {
	total := 0
	for _, r := range m.Reactions {
		total += r.Count
	}
	return total
}

// Thread is the aggregate record for one conversation, recomputed from its
// full message set on every update.
type Thread struct {
	ThreadTS      string                      `gorm:"column:thread_ts;primaryKey" json:"thread_ts"`
	Channel       string                      `gorm:"column:channel" json:"channel"`
	RootTS        string                      `gorm:"column:root_ts" json:"root_ts"`
	CreatedAt     float64                     `gorm:"column:created_at" json:"created_at"`
	LastActivity  float64                     `gorm:"column:last_activity;index" json:"last_activity"`
	ReplyCount    int                         `gorm:"column:reply_count" json:"reply_count"`
	ReactionCount int                         `gorm:"column:reaction_count" json:"reaction_count"`
	Participants  datatypes.JSONSlice[string] `gorm:"column:participants" json:"participants"`
}

func (Thread) TableName() string { return "threads" }

// EntitySet holds the closed-vocabulary entities extracted from a thread.
type EntitySet struct {
	Materials []string `json:"materials"`
	Phases    []string `json:"phases"`
	Deadlines []string `json:"deadlines"`
	Vendors   []string `json:"vendors"`
	LeadTimes []string `json:"lead_times"`
}

// DigestItem is the enriched, rankable representation of a thread.
type DigestItem struct {
	ThreadTS  string                         `gorm:"column:thread_ts;primaryKey" json:"thread_ts"`
	Channel   string                         `gorm:"column:channel" json:"channel"`
	Title     string                         `gorm:"column:title" json:"title"`
	Labels    datatypes.JSONSlice[string]    `gorm:"column:labels" json:"labels"`
	Entities  datatypes.JSONType[EntitySet]  `gorm:"column:entities" json:"entities"`
	Urgency   float64                        `gorm:"column:urgency" json:"urgency"`
	Summary   string                         `gorm:"column:summary" json:"summary"`
	UpdatedAt float64                        `gorm:"column:updated_at;index" json:"updated_at"`
}

func (DigestItem) TableName() string { return "digest_items" }

// Embedding is the unit-norm bag-of-hashes vector for a thread.
type Embedding struct {
	ThreadTS  string                       `gorm:"column:thread_ts;primaryKey" json:"thread_ts"`
	Dim       int                          `gorm:"column:dim" json:"dim"`
	Vector    datatypes.JSONSlice[float64] `gorm:"column:vector" json:"vector"`
	UpdatedAt float64                      `gorm:"column:updated_at" json:"updated_at"`
}

func (Embedding) TableName() string { return "embeddings" }

// Role carries a role description and its normalized embedding.
type Role struct {
	RoleID      string                       `gorm:"column:role_id;primaryKey" json:"role_id"`
	Name        string                       `gorm:"column:name" json:"name"`
	Description string                       `gorm:"column:description" json:"description"`
	Vector      datatypes.JSONSlice[float64] `gorm:"column:vector" json:"vector"`
}

func (Role) TableName() string { return "roles" }

// Phase carries a lifecycle phase description and its normalized embedding.
type Phase struct {
	PhaseKey    string                       `gorm:"column:phase_key;primaryKey" json:"phase_key"`
	Description string                       `gorm:"column:description" json:"description"`
	Vector      datatypes.JSONSlice[float64] `gorm:"column:vector" json:"vector"`
}

func (Phase) TableName() string { return "phases" }

// Project groups channels under a current lifecycle phase.
type Project struct {
	ProjectID    string `gorm:"column:project_id;primaryKey" json:"project_id"`
	Name         string `gorm:"column:name" json:"name"`
	CurrentPhase string `gorm:"column:current_phase" json:"current_phase"`
}

func (Project) TableName() string { return "projects" }

// User carries the personalization vector, seeded from the role vector and
// moved by feedback.
type User struct {
	UserID    string                       `gorm:"column:user_id;primaryKey" json:"user_id"`
	Name      string                       `gorm:"column:name" json:"name"`
	RoleID    string                       `gorm:"column:role_id" json:"role_id"`
	Vector    datatypes.JSONSlice[float64] `gorm:"column:vector" json:"vector"`
	UpdatedAt float64                      `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// UserProject associates a user with a project.
type UserProject struct {
	UserID    string `gorm:"column:user_id;primaryKey" json:"user_id"`
	ProjectID string `gorm:"column:project_id;primaryKey" json:"project_id"`
}

func (UserProject) TableName() string { return "user_projects" }

// UserChannel associates a user with a channel for digest access checks.
type UserChannel struct {
	UserID    string `gorm:"column:user_id;primaryKey" json:"user_id"`
	ChannelID string `gorm:"column:channel_id;primaryKey" json:"channel_id"`
}

func (UserChannel) TableName() string { return "user_channels" }

// ProjectChannel scopes retrieval for a project to a channel set.
type ProjectChannel struct {
	ProjectID string `gorm:"column:project_id;primaryKey" json:"project_id"`
	ChannelID string `gorm:"column:channel_id;primaryKey" json:"channel_id"`
}

func (ProjectChannel) TableName() string { return "project_channels" }

// Digest snapshots the ordered item list served to a user.
type Digest struct {
	DigestID  string         `gorm:"column:digest_id;primaryKey" json:"digest_id"`
	UserID    string         `gorm:"column:user_id" json:"user_id"`
	ProjectID string         `gorm:"column:project_id" json:"project_id"`
	CreatedAt float64        `gorm:"column:created_at" json:"created_at"`
	Items     datatypes.JSON `gorm:"column:items" json:"items"`
}

func (Digest) TableName() string { return "digests" }

// Interaction is one append-only feedback record.
type Interaction struct {
	InteractionID string  `gorm:"column:interaction_id;primaryKey" json:"interaction_id"`
	UserID        string  `gorm:"column:user_id;index" json:"user_id"`
	ProjectID     string  `gorm:"column:project_id" json:"project_id"`
	ThreadTS      string  `gorm:"column:thread_ts" json:"thread_ts"`
	Action        string  `gorm:"column:action" json:"action"`
	CreatedAt     float64 `gorm:"column:created_at" json:"created_at"`
}

func (Interaction) TableName() string { return "interactions" }

// Schedule requests a digest delivery at a local time of day.
type Schedule struct {
	ScheduleID string `gorm:"column:schedule_id;primaryKey" json:"schedule_id"`
	TeamID     string `gorm:"column:team_id" json:"team_id"`
	ProjectID  string `gorm:"column:project_id" json:"project_id"`
	UserID     string `gorm:"column:user_id" json:"user_id"`
	TimeOfDay  string `gorm:"column:time_of_day" json:"time_of_day"`
	Timezone   string `gorm:"column:timezone" json:"timezone"`
	IsEnabled  bool   `gorm:"column:is_enabled" json:"is_enabled"`
}

func (Schedule) TableName() string { return "schedules" }

// Delivery statuses.
const (
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

// Delivery records one attempt to push a digest to a user.
type Delivery struct {
	DeliveryID  string  `gorm:"column:delivery_id;primaryKey" json:"delivery_id"`
	DigestID    string  `gorm:"column:digest_id;uniqueIndex" json:"digest_id"`
	TeamID      string  `gorm:"column:team_id" json:"team_id"`
	UserID      string  `gorm:"column:user_id" json:"user_id"`
	Status      string  `gorm:"column:status" json:"status"`
	SlackTS     string  `gorm:"column:slack_ts" json:"slack_ts,omitempty"`
	Error       string  `gorm:"column:error" json:"error,omitempty"`
	DeliveredAt float64 `gorm:"column:delivered_at" json:"delivered_at"`
}

func (Delivery) TableName() string { return "deliveries" }

// Workspace holds the OAuth installation for one team.
type Workspace struct {
	TeamID      string                      `gorm:"column:team_id;primaryKey" json:"team_id"`
	AccessToken string                      `gorm:"column:access_token" json:"-"`
	BotUserID   string                      `gorm:"column:bot_user_id" json:"bot_user_id"`
	Scopes      datatypes.JSONSlice[string] `gorm:"column:scopes" json:"scopes"`
	InstalledAt float64                     `gorm:"column:installed_at" json:"installed_at"`
}

func (Workspace) TableName() string { return "workspaces" }

// QueueMetric counts processed jobs per queue.
type QueueMetric struct {
	QueueName       string  `gorm:"column:queue_name;primaryKey" json:"queue_name"`
	ProcessedCount  int64   `gorm:"column:processed_count" json:"processed_count"`
	LastProcessedAt float64 `gorm:"column:last_processed_at" json:"last_processed_at"`
}

func (QueueMetric) TableName() string { return "job_metrics" }

// AllEntities lists every persisted model for schema migration.
func AllEntities() []any {
	return []any{
		&DedupeRecord{},
		&RawEvent{},
		&Message{},
		&Thread{},
		&DigestItem{},
		&Embedding{},
		&Role{},
		&Phase{},
		&Project{},
		&User{},
		&UserProject{},
		&UserChannel{},
		&ProjectChannel{},
		&Digest{},
		&Interaction{},
		&Schedule{},
		&Delivery{},
		&Workspace{},
		&QueueMetric{},
	}
}
