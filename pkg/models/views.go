package models

import "encoding/json"

// IngestResult reports the intake outcome for one event.
type IngestResult struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// RawEventView is the replay view of a stored raw event.
type RawEventView struct {
	EventID    string          `json:"event_id"`
	ReceivedAt float64         `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// ThreadView is the read model for a thread aggregate.
type ThreadView struct {
	ThreadTS      string   `json:"thread_ts"`
	Channel       string   `json:"channel"`
	RootTS        string   `json:"root_ts"`
	CreatedAt     float64  `json:"created_at"`
	LastActivity  float64  `json:"last_activity"`
	ReplyCount    int      `json:"reply_count"`
	ReactionCount int      `json:"reaction_count"`
	Participants  []string `json:"participants"`
}

// DigestItemView is the read model for an enriched item.
type DigestItemView struct {
	ThreadTS  string    `json:"thread_ts"`
	Channel   string    `json:"channel"`
	Title     string    `json:"title"`
	Labels    []string  `json:"labels"`
	Entities  EntitySet `json:"entities"`
	Urgency   float64   `json:"urgency"`
	Summary   string    `json:"summary"`
	UpdatedAt float64   `json:"updated_at"`
}

// EmbeddingView exposes a thread vector. A missing embedding renders with
// dim 0 and an empty vector.
type EmbeddingView struct {
	ThreadTS  string    `json:"thread_ts"`
	Dim       int       `json:"dim"`
	Vector    []float64 `json:"vector"`
	UpdatedAt float64   `json:"updated_at"`
}

// QueueStatus pairs a queue's live size with its processed counters.
type QueueStatus struct {
	Name            string   `json:"name"`
	Size            int      `json:"size"`
	ProcessedCount  int64    `json:"processed_count"`
	LastProcessedAt *float64 `json:"last_processed_at"`
}

// ScoreBreakdown itemizes the ranking signals behind one digest entry.
type ScoreBreakdown struct {
	FinalScore       float64 `json:"final_score"`
	Sim              float64 `json:"sim"`
	Urgency          float64 `json:"urgency"`
	Ownership        float64 `json:"ownership"`
	Recency          float64 `json:"recency"`
	DiversityPenalty float64 `json:"diversity_penalty"`
}

// DigestEntry is one ranked thread inside a digest.
type DigestEntry struct {
	ThreadTS       string         `json:"thread_ts"`
	Title          string         `json:"title"`
	Summary        string         `json:"summary"`
	Labels         []string       `json:"labels"`
	Entities       EntitySet      `json:"entities"`
	Urgency        float64        `json:"urgency"`
	WhyShown       string         `json:"why_shown"`
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
}

// DigestView is the digest build response.
type DigestView struct {
	DigestID string        `json:"digest_id"`
	Items    []DigestEntry `json:"items"`
}

// FeedbackResult reports one applied feedback interaction.
type FeedbackResult struct {
	InteractionID string  `json:"interaction_id"`
	UserID        string  `json:"user_id"`
	ProjectID     string  `json:"project_id"`
	ThreadTS      string  `json:"thread_ts"`
	Action        string  `json:"action"`
	Direction     string  `json:"direction"`
	NewNorm       float64 `json:"new_norm"`
}

// QueryWeights carries the role/user/phase weight triple, reused for the
// per-component contribution norms.
type QueryWeights struct {
	Role  float64 `json:"role"`
	User  float64 `json:"user"`
	Phase float64 `json:"phase"`
}

// QueryVector is the composed personalization vector plus its provenance.
type QueryVector struct {
	Vector   []float64    `json:"q_vector"`
	Weights  QueryWeights `json:"weights"`
	Norms    QueryWeights `json:"norms"`
	RoleID   string       `json:"role_id,omitempty"`
	PhaseKey string       `json:"phase_key,omitempty"`
}

// UserProfileView summarizes a user's personalization state.
type UserProfileView struct {
	UserID        string   `json:"user_id"`
	RoleID        string   `json:"role_id"`
	UserVectorDim int      `json:"user_vector_dim"`
	Projects      []string `json:"projects"`
}

// ProjectProfileView summarizes a project's phase state.
type ProjectProfileView struct {
	ProjectID      string    `json:"project_id"`
	CurrentPhase   string    `json:"current_phase"`
	PhaseVectorDim int       `json:"phase_vector_dim"`
	PhaseVector    []float64 `json:"phase_vector"`
}

// CandidateView is the debug read model for one retrieval candidate.
type CandidateView struct {
	ThreadTS         string   `json:"thread_ts"`
	Title            string   `json:"title"`
	Labels           []string `json:"labels"`
	Urgency          float64  `json:"urgency"`
	UpdatedAt        float64  `json:"updated_at"`
	Sim              float64  `json:"sim_score"`
	Recency          float64  `json:"recency"`
	Ownership        float64  `json:"ownership"`
	Base             float64  `json:"base_score"`
	DiversityPenalty float64  `json:"diversity_penalty"`
	Final            float64  `json:"final_score"`
	ForceIncluded    bool     `json:"force_included"`
}

// DeliveryResult reports one delivery attempt.
type DeliveryResult struct {
	Status     string `json:"status"`
	DeliveryID string `json:"delivery_id"`
	SlackTS    string `json:"slack_ts,omitempty"`
}

// RunNowResult reports an immediate schedule run.
type RunNowResult struct {
	Status     string `json:"status"`
	DigestID   string `json:"digest_id"`
	DeliveryID string `json:"delivery_id,omitempty"`
	SlackTS    string `json:"slack_ts,omitempty"`
}

// SimStatus is the simulator state snapshot.
type SimStatus struct {
	Running      bool           `json:"running"`
	ScenarioID   string         `json:"scenario_id,omitempty"`
	EmittedCount int            `json:"emitted_count"`
	LastEventID  string         `json:"last_event_id,omitempty"`
	QueueSizes   map[string]int `json:"queue_sizes"`
}
