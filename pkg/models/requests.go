package models

// CreateRoleRequest registers a role and embeds its description.
type CreateRoleRequest struct {
	RoleID      string `json:"role_id" binding:"required"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreatePhaseRequest registers a lifecycle phase.
type CreatePhaseRequest struct {
	PhaseKey    string `json:"phase_key" binding:"required"`
	Description string `json:"description"`
}

// CreateProjectRequest registers a project in a phase.
type CreateProjectRequest struct {
	ProjectID    string `json:"project_id" binding:"required"`
	Name         string `json:"name"`
	CurrentPhase string `json:"current_phase" binding:"required"`
}

// UpdateProjectPhaseRequest moves a project to a new phase.
type UpdateProjectPhaseRequest struct {
	PhaseKey string `json:"phase_key" binding:"required"`
}

// CreateUserRequest registers a user, optionally seeded from a role.
type CreateUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Name   string `json:"name"`
	RoleID string `json:"role_id"`
}

// UpdateUserRoleRequest reassigns a user's role and resets their vector.
type UpdateUserRoleRequest struct {
	RoleID string `json:"role_id" binding:"required"`
}

// ChannelRequest attaches a channel to a user or project.
type ChannelRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
}

// FeedbackRequest applies one feedback action to a user vector.
type FeedbackRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ProjectID string `json:"project_id"`
	ThreadTS  string `json:"thread_ts" binding:"required"`
	Action    string `json:"action" binding:"required"`
}

// CreateScheduleRequest registers a daily digest delivery.
type CreateScheduleRequest struct {
	TeamID    string `json:"team_id" binding:"required"`
	ProjectID string `json:"project_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	TimeOfDay string `json:"time_of_day" binding:"required"`
	Timezone  string `json:"timezone"`
	IsEnabled *bool  `json:"is_enabled"`
}

// SimStartRequest starts a simulator scenario.
type SimStartRequest struct {
	ScenarioID      string  `json:"scenario_id" binding:"required"`
	SpeedMultiplier float64 `json:"speed_multiplier"`
	MaxEvents       int     `json:"max_events"`
	Loop            bool    `json:"loop"`
	RunID           string  `json:"run_id"`
}
