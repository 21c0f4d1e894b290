package services

import (
	"context"

	"github.com/digestkit/digestd/pkg/config"
	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/store"
	"github.com/digestkit/digestd/pkg/vector"
)

// ProfileService manages roles, phases, projects, users, their association
// sets, and query vector composition.
type ProfileService struct {
	store *store.Store
	cfg   *config.Config
	now   func() float64
}

// NewProfileService creates the profile service.
func NewProfileService(st *store.Store, cfg *config.Config) *ProfileService {
	return &ProfileService{store: st, cfg: cfg, now: epochNow}
}

// CreateRole registers (or replaces) a role, embedding its description.
func (s *ProfileService) CreateRole(ctx context.Context, req models.CreateRoleRequest) (*models.Role, error) {
	role := &models.Role{
		RoleID:      req.RoleID,
		Name:        req.Name,
		Description: req.Description,
		Vector:      vector.Embed(req.Description),
	}
	if err := s.store.UpsertRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// CreatePhase registers (or replaces) a lifecycle phase.
func (s *ProfileService) CreatePhase(ctx context.Context, req models.CreatePhaseRequest) (*models.Phase, error) {
	phase := &models.Phase{
		PhaseKey:    req.PhaseKey,
		Description: req.Description,
		Vector:      vector.Embed(req.Description),
	}
	if err := s.store.UpsertPhase(ctx, phase); err != nil {
		return nil, err
	}
	return phase, nil
}

// CreateProject registers a project. The initial phase must already exist.
func (s *ProfileService) CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	phase, err := s.store.GetPhase(ctx, req.CurrentPhase)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, NewValidationError("current_phase", "unknown phase_key")
	}
	project := &models.Project{
		ProjectID:    req.ProjectID,
		Name:         req.Name,
		CurrentPhase: req.CurrentPhase,
	}
	if err := s.store.UpsertProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateProjectPhase moves a project to a registered phase.
func (s *ProfileService) UpdateProjectPhase(ctx context.Context, projectID, phaseKey string) (*models.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	phase, err := s.store.GetPhase(ctx, phaseKey)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, NewValidationError("phase_key", "unknown phase_key")
	}
	if err := s.store.UpdateProjectPhase(ctx, projectID, phaseKey); err != nil {
		return nil, err
	}
	project.CurrentPhase = phaseKey
	return project, nil
}

// CreateUser registers a user. A role id, when given, must exist and seeds
// the personalization vector.
func (s *ProfileService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	var vec []float64
	if req.RoleID != "" {
		role, err := s.store.GetRole(ctx, req.RoleID)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, NewValidationError("role_id", "unknown role_id")
		}
		vec = role.Vector
	}
	user := &models.User{
		UserID:    req.UserID,
		Name:      req.Name,
		RoleID:    req.RoleID,
		Vector:    vec,
		UpdatedAt: s.now(),
	}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserRole reassigns a user's role and resets their vector to the
// role vector, discarding accumulated feedback.
func (s *ProfileService) UpdateUserRole(ctx context.Context, userID, roleID string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, NewValidationError("role_id", "unknown role_id")
	}
	updatedAt := s.now()
	if err := s.store.UpdateUserRole(ctx, userID, roleID, role.Vector, updatedAt); err != nil {
		return nil, err
	}
	user.RoleID = roleID
	user.Vector = role.Vector
	user.UpdatedAt = updatedAt
	return user, nil
}

// AddUserProject associates a user with a project. Both must exist.
func (s *ProfileService) AddUserProject(ctx context.Context, userID, projectID string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return ErrProjectNotFound
	}
	return s.store.AddUserProject(ctx, userID, projectID)
}

// AddUserChannel grants a user membership in a channel.
func (s *ProfileService) AddUserChannel(ctx context.Context, userID, channelID string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.store.AddUserChannel(ctx, userID, channelID)
}

// AddProjectChannel scopes a project to a channel.
func (s *ProfileService) AddProjectChannel(ctx context.Context, projectID, channelID string) error {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return ErrProjectNotFound
	}
	return s.store.AddProjectChannel(ctx, projectID, channelID)
}

// GetUserProfile summarizes a user's personalization state.
func (s *ProfileService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfileView, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	projects, err := s.store.ListUserProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserProfileView{
		UserID:        user.UserID,
		RoleID:        user.RoleID,
		UserVectorDim: len(user.Vector),
		Projects:      projects,
	}, nil
}

// GetProjectProfile summarizes a project's phase state.
func (s *ProfileService) GetProjectProfile(ctx context.Context, projectID string) (*models.ProjectProfileView, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	view := &models.ProjectProfileView{
		ProjectID:    project.ProjectID,
		CurrentPhase: project.CurrentPhase,
		PhaseVector:  []float64{},
	}
	if project.CurrentPhase != "" {
		phase, err := s.store.GetPhase(ctx, project.CurrentPhase)
		if err != nil {
			return nil, err
		}
		if phase != nil {
			view.PhaseVectorDim = len(phase.Vector)
			view.PhaseVector = phase.Vector
		}
	}
	return view, nil
}

// ComposeQueryVector blends the user's role, personalization, and project
// phase vectors into the retrieval query. A project without a registered
// phase simply contributes nothing.
func (s *ProfileService) ComposeQueryVector(ctx context.Context, userID, projectID string) (*models.QueryVector, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	role, err := s.store.GetRole(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}

	var phaseVec []float64
	phaseKey := ""
	if projectID != "" {
		project, err := s.store.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, ErrProjectNotFound
		}
		if project.CurrentPhase != "" {
			phase, err := s.store.GetPhase(ctx, project.CurrentPhase)
			if err != nil {
				return nil, err
			}
			if phase != nil {
				phaseVec = phase.Vector
				phaseKey = project.CurrentPhase
			}
		}
	}

	userVec := []float64(user.Vector)
	if len(userVec) == 0 {
		userVec = role.Vector
	}
	comp := vector.ComposeQuery(role.Vector, userVec, phaseVec,
		s.cfg.QueryWeightRole, s.cfg.QueryWeightUser, s.cfg.QueryWeightPhase)
	return &models.QueryVector{
		Vector:   comp.Vector,
		Weights:  models.QueryWeights{Role: comp.WeightRole, User: comp.WeightUser, Phase: comp.WeightPhase},
		Norms:    models.QueryWeights{Role: comp.NormRole, User: comp.NormUser, Phase: comp.NormPhase},
		RoleID:   user.RoleID,
		PhaseKey: phaseKey,
	}, nil
}
