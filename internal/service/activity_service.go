package service

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

// ActivityActor identifies who performed a course change.
type ActivityActor struct {
	ID   uint
	Role string
}

type activityActorKey struct{}

// ContextWithActor attaches the acting user to ctx.
func ContextWithActor(ctx context.Context, actor ActivityActor) context.Context {
	return context.WithValue(ctx, activityActorKey{}, actor)
}

// ActorFromContext returns the acting user, or the system actor when none is set.
func ActorFromContext(ctx context.Context) ActivityActor {
	if actor, ok := ctx.Value(activityActorKey{}).(ActivityActor); ok {
		return actor
	}
	return ActivityActor{Role: "system"}
}

// ActivityEntry captures one course change to audit.
type ActivityEntry struct {
	CourseID   uint
	Action     string
	EntityType string
	EntityID   uint
	Metadata   map[string]interface{}
}

// ActivityRecorder persists audit entries.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

// ActivityService records and lists the audit trail of a course.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, courseID uint, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) error {
	actor := ActorFromContext(ctx)
	model := models.ActivityLog{
		CourseID:   entry.CourseID,
		ActorID:    actor.ID,
		ActorRole:  normalizeRole(actor.Role),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		Metadata:   datatypes.JSONMap(entry.Metadata),
	}
	if entry.EntityID > 0 {
		id := entry.EntityID
		model.EntityID = &id
	}
	if model.Metadata == nil {
		model.Metadata = datatypes.JSONMap{}
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		return err
	}

	s.logger.Debug().
		Uint("course_id", entry.CourseID).
		Uint("actor_id", actor.ID).
		Str("action", entry.Action).
		Msg("course activity recorded")
	return nil
}

func (s *activityService) List(ctx context.Context, courseID uint, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	entries, total, err := s.repo.List(ctx, repository.ActivityLogFilter{
		CourseID: courseID,
		Page:     req.Page,
		PageSize: req.PageSize,
		Action:   strings.TrimSpace(req.Action),
	})
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	items := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityResponse(entry))
	}

	return dto.ActivityListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       req.Page,
			PageSize:   req.PageSize,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(req.PageSize))),
		},
	}, nil
}

func normalizeRole(role string) string {
	if r := strings.ToLower(strings.TrimSpace(role)); r != "" {
		return r
	}
	return "system"
}
