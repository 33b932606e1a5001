package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/observability"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

// ErrNotificationNotFound indicates the notification cannot be located for the user.
var ErrNotificationNotFound = errors.New("notification not found")

var errUserRequired = errors.New("user id is required")

const (
	defaultNotificationPage = 50
	maxNotificationPage     = 100
)

// NotificationService stores user notifications and fans them out to the
// event bus. It also turns newly unlocked lessons into notifications.
type NotificationService interface {
	UnlockNotifier
	List(ctx context.Context, userID uint, req dto.NotificationListRequest) (dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, id uint, userID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

type notificationService struct {
	repo         repository.NotificationRepository
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	tracer       trace.Tracer
	sanitizer    *bluemonday.Policy
	nodeID       string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

// NewNotificationService constructs a notification service. The redis and nats
// clients are optional; without a channel base no events are published.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) NotificationService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":lessons:unlocked"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".lessons.unlocked"
	}

	return &notificationService{
		repo:         repo,
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "notification_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/gema-course-api/internal/service/notification"),
		sanitizer:    bluemonday.StrictPolicy(),
		nodeID:       uuid.NewString(),
	}
}

func (s *notificationService) LessonsUnlocked(ctx context.Context, userID, courseID uint, lessons []models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.lessons_unlocked", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
		attribute.Int64("notification.course_id", int64(courseID)),
		attribute.Int("notification.lessons", len(lessons)),
	))
	defer span.End()

	titles := make([]string, 0, len(lessons))
	lessonIDs := make([]interface{}, 0, len(lessons))
	for _, lesson := range lessons {
		titles = append(titles, lesson.Title)
		lessonIDs = append(lessonIDs, lesson.ID)
	}

	message := fmt.Sprintf("New lesson unlocked: %s", strings.Join(titles, ", "))
	if len(lessons) > 1 {
		message = fmt.Sprintf("%d new lessons unlocked: %s", len(lessons), strings.Join(titles, ", "))
	}

	model := models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeLessonUnlocked,
		Message: strings.TrimSpace(s.sanitizer.Sanitize(message)),
		Metadata: datatypes.JSONMap{
			"course_id":  courseID,
			"lesson_ids": lessonIDs,
		},
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return err
	}

	response := dto.NewNotificationResponse(model)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}

	observability.NotificationsPublishedTotal().WithLabelValues(response.Type).Inc()
	return nil
}

func (s *notificationService) List(ctx context.Context, userID uint, req dto.NotificationListRequest) (dto.NotificationListResponse, error) {
	if userID == 0 {
		return dto.NotificationListResponse{}, errUserRequired
	}

	if req.Limit <= 0 || req.Limit > maxNotificationPage {
		req.Limit = defaultNotificationPage
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	notifications, err := s.repo.List(ctx, repository.NotificationFilter{
		UserID:     userID,
		Limit:      req.Limit,
		Offset:     req.Offset,
		UnreadOnly: req.UnreadOnly,
	})
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	return dto.NotificationListResponse{
		Items:  dto.NewNotificationResponseSlice(notifications),
		Unread: unread,
		Limit:  req.Limit,
		Offset: req.Offset,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	if userID == 0 {
		return 0, errUserRequired
	}
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}
