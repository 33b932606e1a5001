package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-course-api/internal/dto"
	"github.com/noah-isme/gema-course-api/internal/models"
	"github.com/noah-isme/gema-course-api/internal/repository"
)

func TestLessonsUnlockedPersistsAndPublishes(t *testing.T) {
	f := newProgressFixture(t)
	first := f.addLesson(t, 1)
	second := f.addLesson(t, 2)

	client := redis.NewClient(&redis.Options{Addr: f.mini.Addr()})
	sub := client.Subscribe(context.Background(), "gema:courses:lessons:unlocked")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	svc := NewNotificationService(repository.NewNotificationRepository(f.db), client, "gema:courses", nil, zerolog.Nop())
	require.NoError(t, svc.LessonsUnlocked(context.Background(), 6, f.course.ID, []models.Lesson{first, second}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event notificationEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	require.Equal(t, uint(6), event.Notification.UserID)
	require.Equal(t, models.NotificationTypeLessonUnlocked, event.Notification.Type)
	require.Equal(t, "2 new lessons unlocked: Lesson 1, Lesson 2", event.Notification.Message)

	inbox, err := svc.List(context.Background(), 6, dto.NotificationListRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, inbox.Items, 1)
	require.False(t, inbox.Items[0].Read)
	require.Equal(t, int64(1), inbox.Unread)
}

func TestMarkReadScopesToOwner(t *testing.T) {
	f := newProgressFixture(t)
	lesson := f.addLesson(t, 1)
	svc := NewNotificationService(repository.NewNotificationRepository(f.db), nil, "", nil, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.LessonsUnlocked(ctx, 6, f.course.ID, []models.Lesson{lesson}))
	inbox, err := svc.List(ctx, 6, dto.NotificationListRequest{})
	require.NoError(t, err)
	require.Len(t, inbox.Items, 1)
	require.Equal(t, "New lesson unlocked: Lesson 1", inbox.Items[0].Message)

	_, err = svc.MarkRead(ctx, inbox.Items[0].ID, 7)
	require.ErrorIs(t, err, ErrNotificationNotFound)

	read, err := svc.MarkRead(ctx, inbox.Items[0].ID, 6)
	require.NoError(t, err)
	require.True(t, read.Read)

	inbox, err = svc.List(ctx, 6, dto.NotificationListRequest{UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, inbox.Items)
	require.Zero(t, inbox.Unread)
}

func TestLessonsUnlockedIgnoresEmptyBatch(t *testing.T) {
	f := newProgressFixture(t)
	svc := NewNotificationService(repository.NewNotificationRepository(f.db), nil, "", nil, zerolog.Nop())

	require.NoError(t, svc.LessonsUnlocked(context.Background(), 1, f.course.ID, nil))
	inbox, err := svc.List(context.Background(), 1, dto.NotificationListRequest{})
	require.NoError(t, err)
	require.Empty(t, inbox.Items)
}

func TestMarkAllReadClearsInbox(t *testing.T) {
	f := newProgressFixture(t)
	first := f.addLesson(t, 1)
	second := f.addLesson(t, 2)
	svc := NewNotificationService(repository.NewNotificationRepository(f.db), nil, "", nil, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.LessonsUnlocked(ctx, 6, f.course.ID, []models.Lesson{first}))
	require.NoError(t, svc.LessonsUnlocked(ctx, 6, f.course.ID, []models.Lesson{second}))
	require.NoError(t, svc.LessonsUnlocked(ctx, 7, f.course.ID, []models.Lesson{second}))

	updated, err := svc.MarkAllRead(ctx, 6)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated)

	inbox, err := svc.List(ctx, 6, dto.NotificationListRequest{UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, inbox.Items)

	other, err := svc.List(ctx, 7, dto.NotificationListRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), other.Unread)
}

func TestListAppliesDefaultPaging(t *testing.T) {
	f := newProgressFixture(t)
	svc := NewNotificationService(repository.NewNotificationRepository(f.db), nil, "", nil, zerolog.Nop())
	ctx := context.Background()

	inbox, err := svc.List(ctx, 6, dto.NotificationListRequest{})
	require.NoError(t, err)
	require.Equal(t, 50, inbox.Limit)
	require.Equal(t, 0, inbox.Offset)

	inbox, err = svc.List(ctx, 6, dto.NotificationListRequest{Limit: 500, Offset: -3})
	require.NoError(t, err)
	require.Equal(t, 50, inbox.Limit)
	require.Equal(t, 0, inbox.Offset)

	inbox, err = svc.List(ctx, 6, dto.NotificationListRequest{Limit: 5, Offset: 10})
	require.NoError(t, err)
	require.Equal(t, 5, inbox.Limit)
	require.Equal(t, 10, inbox.Offset)
}
