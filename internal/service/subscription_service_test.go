package service

import (
	"context"
	"errors"
	"testing"

	"go-engage/internal/api/dto"
	"go-engage/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewSubscriptionService(store, nil)
	c := domain.NewCollection("c", "C", domain.CategoryActivity, uuid.New())
	store.addCollection(*c)
	user := uuid.New()

	sub, err := svc.Subscribe(ctx, user, dto.UpsertSubscriptionRequest{
		WorkflowCollectionID: c.ID,
		Schedules: []dto.ScheduleDTO{
			{DayOfWeek: 1, TimeOfDay: "08:30"},
			{DayOfWeek: 5, TimeOfDay: "18:00:15"},
		},
	})
	require.NoError(t, err)
	assert.True(t, sub.Active)
	require.Len(t, sub.Schedules, 2)
	assert.Equal(t, datatypes.NewTime(8, 30, 0, 0), sub.Schedules[0].TimeOfDay)
	assert.Equal(t, datatypes.NewTime(18, 0, 15, 0), sub.Schedules[1].TimeOfDay)

	inactive := false
	again, err := svc.Subscribe(ctx, user, dto.UpsertSubscriptionRequest{
		WorkflowCollectionID: c.ID,
		Active:               &inactive,
		Schedules:            []dto.ScheduleDTO{{DayOfWeek: 7, TimeOfDay: "09:00"}},
	})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.False(t, again.Active)

	subs, err := svc.ListSubscriptions(ctx, user)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Len(t, subs[0].Schedules, 1)

	assert.ErrorIs(t, svc.Unsubscribe(ctx, uuid.New(), sub.ID), domain.ErrForbidden)
	require.NoError(t, svc.Unsubscribe(ctx, user, sub.ID))
}

func TestSubscribe_RejectsSchedules(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewSubscriptionService(store, nil)
	c := domain.NewCollection("c", "C", domain.CategoryActivity, uuid.New())
	store.addCollection(*c)

	tests := []struct {
		name      string
		schedules []dto.ScheduleDTO
		field     string
	}{
		{"day zero", []dto.ScheduleDTO{{DayOfWeek: 0, TimeOfDay: "08:00"}}, "schedules[0].day_of_week"},
		{"day eight", []dto.ScheduleDTO{{DayOfWeek: 8, TimeOfDay: "08:00"}}, "schedules[0].day_of_week"},
		{"bad time", []dto.ScheduleDTO{{DayOfWeek: 1, TimeOfDay: "25:00"}}, "schedules[0].time_of_day"},
		{"duplicate slot", []dto.ScheduleDTO{{DayOfWeek: 1, TimeOfDay: "08:00"}, {DayOfWeek: 1, TimeOfDay: "08:00:00"}}, "schedules[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Subscribe(ctx, uuid.New(), dto.UpsertSubscriptionRequest{WorkflowCollectionID: c.ID, Schedules: tt.schedules})
			var st *domain.StructuralValidationError
			require.True(t, errors.As(err, &st), "got %v", err)
			assert.Equal(t, tt.field, st.Field)
		})
	}
}
