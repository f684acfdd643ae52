package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusevents-backend/internal/auth"
	"campusevents-backend/internal/database/dbtest"
	"campusevents-backend/internal/model"
	"campusevents-backend/internal/repository"
)

func TestDefault(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)
	require.Len(t, f.Users, 2)
	assert.Equal(t, model.RoleAdmin, f.Users[0].Role)
	require.Len(t, f.Events, 4)
	assert.Equal(t, "AI Workshop", f.Events[2].Title)
	assert.Equal(t, 2, f.Events[2].InDays)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "users: [",
		"no password":   "users:\n  - email: a@x.com\n",
		"unknown role":  "users:\n  - email: a@x.com\n    password: p\n    role: root\n",
		"missing title": "events:\n  - venue: Hall\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte("events:\n  - title: Solo\n    in_days: 1\n"), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Events, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeeder_ApplyIsRerunnable(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	s := NewSeeder(db, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	f, err := Default()
	require.NoError(t, err)

	report, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Report{UsersCreated: 2, EventsCreated: 4}, report)

	report, err = s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Report{UsersSkipped: 2, EventsSkipped: 4}, report)

	users := repository.NewUserRepository(db)
	admin, err := users.GetByEmail(ctx, "admin@campus.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, "admin123"))

	events, err := repository.NewEventRepository(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "AI Workshop", events[0].Title)
	assert.True(t, now.AddDate(0, 0, 2).Equal(events[0].Date))
	assert.Equal(t, admin.ID, events[0].CreatedBy)
	assert.Empty(t, events[0].Roster)
}

func TestSeeder_Reset(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	s := NewSeeder(db, nil)

	f, err := Default()
	require.NoError(t, err)
	_, err = s.Apply(ctx, f)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	events, err := repository.NewEventRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
	users, err := repository.NewUserRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSeeder_UnknownCreator(t *testing.T) {
	s := NewSeeder(dbtest.Open(t), nil)
	f := &Fixture{Events: []Event{{Title: "x", CreatedBy: "ghost@x.com"}}}

	_, err := s.Apply(context.Background(), f)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
