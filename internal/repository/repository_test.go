package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"campusevents-backend/internal/database/dbtest"
	"campusevents-backend/internal/model"
)

func strPtr(s string) *string { return &s }

func newEvent(t *testing.T, repo *EventRepository, title string, date time.Time) *model.Event {
	t.Helper()
	ev := &model.Event{ID: uuid.NewString(), Title: title, Date: date, Venue: "Hall"}
	require.NoError(t, repo.Create(context.Background(), ev))
	return ev
}

func newRegistration(eventID, email string, userID *string, at time.Time) *model.Registration {
	return &model.Registration{
		ID:           uuid.NewString(),
		EventID:      eventID,
		UserID:       userID,
		Name:         "Name",
		Email:        email,
		Department:   "CS",
		PhoneNumber:  "123",
		RegisteredAt: at,
	}
}

func TestRegistrationRepository_UniqueIndexes(t *testing.T) {
	ctx := context.Background()
	ledger := NewRegistrationRepository(dbtest.Open(t))
	now := time.Now().UTC()

	require.NoError(t, ledger.Create(ctx, newRegistration("e1", "a@x.com", nil, now)))

	tests := []struct {
		name    string
		reg     *model.Registration
		wantErr error
	}{
		{name: "same guest email same event", reg: newRegistration("e1", "a@x.com", nil, now), wantErr: ErrAlreadyRegistered},
		{name: "user reusing guest email", reg: newRegistration("e1", "a@x.com", strPtr("u1"), now), wantErr: ErrAlreadyRegistered},
		{name: "another guest", reg: newRegistration("e1", "b@x.com", nil, now)},
		{name: "same email other event", reg: newRegistration("e2", "a@x.com", nil, now)},
		{name: "user first registration", reg: newRegistration("e1", "u1@x.com", strPtr("u1"), now)},
		{name: "same user different email", reg: newRegistration("e1", "u1-alt@x.com", strPtr("u1"), now), wantErr: ErrAlreadyRegistered},
		{name: "same user other event", reg: newRegistration("e2", "u1@x.com", strPtr("u1"), now)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ledger.Create(ctx, tt.reg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegistrationRepository_FindConflict(t *testing.T) {
	ctx := context.Background()
	ledger := NewRegistrationRepository(dbtest.Open(t))
	now := time.Now().UTC()

	require.NoError(t, ledger.Create(ctx, newRegistration("e1", "guest@x.com", nil, now)))
	require.NoError(t, ledger.Create(ctx, newRegistration("e1", "user@x.com", strPtr("u1"), now)))

	reg, err := ledger.FindConflict(ctx, "e1", "guest@x.com", nil)
	require.NoError(t, err)
	assert.True(t, reg.IsGuest())

	reg, err = ledger.FindConflict(ctx, "e1", "fresh@x.com", strPtr("u1"))
	require.NoError(t, err)
	assert.Equal(t, "user@x.com", reg.Email)

	_, err = ledger.FindConflict(ctx, "e1", "fresh@x.com", strPtr("u2"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ledger.FindConflict(ctx, "e2", "guest@x.com", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistrationRepository_ExactLookups(t *testing.T) {
	ctx := context.Background()
	ledger := NewRegistrationRepository(dbtest.Open(t))
	now := time.Now().UTC()

	require.NoError(t, ledger.Create(ctx, newRegistration("e1", "guest@x.com", nil, now)))
	require.NoError(t, ledger.Create(ctx, newRegistration("e1", "user@x.com", strPtr("u1"), now)))

	_, err := ledger.FindGuestByEmail(ctx, "e1", "guest@x.com")
	require.NoError(t, err)

	// An account's entry is never found by email alone.
	_, err = ledger.FindGuestByEmail(ctx, "e1", "user@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	// A guest entry is never found by user id.
	_, err = ledger.FindByUser(ctx, "e1", "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistrationRepository_DeleteThenReinsert(t *testing.T) {
	ctx := context.Background()
	ledger := NewRegistrationRepository(dbtest.Open(t))
	now := time.Now().UTC()

	reg := newRegistration("e1", "a@x.com", nil, now)
	require.NoError(t, ledger.Create(ctx, reg))
	require.NoError(t, ledger.Delete(ctx, reg.ID))
	assert.ErrorIs(t, ledger.Delete(ctx, reg.ID), ErrNotFound)

	require.NoError(t, ledger.Create(ctx, newRegistration("e1", "a@x.com", nil, now)))
	n, err := ledger.CountByEmail(ctx, "e1", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRegistrationRepository_Listings(t *testing.T) {
	ctx := context.Background()
	ledger := NewRegistrationRepository(dbtest.Open(t))
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Create(ctx, newRegistration("e1", "u1@x.com", strPtr("u1"), base)))
	require.NoError(t, ledger.Create(ctx, newRegistration("e2", "u1@x.com", strPtr("u1"), base.Add(time.Hour))))
	require.NoError(t, ledger.Create(ctx, newRegistration("e1", "guest@x.com", nil, base.Add(2*time.Hour))))
	require.NoError(t, ledger.Create(ctx, newRegistration("e1", "u2@x.com", strPtr("u2"), base.Add(3*time.Hour))))

	mine, err := ledger.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "e2", mine[0].EventID)
	assert.Equal(t, "e1", mine[1].EventID)

	all, err := ledger.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ids, err := ledger.ListUserIDsByEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)
}

func TestEventRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(dbtest.Open(t))
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	later := newEvent(t, repo, "Career Fair", day.AddDate(0, 0, 10))
	sooner := newEvent(t, repo, "AI Workshop", day)

	got, err := repo.GetByID(ctx, sooner.ID)
	require.NoError(t, err)
	assert.Equal(t, "AI Workshop", got.Title)
	assert.Equal(t, []string{}, got.Roster)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, sooner.ID, list[0].ID)
	assert.Equal(t, later.ID, list[1].ID)

	byID, err := repo.ListByIDs(ctx, []string{later.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, byID, 1)
	assert.Contains(t, byID, later.ID)

	require.NoError(t, repo.Delete(ctx, later.ID))
	assert.ErrorIs(t, repo.Delete(ctx, later.ID), ErrNotFound)
}

func TestEventRepository_Search(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(dbtest.Open(t))
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	hack := newEvent(t, repo, "Tech Hackathon", day)
	fair := newEvent(t, repo, "Career Fair", day.AddDate(0, 0, 10))
	ai := newEvent(t, repo, "AI Workshop", day.AddDate(0, 0, 20))
	pct := newEvent(t, repo, "100% Uptime Talk", day.AddDate(0, 0, 30))

	tests := []struct {
		name   string
		filter model.EventFilter
		want   []string
	}{
		{name: "empty", want: []string{hack.ID, fair.ID, ai.ID, pct.ID}},
		{name: "keyword is case-insensitive", filter: model.EventFilter{Keyword: "HACK"}, want: []string{hack.ID}},
		{name: "venue matches", filter: model.EventFilter{Keyword: "hall"}, want: []string{hack.ID, fair.ID, ai.ID, pct.ID}},
		{name: "from", filter: model.EventFilter{From: day.AddDate(0, 0, 5)}, want: []string{fair.ID, ai.ID}},
		{name: "range", filter: model.EventFilter{From: day.AddDate(0, 0, 5), To: day.AddDate(0, 0, 15)}, want: []string{fair.ID}},
		{name: "keyword and range", filter: model.EventFilter{Keyword: "workshop", To: day.AddDate(0, 0, 15)}},
		{name: "percent is literal", filter: model.EventFilter{Keyword: "%"}, want: []string{pct.ID}},
		{name: "underscore is literal", filter: model.EventFilter{Keyword: "a_"}},
		{name: "backslash is literal", filter: model.EventFilter{Keyword: `\`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Search(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, ev := range got {
				ids = append(ids, ev.ID)
			}
			if tt.want == nil {
				tt.want = []string{}
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestEventRepository_UpdateDetailsKeepsRoster(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(dbtest.Open(t))
	ev := newEvent(t, repo, "Hackathon", time.Now().UTC())

	_, err := repo.MutateRoster(ctx, ev.ID, func(e *model.Event) bool { return e.AddToRoster("u1") })
	require.NoError(t, err)

	// A stale copy with an empty roster must not clobber the projection.
	stale := *ev
	stale.Roster = nil
	stale.Title = "Hackathon 2026"
	require.NoError(t, repo.UpdateDetails(ctx, &stale))

	got, err := repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hackathon 2026", got.Title)
	assert.Equal(t, []string{"u1"}, got.Roster)

	missing := model.Event{ID: "missing", Title: "x"}
	assert.ErrorIs(t, repo.UpdateDetails(ctx, &missing), ErrNotFound)
}

func TestEventRepository_MutateRoster(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(dbtest.Open(t))
	ev := newEvent(t, repo, "Music Festival", time.Now().UTC())

	for i := 0; i < 3; i++ {
		_, err := repo.MutateRoster(ctx, ev.ID, func(e *model.Event) bool { return e.AddToRoster("u1") })
		require.NoError(t, err)
	}

	got, err := repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, got.Roster)

	updated, err := repo.MutateRoster(ctx, ev.ID, func(e *model.Event) bool { return e.RemoveFromRoster("u1") })
	require.NoError(t, err)
	assert.Empty(t, updated.Roster)

	_, err = repo.MutateRoster(ctx, "missing", func(*model.Event) bool { return true })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepository_RebuildRoster(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	repo := NewEventRepository(db)
	ledger := NewRegistrationRepository(db)
	ev := newEvent(t, repo, "Hackathon", time.Now().UTC())
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.MutateRoster(ctx, ev.ID, func(e *model.Event) bool { return e.AddToRoster("ghost") })
	require.NoError(t, err)
	require.NoError(t, ledger.Create(ctx, newRegistration(ev.ID, "u1@x.com", strPtr("u1"), base)))
	require.NoError(t, ledger.Create(ctx, newRegistration(ev.ID, "guest@x.com", nil, base.Add(time.Hour))))
	require.NoError(t, ledger.Create(ctx, newRegistration(ev.ID, "u2@x.com", strPtr("u2"), base.Add(2*time.Hour))))

	rebuilt, changed, err := repo.RebuildRoster(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"u1", "u2"}, rebuilt.Roster)

	got, err := repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, got.Roster)

	_, changed, err = repo.RebuildRoster(ctx, ev.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = repo.RebuildRoster(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(dbtest.Open(t))

	ada := &model.User{ID: uuid.NewString(), Name: "Ada", Email: "ada@x.com", PasswordHash: "h", Role: model.RoleStudent}
	require.NoError(t, users.Create(ctx, ada))

	dup := &model.User{ID: uuid.NewString(), Name: "Ada 2", Email: "ada@x.com", PasswordHash: "h", Role: model.RoleStudent}
	assert.ErrorIs(t, users.Create(ctx, dup), ErrEmailTaken)

	got, err := users.GetByEmail(ctx, "ada@x.com")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	bob := &model.User{ID: uuid.NewString(), Name: "Bob", Email: "Bob@X.com", PasswordHash: "h", Role: model.RoleStudent}
	require.NoError(t, users.Create(ctx, bob))
	assert.ErrorIs(t, users.UpdateEmail(ctx, bob.ID, "ada@x.com"), ErrEmailTaken)
	require.NoError(t, users.UpdateEmail(ctx, bob.ID, "bob@x.com"))
	assert.ErrorIs(t, users.UpdateEmail(ctx, "missing", "z@x.com"), ErrNotFound)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: registrations.event_id, registrations.email")))
	assert.False(t, isUniqueViolation(errors.New("disk I/O error")))
}
