package applications

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/domain/users"
	"quickshift/internal/platform/geo"
)

type fakeStore struct {
	apps    map[string]Application
	order   []string
	gigs    *fakeGigs
	seq     int
	failAcc error
}

func (f *fakeStore) Create(_ context.Context, app Application) (Application, error) {
	f.seq++
	app.ID = fmt.Sprintf("app-%d", f.seq)
	app.Status = StatusPending
	f.apps[app.ID] = app
	f.order = append(f.order, app.ID)
	return app, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (Application, error) {
	app, ok := f.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

func (f *fakeStore) ActiveForUser(_ context.Context, gigID, userID string) (Application, error) {
	for _, id := range f.order {
		app := f.apps[id]
		if app.GigID == gigID && app.UserID == userID && app.Status != StatusWithdrawn {
			return app, nil
		}
	}
	return Application{}, ErrNotFound
}

func (f *fakeStore) ListByGig(_ context.Context, gigID, status string, _, _ int) ([]Application, int, error) {
	var out []Application
	for _, id := range f.order {
		app := f.apps[id]
		if app.GigID == gigID && (status == "" || app.Status == status) {
			out = append(out, app)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID, status string, _, _ int) ([]Application, int, error) {
	var out []Application
	for _, id := range f.order {
		app := f.apps[id]
		if app.UserID == userID && (status == "" || app.Status == status) {
			out = append(out, app)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) SetStatus(_ context.Context, id, to, from, note string) (Application, error) {
	app, ok := f.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	if app.Status != from {
		return Application{}, ErrInvalidTransition
	}
	app.Status = to
	if note != "" {
		app.EmployerNote = note
	}
	f.apps[id] = app
	return app, nil
}

func (f *fakeStore) Accept(_ context.Context, id, note string) (Application, error) {
	app := f.apps[id]
	gig := f.gigs.items[app.GigID]
	for _, slotID := range app.SlotIDs {
		for i := range gig.TimeSlots {
			if gig.TimeSlots[i].ID == slotID && !gig.TimeSlots[i].Open() {
				return Application{}, ErrSlotFull
			}
		}
	}
	for _, slotID := range app.SlotIDs {
		for i := range gig.TimeSlots {
			if gig.TimeSlots[i].ID == slotID {
				gig.TimeSlots[i].WorkersHired++
			}
		}
	}
	f.gigs.items[gig.ID] = gig
	app.Status = StatusAccepted
	app.EmployerNote = note
	f.apps[id] = app
	return app, nil
}

type fakeGigs struct {
	items  map[string]gigs.Gig
	synced []string
}

func (f *fakeGigs) Get(_ context.Context, id string) (gigs.Gig, error) {
	gig, ok := f.items[id]
	if !ok {
		return gigs.Gig{}, gigs.ErrNotFound
	}
	return gig, nil
}

func (f *fakeGigs) SyncFilled(_ context.Context, id string) error {
	f.synced = append(f.synced, id)
	gig := f.items[id]
	if gig.PositionsFilled() >= gig.PositionsTotal() {
		gig.Status = gigs.StatusFilled
	}
	f.items[id] = gig
	return nil
}

type fakeUsers map[string]users.User

func (f fakeUsers) Get(_ context.Context, id string) (users.User, error) {
	u, ok := f[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

type note struct {
	recipient string
	kind      string
}

type fakeNotifier struct {
	notes []note
}

func (n *fakeNotifier) NotifyUser(_ context.Context, id, kind, _, _ string, _ map[string]any) {
	n.notes = append(n.notes, note{id, kind})
}

func (n *fakeNotifier) NotifyEmployer(_ context.Context, id, kind, _, _ string, _ map[string]any) {
	n.notes = append(n.notes, note{id, kind})
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	gigs     *fakeGigs
	users    fakeUsers
	notifier *fakeNotifier
}

func newFixture(t *testing.T, rule string) fixture {
	t.Helper()
	g := &fakeGigs{items: map[string]gigs.Gig{
		"gig-1": {
			ID:                  "gig-1",
			EmployerID:          "emp-1",
			Title:               "Barista",
			Category:            "hospitality",
			Status:              gigs.StatusOpen,
			InstantApplyEnabled: true,
			PayRate:             gigs.PayRate{Amount: 20, RateType: gigs.RateHourly},
			Location:            geo.Location{Lat: geo.Float(40.71), Lng: geo.Float(-74.0)},
			TimeSlots: []gigs.TimeSlot{
				{ID: "s2", Date: "2026-05-02", StartTime: "08:00", EndTime: "12:00", WorkersNeeded: 1},
				{ID: "s1", Date: "2026-05-01", StartTime: "08:00", EndTime: "12:00", WorkersNeeded: 1},
				{ID: "s0", Date: "2026-04-30", StartTime: "08:00", EndTime: "12:00", WorkersNeeded: 1, WorkersHired: 1},
			},
		},
	}}
	u := fakeUsers{
		"u1": {
			ID: "u1", FirstName: "Ada", LastName: "Lovelace", Phone: "555", Status: auth.StatusActive,
			Location:     geo.Location{Lat: geo.Float(40.72), Lng: geo.Float(-74.0)},
			InstantApply: users.InstantApplyDefaults{Enabled: true, UseAllSlots: true},
			RatingAvg:    4.8, RatingCount: 5,
		},
		"u2": {ID: "u2", FirstName: "Bo", Status: auth.StatusActive},
		"u3": {ID: "u3", FirstName: "Cy", Status: auth.StatusSuspended},
	}
	rules, err := NewRuleEvaluator()
	require.NoError(t, err)
	store := &fakeStore{apps: map[string]Application{}, gigs: g}
	notifier := &fakeNotifier{}
	svc := NewService(store, g, u, rules, Options{Rule: rule, DefaultCoverLetter: "default letter"})
	svc.SetNotifier(notifier)
	return fixture{svc: svc, store: store, gigs: g, users: u, notifier: notifier}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		slots   []string
		wantErr error
	}{
		{name: "ok", userID: "u2", slots: []string{"s1", "s1"}},
		{name: "full slot", userID: "u2", slots: []string{"s0"}, wantErr: ErrSlotUnavailable},
		{name: "unknown slot", userID: "u2", slots: []string{"zz"}, wantErr: ErrSlotUnavailable},
		{name: "no slots", userID: "u2", slots: nil, wantErr: ErrNoSlots},
		{name: "suspended user", userID: "u3", slots: []string{"s1"}, wantErr: ErrUserNotActive},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, "")
			app, err := f.svc.Apply(context.Background(), tc.userID, "gig-1", ApplyInput{CoverLetter: "hi", SlotIDs: tc.slots})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"s1"}, app.SlotIDs)
			assert.False(t, app.InstantApply)
			assert.Equal(t, []note{{"emp-1", "application_received"}}, f.notifier.notes)
		})
	}
}

func TestApplyTwiceRejected(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.Apply(ctx, "u2", "gig-1", ApplyInput{SlotIDs: []string{"s1"}})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, "u2", "gig-1", ApplyInput{SlotIDs: []string{"s2"}})
	assert.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestApplyGigClosed(t *testing.T) {
	f := newFixture(t, "")
	gig := f.gigs.items["gig-1"]
	gig.Status = gigs.StatusCancelled
	f.gigs.items["gig-1"] = gig
	_, err := f.svc.Apply(context.Background(), "u2", "gig-1", ApplyInput{SlotIDs: []string{"s1"}})
	assert.ErrorIs(t, err, ErrGigNotOpen)
}

func TestEligibilityReasons(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	verdict, err := f.svc.Eligibility(ctx, "u1", "gig-1")
	require.NoError(t, err)
	assert.True(t, verdict.Eligible)
	assert.Empty(t, verdict.Reasons)

	verdict, err = f.svc.Eligibility(ctx, "u2", "gig-1")
	require.NoError(t, err)
	assert.False(t, verdict.Eligible)
	assert.ElementsMatch(t, []string{ReasonProfileIncomplete, ReasonUserInstantDisabled}, verdict.Reasons)

	gig := f.gigs.items["gig-1"]
	gig.MinRating = 4.9
	gig.InstantApplyEnabled = false
	f.gigs.items["gig-1"] = gig
	verdict, err = f.svc.Eligibility(ctx, "u1", "gig-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ReasonGigInstantDisabled, ReasonRatingTooLow}, verdict.Reasons)
}

func TestEligibilityUnratedUserPassesWithoutMinimum(t *testing.T) {
	f := newFixture(t, "")
	u := f.users["u1"]
	u.RatingAvg, u.RatingCount = 0, 0
	f.users["u1"] = u

	verdict, err := f.svc.Eligibility(context.Background(), "u1", "gig-1")
	require.NoError(t, err)
	assert.True(t, verdict.Eligible)

	gig := f.gigs.items["gig-1"]
	gig.MinRating = 3
	f.gigs.items["gig-1"] = gig
	verdict, err = f.svc.Eligibility(context.Background(), "u1", "gig-1")
	require.NoError(t, err)
	assert.Equal(t, []string{ReasonRatingTooLow}, verdict.Reasons)
}

func TestEligibilityPlatformRule(t *testing.T) {
	f := newFixture(t, "ctx.distanceKm >= 0.0 && ctx.distanceKm < 5.0 && ctx.ratingCount >= 10")
	verdict, err := f.svc.Eligibility(context.Background(), "u1", "gig-1")
	require.NoError(t, err)
	assert.Equal(t, []string{ReasonRuleRejected}, verdict.Reasons)

	f = newFixture(t, "ctx.distanceKm < 5.0 && ctx.openSlots >= 2")
	verdict, err = f.svc.Eligibility(context.Background(), "u1", "gig-1")
	require.NoError(t, err)
	assert.True(t, verdict.Eligible)
}

func TestInstantApplyUsesDefaults(t *testing.T) {
	f := newFixture(t, "")
	app, err := f.svc.InstantApply(context.Background(), "u1", "gig-1")
	require.NoError(t, err)
	assert.True(t, app.InstantApply)
	assert.Equal(t, "default letter", app.CoverLetter)
	assert.Equal(t, []string{"s2", "s1"}, app.SlotIDs)
}

func TestInstantApplyEarliestSlot(t *testing.T) {
	f := newFixture(t, "")
	u := f.users["u1"]
	u.InstantApply = users.InstantApplyDefaults{Enabled: true, CoverLetter: "mine"}
	f.users["u1"] = u

	app, err := f.svc.InstantApply(context.Background(), "u1", "gig-1")
	require.NoError(t, err)
	assert.Equal(t, "mine", app.CoverLetter)
	assert.Equal(t, []string{"s1"}, app.SlotIDs)
}

func TestInstantApplyIneligible(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.svc.InstantApply(context.Background(), "u2", "gig-1")
	assert.ErrorIs(t, err, ErrNotEligible)
	var inel *IneligibleError
	require.True(t, errors.As(err, &inel))
	assert.Contains(t, inel.Reasons, ReasonProfileIncomplete)
}

func TestAcceptFillsGig(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	first, err := f.svc.Apply(ctx, "u1", "gig-1", ApplyInput{SlotIDs: []string{"s1", "s2"}})
	require.NoError(t, err)
	second, err := f.svc.Apply(ctx, "u2", "gig-1", ApplyInput{SlotIDs: []string{"s1"}})
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, "emp-2", first.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	accepted, err := f.svc.Accept(ctx, "emp-1", first.ID, "welcome")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)
	assert.Equal(t, gigs.StatusFilled, f.gigs.items["gig-1"].Status)
	assert.Equal(t, []string{"gig-1"}, f.gigs.synced)

	_, err = f.svc.Accept(ctx, "emp-1", second.ID, "")
	assert.Error(t, err)

	_, err = f.svc.Accept(ctx, "emp-1", first.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAcceptSlotFullAfterHire(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	a, err := f.svc.Apply(ctx, "u1", "gig-1", ApplyInput{SlotIDs: []string{"s1"}})
	require.NoError(t, err)
	b, err := f.svc.Apply(ctx, "u2", "gig-1", ApplyInput{SlotIDs: []string{"s1"}})
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, "emp-1", a.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, "emp-1", b.ID, "")
	assert.ErrorIs(t, err, ErrSlotFull)
}

func TestWithdrawAndReject(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	app, err := f.svc.Apply(ctx, "u2", "gig-1", ApplyInput{SlotIDs: []string{"s1"}})
	require.NoError(t, err)

	_, err = f.svc.Withdraw(ctx, "u1", app.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	withdrawn, err := f.svc.Withdraw(ctx, "u2", app.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusWithdrawn, withdrawn.Status)

	again, err := f.svc.Apply(ctx, "u2", "gig-1", ApplyInput{SlotIDs: []string{"s1"}})
	require.NoError(t, err)
	rejected, err := f.svc.Reject(ctx, "emp-1", again.ID, "not this time")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "not this time", rejected.EmployerNote)
	assert.Contains(t, f.notifier.notes, note{"u2", "application_rejected"})

	_, err = f.svc.Withdraw(ctx, "u2", again.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListForGigRequiresOwner(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	_, err := f.svc.Apply(ctx, "u2", "gig-1", ApplyInput{SlotIDs: []string{"s1"}})
	require.NoError(t, err)

	_, _, err = f.svc.ListForGig(ctx, "emp-9", "gig-1", "", 10, 0)
	assert.ErrorIs(t, err, ErrForbidden)

	list, total, err := f.svc.ListForGig(ctx, "emp-1", "gig-1", StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	mine, total, err := f.svc.ListMine(ctx, "u2", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "gig-1", mine[0].GigID)
}
