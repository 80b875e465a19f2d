package gigs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"quickshift/internal/platform/geo"
)

// maxGeoCandidates caps the rows pulled from the bounding box before the exact distance check.
const maxGeoCandidates = 2000

// Notifier delivers in-app notifications to gig applicants.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, kind, title, body string, data map[string]any)
}

// Publisher is told about newly posted gigs so matching workers can be notified.
type Publisher interface {
	GigPublished(ctx context.Context, gig Gig)
}

type Service struct {
	store     StoreAPI
	notifier  Notifier
	publisher Publisher
	now       func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *Service) Create(ctx context.Context, employerID string, input CreateInput) (Gig, error) {
	gig := Gig{
		EmployerID:          employerID,
		Title:               strings.TrimSpace(input.Title),
		Description:         strings.TrimSpace(input.Description),
		Category:            strings.ToLower(strings.TrimSpace(input.Category)),
		JobType:             input.JobType,
		PayRate:             input.PayRate,
		Location:            input.Location,
		RequiredSkills:      cleanSkills(input.RequiredSkills),
		TimeSlots:           resetSlots(input.TimeSlots),
		InstantApplyEnabled: input.InstantApplyEnabled,
		MinRating:           input.MinRating,
		Status:              StatusOpen,
	}
	if err := gig.Validate(); err != nil {
		return Gig{}, err
	}
	created, err := s.store.Create(ctx, gig)
	if err != nil {
		return Gig{}, fmt.Errorf("create gig: %w", err)
	}
	if s.publisher != nil {
		s.publisher.GigPublished(ctx, created)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (Gig, error) {
	return s.store.Get(ctx, id)
}

// GetOwned returns the gig only when employerID posted it.
func (s *Service) GetOwned(ctx context.Context, employerID, id string) (Gig, error) {
	gig, err := s.store.Get(ctx, id)
	if err != nil {
		return Gig{}, err
	}
	if gig.EmployerID != employerID {
		return Gig{}, ErrForbidden
	}
	return gig, nil
}

// Search filters in SQL. With a center and radius it narrows by bounding box in SQL, then keeps
// gigs within the exact haversine radius and orders them nearest first.
func (s *Service) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]Gig, int, error) {
	if filter.Status == "" {
		filter.Status = StatusOpen
	}
	if filter.Lat == nil || filter.Lng == nil || filter.RadiusKm <= 0 {
		return s.store.Search(ctx, filter, limit, offset)
	}

	center := geo.Location{Lat: filter.Lat, Lng: filter.Lng}
	if !center.Valid() {
		return nil, 0, &ValidationError{Fields: map[string]string{"lat": "lat and lng must be in range"}}
	}
	point, _ := center.Point()
	box := geo.BoxAround(point, filter.RadiusKm)
	filter.Box = &box

	candidates, _, err := s.store.Search(ctx, filter, maxGeoCandidates, 0)
	if err != nil {
		return nil, 0, err
	}
	within := make([]Gig, 0, len(candidates))
	for _, g := range candidates {
		p, ok := g.Location.Point()
		if !ok {
			continue
		}
		d := geo.DistanceKm(point, p)
		if d > filter.RadiusKm {
			continue
		}
		g.DistanceKm = geo.Float(d)
		within = append(within, g)
	}
	sort.SliceStable(within, func(i, j int) bool {
		return *within[i].DistanceKm < *within[j].DistanceKm
	})

	total := len(within)
	if offset >= total {
		return []Gig{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return within[offset:end], total, nil
}

func (s *Service) ListByEmployer(ctx context.Context, employerID, status string, limit, offset int) ([]Gig, int, error) {
	return s.store.Search(ctx, SearchFilter{EmployerID: employerID, Status: status}, limit, offset)
}

// ListAll is the admin listing; no status default applies.
func (s *Service) ListAll(ctx context.Context, filter SearchFilter, limit, offset int) ([]Gig, int, error) {
	filter.Box = nil
	return s.store.Search(ctx, filter, limit, offset)
}

func (s *Service) Update(ctx context.Context, employerID, id string, input UpdateInput) (Gig, error) {
	gig, err := s.GetOwned(ctx, employerID, id)
	if err != nil {
		return Gig{}, err
	}
	if gig.Status != StatusOpen || gig.PositionsFilled() > 0 {
		return Gig{}, ErrNotEditable
	}
	if input.Title != nil {
		gig.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		gig.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		gig.Category = strings.ToLower(strings.TrimSpace(*input.Category))
	}
	if input.JobType != nil {
		gig.JobType = *input.JobType
	}
	if input.PayRate != nil {
		gig.PayRate = *input.PayRate
	}
	if input.Location != nil {
		gig.Location = *input.Location
	}
	if input.RequiredSkills != nil {
		gig.RequiredSkills = cleanSkills(input.RequiredSkills)
	}
	replaceSlots := input.TimeSlots != nil
	if replaceSlots {
		gig.TimeSlots = resetSlots(input.TimeSlots)
	}
	if input.InstantApplyEnabled != nil {
		gig.InstantApplyEnabled = *input.InstantApplyEnabled
	}
	if input.MinRating != nil {
		gig.MinRating = *input.MinRating
	}
	if err := gig.Validate(); err != nil {
		return Gig{}, err
	}
	return s.store.Update(ctx, gig, replaceSlots)
}

// Cancel is used by the owner; pass an empty employerID for an admin cancel.
func (s *Service) Cancel(ctx context.Context, employerID, id string) (Gig, error) {
	gig, err := s.store.Get(ctx, id)
	if err != nil {
		return Gig{}, err
	}
	if employerID != "" && gig.EmployerID != employerID {
		return Gig{}, ErrForbidden
	}
	if !CanTransition(gig.Status, StatusCancelled) {
		return Gig{}, ErrInvalidTransition
	}
	applicants, err := s.store.Cancel(ctx, id, sourcesFor(StatusCancelled))
	if err != nil {
		return Gig{}, err
	}
	if s.notifier != nil {
		for _, userID := range applicants {
			s.notifier.NotifyUser(ctx, userID, "gig_cancelled",
				"Gig cancelled",
				fmt.Sprintf("%q has been cancelled by the employer.", gig.Title),
				map[string]any{"gigId": gig.ID})
		}
	}
	gig.Status = StatusCancelled
	return gig, nil
}

func (s *Service) Start(ctx context.Context, employerID, id string) (Gig, error) {
	return s.transition(ctx, employerID, id, StatusInProgress)
}

func (s *Service) Complete(ctx context.Context, employerID, id string) (Gig, error) {
	return s.transition(ctx, employerID, id, StatusCompleted)
}

func (s *Service) transition(ctx context.Context, employerID, id, to string) (Gig, error) {
	gig, err := s.GetOwned(ctx, employerID, id)
	if err != nil {
		return Gig{}, err
	}
	if !CanTransition(gig.Status, to) {
		return Gig{}, ErrInvalidTransition
	}
	if err := s.store.SetStatus(ctx, id, to, []string{gig.Status}); err != nil {
		return Gig{}, err
	}
	return s.store.Get(ctx, id)
}

// SyncFilled flips between open and filled after hiring changes the slot counts.
func (s *Service) SyncFilled(ctx context.Context, id string) error {
	gig, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	full := gig.PositionsTotal() > 0 && gig.PositionsFilled() >= gig.PositionsTotal()
	switch {
	case full && gig.Status == StatusOpen:
		err = s.store.SetStatus(ctx, id, StatusFilled, []string{StatusOpen})
	case !full && gig.Status == StatusFilled:
		err = s.store.SetStatus(ctx, id, StatusOpen, []string{StatusFilled})
	}
	if errors.Is(err, ErrInvalidTransition) {
		return nil
	}
	return err
}

// ExpireStale is the scheduled job body.
func (s *Service) ExpireStale(ctx context.Context, after time.Duration) (int64, error) {
	n, err := s.store.ExpireStale(ctx, s.now().Add(-after))
	if err != nil {
		return 0, fmt.Errorf("expire gigs: %w", err)
	}
	if n > 0 {
		slog.Info("expired stale gigs", "count", n)
	}
	return n, nil
}

func resetSlots(slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, len(slots))
	for i, slot := range slots {
		out[i] = TimeSlot{
			Date:          strings.TrimSpace(slot.Date),
			StartTime:     strings.TrimSpace(slot.StartTime),
			EndTime:       strings.TrimSpace(slot.EndTime),
			WorkersNeeded: slot.WorkersNeeded,
		}
	}
	return out
}

func cleanSkills(values []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
