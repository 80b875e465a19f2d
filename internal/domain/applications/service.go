package applications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"quickshift/internal/domain/auth"
	"quickshift/internal/domain/gigs"
	"quickshift/internal/domain/users"
	"quickshift/internal/platform/geo"
)

const maxCoverLetter = 2000

type GigReader interface {
	Get(ctx context.Context, id string) (gigs.Gig, error)
	SyncFilled(ctx context.Context, id string) error
}

type UserReader interface {
	Get(ctx context.Context, id string) (users.User, error)
}

type Notifier interface {
	NotifyUser(ctx context.Context, userID, kind, title, body string, data map[string]any)
	NotifyEmployer(ctx context.Context, employerID, kind, title, body string, data map[string]any)
}

type Options struct {
	// Rule is the optional CEL instant-apply expression.
	Rule               string
	DefaultCoverLetter string
}

type Service struct {
	store    StoreAPI
	gigs     GigReader
	users    UserReader
	rules    *RuleEvaluator
	notifier Notifier
	opts     Options
}

func NewService(store StoreAPI, gigReader GigReader, userReader UserReader, rules *RuleEvaluator, opts Options) *Service {
	return &Service{store: store, gigs: gigReader, users: userReader, rules: rules, opts: opts}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) Get(ctx context.Context, id string) (Application, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Apply(ctx context.Context, userID, gigID string, input ApplyInput) (Application, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Application{}, err
	}
	if user.Status != auth.StatusActive {
		return Application{}, ErrUserNotActive
	}
	gig, err := s.gigs.Get(ctx, gigID)
	if err != nil {
		return Application{}, err
	}
	return s.create(ctx, user, gig, strings.TrimSpace(input.CoverLetter), input.SlotIDs, false)
}

func (s *Service) create(ctx context.Context, user users.User, gig gigs.Gig, coverLetter string, slotIDs []string, instant bool) (Application, error) {
	if gig.Status != gigs.StatusOpen {
		return Application{}, ErrGigNotOpen
	}
	if len(coverLetter) > maxCoverLetter {
		return Application{}, ErrCoverLetterLength
	}
	slots, err := checkSlots(gig, slotIDs)
	if err != nil {
		return Application{}, err
	}
	if _, err := s.store.ActiveForUser(ctx, gig.ID, user.ID); err == nil {
		return Application{}, ErrAlreadyApplied
	} else if !errors.Is(err, ErrNotFound) {
		return Application{}, err
	}

	app, err := s.store.Create(ctx, Application{
		GigID:        gig.ID,
		UserID:       user.ID,
		CoverLetter:  coverLetter,
		SlotIDs:      slots,
		InstantApply: instant,
	})
	if err != nil {
		return Application{}, err
	}
	if s.notifier != nil {
		s.notifier.NotifyEmployer(ctx, gig.EmployerID, "application_received",
			"New application",
			fmt.Sprintf("%s applied to %q.", user.FullName(), gig.Title),
			map[string]any{"gigId": gig.ID, "applicationId": app.ID, "instantApply": instant})
	}
	return app, nil
}

// checkSlots dedupes the requested ids and requires each to be an open slot of the gig.
func checkSlots(gig gigs.Gig, slotIDs []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(slotIDs))
	for _, id := range slotIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		slot, ok := gig.Slot(id)
		if !ok || !slot.Open() {
			return nil, fmt.Errorf("slot %s: %w", id, ErrSlotUnavailable)
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, ErrNoSlots
	}
	return out, nil
}

// Eligibility evaluates every instant-apply condition and reports all failures, not just the first.
func (s *Service) Eligibility(ctx context.Context, userID, gigID string) (Eligibility, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Eligibility{}, err
	}
	gig, err := s.gigs.Get(ctx, gigID)
	if err != nil {
		return Eligibility{}, err
	}
	return s.evaluate(ctx, user, gig)
}

func (s *Service) evaluate(ctx context.Context, user users.User, gig gigs.Gig) (Eligibility, error) {
	var reasons []string
	if gig.Status != gigs.StatusOpen {
		reasons = append(reasons, ReasonGigNotOpen)
	}
	if !gig.InstantApplyEnabled {
		reasons = append(reasons, ReasonGigInstantDisabled)
	}
	if len(gig.OpenSlots()) == 0 {
		reasons = append(reasons, ReasonNoOpenSlots)
	}
	if user.Status != auth.StatusActive {
		reasons = append(reasons, ReasonUserNotActive)
	}
	if !user.ProfileComplete() {
		reasons = append(reasons, ReasonProfileIncomplete)
	}
	if !user.InstantApply.Enabled {
		reasons = append(reasons, ReasonUserInstantDisabled)
	}
	if _, err := s.store.ActiveForUser(ctx, gig.ID, user.ID); err == nil {
		reasons = append(reasons, ReasonAlreadyApplied)
	} else if !errors.Is(err, ErrNotFound) {
		return Eligibility{}, err
	}
	if gig.MinRating > 0 && (user.RatingCount == 0 || user.RatingAvg < gig.MinRating) {
		reasons = append(reasons, ReasonRatingTooLow)
	}
	if s.rules != nil && strings.TrimSpace(s.opts.Rule) != "" {
		ok, err := s.rules.Eval(s.opts.Rule, ruleContext(user, gig))
		if err != nil {
			slog.Warn("instant apply rule failed", "gigId", gig.ID, "userId", user.ID, "err", err)
		}
		if err != nil || !ok {
			reasons = append(reasons, ReasonRuleRejected)
		}
	}
	return Eligibility{Eligible: len(reasons) == 0, Reasons: nonNil(reasons)}, nil
}

// ruleContext is the `ctx` map visible to the CEL rule. distanceKm is -1 when either side lacks coordinates.
func ruleContext(user users.User, gig gigs.Gig) map[string]any {
	distance := -1.0
	if a, ok := user.Location.Point(); ok {
		if b, ok := gig.Location.Point(); ok {
			distance = geo.DistanceKm(a, b)
		}
	}
	have := map[string]bool{}
	for _, skill := range user.Skills {
		have[strings.ToLower(skill)] = true
	}
	matched := int64(0)
	for _, skill := range gig.RequiredSkills {
		if have[strings.ToLower(skill)] {
			matched++
		}
	}
	return map[string]any{
		"userRating":     user.RatingAvg,
		"ratingCount":    int64(user.RatingCount),
		"userSkills":     nonNil(user.Skills),
		"userCity":       user.Location.City,
		"gigCategory":    gig.Category,
		"gigJobType":     gig.JobType,
		"gigRateType":    gig.PayRate.RateType,
		"payRate":        gig.PayRate.Amount,
		"requiredSkills": nonNil(gig.RequiredSkills),
		"skillsMatched":  matched,
		"skillsRequired": int64(len(gig.RequiredSkills)),
		"distanceKm":     distance,
		"openSlots":      int64(len(gig.OpenSlots())),
	}
}

// InstantApply fills the cover letter and slots from profile defaults.
func (s *Service) InstantApply(ctx context.Context, userID, gigID string) (Application, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Application{}, err
	}
	gig, err := s.gigs.Get(ctx, gigID)
	if err != nil {
		return Application{}, err
	}
	verdict, err := s.evaluate(ctx, user, gig)
	if err != nil {
		return Application{}, err
	}
	if !verdict.Eligible {
		return Application{}, &IneligibleError{Reasons: verdict.Reasons}
	}

	coverLetter := strings.TrimSpace(user.InstantApply.CoverLetter)
	if coverLetter == "" {
		coverLetter = s.opts.DefaultCoverLetter
	}
	var slotIDs []string
	if user.InstantApply.UseAllSlots {
		for _, slot := range gig.OpenSlots() {
			slotIDs = append(slotIDs, slot.ID)
		}
	} else if slot, ok := gig.EarliestOpenSlot(); ok {
		slotIDs = []string{slot.ID}
	}
	return s.create(ctx, user, gig, coverLetter, slotIDs, true)
}

func (s *Service) Withdraw(ctx context.Context, userID, id string) (Application, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.UserID != userID {
		return Application{}, ErrForbidden
	}
	if app.Status != StatusPending {
		return Application{}, ErrInvalidTransition
	}
	return s.store.SetStatus(ctx, id, StatusWithdrawn, StatusPending, "")
}

func (s *Service) Accept(ctx context.Context, employerID, id, note string) (Application, error) {
	app, gig, err := s.ownedPending(ctx, employerID, id)
	if err != nil {
		return Application{}, err
	}
	if gig.Status != gigs.StatusOpen && gig.Status != gigs.StatusFilled {
		return Application{}, ErrGigNotOpen
	}
	accepted, err := s.store.Accept(ctx, app.ID, strings.TrimSpace(note))
	if err != nil {
		return Application{}, err
	}
	if err := s.gigs.SyncFilled(ctx, gig.ID); err != nil {
		slog.Warn("gig fill status sync failed", "gigId", gig.ID, "err", err)
	}
	s.notifyDecision(ctx, accepted, gig, "application_accepted", "Application accepted",
		fmt.Sprintf("You're hired for %q.", gig.Title))
	return accepted, nil
}

func (s *Service) Reject(ctx context.Context, employerID, id, note string) (Application, error) {
	app, gig, err := s.ownedPending(ctx, employerID, id)
	if err != nil {
		return Application{}, err
	}
	rejected, err := s.store.SetStatus(ctx, app.ID, StatusRejected, StatusPending, strings.TrimSpace(note))
	if err != nil {
		return Application{}, err
	}
	s.notifyDecision(ctx, rejected, gig, "application_rejected", "Application update",
		fmt.Sprintf("Your application for %q was not selected.", gig.Title))
	return rejected, nil
}

func (s *Service) ownedPending(ctx context.Context, employerID, id string) (Application, gigs.Gig, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return Application{}, gigs.Gig{}, err
	}
	gig, err := s.gigs.Get(ctx, app.GigID)
	if err != nil {
		return Application{}, gigs.Gig{}, err
	}
	if gig.EmployerID != employerID {
		return Application{}, gigs.Gig{}, ErrForbidden
	}
	if app.Status != StatusPending {
		return Application{}, gigs.Gig{}, ErrInvalidTransition
	}
	return app, gig, nil
}

func (s *Service) notifyDecision(ctx context.Context, app Application, gig gigs.Gig, kind, title, body string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyUser(ctx, app.UserID, kind, title, body,
		map[string]any{"gigId": gig.ID, "applicationId": app.ID})
}

// ListForGig is the owner's view of applicants.
func (s *Service) ListForGig(ctx context.Context, employerID, gigID, status string, limit, offset int) ([]Application, int, error) {
	gig, err := s.gigs.Get(ctx, gigID)
	if err != nil {
		return nil, 0, err
	}
	if gig.EmployerID != employerID {
		return nil, 0, ErrForbidden
	}
	return s.store.ListByGig(ctx, gigID, status, limit, offset)
}

func (s *Service) ListMine(ctx context.Context, userID, status string, limit, offset int) ([]Application, int, error) {
	return s.store.ListByUser(ctx, userID, status, limit, offset)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
