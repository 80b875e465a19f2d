package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"

	"quickshift/internal/domain/gigs"
	"quickshift/internal/platform/config"
	"quickshift/internal/platform/geo"
	"quickshift/internal/platform/jobs"
	"quickshift/internal/platform/ws"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Publisher pushes frames to connected websocket clients.
type Publisher interface {
	Publish(msg ws.Message) bool
}

type Enqueuer interface {
	Enqueue(jobType string, run jobs.RunFunc) bool
}

type Observer interface {
	RecordNotification(channel string, err error)
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
	publisher   Publisher
	jobs        Enqueuer
	observer    Observer
	matching    config.Notifications
}

func New(store StoreAPI, mailer Mailer, from string, matching config.Notifications) *Service {
	if from == "" {
		from = "no-reply@quickshift.app"
	}
	return &Service{store: store, Mailer: mailer, DefaultFrom: from, matching: matching}
}

func (s *Service) SetPublisher(p Publisher) { s.publisher = p }
func (s *Service) SetJobs(q Enqueuer)       { s.jobs = q }
func (s *Service) SetObserver(o Observer)   { s.observer = o }

// Create stores an in-app notification, pushes it to live sockets and emails the recipient when allowed.
// Delivery failures after the insert are logged, not returned.
func (s *Service) Create(ctx context.Context, recipient Recipient, ntype, title, body string, data map[string]any) (Notification, error) {
	contact, err := s.store.Contact(ctx, recipient)
	if err != nil {
		return Notification{}, err
	}
	return s.deliver(ctx, recipient, contact, ntype, title, body, data)
}

func (s *Service) deliver(ctx context.Context, recipient Recipient, contact Contact, ntype, title, body string, data map[string]any) (Notification, error) {
	if data == nil {
		data = map[string]any{}
	}
	var n Notification
	if contact.NotifyInApp {
		var err error
		n, err = s.store.CreateNotification(ctx, Notification{
			RecipientID:   recipient.ID,
			RecipientRole: recipient.Role,
			Type:          ntype,
			Title:         title,
			Body:          body,
			Data:          data,
		})
		s.record("in_app", err)
		if err != nil {
			return Notification{}, fmt.Errorf("store notification: %w", err)
		}
		if s.publisher != nil {
			s.publisher.Publish(ws.Message{RecipientID: recipient.ID, Event: EventNotification, Payload: n})
		}
	}

	if contact.NotifyEmail && contact.Email != "" && s.Mailer != nil {
		err := s.Mailer.Send(ctx, s.DefaultFrom, contact.Email, title, body)
		s.record("email", err)
		if err != nil {
			slog.Warn("notification email send failed", "recipientId", recipient.ID, "type", ntype, "err", err)
		}
	}
	return n, nil
}

func (s *Service) NotifyUser(ctx context.Context, userID, kind, title, body string, data map[string]any) {
	if _, err := s.Create(ctx, Recipient{ID: userID, Role: RoleUser}, kind, title, body, data); err != nil {
		slog.Warn("notify user failed", "userId", userID, "type", kind, "err", err)
	}
}

func (s *Service) NotifyEmployer(ctx context.Context, employerID, kind, title, body string, data map[string]any) {
	if _, err := s.Create(ctx, Recipient{ID: employerID, Role: RoleEmployer}, kind, title, body, data); err != nil {
		slog.Warn("notify employer failed", "employerId", employerID, "type", kind, "err", err)
	}
}

// GigPublished queues new-gig matching so gig creation does not wait on it.
func (s *Service) GigPublished(ctx context.Context, gig gigs.Gig) {
	if s.jobs == nil {
		if _, err := s.NotifyNewGig(ctx, gig); err != nil {
			slog.Warn("gig match notify failed", "gigId", gig.ID, "err", err)
		}
		return
	}
	queued := s.jobs.Enqueue(jobs.JobGigMatch, func(ctx context.Context) (any, error) {
		sent, err := s.NotifyNewGig(ctx, gig)
		return map[string]any{"gigId": gig.ID, "notified": sent}, err
	})
	if !queued {
		slog.Warn("gig match job dropped", "gigId", gig.ID)
	}
}

// MatchUsersForGig returns users whose preferences accept the gig, nearest first.
func (s *Service) MatchUsersForGig(ctx context.Context, gig gigs.Gig) ([]Match, error) {
	limit := s.matching.MaxMatches
	if limit <= 0 {
		limit = 500
	}
	maxRadius := s.maxRadius()

	center, hasCenter := gig.Location.Point()
	var box *geo.BoundingBox
	if hasCenter {
		b := geo.BoxAround(center, maxRadius)
		box = &b
	}

	// Over-fetch since the radius check below drops rows the box admitted.
	candidates, err := s.store.MatchCandidates(ctx, gig, box, limit*4)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if !PreferencesAccept(c, gig) {
			continue
		}
		m := Match{
			UserID:      c.ID,
			Email:       c.Email,
			FirstName:   c.FirstName,
			NotifyEmail: c.Preferences.NotifyEmail,
			NotifyInApp: c.Preferences.NotifyInApp,
		}
		if hasCenter {
			point, ok := c.Location.Point()
			if !ok {
				continue
			}
			d := geo.DistanceKm(center, point)
			if d > s.radiusFor(c) {
				continue
			}
			m.DistanceKm = geo.Float(math.Round(d*100) / 100)
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].DistanceKm, matches[j].DistanceKm
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// PreferencesAccept applies the category, job type and minimum hourly rate preferences.
func PreferencesAccept(c Candidate, gig gigs.Gig) bool {
	p := c.Preferences
	if !p.NotifyEmail && !p.NotifyInApp {
		return false
	}
	if len(p.Categories) > 0 && !slices.Contains(p.Categories, gig.Category) {
		return false
	}
	if len(p.JobTypes) > 0 && !slices.Contains(p.JobTypes, gig.JobType) {
		return false
	}
	if gig.PayRate.RateType == gigs.RateHourly && gig.PayRate.Amount < p.MinHourlyRate {
		return false
	}
	return true
}

func (s *Service) maxRadius() float64 {
	if s.matching.MaxRadiusKm > 0 {
		return s.matching.MaxRadiusKm
	}
	return 100
}

func (s *Service) radiusFor(c Candidate) float64 {
	r := c.Preferences.MaxDistanceKm
	if r <= 0 {
		r = s.matching.DefaultRadiusKm
	}
	if r <= 0 {
		r = 25
	}
	return math.Min(r, s.maxRadius())
}

// NotifyNewGig sends a new_gig_match notification to every matched user and returns how many were sent.
func (s *Service) NotifyNewGig(ctx context.Context, gig gigs.Gig) (int, error) {
	if gig.Status != "" && gig.Status != gigs.StatusOpen {
		return 0, nil
	}
	matches, err := s.MatchUsersForGig(ctx, gig)
	if err != nil {
		return 0, fmt.Errorf("match users: %w", err)
	}
	sent := 0
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		title, body := NewGigMatch(gig, m.DistanceKm)
		data := map[string]any{"gigId": gig.ID}
		if m.DistanceKm != nil {
			data["distanceKm"] = *m.DistanceKm
		}
		contact := Contact{Email: m.Email, Name: m.FirstName, NotifyEmail: m.NotifyEmail, NotifyInApp: m.NotifyInApp}
		if _, err := s.deliver(ctx, Recipient{ID: m.UserID, Role: RoleUser}, contact, TypeNewGigMatch, title, body, data); err != nil {
			slog.Warn("new gig match notify failed", "gigId", gig.ID, "userId", m.UserID, "err", err)
			continue
		}
		sent++
	}
	slog.Info("new gig matches notified", "gigId", gig.ID, "matched", len(matches), "sent", sent)
	return sent, nil
}

// SendEmail delivers a transactional email outside the in-app feed.
func (s *Service) SendEmail(ctx context.Context, to string, msg Email) error {
	if s.Mailer == nil || to == "" {
		return nil
	}
	err := s.Mailer.Send(ctx, s.DefaultFrom, to, msg.Subject, msg.Body)
	s.record("email", err)
	return err
}

func (s *Service) List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	items, total, err := s.store.ListNotifications(ctx, recipientID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Notification{}
	}
	return items, total, nil
}

func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.store.UnreadCount(ctx, recipientID)
}

func (s *Service) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	return s.store.MarkRead(ctx, recipientID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.store.MarkAllRead(ctx, recipientID)
}

func (s *Service) Delete(ctx context.Context, recipientID, notificationID string) error {
	return s.store.Delete(ctx, recipientID, notificationID)
}

func (s *Service) record(channel string, err error) {
	if s.observer != nil {
		s.observer.RecordNotification(channel, err)
	}
}
