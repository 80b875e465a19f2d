package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"quickshift/internal/app/server"
	"quickshift/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

type session struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	Profile     struct {
		ID string `json:"id"`
	} `json:"profile"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:           dbURL,
		JWTSecret:             "test-secret",
		AccessTokenTTL:        15 * time.Minute,
		RefreshTokenTTL:       24 * time.Hour,
		PasswordResetTTL:      time.Hour,
		DataEncryptionKey:     "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		Environment:           "test",
		FrontendURL:           "http://localhost:3000",
		SeedAdminEmail:        "admin@test.local",
		SeedAdminPassword:     "ChangeMe123!",
		SeedAdminName:         "Test Admin",
		EmailProvider:         config.EmailProviderNoop,
		EmailFrom:             "no-reply@test.local",
		RunMigrations:         true,
		RunSeed:               true,
		MaxBodyBytes:          1048576,
		RateLimitPerMinute:    1000,
		TransferRetrySchedule: "@every 1h",
		GigExpirySchedule:     "@every 1h",
		TokenPurgeSchedule:    "@daily",
		Platform:              config.DefaultPlatform(),
	}
}

func startApp(t *testing.T) *httptest.Server {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	app, err := server.New(context.Background(), testConfig(dbURL))
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return ts
}

func TestGigLifecycleJourney(t *testing.T) {
	ts := startApp(t)
	client := ts.Client()
	suffix := time.Now().UnixNano()

	employer := register(t, client, ts.URL+"/api/v1/auth/employers/register", map[string]any{
		"email":       fmt.Sprintf("employer-%d@example.com", suffix),
		"password":    "Str0ng!Passw0rd",
		"companyName": "Journey Catering",
		"contactName": "Erin Host",
	})
	worker := register(t, client, ts.URL+"/api/v1/auth/users/register", map[string]any{
		"email":     fmt.Sprintf("worker-%d@example.com", suffix),
		"password":  "Str0ng!Passw0rd",
		"firstName": "Wes",
		"lastName":  "Worker",
	})

	gigID, slotID := createGig(t, client, ts.URL, employer.AccessToken)

	var app struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, postJSON(t, client, ts.URL+"/api/v1/gigs/"+gigID+"/apply", worker.AccessToken, map[string]any{
		"coverLetter": "Available all day.",
		"slotIds":     []string{slotID},
	}), &app)
	if app.Status != "pending" {
		t.Fatalf("expected pending application, got %s", app.Status)
	}

	decode(t, postJSON(t, client, ts.URL+"/api/v1/applications/"+app.ID+"/accept", employer.AccessToken, map[string]any{
		"note": "See you there",
	}), &app)
	if app.Status != "accepted" {
		t.Fatalf("expected accepted application, got %s", app.Status)
	}

	if status := gigStatus(t, postJSON(t, client, ts.URL+"/api/v1/gigs/"+gigID+"/start", employer.AccessToken, nil)); status != "in_progress" {
		t.Fatalf("expected gig in_progress, got %s", status)
	}
	if status := gigStatus(t, postJSON(t, client, ts.URL+"/api/v1/gigs/"+gigID+"/complete", employer.AccessToken, nil)); status != "completed" {
		t.Fatalf("expected gig completed, got %s", status)
	}

	var completion struct {
		ID          string  `json:"id"`
		Status      string  `json:"status"`
		TotalAmount float64 `json:"totalAmount"`
	}
	decode(t, postJSON(t, client, ts.URL+"/api/v1/gigs/"+gigID+"/completion", employer.AccessToken, map[string]any{
		"workers": []map[string]any{{
			"userId":      worker.Profile.ID,
			"timeEntries": []map[string]any{{"date": "2026-03-02", "hours": 8}},
		}},
		"notes": "Smooth shift",
	}), &completion)
	if completion.Status != "pending_payment" {
		t.Fatalf("expected pending_payment completion, got %s", completion.Status)
	}

	var visible []map[string]any
	decode(t, getJSON(t, client, ts.URL+"/api/v1/completions", employer.AccessToken), &visible)
	if len(visible) != 1 {
		t.Fatalf("expected employer to see one completion, got %d", len(visible))
	}

	var rated struct {
		Summary struct {
			Count int `json:"count"`
		} `json:"summary"`
	}
	decode(t, postJSON(t, client, ts.URL+"/api/v1/ratings", worker.AccessToken, map[string]any{
		"gigId":   gigID,
		"score":   5,
		"comment": "Well organised",
	}), &rated)
	if rated.Summary.Count != 1 {
		t.Fatalf("expected employer rating count 1, got %d", rated.Summary.Count)
	}

	var unread struct {
		Count int `json:"count"`
	}
	decode(t, getJSON(t, client, ts.URL+"/api/v1/notifications/unread-count", employer.AccessToken), &unread)
	if unread.Count == 0 {
		t.Fatal("expected employer to be notified about the application")
	}
	decode(t, getJSON(t, client, ts.URL+"/api/v1/notifications/unread-count", worker.AccessToken), &unread)
	if unread.Count == 0 {
		t.Fatal("expected worker to be notified about the acceptance")
	}
}

func TestWorkerCannotManageGigs(t *testing.T) {
	ts := startApp(t)
	client := ts.Client()

	worker := register(t, client, ts.URL+"/api/v1/auth/users/register", map[string]any{
		"email":     fmt.Sprintf("worker-%d@example.com", time.Now().UnixNano()),
		"password":  "Str0ng!Passw0rd",
		"firstName": "Nosy",
		"lastName":  "Worker",
	})

	status := postStatus(t, client, ts.URL+"/api/v1/gigs", worker.AccessToken, map[string]any{"title": "Not mine"})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for worker gig creation, got %d", status)
	}
	status = postStatus(t, client, ts.URL+"/api/v1/admin/users/any/suspend", worker.AccessToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for worker admin call, got %d", status)
	}
}

func register(t *testing.T, client *http.Client, url string, body map[string]any) session {
	t.Helper()
	var s session
	decode(t, postJSON(t, client, url, "", body), &s)
	if s.AccessToken == "" || s.Profile.ID == "" {
		t.Fatalf("expected session with token and profile, got %+v", s)
	}
	return s
}

func createGig(t *testing.T, client *http.Client, baseURL, token string) (string, string) {
	t.Helper()
	var gig struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		TimeSlots []struct {
			ID string `json:"id"`
		} `json:"timeSlots"`
	}
	decode(t, postJSON(t, client, baseURL+"/api/v1/gigs", token, map[string]any{
		"title":       "Event server",
		"description": "Serve drinks at a private event.",
		"category":    "hospitality",
		"jobType":     "one_time",
		"payRate":     map[string]any{"amount": 20, "rateType": "hourly"},
		"location":    map[string]any{"address": "1 Main St", "city": "Springfield", "lat": 39.78, "lng": -89.65},
		"timeSlots": []map[string]any{{
			"date":          "2026-03-02",
			"startTime":     "09:00",
			"endTime":       "17:00",
			"workersNeeded": 1,
		}},
	}), &gig)
	if gig.Status != "open" || len(gig.TimeSlots) != 1 || gig.TimeSlots[0].ID == "" {
		t.Fatalf("expected open gig with one slot, got %+v", gig)
	}
	return gig.ID, gig.TimeSlots[0].ID
}

func gigStatus(t *testing.T, env envelope) string {
	t.Helper()
	var gig struct {
		Status string `json:"status"`
	}
	decode(t, env, &gig)
	return gig.Status
}

func decode(t *testing.T, env envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode response data: %v", err)
	}
}

func newRequest(t *testing.T, method, url, token string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func do(t *testing.T, client *http.Client, req *http.Request) envelope {
	t.Helper()
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d for %s %s: %s", resp.StatusCode, req.Method, req.URL.Path, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	return do(t, client, newRequest(t, http.MethodPost, url, token, body))
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	return do(t, client, newRequest(t, http.MethodGet, url, token, nil))
}

func postStatus(t *testing.T, client *http.Client, url, token string, body any) int {
	t.Helper()
	resp, err := client.Do(newRequest(t, http.MethodPost, url, token, body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}
