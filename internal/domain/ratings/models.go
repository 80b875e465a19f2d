package ratings

import "time"

type Rating struct {
	ID        string    `json:"id"`
	GigID     string    `json:"gigId"`
	GigTitle  string    `json:"gigTitle,omitempty"`
	RaterID   string    `json:"raterId"`
	RaterRole string    `json:"raterRole"`
	RaterName string    `json:"raterName,omitempty"`
	RateeID   string    `json:"rateeId"`
	RateeRole string    `json:"rateeRole"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateInput struct {
	GigID   string `json:"gigId"`
	RateeID string `json:"rateeId"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

type Summary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
