package domain

import "time"

// DigestEvent is the periodic business summary published to the digest topic.
type DigestEvent struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	KPIs        KPIs      `json:"kpis"`
	Insights    []string  `json:"insights"`
}
