package domain

import "time"

// StaffStats aggregates per-staff activity counters for a guild.
type StaffStats struct {
	GuildID                   int64
	StaffID                   int64
	TicketsClaimed            int
	TicketsClosed             int
	TotalMessages             int
	TotalFirstResponseSeconds int64
	FirstResponseCount        int
	LastActiveAt              *time.Time
}

// AvgFirstResponseSeconds returns the mean first-response latency, or 0 when
// no first responses are recorded.
func (s StaffStats) AvgFirstResponseSeconds() float64 {
	if s.FirstResponseCount == 0 {
		return 0
	}
	return float64(s.TotalFirstResponseSeconds) / float64(s.FirstResponseCount)
}
