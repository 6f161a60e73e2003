package service

import (
	"context"
	"sort"

	"github.com/guildkit/ticketd/internal/domain"
	"github.com/guildkit/ticketd/internal/repository"
)

// GuildAnalytics is the aggregate report for one guild.
type GuildAnalytics struct {
	StatusCounts               []repository.StatusCount   `json:"status_counts"`
	CategoryCounts             []repository.CategoryCount `json:"category_counts"`
	DailyCounts                []repository.DailyCount    `json:"daily_counts"`
	AvgFirstResponseSeconds    float64                    `json:"avg_first_response_seconds"`
	MedianFirstResponseSeconds float64                    `json:"median_first_response_seconds"`
	FirstResponseSamples       int                        `json:"first_response_samples"`
}

// AnalyticsService computes guild-level reporting over the ticket corpus.
type AnalyticsService struct {
	analyticsRepo repository.AnalyticsRepository
	staffRepo     repository.StaffStatsRepository
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(analyticsRepo repository.AnalyticsRepository, staffRepo repository.StaffStatsRepository) *AnalyticsService {
	return &AnalyticsService{analyticsRepo: analyticsRepo, staffRepo: staffRepo}
}

// GuildReport assembles the per-guild analytics rollup over the last
// `days` days of daily counts.
func (s *AnalyticsService) GuildReport(ctx context.Context, guildID int64, days int) (*GuildAnalytics, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	statusCounts, err := s.analyticsRepo.TicketStatusCounts(ctx, guildID)
	if err != nil {
		return nil, err
	}
	categoryCounts, err := s.analyticsRepo.TicketCategoryCounts(ctx, guildID)
	if err != nil {
		return nil, err
	}
	dailyCounts, err := s.analyticsRepo.DailyTicketCounts(ctx, guildID, days)
	if err != nil {
		return nil, err
	}
	samples, err := s.analyticsRepo.ResponseTimeSeconds(ctx, guildID)
	if err != nil {
		return nil, err
	}

	report := &GuildAnalytics{
		StatusCounts:         statusCounts,
		CategoryCounts:       categoryCounts,
		DailyCounts:          dailyCounts,
		FirstResponseSamples: len(samples),
	}
	if len(samples) > 0 {
		var total int64
		for _, s := range samples {
			total += s
		}
		report.AvgFirstResponseSeconds = float64(total) / float64(len(samples))
		report.MedianFirstResponseSeconds = median(samples)
	}
	return report, nil
}

// StaffLeaderboard returns the top staff by closed then claimed tickets.
func (s *AnalyticsService) StaffLeaderboard(ctx context.Context, guildID int64, limit int) ([]domain.StaffStats, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.staffRepo.Leaderboard(ctx, guildID, limit)
}

func median(samples []int64) float64 {
	sorted := append([]int64{}, samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
