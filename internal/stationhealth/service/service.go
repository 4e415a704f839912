package service

import (
	"context"
	"fmt"
	"time"

	"sasquatch_backend/internal/stationhealth/repository"
	"sasquatch_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	inactivityThreshold = 14 * 24 * time.Hour
	alertTypeInactivity = "inactivity"
)

// StationHealthRepository is the persistence surface the monitor needs.
type StationHealthRepository interface {
	PartnersWithPhone(ctx context.Context) ([]repository.Partner, error)
	ClaimAlert(ctx context.Context, partnerID uuid.UUID, stationType, alertType string) (bool, error)
}

// SMSSender delivers the inactivity nudges.
type SMSSender interface {
	SendPartnerSMS(ctx context.Context, to, body string) error
}

// RunReport is the outcome of one monitor pass.
type RunReport struct {
	PartnersChecked int      `json:"partnersChecked"`
	AlertsSent      int      `json:"alertsSent"`
	Errors          []string `json:"errors,omitempty"`
}

// Service scans partner tap recency and nudges partners whose stations
// have gone quiet.
type Service struct {
	repo StationHealthRepository
	sms  SMSSender
	log  *logger.Logger
	now  func() time.Time
}

// New creates a new station health service.
func New(repo StationHealthRepository, sms SMSSender, log *logger.Logger) *Service {
	return &Service{repo: repo, sms: sms, log: log, now: time.Now}
}

// Run executes one monitor pass. Alert rows are written before the send;
// a failed send is logged but the cooldown stands, so a flapping provider
// cannot turn into a nag loop.
func (s *Service) Run(ctx context.Context) (RunReport, error) {
	var report RunReport

	partners, err := s.repo.PartnersWithPhone(ctx)
	if err != nil {
		return report, fmt.Errorf("scan partners: %w", err)
	}

	for _, partner := range partners {
		report.PartnersChecked++

		var quiet []string
		if s.sasquatchInactive(partner) {
			quiet = append(quiet, repository.StationSasquatch)
		}
		if s.reviewInactive(partner) {
			quiet = append(quiet, repository.StationReview)
		}

		var claimed []string
		for _, station := range quiet {
			won, err := s.repo.ClaimAlert(ctx, partner.ID, station, alertTypeInactivity)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("partner %s %s: claim: %v", partner.ID, station, err))
				continue
			}
			if won {
				claimed = append(claimed, station)
			}
		}
		if len(claimed) == 0 {
			continue
		}

		if err := s.notify(ctx, partner, claimed); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("partner %s: send: %v", partner.ID, err))
			continue
		}
		report.AlertsSent += len(claimed)
	}

	s.log.JobRun("station_health", report.PartnersChecked, report.AlertsSent, len(report.Errors))
	return report, nil
}

// sasquatchInactive: the station has been used before but not in the last
// two weeks. Never-tapped stations (total_taps = 0) are onboarding, not
// inactive.
func (s *Service) sasquatchInactive(p repository.Partner) bool {
	if p.TotalTaps == 0 {
		return false
	}
	return p.LastSasquatchTapAt == nil || s.now().Sub(*p.LastSasquatchTapAt) >= inactivityThreshold
}

// reviewInactive: having a review URL opts the partner into the review
// station check.
func (s *Service) reviewInactive(p repository.Partner) bool {
	if p.GoogleReviewURL == nil || *p.GoogleReviewURL == "" {
		return false
	}
	return p.LastReviewTapAt == nil || s.now().Sub(*p.LastReviewTapAt) >= inactivityThreshold
}

func (s *Service) notify(ctx context.Context, partner repository.Partner, stations []string) error {
	if s.sms == nil {
		return nil
	}
	return s.sms.SendPartnerSMS(ctx, partner.Phone, alertBody(partner.Name, stations))
}

func alertBody(name string, stations []string) string {
	if len(stations) == 2 {
		return fmt.Sprintf("Hi %s! Both your Sasquatch station and your review station have been quiet "+
			"for 2+ weeks. Is everything still set up and visible? Reply here if you need fresh signage or a hand.", name)
	}
	switch stations[0] {
	case repository.StationReview:
		return fmt.Sprintf("Hi %s! Your review station hasn't seen a tap in 2+ weeks. "+
			"A quick check that it's still out and working keeps those reviews coming.", name)
	default:
		return fmt.Sprintf("Hi %s! Your Sasquatch station hasn't seen a tap in 2+ weeks. "+
			"Is it still set up where customers can find it? Reply here if you need anything.", name)
	}
}
