package service

import (
	"context"
	"fmt"
	"strings"

	"sasquatch_backend/internal/nurture/repository"
	"sasquatch_backend/platform/logger"

	"github.com/google/uuid"
)

// Milestone is one step of the drip sequence.
type Milestone struct {
	Day      int
	Coupon   string
	Template string // {name} and {coupon} placeholders
}

// The sequence, latest first: a lead overdue for several milestones gets
// the most advanced one and nothing else this run.
var milestones = []Milestone{
	{
		Day:    14,
		Coupon: "BIGFOOT20",
		Template: "Hi {name}, last call from Sasquatch Services! Book this week with code " +
			"{coupon} for 20% off your first visit. Reply STOP to opt out.",
	},
	{
		Day:    7,
		Coupon: "SQUATCH15",
		Template: "Hi {name}, still thinking it over? Code {coupon} gets you 15% off " +
			"when you book with Sasquatch Services this month.",
	},
	{
		Day:    3,
		Coupon: "SQUATCH10",
		Template: "Hi {name}, thanks for reaching out to Sasquatch Services! " +
			"Use code {coupon} for 10% off if you book in the next few days.",
	},
}

// NurtureRepository is the persistence surface the drip sender needs.
type NurtureRepository interface {
	DueLeads(ctx context.Context, day int) ([]repository.Lead, error)
	ClaimStamp(ctx context.Context, leadID uuid.UUID, day int) (bool, error)
	ReleaseStamp(ctx context.Context, leadID uuid.UUID, day int) error
}

// SMSSender delivers the drip messages.
type SMSSender interface {
	SendCustomerSMS(ctx context.Context, to, body string) error
}

// MilestoneResult reports one milestone's slice of a run.
type MilestoneResult struct {
	Day       int `json:"day"`
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
}

// RunReport is the outcome of one drip run. Item failures land in Errors;
// the run itself only fails when a milestone cannot be read at all.
type RunReport struct {
	Milestones []MilestoneResult `json:"milestones"`
	Errors     []string          `json:"errors,omitempty"`
}

// Service walks the lead store and sends due drip messages.
type Service struct {
	repo NurtureRepository
	sms  SMSSender
	log  *logger.Logger
}

// New creates a new nurture service.
func New(repo NurtureRepository, sms SMSSender, log *logger.Logger) *Service {
	return &Service{repo: repo, sms: sms, log: log}
}

// Run executes one drip pass. All state comes from the lead store, so a
// crashed or skipped run needs no recovery beyond running again.
func (s *Service) Run(ctx context.Context) (RunReport, error) {
	var report RunReport
	handled := make(map[uuid.UUID]bool)

	for _, milestone := range milestones {
		result := MilestoneResult{Day: milestone.Day}

		leads, err := s.repo.DueLeads(ctx, milestone.Day)
		if err != nil {
			return report, fmt.Errorf("select day-%d leads: %w", milestone.Day, err)
		}

		for _, lead := range leads {
			// One milestone per lead per run; the later milestone won.
			if handled[lead.ID] {
				continue
			}
			result.Processed++

			claimed, err := s.repo.ClaimStamp(ctx, lead.ID, milestone.Day)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("lead %s day %d: claim: %v", lead.ID, milestone.Day, err))
				continue
			}
			if !claimed {
				continue
			}
			handled[lead.ID] = true

			if err := s.send(ctx, lead, milestone); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("lead %s day %d: send: %v", lead.ID, milestone.Day, err))
				if relErr := s.repo.ReleaseStamp(ctx, lead.ID, milestone.Day); relErr != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("lead %s day %d: release claim: %v", lead.ID, milestone.Day, relErr))
				}
				continue
			}
			result.Sent++
		}

		report.Milestones = append(report.Milestones, result)
	}

	var processed, sent int
	for _, r := range report.Milestones {
		processed += r.Processed
		sent += r.Sent
	}
	s.log.JobRun("nurture", processed, sent, len(report.Errors))
	return report, nil
}

func (s *Service) send(ctx context.Context, lead repository.Lead, milestone Milestone) error {
	if s.sms == nil {
		return nil
	}
	return s.sms.SendCustomerSMS(ctx, lead.Phone, renderTemplate(milestone, lead))
}

func renderTemplate(m Milestone, lead repository.Lead) string {
	name := "there"
	if lead.Name != nil && *lead.Name != "" {
		name = *lead.Name
	}
	body := strings.ReplaceAll(m.Template, "{name}", name)
	return strings.ReplaceAll(body, "{coupon}", m.Coupon)
}
