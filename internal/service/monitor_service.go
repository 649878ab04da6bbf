package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ridegate/be-commute-permits/internal/logger"
	"github.com/ridegate/be-commute-permits/internal/repository"
)

var monitoredTypes = []repository.DocumentType{
	repository.DocumentTypeLicense,
	repository.DocumentTypeVehicle,
	repository.DocumentTypeInsurance,
}

// MonitorReport summarizes one monitor pass.
type MonitorReport struct {
	RanAt           time.Time
	PermitsExpired  int64
	WarningsSent    int
	ExpiredSent     int
	EscalationsSent int
	Deduplicated    int
	Errors          []string
}

// MonitorService is the recurring expiration monitor. Each run makes a
// warning pass, an expired pass and an admin escalation pass over all
// approved, non-deleted documents, deduplicating against the
// notification log, and sweeps overdue valid permits to expired.
type MonitorService struct {
	docs       DocumentStore
	permits    PermitStore
	employees  EmployeeStore
	settings   SettingsStore
	dispatcher *Dispatcher
	clock      Clock
	interval   time.Duration
	log        *logger.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(
	docs DocumentStore,
	permits PermitStore,
	employees EmployeeStore,
	settings SettingsStore,
	dispatcher *Dispatcher,
	clock Clock,
	interval time.Duration,
	log *logger.Logger,
) *MonitorService {
	if clock == nil {
		clock = realClock{}
	}
	return &MonitorService{
		docs:       docs,
		permits:    permits,
		employees:  employees,
		settings:   settings,
		dispatcher: dispatcher,
		clock:      clock,
		interval:   interval,
		log:        log,
	}
}

// Run executes RunOnce immediately and then on every interval tick until
// the context is canceled. It is independent of request traffic.
func (s *MonitorService) Run(ctx context.Context) {
	s.log.Info().
		Dur("interval", s.interval).
		Msg("Expiration monitor started")

	s.runAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Expiration monitor stopped")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *MonitorService) runAndLog(ctx context.Context) {
	report := s.RunOnce(ctx)
	event := s.log.Info()
	if len(report.Errors) > 0 {
		event = s.log.Warn().Strs("errors", report.Errors)
	}
	event.
		Int64("permits_expired", report.PermitsExpired).
		Int("warnings_sent", report.WarningsSent).
		Int("expired_sent", report.ExpiredSent).
		Int("escalations_sent", report.EscalationsSent).
		Int("deduplicated", report.Deduplicated).
		Msg("Expiration monitor pass completed")
}

// RunOnce executes one full monitor pass. Failures of individual steps
// are collected in the report; no failure aborts sibling work.
func (s *MonitorService) RunOnce(ctx context.Context) *MonitorReport {
	report := &MonitorReport{RanAt: s.clock.Now()}
	today := dateOnly(report.RanAt)

	settings, err := s.settings.Get(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("settings: %v", err))
		settings = repository.DefaultSettings()
	}

	// Overdue valid permits have no other writer for the expired status.
	expired, err := s.permits.MarkExpired(ctx, today)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("permit sweep: %v", err))
	}
	report.PermitsExpired = expired

	var escalatable []*repository.DocumentSummary

	for _, typ := range monitoredTypes {
		s.warningPass(ctx, typ, today, settings, report)
		escalatable = append(escalatable,
			s.expiredPass(ctx, typ, today, settings, report)...)
	}

	s.escalationPass(ctx, today, escalatable, report)

	return report
}

// warningPass notifies owners of documents whose validity ends within
// the per-category warning window [today, today+warningDays].
func (s *MonitorService) warningPass(
	ctx context.Context,
	typ repository.DocumentType,
	today time.Time,
	settings repository.Settings,
	report *MonitorReport,
) {
	warningDays := settings.WarningDaysFor(typ)
	docs, err := s.docs.ListEndingBetween(ctx, typ, today, today.AddDate(0, 0, warningDays))
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("warning pass %s: %v", typ, err))
		return
	}

	for _, doc := range docs {
		docID := doc.ID
		if s.dispatcher.IsDuplicate(ctx, doc.EmployeeID, &docID, repository.NotificationTypeWarning) {
			report.Deduplicated++
			continue
		}

		daysLeft := daysBetween(today, dateOnly(doc.EndDate))
		s.dispatcher.Send(ctx, doc.EmployeeID, Message{
			Type:       repository.NotificationTypeWarning,
			DocumentID: &docID,
			Title:      fmt.Sprintf("%s expiring soon", documentLabel(typ)),
			Body: fmt.Sprintf("Your %s (%s) expires on %s (%d days left). Please renew it.",
				documentLabel(typ), doc.Number, doc.EndDate.Format("2006-01-02"), daysLeft),
		})
		report.WarningsSent++
	}
}

// expiredPass notifies owners of already-expired documents and returns
// the subset overdue long enough to qualify for admin escalation.
func (s *MonitorService) expiredPass(
	ctx context.Context,
	typ repository.DocumentType,
	today time.Time,
	settings repository.Settings,
	report *MonitorReport,
) []*repository.DocumentSummary {
	docs, err := s.docs.ListEndedBefore(ctx, typ, today)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("expired pass %s: %v", typ, err))
		return nil
	}

	var escalatable []*repository.DocumentSummary
	for _, doc := range docs {
		if daysBetween(dateOnly(doc.EndDate), today) >= settings.AdminEscalationDays {
			escalatable = append(escalatable, doc)
		}

		docID := doc.ID
		if s.dispatcher.IsDuplicate(ctx, doc.EmployeeID, &docID, repository.NotificationTypeExpired) {
			report.Deduplicated++
			continue
		}

		s.dispatcher.Send(ctx, doc.EmployeeID, Message{
			Type:       repository.NotificationTypeExpired,
			DocumentID: &docID,
			Title:      fmt.Sprintf("%s expired", documentLabel(typ)),
			Body: fmt.Sprintf("Your %s (%s) expired on %s. Please renew it immediately.",
				documentLabel(typ), doc.Number, doc.EndDate.Format("2006-01-02")),
		})
		report.ExpiredSent++
	}

	return escalatable
}

// escalationPass sends one digest per admin per day listing every
// document overdue beyond the escalation threshold. The dedup key is
// per-admin (document reference nil), so volume is bounded by the number
// of admins, not the number of overdue documents.
func (s *MonitorService) escalationPass(
	ctx context.Context,
	today time.Time,
	docs []*repository.DocumentSummary,
	report *MonitorReport,
) {
	if len(docs) == 0 {
		return
	}

	admins, err := s.employees.ListAdmins(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("escalation pass: %v", err))
		return
	}

	var lines []string
	for _, doc := range docs {
		lines = append(lines, fmt.Sprintf("- %s %s (employee %s, %d days overdue)",
			documentLabel(doc.Type), doc.Number, doc.EmployeeID,
			daysBetween(dateOnly(doc.EndDate), today)))
	}
	body := fmt.Sprintf("%d document(s) remain expired beyond the escalation threshold:\n%s",
		len(docs), strings.Join(lines, "\n"))

	for _, admin := range admins {
		if s.dispatcher.IsDuplicate(ctx, admin.ID, nil, repository.NotificationTypeEscalation) {
			report.Deduplicated++
			continue
		}

		s.dispatcher.Send(ctx, admin.ID, Message{
			Type:  repository.NotificationTypeEscalation,
			Title: "Expired document escalation",
			Body:  body,
		})
		report.EscalationsSent++
	}
}

func documentLabel(typ repository.DocumentType) string {
	switch typ {
	case repository.DocumentTypeLicense:
		return "driver license"
	case repository.DocumentTypeVehicle:
		return "vehicle inspection"
	case repository.DocumentTypeInsurance:
		return "insurance policy"
	default:
		return string(typ)
	}
}

// daysBetween returns whole days from a to b; both are date-valued.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
