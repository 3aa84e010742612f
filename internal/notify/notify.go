// Package notify sends a summary of each run.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"gamestats/internal/components/telemetry"
	"gamestats/internal/pipeline"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jordan-wright/email"
)

const report_notify_send = "notify.send"

// Notifier delivers the report of a finished batch.
//
// note: fault injection point
type Notifier interface {
	Send(ctx context.Context, report pipeline.Report) error
}

// Disabled drops every report.
type Disabled struct{}

func (Disabled) Send(ctx context.Context, report pipeline.Report) error {
	return nil
}

type SmtpConfig struct {
	Server   string
	Port     int
	From     string
	Password string
	To       []string
}

type Mailer struct {
	config SmtpConfig
	tel    telemetry.API
}

func NewMailer(config SmtpConfig, tel telemetry.API) Mailer {
	return Mailer{config: config, tel: tel}
}

func (m Mailer) Send(ctx context.Context, report pipeline.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Game Stats Collector <%s>", m.config.From)
	mail.To = m.config.To
	mail.Subject = Subject(report)
	mail.Text = []byte(Body(report))

	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	err := mail.Send(addr, smtp.PlainAuth("", m.config.From, m.config.Password, m.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		m.tel.ReportBroken(report_notify_send, err)
		return err
	}
	m.tel.ReportDebug("sent run summary", m.config.To)
	return nil
}

func Subject(report pipeline.Report) string {
	status := "finished"
	if report.Cancelled {
		status = "cancelled"
	}
	return fmt.Sprintf(
		"gamestats run %s: %d/%d stored",
		status,
		report.Count(pipeline.OutcomeStored),
		report.Total,
	)
}

// Body renders one row per game followed by the totals of each outcome.
func Body(report pipeline.Report) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Place ID", "Name", "Outcome"})
	for i, result := range report.Results {
		t.AppendRow(table.Row{i + 1, result.Game.PlaceID, result.Game.Name, result.Outcome.String()})
	}

	totals := table.NewWriter()
	totals.AppendHeader(table.Row{"Outcome", "Games"})
	for _, outcome := range []pipeline.Outcome{
		pipeline.OutcomeStored,
		pipeline.OutcomeNoData,
		pipeline.OutcomePersistFailed,
		pipeline.OutcomeUpsertFailed,
	} {
		totals.AppendRow(table.Row{outcome.String(), report.Count(outcome)})
	}

	return fmt.Sprintf(
		"Started:  %s\nFinished: %s (%s)\nProcessed %d of %d games.\n\n%s\n\n%s\n",
		report.Started.Format(time.RFC3339),
		report.Finished.Format(time.RFC3339),
		report.Duration().Round(time.Second),
		len(report.Results),
		report.Total,
		t.Render(),
		totals.Render(),
	)
}
