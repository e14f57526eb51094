// Package email delivers operational failure reports over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"workshop_portal_backend/platform/config"
	"workshop_portal_backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

const subjectFailureReportFmt = "[workshop-portal] job failures: %s"

// Reporter sends job failure reports via a direct SMTP connection using
// go-mail. A nil Reporter is a no-op, so callers never need to guard for a
// missing SMTP configuration.
type Reporter struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	toEmail   string
	log       *logger.Logger
}

// NewReporter creates a Reporter from the email configuration. It returns nil
// when report email is not configured.
func NewReporter(cfg config.EmailConfig, log *logger.Logger) *Reporter {
	if !cfg.IsReportEmailEnabled() {
		return nil
	}
	return &Reporter{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromEmail: cfg.GetReportFromAddress(),
		toEmail:   cfg.GetReportToAddress(),
		log:       log,
	}
}

// ReportRunFailures emails the failed items of one job run. Delivery is best
// effort: errors are logged, never returned, so a broken mailer cannot fail
// the job that produced the report.
func (r *Reporter) ReportRunFailures(ctx context.Context, jobName string, runDate time.Time, failures []FailureLine) {
	if r == nil || len(failures) == 0 {
		return
	}

	title := fmt.Sprintf("Job failures: %s", jobName)
	content, err := renderEmailTemplate("failure_report.html", failureReportData{
		Title:    title,
		JobName:  jobName,
		RunDate:  runDate.Format("2006-01-02 15:04 MST"),
		Failures: failures,
	})
	if err != nil {
		r.log.Error("failed to render failure report", "job", jobName, "error", err)
		return
	}

	subject := fmt.Sprintf(subjectFailureReportFmt, jobName)
	if err := r.send(ctx, subject, content); err != nil {
		r.log.Error("failed to send failure report", "job", jobName, "error", err)
	}
}

func (r *Reporter) send(ctx context.Context, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.From(r.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(r.toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(r.host,
		gomail.WithPort(r.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(r.username),
		gomail.WithPassword(r.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
