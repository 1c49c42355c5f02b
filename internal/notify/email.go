package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"sync"
	"time"

	"gopkg.in/gomail.v2"

	"bulk_sender/internal/logbus"
	"bulk_sender/internal/model"
)

// EmailSettingsSource yields the operator's mail account; ok is false when none was saved.
type EmailSettingsSource interface {
	GetEmailSettings(ctx context.Context) (model.EmailSettings, bool, error)
}

const sendTimeout = 30 * time.Second

type EmailNotifier struct {
	settings EmailSettingsSource
	bus      *logbus.Bus
	send     func(ctx context.Context, s model.EmailSettings, evt RunFinishedEvent) error

	mu     sync.Mutex
	queue  chan RunFinishedEvent
	ctx    context.Context
	cancel func()
	wg     sync.WaitGroup
}

func NewEmailNotifier(settings EmailSettingsSource, bus *logbus.Bus) *EmailNotifier {
	return newEmailNotifier(settings, bus, SendRunSummaryEmail)
}

func newEmailNotifier(settings EmailSettingsSource, bus *logbus.Bus, send func(context.Context, model.EmailSettings, RunFinishedEvent) error) *EmailNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &EmailNotifier{
		settings: settings,
		bus:      bus,
		send:     send,
		queue:    make(chan RunFinishedEvent, 32),
		ctx:      ctx,
		cancel:   cancel,
	}
	n.wg.Add(1)
	go n.loop()
	return n
}

// Close drains queued events and stops the worker.
func (n *EmailNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *EmailNotifier) NotifyRunFinished(_ context.Context, evt RunFinishedEvent) {
	select {
	case n.queue <- evt:
	default:
		n.log("warn", "email notification dropped: queue full", map[string]any{"runId": evt.RunID})
	}
}

func (n *EmailNotifier) loop() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			for {
				select {
				case evt := <-n.queue:
					n.handle(evt)
				default:
					return
				}
			}
		case evt := <-n.queue:
			n.handle(evt)
		}
	}
}

// handle runs detached from Close so queued summaries still go out during shutdown.
func (n *EmailNotifier) handle(evt RunFinishedEvent) {
	if n.settings == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	settings, ok, err := n.settings.GetEmailSettings(ctx)
	if err != nil {
		n.log("warn", "read email settings failed", map[string]any{"error": err.Error()})
		return
	}
	if !ok || !settings.Enabled {
		return
	}
	if err := ValidateEmailSettings(settings); err != nil {
		n.log("warn", "email settings invalid", map[string]any{"error": err.Error()})
		return
	}
	if err := n.send(ctx, settings, evt); err != nil {
		n.log("warn", "email send failed", map[string]any{"error": err.Error(), "runId": evt.RunID})
		return
	}
	n.log("info", "summary email sent", map[string]any{"runId": evt.RunID, "to": settings.Email})
}

func (n *EmailNotifier) log(level, msg string, fields map[string]any) {
	if n.bus != nil {
		n.bus.Log(level, msg, fields)
	}
}

func ValidateEmailSettings(s model.EmailSettings) error {
	email := strings.TrimSpace(s.Email)
	if email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("invalid email")
	}
	if strings.TrimSpace(s.AuthCode) == "" {
		return errors.New("authCode is required")
	}
	return nil
}

func SendRunSummaryEmail(ctx context.Context, settings model.EmailSettings, evt RunFinishedEvent) error {
	htmlBody, textBody, err := buildSummaryEmailBody(evt)
	if err != nil {
		return err
	}
	return sendMail(ctx, settings, buildSummarySubject(evt), htmlBody, textBody)
}

// SendTestEmail checks the account by sending a short message to itself.
func SendTestEmail(ctx context.Context, settings model.EmailSettings) error {
	text := "This is a test message from Bulk Sender. Run summaries will arrive at this address."
	return sendMail(ctx, settings, "Bulk Sender test email", "<p>"+template.HTMLEscapeString(text)+"</p>", text)
}

func sendMail(ctx context.Context, settings model.EmailSettings, subject, htmlBody, textBody string) error {
	if err := ValidateEmailSettings(settings); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	email := strings.TrimSpace(settings.Email)
	host, port, useSSL, err := smtpConfigForEmail(email)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(email, "Bulk Sender"))
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(host, port, email, strings.TrimSpace(settings.AuthCode))
	d.SSL = useSSL
	return d.DialAndSend(msg)
}

func smtpConfigForEmail(email string) (host string, port int, useSSL bool, err error) {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", 0, false, errors.New("invalid email format")
	}
	domain := strings.ToLower(strings.TrimSpace(parts[1]))

	is := func(names ...string) bool {
		for _, n := range names {
			if domain == n || strings.HasSuffix(domain, "."+n) {
				return true
			}
		}
		return false
	}
	switch {
	case is("gmail.com", "googlemail.com"):
		return "smtp.gmail.com", 587, false, nil
	case is("outlook.com", "hotmail.com", "live.com"):
		return "smtp.office365.com", 587, false, nil
	case is("yahoo.com"):
		return "smtp.mail.yahoo.com", 465, true, nil
	case is("icloud.com", "me.com"):
		return "smtp.mail.me.com", 587, false, nil
	case is("qq.com", "foxmail.com"):
		return "smtp.qq.com", 465, true, nil
	case is("163.com", "126.com", "yeah.net"):
		return "smtp.163.com", 465, true, nil
	default:
		return "smtp." + domain, 465, true, nil
	}
}

func buildSummarySubject(evt RunFinishedEvent) string {
	return fmt.Sprintf("Bulk send %s: %d sent, %d failed of %d", evt.State, evt.Sent, evt.Failed, evt.Total)
}

var summaryHTMLTpl = template.Must(template.New("run-summary").Parse(`
<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width" />
    <title>Bulk send summary</title>
  </head>
  <body style="margin:0;padding:0;background:#f6f8fb;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,'Helvetica Neue',Arial,sans-serif;">
    <div style="max-width:720px;margin:0 auto;padding:24px;">
      <div style="background:#ffffff;border:1px solid #e6e8ef;border-radius:14px;overflow:hidden;">
        <div style="padding:18px 22px;background:linear-gradient(135deg,#25d366,#128c7e);color:#ffffff;">
          <div style="font-size:16px;font-weight:700;">Bulk send {{ .State }}</div>
          <div style="margin-top:6px;font-size:12px;opacity:.95;">{{ .Start }} ~ {{ .End }}</div>
        </div>
        <div style="padding:22px;">
          <div style="font-size:14px;color:#111827;">
            Sent <strong>{{ .Sent }}</strong>, failed <strong>{{ .Failed }}</strong>, total <strong>{{ .Total }}</strong>
          </div>
          {{ if .Failures }}
          <div style="margin-top:12px;border:1px solid #eef0f6;border-radius:12px;overflow:hidden;">
            <table role="presentation" cellspacing="0" cellpadding="0" border="0" style="width:100%;border-collapse:collapse;">
              <thead>
                <tr style="background:#fafbff;">
                  <th style="padding:10px 12px;text-align:left;font-size:12px;color:#6b7280;">Phone</th>
                  <th style="padding:10px 12px;text-align:left;font-size:12px;color:#6b7280;">Name</th>
                  <th style="padding:10px 12px;text-align:left;font-size:12px;color:#6b7280;">Error</th>
                </tr>
              </thead>
              <tbody>
                {{ range .Failures }}
                <tr>
                  <td style="padding:10px 12px;font-size:12px;color:#111827;border-top:1px solid #eef0f6;">{{ .Phone }}</td>
                  <td style="padding:10px 12px;font-size:12px;color:#111827;border-top:1px solid #eef0f6;">{{ .Name }}</td>
                  <td style="padding:10px 12px;font-size:12px;color:#111827;border-top:1px solid #eef0f6;">{{ .Error }}</td>
                </tr>
                {{ end }}
              </tbody>
            </table>
          </div>
          {{ end }}
          <div style="margin-top:14px;color:#9ca3af;font-size:12px;">Sent automatically by Bulk Sender</div>
        </div>
      </div>
    </div>
  </body>
</html>
`))

func buildSummaryEmailBody(evt RunFinishedEvent) (htmlBody string, textBody string, err error) {
	data := struct {
		State    model.RunState
		Sent     int
		Failed   int
		Total    int
		Start    string
		End      string
		Failures []FailedContact
	}{
		State:    evt.State,
		Sent:     evt.Sent,
		Failed:   evt.Failed,
		Total:    evt.Total,
		Start:    formatMs(evt.StartedAt),
		End:      formatMs(evt.FinishedAt),
		Failures: evt.Failures,
	}

	var buf bytes.Buffer
	if err := summaryHTMLTpl.Execute(&buf, data); err != nil {
		return "", "", err
	}

	text := new(strings.Builder)
	fmt.Fprintf(text, "Bulk send %s\n", evt.State)
	fmt.Fprintf(text, "Sent %d, failed %d, total %d (%s ~ %s)\n", evt.Sent, evt.Failed, evt.Total, data.Start, data.End)
	for _, f := range evt.Failures {
		fmt.Fprintf(text, "- %s %s: %s\n", f.Phone, f.Name, f.Error)
	}
	return buf.String(), text.String(), nil
}

func formatMs(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
