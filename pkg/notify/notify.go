// Package notify sends run results to chat, email, webhook and script channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"os"
	"strings"
	"time"

	ntfy "github.com/go-pkgz/notify"

	"github.com/pushqa/wpregress/pkg/report"
)

// Params holds channel settings, filled from notify_* config keys.
type Params struct {
	Channels      []string
	OnError       bool
	OnComplete    bool
	TimeoutMs     int
	TelegramToken string
	TelegramChat  string
	SlackToken    string
	SlackChannel  string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPStartTLS  bool
	EmailFrom     string
	EmailTo       []string
	WebhookURLs   []string
	CustomScript  string
}

// result statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Result is the notification payload. It is also the JSON document piped to custom scripts.
type Result struct {
	Status    string `json:"status"` // "success" or "failure"
	RunID     string `json:"run_id"`
	BaseURL   string `json:"base_url"`
	Browser   string `json:"browser,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Scenarios int    `json:"scenarios"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	Canceled  int    `json:"canceled"`
	Warned    int    `json:"warned"`
	Fallbacks int    `json:"fallbacks"`
	Duration  string `json:"duration"`
	Report    string `json:"report,omitempty"`
	Error     string `json:"error,omitempty"` // first failure
}

// FromSummary builds a Result from a finished run. reportPath may be empty.
func FromSummary(sum *report.Summary, reportPath string) Result {
	r := Result{
		Status:    StatusSuccess,
		RunID:     sum.RunID,
		BaseURL:   sum.BaseURL,
		Browser:   sum.Browser,
		Scenarios: sum.Totals.Scenarios,
		Passed:    sum.Totals.Passed,
		Failed:    sum.Totals.Failed,
		Canceled:  sum.Totals.Canceled,
		Warned:    sum.Totals.StepsWarned,
		Fallbacks: sum.Totals.Fallbacks,
		Duration:  sum.Duration.Round(time.Second).String(),
		Report:    reportPath,
		Error:     sum.FirstFailure(),
	}
	if !sum.OK() {
		r.Status = StatusFailure
	}
	if sum.Git != nil && sum.Git.Commit != "" {
		r.Commit = sum.Git.Short()
		if sum.Git.Branch != "" {
			r.Commit = sum.Git.Branch + "@" + r.Commit
		}
		if sum.Git.Dirty {
			r.Commit += " (dirty)"
		}
	}
	return r
}

// Service fans a Result out to the configured channels.
type Service struct {
	channels   []channel
	custom     *customChannel
	onError    bool
	onComplete bool
	timeout    time.Duration
	hostname   string
	log        logger
}

// channel pairs a notifier with its destination URI.
type channel struct {
	notifier   ntfy.Notifier
	dest       string
	htmlEscape bool // telegram uses HTML parse mode
}

type logger interface {
	Print(format string, args ...any)
}

// New creates a Service. Returns nil, nil when no channels are configured; Send is nil-safe.
// misconfigured channels are an error, except telegram init failures which only disable the channel.
func New(p Params, log logger) (*Service, error) {
	if len(p.Channels) == 0 {
		return nil, nil //nolint:nilnil // nil service is valid and ignored by Send
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	svc := &Service{
		onError:    p.OnError,
		onComplete: p.OnComplete,
		timeout:    time.Duration(p.TimeoutMs) * time.Millisecond,
		hostname:   hostname,
		log:        log,
	}
	if svc.timeout <= 0 {
		svc.timeout = 10 * time.Second
	}

	for _, name := range p.Channels {
		if err := svc.add(strings.ToLower(strings.TrimSpace(name)), p); err != nil {
			return nil, err
		}
	}
	if len(svc.channels) == 0 && svc.custom == nil {
		log.Print("[WARN] all notification channels were disabled due to initialization errors")
	}
	return svc, nil
}

func (s *Service) add(name string, p Params) error {
	switch name {
	case "telegram":
		if p.TelegramToken == "" || p.TelegramChat == "" {
			return errors.New("telegram channel: notify_telegram_token and notify_telegram_chat are required")
		}
		c, err := telegramChannelMaker(p)
		if err != nil {
			// token verification is a live API call; keep the run going without this channel
			s.log.Print("[WARN] telegram channel disabled: %s", strings.ReplaceAll(err.Error(), p.TelegramToken, "[REDACTED]"))
			return nil
		}
		s.channels = append(s.channels, c)
	case "slack":
		if p.SlackToken == "" || p.SlackChannel == "" {
			return errors.New("slack channel: notify_slack_token and notify_slack_channel are required")
		}
		s.channels = append(s.channels, channel{notifier: ntfy.NewSlack(p.SlackToken), dest: "slack:" + p.SlackChannel})
	case "email":
		c, err := makeEmailChannel(p)
		if err != nil {
			return fmt.Errorf("email channel: %w", err)
		}
		s.channels = append(s.channels, c)
	case "webhook":
		if len(p.WebhookURLs) == 0 {
			return errors.New("webhook channel: notify_webhook_urls is required")
		}
		wh := ntfy.NewWebhook(ntfy.WebhookParams{})
		for _, u := range p.WebhookURLs {
			s.channels = append(s.channels, channel{notifier: wh, dest: u})
		}
	case "custom":
		if p.CustomScript == "" {
			return errors.New("custom channel: notify_custom_script is required")
		}
		s.custom = newCustomChannel(p.CustomScript)
	default:
		return fmt.Errorf("unknown notification channel: %q", name)
	}
	return nil
}

// Send delivers r unless filtered out by on_error/on_complete. Failures are logged, never returned.
func (s *Service) Send(ctx context.Context, r Result) {
	if s == nil {
		return
	}
	if r.Status == StatusSuccess && !s.onComplete || r.Status == StatusFailure && !s.onError {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := s.formatMessage(r)
	for _, ch := range s.channels {
		text := msg
		if ch.htmlEscape {
			text = html.EscapeString(msg)
		}
		if err := ch.notifier.Send(sendCtx, ch.dest, text); err != nil {
			s.log.Print("[WARN] notification failed for %s: %v", ch.notifier, err)
		}
	}
	if s.custom != nil {
		if err := s.custom.send(sendCtx, r); err != nil {
			s.log.Print("[WARN] custom notification failed: %v", err)
		}
	}
}

// formatMessage renders the plain text message shared by all channels.
func (s *Service) formatMessage(r Result) string {
	var b strings.Builder
	verdict := "passed"
	if r.Status != StatusSuccess {
		verdict = "failed"
	}
	fmt.Fprintf(&b, "wpregress %s on %s\n\n", verdict, s.hostname)

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-10s %s\n", name+":", value)
		}
	}
	field("run", r.RunID)
	field("target", r.BaseURL)
	field("browser", r.Browser)
	field("commit", r.Commit)
	field("scenarios", fmt.Sprintf("%d (%d passed, %d failed, %d canceled)", r.Scenarios, r.Passed, r.Failed, r.Canceled))
	if r.Warned > 0 {
		field("warnings", fmt.Sprintf("%d optional step(s) missed", r.Warned))
	}
	if r.Fallbacks > 0 {
		field("fallbacks", fmt.Sprintf("%d step(s) matched a fallback selector", r.Fallbacks))
	}
	field("duration", r.Duration)
	field("report", r.Report)
	field("error", r.Error)
	return b.String()
}

// telegramChannelMaker is replaced in tests to avoid the live token check.
var telegramChannelMaker = makeTelegramChannel

func makeTelegramChannel(p Params) (channel, error) {
	tg, err := ntfy.NewTelegram(ntfy.TelegramParams{Token: p.TelegramToken})
	if err != nil {
		return channel{}, fmt.Errorf("create telegram notifier: %w", err)
	}
	return channel{notifier: tg, dest: fmt.Sprintf("telegram:%s?parseMode=HTML", p.TelegramChat), htmlEscape: true}, nil
}

func makeEmailChannel(p Params) (channel, error) {
	switch {
	case p.SMTPHost == "":
		return channel{}, errors.New("notify_smtp_host is required")
	case p.EmailFrom == "":
		return channel{}, errors.New("notify_email_from is required")
	case len(p.EmailTo) == 0:
		return channel{}, errors.New("notify_email_to is required")
	}

	em := ntfy.NewEmail(ntfy.SMTPParams{
		Host:     p.SMTPHost,
		Port:     p.SMTPPort,
		Username: p.SMTPUsername,
		Password: p.SMTPPassword,
		StartTLS: p.SMTPStartTLS,
	})
	dest := fmt.Sprintf("mailto:%s?from=%s&subject=%s", strings.Join(p.EmailTo, ","),
		url.QueryEscape(p.EmailFrom), url.QueryEscape("wpregress run report"))
	return channel{notifier: em, dest: dest}, nil
}
