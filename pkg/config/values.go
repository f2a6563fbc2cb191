package config

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/pushqa/wpregress/pkg/notify"
)

// Values holds scalar configuration values.
// Fields ending in *Set track whether the field was explicitly set, so a local config
// can override a global one with false or 0.
type Values struct {
	BaseURL               string
	Browser               string
	Headless              bool
	HeadlessSet           bool
	SlowMoMs              int
	SlowMoMsSet           bool
	CandidateTimeoutMs    int
	CandidateTimeoutMsSet bool
	StepTimeoutMs         int
	StepTimeoutMsSet      bool
	ScenarioTimeoutMs     int
	ScenarioTimeoutMsSet  bool
	NavigationTimeoutMs   int
	NavigationTimeoutSet  bool
	ScenariosDir          string
	ReportsDir            string
	Parallel              int
	ParallelSet           bool
	EnvFile               string

	NotifyChannels        []string
	NotifyChannelsSet     bool // an explicitly empty notify_channels disables notifications
	NotifyOnError         bool
	NotifyOnErrorSet      bool
	NotifyOnComplete      bool
	NotifyOnCompleteSet   bool
	NotifyTimeoutMs       int
	NotifyTimeoutMsSet    bool
	NotifyTelegramToken   string
	NotifyTelegramChat    string
	NotifySlackToken      string
	NotifySlackChannel    string
	NotifySMTPHost        string
	NotifySMTPPort        int
	NotifySMTPPortSet     bool
	NotifySMTPUsername    string
	NotifySMTPPassword    string
	NotifySMTPStartTLS    bool
	NotifySMTPStartTLSSet bool
	NotifyEmailFrom       string
	NotifyEmailTo         []string
	NotifyWebhookURLs     []string
	NotifyCustomScript    string
}

// valuesLoader loads Values with embedded filesystem fallback.
type valuesLoader struct {
	embedFS embed.FS
}

// newValuesLoader creates a new valuesLoader with the given embedded filesystem.
func newValuesLoader(embedFS embed.FS) *valuesLoader {
	return &valuesLoader{embedFS: embedFS}
}

// Load loads values from config files with fallback chain: local → global → embedded.
// localConfigPath and globalConfigPath are full paths to config files (not directories).
func (vl *valuesLoader) Load(localConfigPath, globalConfigPath string) (Values, error) {
	embedded, err := vl.parseValuesFromEmbedded()
	if err != nil {
		return Values{}, fmt.Errorf("parse embedded defaults: %w", err)
	}

	global, err := vl.parseValuesFromFile(globalConfigPath)
	if err != nil {
		return Values{}, fmt.Errorf("parse global config: %w", err)
	}

	local, err := vl.parseValuesFromFile(localConfigPath)
	if err != nil {
		return Values{}, fmt.Errorf("parse local config: %w", err)
	}

	// merge: embedded → global → local (local wins)
	result := embedded
	result.mergeFrom(&global)
	result.mergeFrom(&local)
	return result, nil
}

// parseValuesFromFile reads a config file and parses it into Values.
// returns empty Values (not error) if the file doesn't exist or has only comments.
func (vl *valuesLoader) parseValuesFromFile(path string) (Values, error) {
	if path == "" {
		return Values{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is constructed internally
	if err != nil {
		if os.IsNotExist(err) {
			return Values{}, nil
		}
		return Values{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if strings.TrimSpace(stripComments(string(data))) == "" {
		return Values{}, nil
	}
	return vl.parseValuesFromBytes(data)
}

// parseValuesFromEmbedded parses values from the embedded defaults/config file.
func (vl *valuesLoader) parseValuesFromEmbedded() (Values, error) {
	data, err := vl.embedFS.ReadFile("defaults/config")
	if err != nil {
		return Values{}, fmt.Errorf("read embedded defaults: %w", err)
	}
	return vl.parseValuesFromBytes(data)
}

// parseValuesFromBytes parses configuration from a byte slice into Values.
func (vl *valuesLoader) parseValuesFromBytes(data []byte) (Values, error) {
	// ignoreInlineComment: true keeps # inside values (colors, urls with fragments)
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return Values{}, fmt.Errorf("parse config: %w", err)
	}

	var v Values
	section := cfg.Section("")

	strKeys := []struct {
		key   string
		field *string
	}{
		{"base_url", &v.BaseURL},
		{"browser", &v.Browser},
		{"scenarios_dir", &v.ScenariosDir},
		{"reports_dir", &v.ReportsDir},
		{"env_file", &v.EnvFile},
		{"notify_telegram_token", &v.NotifyTelegramToken},
		{"notify_telegram_chat", &v.NotifyTelegramChat},
		{"notify_slack_token", &v.NotifySlackToken},
		{"notify_slack_channel", &v.NotifySlackChannel},
		{"notify_smtp_host", &v.NotifySMTPHost},
		{"notify_smtp_username", &v.NotifySMTPUsername},
		{"notify_smtp_password", &v.NotifySMTPPassword},
		{"notify_email_from", &v.NotifyEmailFrom},
		{"notify_custom_script", &v.NotifyCustomScript},
	}
	for _, sk := range strKeys {
		if key, err := section.GetKey(sk.key); err == nil {
			*sk.field = strings.TrimSpace(key.String())
		}
	}

	if v.Browser != "" {
		switch v.Browser {
		case "chromium", "firefox", "webkit":
		default:
			return Values{}, fmt.Errorf("invalid browser %q: must be chromium, firefox or webkit", v.Browser)
		}
	}

	boolKeys := []struct {
		key   string
		field *bool
		set   *bool
	}{
		{"headless", &v.Headless, &v.HeadlessSet},
		{"notify_on_error", &v.NotifyOnError, &v.NotifyOnErrorSet},
		{"notify_on_complete", &v.NotifyOnComplete, &v.NotifyOnCompleteSet},
		{"notify_smtp_starttls", &v.NotifySMTPStartTLS, &v.NotifySMTPStartTLSSet},
	}
	for _, bk := range boolKeys {
		key, err := section.GetKey(bk.key)
		if err != nil {
			continue
		}
		val, boolErr := key.Bool()
		if boolErr != nil {
			return Values{}, fmt.Errorf("invalid %s: %w", bk.key, boolErr)
		}
		*bk.field, *bk.set = val, true
	}

	intKeys := []struct {
		key   string
		field *int
		set   *bool
		min   int
	}{
		{"slow_mo_ms", &v.SlowMoMs, &v.SlowMoMsSet, 0},
		{"candidate_timeout_ms", &v.CandidateTimeoutMs, &v.CandidateTimeoutMsSet, 1},
		{"step_timeout_ms", &v.StepTimeoutMs, &v.StepTimeoutMsSet, 1},
		{"scenario_timeout_ms", &v.ScenarioTimeoutMs, &v.ScenarioTimeoutMsSet, 1},
		{"navigation_timeout_ms", &v.NavigationTimeoutMs, &v.NavigationTimeoutSet, 1},
		{"parallel", &v.Parallel, &v.ParallelSet, 1},
		{"notify_timeout_ms", &v.NotifyTimeoutMs, &v.NotifyTimeoutMsSet, 0},
		{"notify_smtp_port", &v.NotifySMTPPort, &v.NotifySMTPPortSet, 0},
	}
	for _, ik := range intKeys {
		key, err := section.GetKey(ik.key)
		if err != nil {
			continue
		}
		val, intErr := key.Int()
		if intErr != nil {
			return Values{}, fmt.Errorf("invalid %s: %w", ik.key, intErr)
		}
		if val < ik.min {
			return Values{}, fmt.Errorf("invalid %s: must be at least %d, got %d", ik.key, ik.min, val)
		}
		*ik.field, *ik.set = val, true
	}

	if key, err := section.GetKey("notify_channels"); err == nil {
		v.NotifyChannels = splitList(key.String())
		v.NotifyChannelsSet = true
	}
	if key, err := section.GetKey("notify_email_to"); err == nil {
		v.NotifyEmailTo = splitList(key.String())
	}
	if key, err := section.GetKey("notify_webhook_urls"); err == nil {
		v.NotifyWebhookURLs = splitList(key.String())
	}

	return v, nil
}

// mergeFrom merges explicitly set values from src into dst.
func (dst *Values) mergeFrom(src *Values) {
	mergeStr := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	mergeStr(&dst.BaseURL, src.BaseURL)
	mergeStr(&dst.Browser, src.Browser)
	mergeStr(&dst.ScenariosDir, src.ScenariosDir)
	mergeStr(&dst.ReportsDir, src.ReportsDir)
	mergeStr(&dst.EnvFile, src.EnvFile)
	mergeStr(&dst.NotifyTelegramToken, src.NotifyTelegramToken)
	mergeStr(&dst.NotifyTelegramChat, src.NotifyTelegramChat)
	mergeStr(&dst.NotifySlackToken, src.NotifySlackToken)
	mergeStr(&dst.NotifySlackChannel, src.NotifySlackChannel)
	mergeStr(&dst.NotifySMTPHost, src.NotifySMTPHost)
	mergeStr(&dst.NotifySMTPUsername, src.NotifySMTPUsername)
	mergeStr(&dst.NotifySMTPPassword, src.NotifySMTPPassword)
	mergeStr(&dst.NotifyEmailFrom, src.NotifyEmailFrom)
	mergeStr(&dst.NotifyCustomScript, src.NotifyCustomScript)

	if src.HeadlessSet {
		dst.Headless, dst.HeadlessSet = src.Headless, true
	}
	if src.NotifyOnErrorSet {
		dst.NotifyOnError, dst.NotifyOnErrorSet = src.NotifyOnError, true
	}
	if src.NotifyOnCompleteSet {
		dst.NotifyOnComplete, dst.NotifyOnCompleteSet = src.NotifyOnComplete, true
	}
	if src.NotifySMTPStartTLSSet {
		dst.NotifySMTPStartTLS, dst.NotifySMTPStartTLSSet = src.NotifySMTPStartTLS, true
	}

	if src.SlowMoMsSet {
		dst.SlowMoMs, dst.SlowMoMsSet = src.SlowMoMs, true
	}
	if src.CandidateTimeoutMsSet {
		dst.CandidateTimeoutMs, dst.CandidateTimeoutMsSet = src.CandidateTimeoutMs, true
	}
	if src.StepTimeoutMsSet {
		dst.StepTimeoutMs, dst.StepTimeoutMsSet = src.StepTimeoutMs, true
	}
	if src.ScenarioTimeoutMsSet {
		dst.ScenarioTimeoutMs, dst.ScenarioTimeoutMsSet = src.ScenarioTimeoutMs, true
	}
	if src.NavigationTimeoutSet {
		dst.NavigationTimeoutMs, dst.NavigationTimeoutSet = src.NavigationTimeoutMs, true
	}
	if src.ParallelSet {
		dst.Parallel, dst.ParallelSet = src.Parallel, true
	}
	if src.NotifyTimeoutMsSet {
		dst.NotifyTimeoutMs, dst.NotifyTimeoutMsSet = src.NotifyTimeoutMs, true
	}
	if src.NotifySMTPPortSet {
		dst.NotifySMTPPort, dst.NotifySMTPPortSet = src.NotifySMTPPort, true
	}

	if src.NotifyChannelsSet {
		dst.NotifyChannels, dst.NotifyChannelsSet = src.NotifyChannels, true
	}
	if len(src.NotifyEmailTo) > 0 {
		dst.NotifyEmailTo = src.NotifyEmailTo
	}
	if len(src.NotifyWebhookURLs) > 0 {
		dst.NotifyWebhookURLs = src.NotifyWebhookURLs
	}
}

// notifyParams maps notify_* values to notification service parameters.
func (v Values) notifyParams() notify.Params {
	return notify.Params{
		Channels:      v.NotifyChannels,
		OnError:       v.NotifyOnError,
		OnComplete:    v.NotifyOnComplete,
		TimeoutMs:     v.NotifyTimeoutMs,
		TelegramToken: v.NotifyTelegramToken,
		TelegramChat:  v.NotifyTelegramChat,
		SlackToken:    v.NotifySlackToken,
		SlackChannel:  v.NotifySlackChannel,
		SMTPHost:      v.NotifySMTPHost,
		SMTPPort:      v.NotifySMTPPort,
		SMTPUsername:  v.NotifySMTPUsername,
		SMTPPassword:  v.NotifySMTPPassword,
		SMTPStartTLS:  v.NotifySMTPStartTLS,
		EmailFrom:     v.NotifyEmailFrom,
		EmailTo:       v.NotifyEmailTo,
		WebhookURLs:   v.NotifyWebhookURLs,
		CustomScript:  v.NotifyCustomScript,
	}
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var res []string
	for p := range strings.SplitSeq(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			res = append(res, t)
		}
	}
	return res
}

// stripComments removes lines starting with # after trimming.
func stripComments(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := make([]string, 0, strings.Count(content, "\n")+1)
	for line := range strings.SplitSeq(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
