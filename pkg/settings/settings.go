package settings

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/grillo/pkg/workflow"
)

// CacheSettings configures one upload-cache workflow. APIKey and Version are
// optional; unset values fall back to the primary key and general version.
type CacheSettings struct {
	WorkflowID string  `yaml:"workflow_id"`
	APIKey     *string `yaml:"api_key,omitempty"`
	Version    *string `yaml:"version,omitempty"`
}

// PollSettings selects a polling policy. Preset is "default" (30 attempts at
// 1s) or "slow" (100 attempts at 5s); explicit values override the preset.
type PollSettings struct {
	Preset      string `yaml:"preset,omitempty"`
	MaxAttempts *int   `yaml:"max_attempts,omitempty"`
	IntervalMs  *int   `yaml:"interval_ms,omitempty"`
}

// ReconnectSettings bounds the event subscriber's reconnection policy.
type ReconnectSettings struct {
	MaxAttempts *int  `yaml:"max_attempts,omitempty"`
	DelayMs     *int  `yaml:"delay_ms,omitempty"`
	Auto        *bool `yaml:"auto,omitempty"`
}

type Settings struct {
	BaseURL    string `yaml:"base_url"`
	SocketURL  string `yaml:"socket_url"`
	APIKey     string `yaml:"api_key"`
	WorkflowID string `yaml:"workflow_id"`
	Version    string `yaml:"version,omitempty"`

	FileUploadCache  *CacheSettings `yaml:"file_upload_cache,omitempty"`
	TextUploadCache  *CacheSettings `yaml:"text_upload_cache,omitempty"`
	TableUploadCache *CacheSettings `yaml:"table_upload_cache,omitempty"`

	Poll      *PollSettings      `yaml:"poll,omitempty"`
	Reconnect *ReconnectSettings `yaml:"reconnect,omitempty"`
}

func NewSettings() *Settings {
	return &Settings{
		Version: workflow.DefaultVersion,
	}
}

func (s *Settings) Clone() *Settings {
	clone := *s
	clone.FileUploadCache = cloneCache(s.FileUploadCache)
	clone.TextUploadCache = cloneCache(s.TextUploadCache)
	clone.TableUploadCache = cloneCache(s.TableUploadCache)
	if s.Poll != nil {
		poll := *s.Poll
		clone.Poll = &poll
	}
	if s.Reconnect != nil {
		reconnect := *s.Reconnect
		clone.Reconnect = &reconnect
	}
	return &clone
}

func cloneCache(c *CacheSettings) *CacheSettings {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// LoadFromFile reads settings from a yaml file.
func LoadFromFile(path string) (*Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read settings file %s", path)
	}

	ret := NewSettings()
	if err := yaml.Unmarshal(content, ret); err != nil {
		return nil, errors.Wrapf(err, "could not parse settings file %s", path)
	}

	return ret, nil
}

// LoadFromViper reads settings from a viper instance, using the same key
// names as the yaml file.
func LoadFromViper(v *viper.Viper) *Settings {
	ret := NewSettings()
	ret.BaseURL = v.GetString("base_url")
	ret.SocketURL = v.GetString("socket_url")
	ret.APIKey = v.GetString("api_key")
	ret.WorkflowID = v.GetString("workflow_id")
	if v.IsSet("version") {
		ret.Version = v.GetString("version")
	}

	for _, cache := range []struct {
		key    string
		target **CacheSettings
	}{
		{"file_upload_cache", &ret.FileUploadCache},
		{"text_upload_cache", &ret.TextUploadCache},
		{"table_upload_cache", &ret.TableUploadCache},
	} {
		if !v.IsSet(cache.key) {
			continue
		}
		c := &CacheSettings{
			WorkflowID: v.GetString(cache.key + ".workflow_id"),
		}
		if v.IsSet(cache.key + ".api_key") {
			apiKey := v.GetString(cache.key + ".api_key")
			c.APIKey = &apiKey
		}
		if v.IsSet(cache.key + ".version") {
			version := v.GetString(cache.key + ".version")
			c.Version = &version
		}
		*cache.target = c
	}

	if v.IsSet("poll") {
		poll := &PollSettings{Preset: v.GetString("poll.preset")}
		if v.IsSet("poll.max_attempts") {
			maxAttempts := v.GetInt("poll.max_attempts")
			poll.MaxAttempts = &maxAttempts
		}
		if v.IsSet("poll.interval_ms") {
			intervalMs := v.GetInt("poll.interval_ms")
			poll.IntervalMs = &intervalMs
		}
		ret.Poll = poll
	}

	if v.IsSet("reconnect") {
		reconnect := &ReconnectSettings{}
		if v.IsSet("reconnect.max_attempts") {
			maxAttempts := v.GetInt("reconnect.max_attempts")
			reconnect.MaxAttempts = &maxAttempts
		}
		if v.IsSet("reconnect.delay_ms") {
			delayMs := v.GetInt("reconnect.delay_ms")
			reconnect.DelayMs = &delayMs
		}
		if v.IsSet("reconnect.auto") {
			auto := v.GetBool("reconnect.auto")
			reconnect.Auto = &auto
		}
		ret.Reconnect = reconnect
	}

	return ret
}

// PollPolicy resolves the configured polling policy, starting from a preset
// and applying explicit overrides.
func (s *Settings) PollPolicy() workflow.PollPolicy {
	policy := workflow.DefaultPollPolicy
	if s.Poll == nil {
		return policy
	}
	if s.Poll.Preset == "slow" {
		policy = workflow.SlowPollPolicy
	}
	if s.Poll.MaxAttempts != nil {
		policy.MaxAttempts = *s.Poll.MaxAttempts
	}
	if s.Poll.IntervalMs != nil {
		policy.Interval = time.Duration(*s.Poll.IntervalMs) * time.Millisecond
	}
	return policy
}

// ClientOptions translates the settings into workflow client options.
func (s *Settings) ClientOptions() []workflow.ClientOption {
	options := []workflow.ClientOption{
		workflow.WithBaseURL(s.BaseURL),
		workflow.WithSocketURL(s.SocketURL),
		workflow.WithAPIKey(s.APIKey),
		workflow.WithWorkflowID(s.WorkflowID),
		workflow.WithPollPolicy(s.PollPolicy()),
	}
	if s.Version != "" {
		options = append(options, workflow.WithVersion(s.Version))
	}

	for _, cache := range []struct {
		settings *CacheSettings
		option   func(workflow.CacheTarget) workflow.ClientOption
	}{
		{s.FileUploadCache, workflow.WithFileCache},
		{s.TextUploadCache, workflow.WithTextCache},
		{s.TableUploadCache, workflow.WithTableCache},
	} {
		if cache.settings == nil {
			continue
		}
		target := workflow.CacheTarget{WorkflowID: cache.settings.WorkflowID}
		if cache.settings.APIKey != nil {
			target.APIKey = *cache.settings.APIKey
		}
		if cache.settings.Version != nil {
			target.Version = *cache.settings.Version
		}
		options = append(options, cache.option(target))
	}

	if s.Reconnect != nil {
		maxAttempts := 10
		delayMs := 3000
		auto := true
		if s.Reconnect.MaxAttempts != nil {
			maxAttempts = *s.Reconnect.MaxAttempts
		}
		if s.Reconnect.DelayMs != nil {
			delayMs = *s.Reconnect.DelayMs
		}
		if s.Reconnect.Auto != nil {
			auto = *s.Reconnect.Auto
		}
		options = append(options, workflow.WithReconnectPolicy(maxAttempts, delayMs, auto))
	}

	return options
}

// NewClient builds a workflow client from the settings.
func (s *Settings) NewClient(extra ...workflow.ClientOption) *workflow.Client {
	return workflow.NewClient(append(s.ClientOptions(), extra...)...)
}
