// Package config defines the §6 Settings schema and loads it from YAML,
// rejecting unknown keys at load.
package config

import (
	"github.com/nexus-agent/core/internal/modelregistry"
)

// Settings is the process-wide configuration root.
type Settings struct {
	LLM       LLMConfig       `yaml:"llm"`
	Memory    MemoryConfig    `yaml:"memory"`
	Agent     AgentConfig     `yaml:"agent"`
	Schedule  []ScheduleEntry `yaml:"schedule"`
	LogLevel  string          `yaml:"logLevel"`
	LogFormat string          `yaml:"logFormat"`
	DataDir   string          `yaml:"dataDir"`
}

// ScheduleEntry is one cron-triggered input, adapted 1:1 into a
// schedule.Entry by the process that wires internal/schedule in.
type ScheduleEntry struct {
	Name string `yaml:"name"`
	Spec string `yaml:"spec"`
	Text string `yaml:"text"`
}

// LLMConfig is the llm: section of Settings.
type LLMConfig struct {
	Providers          map[string]modelregistry.ProviderConfig `yaml:"providers"`
	Default            modelregistry.ModelValue                `yaml:"default"`
	Tiers              map[string]modelregistry.ModelValue     `yaml:"tiers"`
	Roles              map[string]modelregistry.ModelValue     `yaml:"roles"`
	MaxConcurrentCalls int                                     `yaml:"maxConcurrentCalls"`
	Timeout            int                                     `yaml:"timeout"` // seconds
	Codex              CodexConfig                             `yaml:"codex"`
	Copilot            CopilotConfig                           `yaml:"copilot"`
}

// CodexConfig configures the codex provider, whose credentials can be
// rotated at runtime via modelregistry.Registry.SetCodexCredentials.
type CodexConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// CopilotConfig configures the copilot provider.
type CopilotConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MemoryConfig is the memory: section of Settings.
type MemoryConfig struct {
	DBPath       string `yaml:"dbPath"`
	VectorDBPath string `yaml:"vectorDbPath"`
}

// AgentConfig is the agent: section of Settings, bounding the concurrency
// and resource model described in §5.
type AgentConfig struct {
	MaxActiveTasks         int `yaml:"maxActiveTasks"`
	MaxConcurrentTools     int `yaml:"maxConcurrentTools"`
	MaxCognitiveIterations int `yaml:"maxCognitiveIterations"`
	HeartbeatInterval      int `yaml:"heartbeatInterval"` // seconds
	TaskTimeout            int `yaml:"taskTimeout"`       // seconds
}

// ModelRegistryConfig adapts the llm: section into the shape
// modelregistry.New expects.
func (l LLMConfig) ModelRegistryConfig() modelregistry.Config {
	return modelregistry.Config{
		Providers: l.Providers,
		Default:   l.Default,
		Roles:     l.Roles,
		Tiers:     l.Tiers,
	}
}

// Defaults returns a Settings populated with every §6-documented default.
func Defaults() Settings {
	return Settings{
		LLM: LLMConfig{
			MaxConcurrentCalls: 3,
			Timeout:            120,
		},
		Agent: AgentConfig{
			MaxActiveTasks:         5,
			MaxConcurrentTools:     3,
			MaxCognitiveIterations: 10,
			HeartbeatInterval:      60,
			TaskTimeout:            120,
		},
		LogLevel:  "info",
		LogFormat: "json",
		DataDir:   "data",
	}
}

func applyDefaults(cfg *Settings) {
	defaults := Defaults()

	if cfg.LLM.MaxConcurrentCalls == 0 {
		cfg.LLM.MaxConcurrentCalls = defaults.LLM.MaxConcurrentCalls
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = defaults.LLM.Timeout
	}
	if cfg.Agent.MaxActiveTasks == 0 {
		cfg.Agent.MaxActiveTasks = defaults.Agent.MaxActiveTasks
	}
	if cfg.Agent.MaxConcurrentTools == 0 {
		cfg.Agent.MaxConcurrentTools = defaults.Agent.MaxConcurrentTools
	}
	if cfg.Agent.MaxCognitiveIterations == 0 {
		cfg.Agent.MaxCognitiveIterations = defaults.Agent.MaxCognitiveIterations
	}
	if cfg.Agent.HeartbeatInterval == 0 {
		cfg.Agent.HeartbeatInterval = defaults.Agent.HeartbeatInterval
	}
	if cfg.Agent.TaskTimeout == 0 {
		cfg.Agent.TaskTimeout = defaults.Agent.TaskTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaults.LogFormat
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "silent": true,
}

var validLogFormats = map[string]bool{
	"json": true, "line": true,
}

// ValidationError aggregates every schema violation found in one Settings
// value, following the teacher's single-error-with-many-issues convention.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	msg := "config: validation failed:"
	for _, issue := range e.Issues {
		msg += "\n  - " + issue
	}
	return msg
}

func validate(cfg *Settings) error {
	var issues []string

	if !validLogLevels[cfg.LogLevel] {
		issues = append(issues, "logLevel must be one of debug, info, warn, error, fatal, silent, got "+cfg.LogLevel)
	}
	if !validLogFormats[cfg.LogFormat] {
		issues = append(issues, "logFormat must be one of json, line, got "+cfg.LogFormat)
	}
	if cfg.Agent.MaxActiveTasks <= 0 {
		issues = append(issues, "agent.maxActiveTasks must be positive")
	}
	if cfg.Agent.MaxConcurrentTools <= 0 {
		issues = append(issues, "agent.maxConcurrentTools must be positive")
	}
	if cfg.Agent.MaxCognitiveIterations <= 0 {
		issues = append(issues, "agent.maxCognitiveIterations must be positive")
	}
	if cfg.LLM.MaxConcurrentCalls <= 0 {
		issues = append(issues, "llm.maxConcurrentCalls must be positive")
	}
	if cfg.LLM.Timeout <= 0 {
		issues = append(issues, "llm.timeout must be positive")
	}
	if cfg.Agent.HeartbeatInterval <= 0 {
		issues = append(issues, "agent.heartbeatInterval must be positive")
	}
	if cfg.Agent.TaskTimeout <= 0 {
		issues = append(issues, "agent.taskTimeout must be positive")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
