package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
llm:
  providers:
    anthropic:
      apiKey: test-key
      type: anthropic
  default: anthropic/claude-3-5-sonnet
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.MaxConcurrentCalls != 3 {
		t.Errorf("llm.maxConcurrentCalls = %d, want 3", cfg.LLM.MaxConcurrentCalls)
	}
	if cfg.LLM.Timeout != 120 {
		t.Errorf("llm.timeout = %d, want 120", cfg.LLM.Timeout)
	}
	if cfg.Agent.MaxActiveTasks != 5 {
		t.Errorf("agent.maxActiveTasks = %d, want 5", cfg.Agent.MaxActiveTasks)
	}
	if cfg.Agent.MaxConcurrentTools != 3 {
		t.Errorf("agent.maxConcurrentTools = %d, want 3", cfg.Agent.MaxConcurrentTools)
	}
	if cfg.Agent.MaxCognitiveIterations != 10 {
		t.Errorf("agent.maxCognitiveIterations = %d, want 10", cfg.Agent.MaxCognitiveIterations)
	}
	if cfg.Agent.HeartbeatInterval != 60 {
		t.Errorf("agent.heartbeatInterval = %d, want 60", cfg.Agent.HeartbeatInterval)
	}
	if cfg.Agent.TaskTimeout != 120 {
		t.Errorf("agent.taskTimeout = %d, want 120", cfg.Agent.TaskTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("logLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("logFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.DataDir != "data" {
		t.Errorf("dataDir = %q, want data", cfg.DataDir)
	}
}

func TestLoad_ModelValueAcceptsBareStringOrExpandedObject(t *testing.T) {
	path := writeTempConfig(t, `
llm:
  providers:
    anthropic:
      type: anthropic
  default: anthropic/claude-3-5-sonnet
  roles:
    planner:
      model: anthropic/claude-3-opus
      contextWindow: 200000
      apiType: messages
  tiers:
    fast: anthropic/claude-3-haiku
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Default.Model != "anthropic/claude-3-5-sonnet" {
		t.Errorf("default.model = %q", cfg.LLM.Default.Model)
	}
	planner := cfg.LLM.Roles["planner"]
	if planner.Model != "anthropic/claude-3-opus" || planner.ContextWindow != 200000 || planner.APIType != "messages" {
		t.Errorf("roles.planner = %+v, unexpected", planner)
	}
	fast := cfg.LLM.Tiers["fast"]
	if fast.Model != "anthropic/claude-3-haiku" {
		t.Errorf("tiers.fast.model = %q", fast.Model)
	}
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-from-env")
	path := writeTempConfig(t, `
llm:
  providers:
    anthropic:
      apiKey: ${TEST_ANTHROPIC_KEY}
      type: anthropic
  default: anthropic/claude-3-5-sonnet
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Providers["anthropic"].APIKey != "sk-from-env" {
		t.Errorf("apiKey = %q, want sk-from-env", cfg.LLM.Providers["anthropic"].APIKey)
	}
}

func TestLoad_UnknownKeyRejectsAtLoad(t *testing.T) {
	path := writeTempConfig(t, `
llm:
  default: anthropic/claude-3-5-sonnet
notARealField: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown top-level key")
	}
}

func TestLoad_InvalidLogLevelFailsValidation(t *testing.T) {
	path := writeTempConfig(t, `
llm:
  default: anthropic/claude-3-5-sonnet
logLevel: chatty
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a validation error for an invalid logLevel")
	}
}

func TestLoad_SecondDocumentRejected(t *testing.T) {
	path := writeTempConfig(t, `
llm:
  default: anthropic/claude-3-5-sonnet
---
llm:
  default: anthropic/claude-3-opus
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a multi-document config file")
	}
}

func TestInitCurrentReset(t *testing.T) {
	Reset()
	defer Reset()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected Current() to panic before Init")
		}
	}()
	Current()
}

func TestInit_TwiceWithoutResetPanics(t *testing.T) {
	Reset()
	defer Reset()

	cfg := Defaults()
	Init(&cfg)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected second Init() to panic")
		}
	}()
	Init(&cfg)
}
