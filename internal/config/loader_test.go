package config

import (
	"os"
	"path/filepath"
	"testing"
)

const rulesYAML = `
version: v1
rules:
  - name: Thank SMS senders
    enabled: true
    trigger: SMS Received
    actions:
      - action: SMS Send
        params:
          PhoneNumber: "<PhoneNo>"
          Message: "Thanks!"
`

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_LoadAndDefaults(t *testing.T) {
	l, err := NewLoader(writeRules(t, rulesYAML))
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	rf := l.Rules()
	if rf.Version != "v1" {
		t.Errorf("version = %q", rf.Version)
	}
	if len(rf.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rf.Rules))
	}
	r := rf.Rules[0]
	if r.Trigger != "SMS Received" || !r.Enabled {
		t.Errorf("unexpected rule: %+v", r)
	}
	if r.Actions[0].Params["PhoneNumber"] != "<PhoneNo>" {
		t.Errorf("params = %v", r.Actions[0].Params)
	}

	// Engine defaults applied when omitted.
	if rf.Engine.EventWorkers == 0 || rf.Engine.QueueDepth == 0 || rf.Engine.EventTimeoutMs == 0 {
		t.Errorf("defaults not applied: %+v", rf.Engine)
	}
}

func TestLoader_Reload(t *testing.T) {
	path := writeRules(t, rulesYAML)
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	var notified *RulesFile
	l.OnChange(func(rf *RulesFile) { notified = rf })

	updated := rulesYAML + `
  - name: Second rule
    enabled: true
    trigger: Phone Ringing
    actions: []
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	rf, err := l.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(rf.Rules) != 2 {
		t.Errorf("expected 2 rules after reload, got %d", len(rf.Rules))
	}
	if notified == nil || len(notified.Rules) != 2 {
		t.Error("OnChange callback not invoked with the new rules")
	}
}

func TestLoader_BadFile(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := NewLoader(writeRules(t, ":\tnot yaml")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
