package config

import (
	"testing"
	"time"
)

func TestPolicyDefaults(t *testing.T) {
	var c OnboardingConfig
	applyPolicyDefaults(&c)

	if c.ModuleCount != 4 {
		t.Fatalf("module count = %d, want 4", c.ModuleCount)
	}
	if c.PassThreshold != 90 {
		t.Fatalf("pass threshold = %d, want 90", c.PassThreshold)
	}
	if c.MaxAttempts != 2 {
		t.Fatalf("max attempts = %d, want 2", c.MaxAttempts)
	}
	if c.AttemptWindow() != 24*time.Hour {
		t.Fatalf("attempt window = %v, want 24h", c.AttemptWindow())
	}
	if c.DeadlineWindow() != 15*24*time.Hour {
		t.Fatalf("deadline window = %v, want 15d", c.DeadlineWindow())
	}
}

func TestPolicyDefaultsKeepExplicitValues(t *testing.T) {
	c := OnboardingConfig{
		ModuleCount:        6,
		PassThreshold:      80,
		DeadlineDays:       30,
		MaxAttempts:        3,
		AttemptWindowHours: 12,
		CourseName:         "定制培训",
	}
	applyPolicyDefaults(&c)

	if c.ModuleCount != 6 || c.PassThreshold != 80 || c.MaxAttempts != 3 {
		t.Fatalf("explicit values must be kept, got %+v", c)
	}
	if c.AttemptWindow() != 12*time.Hour {
		t.Fatalf("attempt window = %v, want 12h", c.AttemptWindow())
	}
}
