package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCollectAnswers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	content := "Which SSO provider?: Okta\nMobile first?: no\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	answers, err := collectAnswers(path, []string{"Mobile first? = yes", "Max users?=500=ish"})
	if err != nil {
		t.Fatalf("collectAnswers: %v", err)
	}
	want := map[string]string{
		"Which SSO provider?": "Okta",
		"Mobile first?":       "yes",
		"Max users?":          "500=ish",
	}
	if len(answers) != len(want) {
		t.Fatalf("answers = %v, want %v", answers, want)
	}
	for q, a := range want {
		if answers[q] != a {
			t.Errorf("answers[%q] = %q, want %q", q, answers[q], a)
		}
	}
}

func TestCollectAnswers_Invalid(t *testing.T) {
	for _, flag := range []string{"no separator", "=answer only"} {
		if _, err := collectAnswers("", []string{flag}); err == nil {
			t.Errorf("collectAnswers(%q) expected error", flag)
		}
	}
	if _, err := collectAnswers(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("expected error for missing answers file")
	}
}
