package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/biomerkin/biomerkin/internal/core"
)

func TestGetInput_FromArgs(t *testing.T) {
	input, err := getInput([]string{"ATCGATCG"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "ATCGATCG" {
		t.Errorf("expected 'ATCGATCG', got '%s'", input)
	}
}

func TestGetInput_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "input.txt")
	if err := os.WriteFile(inputFile, []byte("ATCGATCGATCG\n"), 0o600); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	input, err := getInput([]string{}, inputFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input != "ATCGATCGATCG" {
		t.Errorf("expected trimmed file content, got '%s'", input)
	}
}

func TestGetInput_FileNotFound(t *testing.T) {
	_, err := getInput([]string{}, "/nonexistent/file.txt")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestGetInput_NoInput(t *testing.T) {
	_, err := getInput([]string{}, "")
	if err == nil {
		t.Error("expected error when no input provided")
	}
}

func TestRootCmd_Structure(t *testing.T) {
	if rootCmd.Use != "biomerkin" {
		t.Errorf("expected 'biomerkin', got '%s'", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty short description")
	}

	expected := []string{"serve", "run", "status", "results", "workflows", "doctor", "version"}
	for _, name := range expected {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

func TestFuzzyFilter(t *testing.T) {
	workflows := []*core.Workflow{
		{ID: "wf-brca", InputPayload: "BRCA1 sequence analysis"},
		{ID: "wf-tp53", InputPayload: "TP53 variant panel"},
	}

	matched := fuzzyFilter(workflows, "brca")
	if len(matched) != 1 || matched[0].ID != "wf-brca" {
		t.Errorf("expected only wf-brca, got %d matches", len(matched))
	}

	if got := fuzzyFilter(workflows, "zzzzzz"); len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}

func TestTruncateInput(t *testing.T) {
	if got := truncateInput("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncateInput("ATCGATCGATCG", 4); got != "ATCG..." {
		t.Errorf("expected 'ATCG...', got %q", got)
	}
}

func TestFormatWorkflowTime(t *testing.T) {
	recent := time.Now().Add(-time.Hour)
	if got := formatWorkflowTime(recent); len(got) != len("15:04:05") {
		t.Errorf("expected time-of-day format for recent workflow, got %q", got)
	}
	old := time.Now().Add(-72 * time.Hour)
	if got := formatWorkflowTime(old); len(got) != len("2006-01-02") {
		t.Errorf("expected date format for old workflow, got %q", got)
	}
}
