package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "is valid")
	requireContains(t, out, "OCR keys: 1")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite must refuse to clobber the file.
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected error for existing config without --overwrite")
	}
}

func TestSeriesAddAndList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"series", "add", "Solo Leveling", "--genre", "action", "--language", "Korean"}, env.configPath)
	if err != nil {
		t.Fatalf("series add: %v", err)
	}
	requireContains(t, out, "Created series Solo Leveling")

	out, _, err = runCLI(t, []string{"series", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("series list: %v", err)
	}
	requireContains(t, out, "Solo Leveling")
	requireContains(t, out, "Korean")
}

func TestGlossaryAddListRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	seriesID := createTestSeries(t, env, "Tower of God")

	out, _, err := runCLI(t, []string{"glossary", "add", seriesID, "그림자 군주", "Shadow Monarch", "--type", "person", "--role", "protagonist"}, env.configPath)
	if err != nil {
		t.Fatalf("glossary add: %v", err)
	}
	requireContains(t, out, "Saved 그림자 군주 -> Shadow Monarch")

	out, _, err = runCLI(t, []string{"glossary", "list", seriesID}, env.configPath)
	if err != nil {
		t.Fatalf("glossary list: %v", err)
	}
	requireContains(t, out, "Shadow Monarch")

	// Honorifics are kept as-is; translating one should warn but still save.
	_, stderr, err := runCLI(t, []string{"glossary", "add", seriesID, "오빠", "older brother"}, env.configPath)
	if err != nil {
		t.Fatalf("glossary add honorific: %v", err)
	}
	requireContains(t, stderr, "known honorific")

	out, _, err = runCLI(t, []string{"glossary", "remove", seriesID, "그림자 군주"}, env.configPath)
	if err != nil {
		t.Fatalf("glossary remove: %v", err)
	}
	requireContains(t, out, "Removed")
}

func TestGlossarySuggestRequiresText(t *testing.T) {
	env := setupCLITestEnv(t)
	seriesID := createTestSeries(t, env, "Lookism")

	_, _, err := runCLI(t, []string{"glossary", "suggest", seriesID}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "text") {
		t.Fatalf("expected missing --text error, got %v", err)
	}
}

func TestChaptersAddAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	seriesID := createTestSeries(t, env, "Omniscient Reader")

	out, _, err := runCLI(t, []string{"chapters", "add", seriesID, "3"}, env.configPath)
	if err != nil {
		t.Fatalf("chapters add: %v", err)
	}
	requireContains(t, out, "Created chapter 3")

	out, _, err = runCLI(t, []string{"chapters", "list", seriesID}, env.configPath)
	if err != nil {
		t.Fatalf("chapters list: %v", err)
	}
	requireContains(t, out, "pending")
}

func TestTranslateRequiresInputSource(t *testing.T) {
	env := setupCLITestEnv(t)
	seriesID := createTestSeries(t, env, "The Breaker")

	_, _, err := runCLI(t, []string{"translate", seriesID, "1"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--images or --text") {
		t.Fatalf("expected input source error, got %v", err)
	}
}

// createTestSeries adds a series and extracts its ID from the command output.
func createTestSeries(t *testing.T, env cliTestEnv, title string) string {
	t.Helper()
	out, _, err := runCLI(t, []string{"series", "add", title}, env.configPath)
	if err != nil {
		t.Fatalf("series add: %v", err)
	}
	start := strings.LastIndex(out, "(")
	end := strings.LastIndex(out, ")")
	if start < 0 || end < start {
		t.Fatalf("could not find series ID in output: %q", out)
	}
	return out[start+1 : end]
}
