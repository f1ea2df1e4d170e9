package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckExecutables_ValidPath(t *testing.T) {
	tempDir := t.TempDir()
	validExe := filepath.Join(tempDir, "gs")

	file, err := os.Create(validExe)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	file.Close()

	err = os.Chmod(validExe, 0755)
	if err != nil {
		t.Fatalf("Failed to chmod file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	err = checkExecutables(validExe, logger)
	if err != nil {
		t.Errorf("Expected no error with valid path, got: %v", err)
	}
}

func TestCheckExecutables_InvalidPath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	invalidPath := "/nonexistent/path/to/gs"
	err := checkExecutables(invalidPath, logger)
	if err == nil {
		t.Error("Expected error with invalid path, got nil")
	}
	t.Logf("Correctly returned error for invalid path: %v", err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("GOPDFVIEW_TEST_STR", "value")
	t.Setenv("GOPDFVIEW_TEST_INT", "42")
	t.Setenv("GOPDFVIEW_TEST_BOOL", "true")
	t.Setenv("GOPDFVIEW_TEST_BAD_INT", "not-a-number")

	if got := getEnv("GOPDFVIEW_TEST_STR", "fallback"); got != "value" {
		t.Errorf("getEnv returned %q, want %q", got, "value")
	}
	if got := getEnv("GOPDFVIEW_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("getEnv returned %q, want fallback", got)
	}
	if got := getEnvInt("GOPDFVIEW_TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt returned %d, want 42", got)
	}
	if got := getEnvInt("GOPDFVIEW_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getEnvInt returned %d for a bad value, want default 7", got)
	}
	if got := getEnvBool("GOPDFVIEW_TEST_BOOL", false); got != true {
		t.Errorf("getEnvBool returned %v, want true", got)
	}
	if got := getEnvBool("GOPDFVIEW_TEST_MISSING", true); got != true {
		t.Errorf("getEnvBool returned %v, want default true", got)
	}
}
