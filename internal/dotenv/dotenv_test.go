package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_SetsUnsetVariables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("FLOWBOT_DOTENV_A=from-file\nFLOWBOT_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FLOWBOT_DOTENV_B", "from-env")
	os.Unsetenv("FLOWBOT_DOTENV_A")
	t.Cleanup(func() { os.Unsetenv("FLOWBOT_DOTENV_A") })

	if err := Load(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := os.Getenv("FLOWBOT_DOTENV_A"); got != "from-file" {
		t.Fatalf("A = %q, want from-file", got)
	}
	if got := os.Getenv("FLOWBOT_DOTENV_B"); got != "from-env" {
		t.Fatalf("B = %q, want existing value kept", got)
	}
}
