package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestListEnrollFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Jane Doe.jpg", "bob.PNG", "notes.txt", ".jpg", "carol.jpeg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o750); err != nil {
		t.Fatal(err)
	}

	files, err := listEnrollFiles(dir, []string{"jpg", ".png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Jane Doe", "bob"}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %+v", len(want), files)
	}
	for i, f := range files {
		if f.name != want[i] {
			t.Errorf("file %d: expected name %q, got %q", i, want[i], f.name)
		}
	}
}

func TestListEnrollFiles_MissingDir(t *testing.T) {
	if _, err := listEnrollFiles(filepath.Join(t.TempDir(), "missing"), []string{"jpg"}); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func newServeFlags() *cobra.Command {
	c := &cobra.Command{Use: "serve"}
	c.Flags().Int("port", 8080, "")
	c.Flags().String("host", "0.0.0.0", "")
	return c
}

func TestResolveServeHostPort(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("WEB_PORT", "")
		t.Setenv("WEB_HOST", "")
		port, host := resolveServeHostPort(newServeFlags(), "0.0.0.0", 8080)
		if port != 8080 || host != "0.0.0.0" {
			t.Errorf("expected defaults, got %s:%d", host, port)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("WEB_PORT", "9000")
		t.Setenv("WEB_HOST", "127.0.0.1")
		port, host := resolveServeHostPort(newServeFlags(), "127.0.0.1", 9000)
		if port != 9000 || host != "127.0.0.1" {
			t.Errorf("expected env values, got %s:%d", host, port)
		}
	})

	t.Run("flags win", func(t *testing.T) {
		t.Setenv("WEB_PORT", "9000")
		c := newServeFlags()
		if err := c.Flags().Set("port", "7000"); err != nil {
			t.Fatal(err)
		}
		port, _ := resolveServeHostPort(c, "0.0.0.0", 9000)
		if port != 7000 {
			t.Errorf("expected explicit flag 7000, got %d", port)
		}
	})
}
