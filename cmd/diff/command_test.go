package diff

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucho00cuba/baseline-core/cmd"
	"github.com/lucho00cuba/baseline-core/internal/logger"
)

func init() {
	logger.Init("error", "text", io.Discard)
}

func TestDiffCmd_Identical(t *testing.T) {
	tmpDir := t.TempDir()
	dir1 := filepath.Join(tmpDir, "dir1")
	dir2 := filepath.Join(tmpDir, "dir2")
	if err := os.Mkdir(dir1, 0755); err != nil {
		t.Fatalf("Failed to create dir1: %v", err)
	}
	if err := os.Mkdir(dir2, 0755); err != nil {
		t.Fatalf("Failed to create dir2: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir1, "file.txt"), []byte("same content"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir2, "file.txt"), []byte("same content"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	var buf, errBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"diff", dir1, dir2})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "identical") {
		t.Errorf("output should indicate identical fingerprints, got stdout: %q, stderr: %q", buf.String(), errBuf.String())
	}
}

func TestDiffCmd_Different(t *testing.T) {
	tmpDir := t.TempDir()
	dir1 := filepath.Join(tmpDir, "dir1")
	dir2 := filepath.Join(tmpDir, "dir2")
	if err := os.Mkdir(dir1, 0755); err != nil {
		t.Fatalf("Failed to create dir1: %v", err)
	}
	if err := os.Mkdir(dir2, 0755); err != nil {
		t.Fatalf("Failed to create dir2: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir1, "file.txt"), []byte("content1"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir2, "file.txt"), []byte("content2"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"diff", dir1, dir2})

	if err := rootCmd.Execute(); err == nil {
		t.Error("rootCmd.Execute() expected error for differing directories")
	}
}

func TestDiffCmd_Nonexistent(t *testing.T) {
	tmpDir := t.TempDir()
	nonexistent := filepath.Join(tmpDir, "nonexistent")

	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"diff", nonexistent, tmpDir})

	if err := rootCmd.Execute(); err == nil {
		t.Error("rootCmd.Execute() expected error for nonexistent path")
	}
}

func TestDiffCmd_InvalidArgs(t *testing.T) {
	if diffCmd.Args == nil {
		t.Fatal("diffCmd should have Args validator set")
	}
	if err := diffCmd.Args(diffCmd, []string{}); err == nil {
		t.Error("diffCmd.Args() expected error for no args")
	}
	if err := diffCmd.Args(diffCmd, []string{"arg1"}); err == nil {
		t.Error("diffCmd.Args() expected error for one arg")
	}
	if err := diffCmd.Args(diffCmd, []string{"arg1", "arg2", "arg3"}); err == nil {
		t.Error("diffCmd.Args() expected error for too many args")
	}
	if err := diffCmd.Args(diffCmd, []string{"path1", "path2"}); err != nil {
		t.Errorf("diffCmd.Args() unexpected error for valid args: %v", err)
	}
}
