package hash

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

func TestHashCmd_BareFileRejected(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"hash", testFile})

	if err := rootCmd.Execute(); err == nil {
		t.Error("rootCmd.Execute() expected error hashing a bare file path, root must be a directory")
	}
}

func TestHashCmd_Directory(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "file.txt"), []byte("content"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	var buf, errBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"hash", tmpDir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, tmpDir) {
		t.Errorf("output should contain directory path, got stdout: %q, stderr: %q", buf.String(), errBuf.String())
	}
}

func TestHashCmd_Nonexistent(t *testing.T) {
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"hash", "/nonexistent/path/that/does/not/exist"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("rootCmd.Execute() expected error for nonexistent path")
	}
}

func TestHashCmd_WithAlgorithmFlag(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "keep.txt"), []byte("keep"), 0644); err != nil {
		t.Fatalf("Failed to create keep.txt: %v", err)
	}

	var buf, errBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"hash", "-a", "sha256", tmpDir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() with algorithm flag error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, tmpDir) {
		t.Errorf("output should contain directory path, got stdout: %q, stderr: %q", buf.String(), errBuf.String())
	}
}

func TestHashCmd_InvalidArgs(t *testing.T) {
	if hashCmd.Args == nil {
		t.Fatal("hashCmd should have Args validator set")
	}
	if err := hashCmd.Args(hashCmd, []string{}); err == nil {
		t.Error("hashCmd.Args() expected error for no args")
	}
	if err := hashCmd.Args(hashCmd, []string{"arg1", "arg2"}); err == nil {
		t.Error("hashCmd.Args() expected error for too many args")
	}
	if err := hashCmd.Args(hashCmd, []string{"path"}); err != nil {
		t.Errorf("hashCmd.Args() unexpected error for valid args: %v", err)
	}
}
