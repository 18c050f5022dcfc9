package calc

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lucho00cuba/baseline-core/cmd"
	"github.com/lucho00cuba/baseline-core/internal/hashfn"
	"github.com/lucho00cuba/baseline-core/internal/logger"
	"github.com/lucho00cuba/baseline-core/internal/merkle"
	"github.com/lucho00cuba/baseline-core/internal/model"
	"github.com/lucho00cuba/baseline-core/internal/store/memory"
)

func init() {
	logger.Init("error", "text", io.Discard)
}

func computeExpected(t *testing.T, path string) string {
	t.Helper()
	f, err := hashfn.New(hashfn.SHA1)
	if err != nil {
		t.Fatalf("hashfn.New: %v", err)
	}
	hashStore := memory.New(time.Now().Unix)
	engine := merkle.NewEngine(path, f, hashStore, nil, logger.Logger())
	hash, err := engine.ComputeMerkleTree(context.Background(), path, model.NewSessionID())
	if err != nil {
		t.Fatalf("ComputeMerkleTree: %v", err)
	}
	return hash
}

func TestCalcCmd_MatchingHash(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "test.txt"), []byte("test content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	expectedHash := computeExpected(t, tmpDir)

	var buf, errBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"calc", tmpDir, expectedHash})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v, stderr: %s", err, errBuf.String())
	}

	output := buf.String()
	if !strings.Contains(output, "Hash matches:") {
		t.Errorf("output should indicate hash match, got stdout: %q, stderr: %q", buf.String(), errBuf.String())
	}
	if !strings.Contains(output, expectedHash) {
		t.Errorf("output should contain the hash, got stdout: %q, stderr: %q", buf.String(), errBuf.String())
	}
}

func TestCalcCmd_MismatchingHash(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "test.txt"), []byte("test content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	wrongHash := "0000000000000000000000000000000000000000000000000000000000000000"

	var buf, errBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"calc", tmpDir, wrongHash})

	if err := rootCmd.Execute(); err == nil {
		t.Error("rootCmd.Execute() expected error for mismatching hash")
	}

	output := buf.String() + errBuf.String()
	if !strings.Contains(output, "Hash mismatch!") {
		t.Errorf("output should indicate hash mismatch, got stdout: %q, stderr: %q", buf.String(), errBuf.String())
	}
}

func TestCalcCmd_NonexistentPath(t *testing.T) {
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"calc", "/nonexistent/path/that/does/not/exist", "0000000000000000000000000000000000000000000000000000000000000000"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("rootCmd.Execute() expected error for nonexistent path")
	}
}

func TestCalcCmd_InvalidArgs(t *testing.T) {
	if calcCmd.Args == nil {
		t.Fatal("calcCmd should have Args validator set")
	}
	if err := calcCmd.Args(calcCmd, []string{}); err == nil {
		t.Error("calcCmd.Args() expected error for no args")
	}
	if err := calcCmd.Args(calcCmd, []string{"arg1"}); err == nil {
		t.Error("calcCmd.Args() expected error for one arg")
	}
	if err := calcCmd.Args(calcCmd, []string{"arg1", "arg2", "arg3"}); err == nil {
		t.Error("calcCmd.Args() expected error for too many args")
	}
	if err := calcCmd.Args(calcCmd, []string{"path", "hash"}); err != nil {
		t.Errorf("calcCmd.Args() unexpected error for valid args: %v", err)
	}
}

func TestCalcCmd_WithAlgorithmFlag(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "keep.txt"), []byte("keep"), 0644); err != nil {
		t.Fatalf("Failed to create keep.txt: %v", err)
	}

	f, err := hashfn.New(hashfn.SHA256)
	if err != nil {
		t.Fatalf("hashfn.New: %v", err)
	}
	hashStore := memory.New(time.Now().Unix)
	engine := merkle.NewEngine(tmpDir, f, hashStore, nil, logger.Logger())
	expectedHash, err := engine.ComputeMerkleTree(context.Background(), tmpDir, model.NewSessionID())
	if err != nil {
		t.Fatalf("ComputeMerkleTree: %v", err)
	}

	var buf, errBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"calc", "-a", "sha256", tmpDir, expectedHash})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() with algorithm flag error = %v, stderr: %s", err, errBuf.String())
	}

	output := buf.String()
	if !strings.Contains(output, "Hash matches:") {
		t.Errorf("output should indicate hash match, got stdout: %q, stderr: %q", buf.String(), errBuf.String())
	}
}
