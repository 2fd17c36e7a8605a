package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestStandaloneBinaryVersionAndHelpWorkOutsideRepo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary copy/exec test is unix-focused")
	}
	goModPathBytes, err := exec.Command("go", "env", "GOMOD").Output()
	if err != nil {
		t.Fatalf("go env GOMOD: %v", err)
	}
	goModPath := strings.TrimSpace(string(goModPathBytes))
	if goModPath == "" {
		t.Fatalf("go env GOMOD returned empty")
	}
	repoRoot := filepath.Dir(goModPath)

	buildDir := t.TempDir()
	binaryPath := filepath.Join(buildDir, "gatepace")

	build := exec.Command("go", "build", "-o", binaryPath, "./cmd/gatepace")
	build.Dir = repoRoot
	build.Env = os.Environ()
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("go build: %v\n%s", err, string(out))
	}

	outside := t.TempDir()
	copiedBinary := filepath.Join(outside, "gatepace")
	data, err := os.ReadFile(binaryPath)
	if err != nil {
		t.Fatalf("read built binary: %v", err)
	}
	if err := os.WriteFile(copiedBinary, data, 0755); err != nil {
		t.Fatalf("copy binary: %v", err)
	}

	version := exec.Command(copiedBinary, "version")
	version.Dir = outside
	out, err := version.CombinedOutput()
	if err != nil {
		t.Fatalf("version outside repo: %v\n%s", err, string(out))
	}
	if !strings.Contains(string(out), "gatepace") {
		t.Fatalf("unexpected version output: %s", string(out))
	}

	help := exec.Command(copiedBinary, "--help")
	help.Dir = outside
	out, err = help.CombinedOutput()
	if err != nil {
		t.Fatalf("help outside repo: %v\n%s", err, string(out))
	}
	if !strings.Contains(string(out), "query") || !strings.Contains(string(out), "serve") {
		t.Fatalf("help output missing subcommands: %s", string(out))
	}
}
