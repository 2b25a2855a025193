package local

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

func TestVolumesAreIdentity(t *testing.T) {
	dir := t.TempDir()
	up := domain.UploadRoot{LocalRootPath: dir}
	down := domain.DownloadRoot{LocalRootPath: dir}
	env, err := NewEnvironment(domain.Request{
		UploadVolumes:   []domain.UploadRoot{up},
		DownloadVolumes: []domain.DownloadRoot{down},
	}, nil)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	v := env.UploadVolumes()[up]
	if v == nil || v.TargetRoot() != dir {
		t.Fatalf("upload volume %v", v)
	}
	got, err := v.ResolveTargetPath("a/b")
	if err != nil || got != filepath.Join(dir, "a", "b") {
		t.Fatalf("ResolveTargetPath = %q, %v", got, err)
	}
	if env.DownloadVolumes()[down] == nil {
		t.Fatalf("missing download volume")
	}
	if env.TargetPlatform() != domain.CurrentPlatform() {
		t.Fatalf("local platform should be the host platform")
	}
}

func TestRemapRejected(t *testing.T) {
	_, err := NewEnvironment(domain.Request{
		LocalPortBindings: []domain.LocalPortBinding{{Local: 5000, Target: 5001}},
	}, nil)
	if !errors.Is(err, domain.ErrUnsupportedBinding) {
		t.Fatalf("expected ErrUnsupportedBinding, got %v", err)
	}
}

func TestCreateProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	env, err := NewEnvironment(domain.Request{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	proc, err := env.CreateProcess(context.Background(), domain.TargetedCommandLine{
		Command:          []string{"sh", "-c", "pwd; echo $NAME"},
		WorkingDirectory: dir,
		Env:              map[string]string{"NAME": "bridge"},
		Stdout:           &out,
	}, ports.NopProgress{})
	if err != nil {
		t.Fatalf("CreateProcess: %v", err)
	}
	if code, err := proc.Wait(); err != nil || code != 0 {
		t.Fatalf("Wait = %d, %v", code, err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || lines[1] != "bridge" {
		t.Fatalf("output %q", out.String())
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	if lines[0] != dir && lines[0] != resolved {
		t.Fatalf("pwd %q, want %q", lines[0], dir)
	}
}
