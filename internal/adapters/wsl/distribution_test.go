package wsl

import (
	"strings"
	"testing"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
)

func TestGuestPath(t *testing.T) {
	d := NewDistribution("Ubuntu", "", "")
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{`C:\Users\me\proj`, "/mnt/c/Users/me/proj", true},
		{`d:/data/../logs`, "/mnt/d/logs", true},
		{`C:\`, "/mnt/c", true},
		{`\\wsl$\Ubuntu\etc`, "", false},
		{`relative\path`, "", false},
	}
	for _, tt := range tests {
		got, ok := d.GuestPath(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("GuestPath(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}

	custom := NewDistribution("Ubuntu", "", "/")
	if got, _ := custom.GuestPath(`E:\x`); got != "/e/x" {
		t.Errorf("custom mount root: got %q", got)
	}
}

func TestRewriteForGuest(t *testing.T) {
	t.Setenv("WSLENV", "")
	d := NewDistribution("Ubuntu", `C:\Windows\System32\wsl.exe`, "")
	out, err := d.RewriteForGuest(
		domain.CommandLine{Path: "make", Args: []string{"-j4"}, Dir: `C:\ignored`},
		nil,
		domain.LaunchOptions{RemoteWorkingDirectory: "/home/me/proj", Env: map[string]string{"B": "2", "A": "1"}},
	)
	if err != nil {
		t.Fatalf("RewriteForGuest: %v", err)
	}
	if out.Path != `C:\Windows\System32\wsl.exe` {
		t.Fatalf("path %q", out.Path)
	}
	want := "--distribution Ubuntu --cd /home/me/proj --exec make -j4"
	if got := strings.Join(out.Args, " "); got != want {
		t.Fatalf("args %q, want %q", got, want)
	}
	if out.Dir != "" {
		t.Fatalf("host dir should be cleared, got %q", out.Dir)
	}
	if last := out.Env[len(out.Env)-1]; last != "WSLENV=A:B" {
		t.Fatalf("WSLENV entry %q", last)
	}

	noDir, err := d.RewriteForGuest(domain.CommandLine{Path: "id"}, nil, domain.LaunchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(noDir.Args, " "); got != "--distribution Ubuntu --exec id" {
		t.Fatalf("args %q", got)
	}
	if noDir.Env != nil {
		t.Fatalf("env should stay nil without options, got %v", noDir.Env)
	}

	if _, err := d.RewriteForGuest(domain.CommandLine{}, nil, domain.LaunchOptions{}); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestRewriteForGuestKeepsHostWSLENV(t *testing.T) {
	t.Setenv("WSLENV", "USERPROFILE/p:A/u")
	d := NewDistribution("Ubuntu", "", "")

	base := make([]string, 1, 4)
	base[0] = "HOST=1"
	out, err := d.RewriteForGuest(domain.CommandLine{Path: "env", Env: base}, nil,
		domain.LaunchOptions{Env: map[string]string{"A": "1", "B": "2"}})
	if err != nil {
		t.Fatalf("RewriteForGuest: %v", err)
	}
	if last := out.Env[len(out.Env)-1]; last != "WSLENV=USERPROFILE/p:A/u:B" {
		t.Fatalf("WSLENV entry %q", last)
	}
	// The caller's spare capacity must not be written through.
	if spare := base[:cap(base)]; spare[1] != "" {
		t.Fatalf("caller env modified: %q", spare)
	}

	out, err = d.RewriteForGuest(domain.CommandLine{Path: "env", Env: []string{"WSLENV=FROM_LINE"}}, nil,
		domain.LaunchOptions{Env: map[string]string{"C": "3"}})
	if err != nil {
		t.Fatal(err)
	}
	if last := out.Env[len(out.Env)-1]; last != "WSLENV=FROM_LINE:C" {
		t.Fatalf("WSLENV entry %q", last)
	}
}
