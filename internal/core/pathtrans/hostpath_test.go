package pathtrans

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`C:\Users\me\proj`, `C:\Users\me\proj`},
		{`c:/Users/me/./proj/`, `C:\Users\me\proj`},
		{`C:\a\..\..\b`, `C:\b`},
		{`C:`, `C:\`},
		{`\\wsl$\Ubuntu`, `\\wsl$\Ubuntu`},
		{`\\wsl$\Ubuntu\`, `\\wsl$\Ubuntu`},
		{`//wsl$/Ubuntu/etc/../hosts`, `\\wsl$\Ubuntu\hosts`},
		{`\\wsl$\Ubuntu\..\..`, `\\wsl$\Ubuntu`},
		{`a/./b//c`, `a\b\c`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Canonicalize(tt.in); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join(`C:\proj`, "src/main.go"); got != `C:\proj\src\main.go` {
		t.Fatalf("got %q", got)
	}
	if got := Join(`\\wsl$\Ubuntu`, `home\me`); got != `\\wsl$\Ubuntu\home\me` {
		t.Fatalf("got %q", got)
	}
	if got := Join(`C:\proj`, ""); got != `C:\proj` {
		t.Fatalf("got %q", got)
	}
}

func TestIsAbs(t *testing.T) {
	for _, p := range []string{`C:\x`, `c:/x`, `\\wsl$\Ubuntu`, `/home`} {
		if !IsAbs(p) {
			t.Errorf("IsAbs(%q) = false", p)
		}
	}
	for _, p := range []string{`C:x`, `x\y`, "", "C:"} {
		if IsAbs(p) {
			t.Errorf("IsAbs(%q) = true", p)
		}
	}
}

func TestHasVolume(t *testing.T) {
	for p, want := range map[string]bool{
		`C:\x`:          true,
		`\\wsl$\Ubuntu`: true,
		`//server/s`:    true,
		`/home/me`:      false,
		`rel`:           false,
	} {
		if got := HasVolume(p); got != want {
			t.Errorf("HasVolume(%q) = %v, want %v", p, got, want)
		}
	}
}
