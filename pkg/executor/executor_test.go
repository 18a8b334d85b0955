package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		executable string
		want       bool
	}{
		{"apt-get", true},
		{"apt-cache", true},
		{"dpkg-query", true},
		{"brew", true},
		{"pacman", true},
		{"winget", true},
		{"nix", true},
		{"sudo", true},
		{"bash", false},
		{"sh", false},
		{"rm", false},
		{"", false},
		{"/usr/bin/apt-get", false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.executable); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.executable, got, tt.want)
		}
	}
}

func TestRunDeniesUnlistedExecutable(t *testing.T) {
	local := NewLocal()
	_, err := local.Run(context.Background(), Command{
		Executable: "bash",
		Args:       []string{"-c", "true"},
	})
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("err = %v, want ErrDenied", err)
	}
}

func TestRunDeniesInvalidArgs(t *testing.T) {
	local := NewLocal()

	tests := []struct {
		name string
		args []string
	}{
		{"newline", []string{"install", "pkg\nrm -rf /"}},
		{"null byte", []string{"install", "pkg\x00"}},
		{"empty arg", []string{""}},
		{"too long", []string{strings.Repeat("a", 513)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := local.Run(context.Background(), Command{
				Executable: "apt-get",
				Args:       tt.args,
			})
			if !errors.Is(err, ErrDenied) {
				t.Fatalf("err = %v, want ErrDenied", err)
			}
		})
	}
}

func TestValidateArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"plain", []string{"install", "-y", "ripgrep"}, false},
		{"version pin", []string{"install", "nginx=1.24.0-1"}, false},
		{"no args", nil, false},
		{"max length", []string{strings.Repeat("a", 512)}, false},
		{"over max length", []string{strings.Repeat("a", 513)}, true},
		{"empty", []string{"ok", ""}, true},
		{"tab", []string{"a\tb"}, true},
		{"carriage return", []string{"a\rb"}, true},
		{"delete char", []string{"a\x7fb"}, true},
		{"unicode ok", []string{"café"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArgs(%q) err = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}
