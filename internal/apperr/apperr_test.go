package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError_MatchesSentinel(t *testing.T) {
	err := Configf("max rows must be greater than zero, got %d", 0)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected errors.Is(err, ErrConfig)")
	}
	if !IsConfig(fmt.Errorf("cluster: %w", err)) {
		t.Fatalf("expected wrapped config error to match")
	}
	if err.Error() != "max rows must be greater than zero, got 0" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsConfig_OtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "plain", err: errors.New("boom")},
		{name: "user", err: User("bad flag")},
		{name: "no resources", err: ErrNoResources},
		{name: "nil", err: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsConfig(tt.err) {
				t.Fatalf("IsConfig(%v) = true, want false", tt.err)
			}
		})
	}
}

func TestIsUser(t *testing.T) {
	if !IsUser(fmt.Errorf("wrap: %w", Userf("missing --%s", "settings"))) {
		t.Fatalf("expected wrapped user error to match")
	}
	if IsUser(Config("x")) {
		t.Fatalf("config error must not be a user error")
	}
}
