package ui

import (
	"errors"
	"testing"
)

func TestEnvTruthyValues(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "one", value: "1", want: true},
		{name: "true", value: "true", want: true},
		{name: "yes upper", value: "YES", want: true},
		{name: "on padded", value: " on ", want: true},
		{name: "zero", value: "0", want: false},
		{name: "false", value: "false", want: false},
		{name: "empty", value: "", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PGD_TEST_TRUTHY", tc.value)
			if got := envTruthy("PGD_TEST_TRUTHY"); got != tc.want {
				t.Fatalf("envTruthy() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectInteractiveMode_Overrides(t *testing.T) {
	if detectInteractiveMode(true) {
		t.Fatal("explicit no-interaction must disable prompts")
	}

	t.Setenv(envNoInteraction, "1")
	if detectInteractiveMode(false) {
		t.Fatal("PGD_NO_INTERACTION must disable prompts")
	}

	t.Setenv(envNoInteraction, "")
	t.Setenv(envCI, "true")
	if detectInteractiveMode(false) {
		t.Fatal("CI must disable prompts")
	}

	t.Setenv(envCI, "")
	t.Setenv(envTerm, "dumb")
	if detectInteractiveMode(false) {
		t.Fatal("dumb terminal must disable prompts")
	}
}

func TestConfirm_NonInteractive(t *testing.T) {
	ConfigureInteraction(true)

	ok, err := Confirm("Destroy everything?", "use --confirm to skip")
	if ok {
		t.Fatal("Confirm() = true without a terminal")
	}
	var noInteraction *ErrNoInteraction
	if !errors.As(err, &noInteraction) {
		t.Fatalf("Confirm() error = %v, want *ErrNoInteraction", err)
	}
	if noInteraction.Hint != "use --confirm to skip" {
		t.Fatalf("hint = %q", noInteraction.Hint)
	}
}
