package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestConfirmModelKeys(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		key           tea.KeyMsg
		wantConfirmed bool
		wantCancelled bool
	}{
		{name: "yes", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")}, wantConfirmed: true},
		{name: "no", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")}},
		{name: "enter defaults to no", key: tea.KeyMsg{Type: tea.KeyEnter}},
		{name: "esc cancels", key: tea.KeyMsg{Type: tea.KeyEsc}, wantCancelled: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := &confirmModel{question: "wipe?"}
			_, cmd := m.Update(tc.key)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if m.confirmed != tc.wantConfirmed {
				t.Fatalf("confirmed = %v, want %v", m.confirmed, tc.wantConfirmed)
			}
			if m.cancelled != tc.wantCancelled {
				t.Fatalf("cancelled = %v, want %v", m.cancelled, tc.wantCancelled)
			}
			if m.View() != "" {
				t.Fatalf("View() after answer = %q, want empty", m.View())
			}
		})
	}
}

func TestConfirmModelIgnoresOtherKeys(t *testing.T) {
	t.Parallel()

	m := &confirmModel{question: "wipe?"}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd != nil {
		t.Fatal("unexpected command for unrelated key")
	}
	if m.answered || m.cancelled {
		t.Fatal("unrelated key must not answer the prompt")
	}
}
