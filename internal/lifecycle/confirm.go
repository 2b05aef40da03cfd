package lifecycle

import (
	"fmt"

	"pgd/internal/instance"
)

// Confirmation authorizes a destructive intent. The zero value grants
// nothing.
type Confirmation struct {
	granted bool
	ask     func(question string) (bool, error)
}

// Confirmed returns a token that authorizes without asking.
func Confirmed() Confirmation {
	return Confirmation{granted: true}
}

// Ask returns a token that authorizes only if fn answers yes. fn runs after
// the target is known to exist, so nobody is prompted about a missing
// container.
func Ask(fn func(question string) (bool, error)) Confirmation {
	return Confirmation{ask: fn}
}

func (c Confirmation) Granted() bool { return c.granted }

func (c Confirmation) resolve(question string) error {
	if c.granted {
		return nil
	}
	if c.ask == nil {
		return instance.ErrConfirmationRequired
	}
	ok, err := c.ask(question)
	if err != nil {
		return fmt.Errorf("ask for confirmation: %w", err)
	}
	if !ok {
		return instance.ErrDeclined
	}
	return nil
}
