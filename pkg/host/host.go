// Package host defines the ports through which the core talks to its host
// environment. The core never renders UI or touches real devices directly;
// everything user-visible or platform-specific goes through one of these
// interfaces.
package host

import "time"

// Output is the user-visible text sink.
type Output interface {
	// Append writes a line of text to the sink. The text does not include a
	// trailing newline.
	Append(text string)
}

// promptCancelled is the error type behind ErrPromptCancelled.
type promptCancelled struct{}

func (promptCancelled) Error() string { return "prompt cancelled" }

// ErrPromptCancelled is returned by Prompt methods when the user dismisses
// the prompt instead of answering it.
var ErrPromptCancelled error = promptCancelled{}

// Prompt requests interactive input from the user.
type Prompt interface {
	// Input asks the user for a line of text. When obscured is true the input
	// must not be echoed (password entry).
	Input(message string, obscured bool) (string, error)
	// Confirm asks the user a yes/no question.
	Confirm(message string) (bool, error)
}

// Clock tells the current time.
type Clock interface {
	Now() time.Time
}

// Crypto provides the hashing and randomness primitives used by the
// credential store and the backup checksum.
type Crypto interface {
	// SHA256 returns the lowercase hex digest of the input.
	SHA256(data []byte) string
	RandomBytes(n int) []byte
}

// AppLauncher opens graphical applications. The core only verifies that the
// requested application is known; rendering is entirely the host's business.
type AppLauncher interface {
	// Has reports whether the named application module is available.
	Has(app string) bool
	// Show requests that the named application be opened. Fire and forget.
	Show(app string, opts map[string]any) error
}

// Ports bundles all host services. It is constructed once at session start
// and never mutated afterwards.
type Ports struct {
	Output      Output
	Prompt      Prompt
	Clock       Clock
	Crypto      Crypto
	AppLauncher AppLauncher
}
