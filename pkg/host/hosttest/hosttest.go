// Package hosttest provides fake host ports for tests.
package hosttest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"src.oopis.sh/pkg/host"
)

// Output records appended lines. It is safe for concurrent use, since
// background jobs append from their own goroutines.
type Output struct {
	mu    sync.Mutex
	lines []string
}

func (o *Output) Append(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, text)
}

// Lines returns a copy of the recorded lines.
func (o *Output) Lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.lines...)
}

// String returns all recorded lines joined by newlines, with a trailing
// newline if there is at least one line.
func (o *Output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.lines) == 0 {
		return ""
	}
	return strings.Join(o.lines, "\n") + "\n"
}

// Prompt replays scripted answers. Each Input or Confirm call consumes one
// entry; running out of answers yields a cancellation.
type Prompt struct {
	Answers []string
}

func (p *Prompt) Input(message string, obscured bool) (string, error) {
	if len(p.Answers) == 0 {
		return "", host.ErrPromptCancelled
	}
	answer := p.Answers[0]
	p.Answers = p.Answers[1:]
	return answer, nil
}

func (p *Prompt) Confirm(message string) (bool, error) {
	answer, err := p.Input(message, false)
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "yes", nil
}

// Clock is a settable clock. The zero value starts at the Unix epoch.
type Clock struct {
	Time time.Time
}

func (c *Clock) Now() time.Time { return c.Time }

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) { c.Time = c.Time.Add(d) }

// Crypto uses real SHA-256 but deterministic "randomness", so that hashes in
// tests are stable.
type Crypto struct {
	counter byte
}

func (c *Crypto) SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (c *Crypto) RandomBytes(n int) []byte {
	bs := make([]byte, n)
	for i := range bs {
		bs[i] = c.counter
	}
	c.counter++
	return bs
}

// Launcher knows a fixed set of applications and records Show calls.
type Launcher struct {
	Apps  map[string]bool
	Shown []string
}

func (l *Launcher) Has(app string) bool { return l.Apps[app] }

func (l *Launcher) Show(app string, opts map[string]any) error {
	l.Shown = append(l.Shown, app)
	return nil
}

// Ports returns a Ports with all-fake implementations and returns the fakes
// for inspection.
func Ports(promptAnswers ...string) (host.Ports, *Output, *Prompt, *Clock) {
	out := &Output{}
	prompt := &Prompt{Answers: promptAnswers}
	clock := &Clock{Time: time.Unix(1136214245, 0).UTC()}
	return host.Ports{
		Output:      out,
		Prompt:      prompt,
		Clock:       clock,
		Crypto:      &Crypto{},
		AppLauncher: &Launcher{Apps: map[string]bool{}},
	}, out, prompt, clock
}
