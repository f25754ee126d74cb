package host

import (
	"bufio"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// NewTermPorts returns Ports backed by the given reader and writer, with the
// real clock and real crypto primitives. It is what the terminal front end
// uses.
func NewTermPorts(in io.Reader, out io.Writer) Ports {
	r := bufio.NewReader(in)
	return Ports{
		Output:      termOutput{out},
		Prompt:      &termPrompt{r, out},
		Clock:       realClock{},
		Crypto:      realCrypto{},
		AppLauncher: nopLauncher{},
	}
}

type termOutput struct{ w io.Writer }

func (t termOutput) Append(text string) { fmt.Fprintln(t.w, text) }

type termPrompt struct {
	r *bufio.Reader
	w io.Writer
}

func (t *termPrompt) Input(message string, obscured bool) (string, error) {
	fmt.Fprint(t.w, message)
	line, err := t.r.ReadString('\n')
	if err != nil {
		return "", ErrPromptCancelled
	}
	if obscured {
		// Nothing to do about echo on a plain pipe; the terminal front end
		// is expected to disable it when the input is a tty.
		fmt.Fprintln(t.w)
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

func (t *termPrompt) Confirm(message string) (bool, error) {
	answer, err := t.Input(message+" (y/n) ", false)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type realCrypto struct{}

func (realCrypto) SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (realCrypto) RandomBytes(n int) []byte {
	bs := make([]byte, n)
	if _, err := rand.Read(bs); err != nil {
		panic(err)
	}
	return bs
}

type nopLauncher struct{}

func (nopLauncher) Has(string) bool                  { return false }
func (nopLauncher) Show(string, map[string]any) error { return nil }
