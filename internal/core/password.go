package core

import (
	"fmt"
	"os"

	"github.com/illarion/ledgerkey/internal/crypto"
	"github.com/illarion/ledgerkey/internal/errs"
	"github.com/nbutton23/zxcvbn-go"
	"golang.org/x/term"
)

// PasswordEnv names the environment variable consulted before prompting
const PasswordEnv = "LEDGERKEY_PASSWORD"

// ttyPath is opened for prompts when stdin carries data instead of a terminal
var ttyPath = "/dev/tty"

// passwordInput returns the file a password prompt should read from
func passwordInput() (*os.File, func(), error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return os.Stdin, func() {}, nil
	}
	tty, err := os.Open(ttyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("stdin is not a terminal and %s is unavailable, set %s: %w", ttyPath, PasswordEnv, err)
	}
	return tty, func() { tty.Close() }, nil
}

// ReadPassword reads a password from the terminal without echoing.
// When stdin is redirected the controlling terminal is used instead.
func ReadPassword(prompt string) ([]byte, error) {
	in, done, err := passwordInput()
	if err != nil {
		return nil, err
	}
	defer done()

	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm(prompt string) ([]byte, error) {
	password1, err := ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := ReadPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, fmt.Errorf("passwords do not match")
	}

	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// GetPasswordFromEnv reads password from the LEDGERKEY_PASSWORD environment variable
func GetPasswordFromEnv() []byte {
	password := os.Getenv(PasswordEnv)
	if password == "" {
		return nil
	}
	result := make([]byte, len(password))
	copy(result, password)
	return result
}

// WeakScore is the zxcvbn score below which a password is reported as weak
const WeakScore = 3

// PasswordStrength describes a zxcvbn estimate for a password
type PasswordStrength struct {
	Score     int
	CrackTime string
}

// Weak reports whether the password scores below WeakScore
func (s PasswordStrength) Weak() bool {
	return s.Score < WeakScore
}

// EstimateStrength scores password with zxcvbn. userInputs are words the
// estimate treats as guessable, such as the store path.
func EstimateStrength(password []byte, userInputs ...string) PasswordStrength {
	match := zxcvbn.PasswordStrength(string(password), userInputs)
	return PasswordStrength{
		Score:     match.Score,
		CrackTime: match.CrackTimeDisplay,
	}
}

// CheckStrength rejects passwords scoring below minScore. A zero minScore
// accepts everything.
func CheckStrength(password []byte, minScore int, userInputs ...string) (PasswordStrength, error) {
	strength := EstimateStrength(password, userInputs...)
	if minScore > 0 && strength.Score < minScore {
		return strength, fmt.Errorf("%w: password strength %d/4 is below the required %d/4", errs.ErrInvalidArgument, strength.Score, minScore)
	}
	return strength, nil
}
