package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/illarion/ledgerkey/internal/config"
	"github.com/illarion/ledgerkey/internal/core"
	"github.com/illarion/ledgerkey/internal/crypto"
	"github.com/illarion/ledgerkey/internal/errs"
	"github.com/illarion/ledgerkey/internal/keyring"
	"github.com/illarion/ledgerkey/internal/metrics"
	"github.com/illarion/ledgerkey/internal/security"
)

// PasswordSource tells where a password came from
type PasswordSource int

const (
	SourceEnv PasswordSource = iota
	SourceKeyring
	SourcePrompt
)

type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Recorder
	command string
	started time.Time
}

var rt = runtime{
	cfg:     config.Default(),
	logger:  slog.Default(),
	metrics: metrics.New(),
}

// Setup installs the configuration, logger and metrics used by commands
func Setup(command string, cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) {
	rt = runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: recorder,
		command: command,
		started: time.Now(),
	}
}

// Finish records the command result and writes the metrics file if configured
func Finish(err error) {
	if rt.command == "" {
		return
	}
	rt.metrics.Observe(rt.command, rt.started, err)
	if werr := rt.metrics.WriteFile(rt.cfg.MetricsFile); werr != nil {
		rt.logger.Warn("failed to write metrics", "file", rt.cfg.MetricsFile, "error", werr)
	}
}

func openStore() *core.KeyStore {
	return core.New(rt.cfg.Store,
		core.WithMaxIterations(rt.cfg.MaxIterations),
		core.WithLogger(rt.logger),
	)
}

func openWorkdir() *security.Workdir {
	w, err := security.Open(".")
	if err != nil {
		HandleError(err)
	}
	return w
}

// GetPassword retrieves password from environment or prompts user.
// The caller is responsible for calling crypto.ClearBytes on the returned password.
func GetPassword(prompt string) ([]byte, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}
	return core.ReadPassword(prompt)
}

// GetPasswordForInit retrieves password for init command.
// Checks environment variable first, then prompts with confirmation.
func GetPasswordForInit() ([]byte, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}
	return core.ReadPasswordConfirm("Enter password: ")
}

// GetPasswordWithRetry tries the environment, then the OS keyring, then a
// prompt. A keyring password that no longer verifies is dropped and the
// user is prompted instead.
func GetPasswordWithRetry(prompt string, storeID string, verify func([]byte) error) ([]byte, PasswordSource, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, SourceEnv, verify(password)
	}

	if storeID != "" {
		if password, err := keyring.GetPassword(storeID); err == nil {
			verr := verify(password)
			if verr == nil {
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(verr, core.ErrWrongPassword) {
				return nil, SourceKeyring, verr
			}
			fmt.Fprintln(os.Stderr, "warning: password in keyring is stale, removing it")
			_ = keyring.DeletePassword(storeID)
		}
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, SourcePrompt, err
	}
	if err := verify(password); err != nil {
		crypto.ClearBytes(password)
		return nil, SourcePrompt, err
	}
	return password, SourcePrompt, nil
}

// OfferToSavePassword asks whether a prompted password should go to the keyring
func OfferToSavePassword(storeID string, password []byte) {
	if storeID == "" || keyring.HasPassword(storeID) {
		return
	}
	if !Confirm("Save password to OS keyring?") {
		return
	}
	if err := keyring.SavePassword(storeID, password); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Println("Password saved to keyring")
}

// Confirm asks a yes/no question on stderr and reads the answer from stdin
func Confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// unlockStore verifies a password for ks, trying env, keyring and prompt
func unlockStore(ctx context.Context, ks *core.KeyStore, prompt string) ([]byte, PasswordSource) {
	storeID, err := ks.GetStoreID()
	if errors.Is(err, core.ErrNotInitialized) {
		HandleError(err)
	}
	password, source, err := GetPasswordWithRetry(prompt, storeID, func(p []byte) error {
		return ks.VerifyPassword(ctx, p)
	})
	if err != nil {
		HandleError(err)
	}
	return password, source
}

// checkNewPassword enforces the configured minimum strength and warns about weak passwords
func checkNewPassword(password []byte) {
	strength, err := core.CheckStrength(password, rt.cfg.MinPasswordScore, rt.cfg.Store, "ledgerkey")
	if err != nil {
		HandleError(err)
	}
	if strength.Weak() {
		fmt.Fprintf(os.Stderr, "warning: weak password (score %d/4, crack time %s)\n", strength.Score, strength.CrackTime)
	}
}

// HandleError reports err, records the failure and exits
func HandleError(err error) {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: ledgerkey store not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'ledgerkey init' first\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: %s already exists\n", rt.cfg.Store)
		fmt.Fprintf(os.Stderr, "Use 'ledgerkey status' to see current state\n")
	case errors.Is(err, core.ErrWrongPassword):
		fmt.Fprintf(os.Stderr, "Error: wrong password\n")
	case errors.Is(err, errs.ErrIntegrity):
		fmt.Fprintf(os.Stderr, "Error: envelope failed integrity check (wrong password or tampered data)\n")
	case errors.Is(err, security.ErrFileExists):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use --force to overwrite\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	rt.logger.Debug("command failed", "command", rt.command, "error", err)
	Finish(err)
	os.Exit(1)
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
