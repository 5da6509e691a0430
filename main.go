package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/illarion/ledgerkey/cmd"
	"github.com/illarion/ledgerkey/internal/config"
	"github.com/illarion/ledgerkey/internal/logging"
	"github.com/illarion/ledgerkey/internal/metrics"
	"github.com/illarion/ledgerkey/internal/proofs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	global := flag.NewFlagSet("ledgerkey", flag.ExitOnError)
	configPath := global.String("config", "", "Path to ledgerkey.yaml")
	global.Usage = printUsage
	if err := global.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	args := global.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	command, rest := args[0], args[1:]
	cmd.Setup(command, cfg, logger, metrics.New())

	switch command {
	case "init":
		runInit(ctx, rest)
	case "wrap":
		runWrap(ctx, rest)
	case "unwrap":
		runUnwrap(ctx, rest)
	case "ls", "status":
		runStatus(ctx, rest)
	case "rm":
		runRm(ctx, rest)
	case "passwd":
		runPasswd(ctx, rest)
	case "export":
		runExport(ctx, rest)
	case "import":
		runImport(ctx, rest)
	case "compact":
		runCompact(ctx, rest)
	case "keyring":
		runKeyring(ctx, rest)
	case "sign":
		runSign(ctx, rest)
	case "verify":
		runVerify(ctx, rest)
	case "pubkey":
		runPubkey(ctx, rest)
	case "pow-params":
		runPowParams(ctx, rest)
	case "completion":
		runCompletion(ctx, rest)
	case "help", "-h", "--help":
		if len(rest) == 0 {
			printUsage()
			return
		}
		printCommandHelp(rest[0])
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	cmd.Finish(nil)
}

// parseArgs parses flags that may appear before, between or after positional arguments
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func requireArgs(command string, args []string, n int, usage string) {
	if len(args) != n {
		fmt.Fprintf(os.Stderr, "Error: %s expects %d argument(s)\n", command, n)
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
}

func runInit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.Init(ctx)
}

func runWrap(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("wrap", flag.ExitOnError)
	generate := fs.Int("generate", 0, "Generate a random key of N bytes")
	in := fs.String("in", "", "Read the raw key from a file")
	mnemonic := fs.Bool("mnemonic", false, "Read the key as BIP-39 words from stdin")
	force := fs.Bool("force", false, "Replace an existing key")
	rest := parseArgs(fs, args)
	requireArgs("wrap", rest, 1, "ledgerkey wrap <name> [--generate N | --in file | --mnemonic] [--force]")

	cmd.Wrap(ctx, rest[0], cmd.WrapOptions{
		Generate: *generate,
		In:       *in,
		Mnemonic: *mnemonic,
		Force:    *force,
	})
}

func runUnwrap(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("unwrap", flag.ExitOnError)
	out := fs.String("out", "", "Write the raw key to a file")
	mnemonic := fs.Bool("mnemonic", false, "Print the key as BIP-39 words")
	force := fs.Bool("force", false, "Overwrite the output file")
	rest := parseArgs(fs, args)
	requireArgs("unwrap", rest, 1, "ledgerkey unwrap <name> [--out file | --mnemonic] [--force]")

	cmd.Unwrap(ctx, rest[0], cmd.UnwrapOptions{
		Out:      *out,
		Mnemonic: *mnemonic,
		Force:    *force,
	})
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.Status(ctx)
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	rest := parseArgs(fs, args)

	cmd.Remove(ctx, rest)
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.Passwd(ctx)
}

func runExport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "Write the envelope to a file")
	force := fs.Bool("force", false, "Overwrite the output file")
	rest := parseArgs(fs, args)
	requireArgs("export", rest, 1, "ledgerkey export <name> [--out file] [--force]")

	cmd.Export(ctx, rest[0], *out, *force)
}

func runImport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	askPassword := fs.Bool("ask-password", false, "Prompt for the envelope password")
	rest := parseArgs(fs, args)
	requireArgs("import", rest, 2, "ledgerkey import <name> <file> [--ask-password]")

	cmd.Import(ctx, rest[0], rest[1], *askPassword)
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.Compact(ctx)
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: ledgerkey keyring <save|delete|status>")
		os.Exit(1)
	}
	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx)
	case "delete":
		cmd.KeyringDelete()
	case "status":
		cmd.KeyringStatus()
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		os.Exit(1)
	}
}

func runSign(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	opts := cmd.SignOptions{}
	fs.StringVar(&opts.In, "in", "", "Operation document (JSON)")
	fs.StringVar(&opts.Out, "out", "", "Write the signed document to a file")
	fs.StringVar(&opts.Key, "key", "", "Stored Ed25519 seed to sign with")
	fs.StringVar(&opts.Creator, "creator", "", "Proof creator (default: did:v1:nym derived from the key)")
	fs.StringVar(&opts.ProofPurpose, "purpose", "capabilityInvocation", "Proof purpose")
	fs.StringVar(&opts.Capability, "capability", "", "Capability the proof invokes")
	fs.StringVar(&opts.CapabilityAction, "action", "", "Capability action")
	fs.BoolVar(&opts.Diff, "diff", false, "Show what the proof adds to the document")
	fs.BoolVar(&opts.Force, "force", false, "Overwrite the output file")
	parseArgs(fs, args)

	cmd.Sign(ctx, opts)
}

func runVerify(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	in := fs.String("in", "", "Signed document (JSON)")
	key := fs.String("key", "", "Stored Ed25519 seed whose public key to check")
	publicKey := fs.String("public-key", "", "Base58 Ed25519 public key")
	parseArgs(fs, args)

	cmd.Verify(ctx, *in, *key, *publicKey)
}

func runPubkey(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("pubkey", flag.ExitOnError)
	rest := parseArgs(fs, args)
	requireArgs("pubkey", rest, 1, "ledgerkey pubkey <name>")

	cmd.PublicKey(ctx, rest[0])
}

func runPowParams(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("pow-params", flag.ExitOnError)
	mode := fs.String("mode", "", "Ledger mode: "+strings.Join(proofs.Modes(), ", "))
	n := fs.String("n", "", "Explicit Equihash N")
	k := fs.String("k", "", "Explicit Equihash K")
	options := fs.String("options", "", "JSON file with proof-of-work options")
	parseArgs(fs, args)

	cmd.PowParams(ctx, *options, *mode, *n, *k)
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: ledgerkey completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("ledgerkey - password-wrapped keys and ledger operation proofs")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ledgerkey [--config file] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a .ledgerkey store in current directory")
	fmt.Println("  wrap        Wrap a key under the store password")
	fmt.Println("  unwrap      Recover a wrapped key")
	fmt.Println("  ls, status  List stored keys")
	fmt.Println("  rm          Remove keys from the store")
	fmt.Println("  passwd      Change the store password")
	fmt.Println("  export      Print a key envelope as JSON")
	fmt.Println("  import      Import a key envelope")
	fmt.Println("  compact     Compact the store to reclaim disk space")
	fmt.Println("  keyring     Manage password in OS keyring")
	fmt.Println("  sign        Attach a signature proof to an operation")
	fmt.Println("  verify      Verify the signature proofs of a document")
	fmt.Println("  pubkey      Show the public key of a stored Ed25519 seed")
	fmt.Println("  pow-params  Show the proof-of-work parameters in use")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ledgerkey init                          # Create new store")
	fmt.Println("  ledgerkey wrap signer --generate 32     # Generate and wrap a key")
	fmt.Println("  ledgerkey sign --in op.json --key signer")
	fmt.Println()
	fmt.Println("Use 'ledgerkey help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("ledgerkey init")
		fmt.Println()
		fmt.Println("Creates a .ledgerkey store (or the store named by the configuration).")
		fmt.Println("Prompts for a password that wraps every key in the store.")
		fmt.Println("The password is not stored anywhere - you must remember it.")
		fmt.Println("LEDGERKEY_PASSWORD is used instead of prompting when set.")
	case "wrap":
		fmt.Println("ledgerkey wrap <name> [--generate N | --in file | --mnemonic] [--force]")
		fmt.Println()
		fmt.Println("Wraps a key with PBES2-HS512+A256KW and stores the envelope as <name>.")
		fmt.Println("Keys must be at least 16 bytes and a multiple of 8 bytes.")
		fmt.Println("Without --generate or --in, the key is read from stdin as hex.")
		fmt.Println("When stdin is piped the password prompt reads from the terminal;")
		fmt.Println("without one, set LEDGERKEY_PASSWORD or save the password to the keyring.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --generate N   Generate a random N-byte key")
		fmt.Println("  --in file      Read the raw key bytes from a file")
		fmt.Println("  --mnemonic     Read the key as BIP-39 words from stdin")
		fmt.Println("  --force        Replace an existing key of the same name")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  ledgerkey wrap signer --generate 32")
		fmt.Println("  echo 000102...1f | ledgerkey wrap imported")
	case "unwrap":
		fmt.Println("ledgerkey unwrap <name> [--out file | --mnemonic] [--force]")
		fmt.Println()
		fmt.Println("Recovers a key and prints it as hex.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --out file     Write the raw key to a file inside the working directory")
		fmt.Println("  --mnemonic     Print the key as BIP-39 words")
		fmt.Println("  --force        Overwrite the output file")
	case "ls", "status":
		fmt.Println("ledgerkey status")
		fmt.Println()
		fmt.Println("Lists stored keys with size, fingerprint and iteration count,")
		fmt.Println("keyring state and git integration. Does not require a password.")
	case "rm":
		fmt.Println("ledgerkey rm <name> [name...]")
		fmt.Println()
		fmt.Println("Removes keys from the store and compacts it.")
	case "passwd":
		fmt.Println("ledgerkey passwd")
		fmt.Println()
		fmt.Println("Changes the store password.")
		fmt.Println("Rewraps every key under the new password in one transaction.")
	case "export":
		fmt.Println("ledgerkey export <name> [--out file] [--force]")
		fmt.Println()
		fmt.Println("Prints the JSON envelope of a key. Does not require a password.")
	case "import":
		fmt.Println("ledgerkey import <name> <file> [--ask-password]")
		fmt.Println()
		fmt.Println("Validates a JSON envelope, unwraps it and stores the key under the")
		fmt.Println("store password. With --ask-password the envelope's own password is")
		fmt.Println("prompted for; otherwise the store password must open it.")
	case "compact":
		fmt.Println("ledgerkey compact")
		fmt.Println()
		fmt.Println("Compacts the store file to reclaim unused disk space.")
		fmt.Println("This is done automatically after 'rm' and 'passwd'.")
	case "keyring":
		fmt.Println("ledgerkey keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Remembers the store password in the OS keyring.")
	case "sign":
		fmt.Println("ledgerkey sign --in op.json --key name [--out file] [--diff] [flags]")
		fmt.Println()
		fmt.Println("Attaches an Ed25519Signature2018 proof to an operation document using")
		fmt.Println("an Ed25519 seed from the store.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --creator      Proof creator (default derived from the key)")
		fmt.Println("  --purpose      Proof purpose (default capabilityInvocation)")
		fmt.Println("  --capability   Capability the proof invokes")
		fmt.Println("  --action       Capability action")
		fmt.Println("  --diff         Show what the proof adds")
	case "verify":
		fmt.Println("ledgerkey verify --in signed.json (--key name | --public-key base58)")
		fmt.Println()
		fmt.Println("Checks that a document carries a valid signature proof.")
	case "pubkey":
		fmt.Println("ledgerkey pubkey <name>")
		fmt.Println()
		fmt.Println("Prints the base58 public key and default creator of a stored seed.")
	case "pow-params":
		fmt.Printf("ledgerkey pow-params [--mode %s] [--n N --k K] [--options file]\n", strings.Join(proofs.Modes(), "|"))
		fmt.Println()
		fmt.Println("Shows the Equihash parameters a proof-of-work request would use.")
		fmt.Println("Non-zero --n and --k together win over --mode; otherwise the mode decides.")
	case "completion":
		fmt.Println("ledgerkey completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(ledgerkey completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(ledgerkey completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  ledgerkey completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
