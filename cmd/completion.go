package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_ledgerkey() {
    local cur prev words cword
    _init_completion || return

    local commands="init wrap unwrap ls status rm passwd export import compact keyring sign verify pubkey pow-params help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    local keys
    case "$cmd" in
        wrap)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--generate --in --mnemonic --force" -- "$cur"))
            elif [[ "$prev" == "--in" ]]; then
                _filedir
            fi
            ;;
        unwrap|export|rm|pubkey)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--out --mnemonic --force" -- "$cur"))
            elif [[ "$prev" == "--out" ]]; then
                _filedir
            else
                keys=$(ledgerkey ls 2>/dev/null | awk 'f && NF {print $1} /NAME/ {f=1}')
                COMPREPLY=($(compgen -W "$keys" -- "$cur"))
            fi
            ;;
        import)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--ask-password" -- "$cur"))
            else
                _filedir
            fi
            ;;
        sign|verify)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--in --out --key --public-key --creator --purpose --capability --action --diff --force" -- "$cur"))
            else
                _filedir
            fi
            ;;
        pow-params)
            COMPREPLY=($(compgen -W "--mode --n --k --options dev test live" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _ledgerkey ledgerkey
`

const zshCompletion = `#compdef ledgerkey

_ledgerkey() {
    local -a commands
    commands=(
        'init:Create a key store'
        'wrap:Wrap a key into the store'
        'unwrap:Recover a key from the store'
        'ls:List stored keys'
        'status:List stored keys'
        'rm:Remove keys from the store'
        'passwd:Change the store password'
        'export:Print a key envelope'
        'import:Import a key envelope'
        'compact:Compact the store file'
        'keyring:Manage password in OS keyring'
        'sign:Attach a signature proof to an operation'
        'verify:Verify signature proofs'
        'pubkey:Show the public key of a stored seed'
        'pow-params:Show proof-of-work parameters'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'ledgerkey commands' commands
            ;;
        args)
            case "${words[2]}" in
                wrap)
                    _arguments \
                        '--generate[Generate a random key of N bytes]:bytes' \
                        '--in[Read the raw key from a file]:file:_files' \
                        '--mnemonic[Read the key as BIP-39 words]' \
                        '--force[Replace an existing key]'
                    ;;
                unwrap|export|rm|pubkey)
                    _arguments \
                        '--out[Write to a file]:file:_files' \
                        '--mnemonic[Print BIP-39 words]' \
                        '--force[Overwrite the output file]' \
                        '*:key:_ledgerkey_keys'
                    ;;
                import)
                    _arguments '--ask-password[Prompt for the envelope password]' '*:file:_files'
                    ;;
                sign|verify)
                    _arguments \
                        '--in[Operation document]:file:_files' \
                        '--out[Signed output]:file:_files' \
                        '--key[Stored signing key]:key:_ledgerkey_keys' \
                        '--public-key[Base58 public key]' \
                        '--creator[Proof creator]' \
                        '--purpose[Proof purpose]' \
                        '--capability[Capability]' \
                        '--action[Capability action]' \
                        '--diff[Show the document diff]' \
                        '--force[Overwrite the output file]'
                    ;;
                pow-params)
                    _arguments \
                        '--mode[Ledger mode]:mode:(dev test live)' \
                        '--n[Equihash N]' \
                        '--k[Equihash K]' \
                        '--options[JSON options file]:file:_files'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'ledgerkey commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_ledgerkey_keys() {
    local -a keys
    keys=(${(f)"$(ledgerkey ls 2>/dev/null | awk 'f && NF {print $1} /NAME/ {f=1}')"})
    _describe -t keys 'stored keys' keys
}

_ledgerkey "$@"
`

const fishCompletion = `# ledgerkey fish completions

set -l commands init wrap unwrap ls status rm passwd export import compact keyring sign verify pubkey pow-params help completion

complete -c ledgerkey -f

# Commands
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a key store'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a wrap -d 'Wrap a key into the store'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a unwrap -d 'Recover a key'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List stored keys'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a status -d 'List stored keys'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove keys'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change store password'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a export -d 'Print a key envelope'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a import -d 'Import a key envelope'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact the store'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a sign -d 'Attach a signature proof'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a verify -d 'Verify signature proofs'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a pubkey -d 'Show a public key'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a pow-params -d 'Show proof-of-work parameters'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c ledgerkey -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# wrap flags
complete -c ledgerkey -n "__fish_seen_subcommand_from wrap" -l generate -d 'Generate N random bytes'
complete -c ledgerkey -n "__fish_seen_subcommand_from wrap" -l in -r -F -d 'Read raw key from file'
complete -c ledgerkey -n "__fish_seen_subcommand_from wrap" -l mnemonic -d 'Read BIP-39 words'
complete -c ledgerkey -n "__fish_seen_subcommand_from wrap" -l force -d 'Replace existing key'

# unwrap flags
complete -c ledgerkey -n "__fish_seen_subcommand_from unwrap export" -l out -r -F -d 'Write to file'
complete -c ledgerkey -n "__fish_seen_subcommand_from unwrap" -l mnemonic -d 'Print BIP-39 words'
complete -c ledgerkey -n "__fish_seen_subcommand_from unwrap export" -l force -d 'Overwrite output file'

# sign flags
complete -c ledgerkey -n "__fish_seen_subcommand_from sign verify" -l in -r -F -d 'Operation document'
complete -c ledgerkey -n "__fish_seen_subcommand_from sign" -l out -r -F -d 'Signed output'
complete -c ledgerkey -n "__fish_seen_subcommand_from sign verify" -l key -d 'Stored signing key'
complete -c ledgerkey -n "__fish_seen_subcommand_from sign" -l diff -d 'Show the document diff'

# pow-params flags
complete -c ledgerkey -n "__fish_seen_subcommand_from pow-params" -l mode -a "dev test live" -d 'Ledger mode'

# keyring subcommands
complete -c ledgerkey -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c ledgerkey -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c ledgerkey -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
