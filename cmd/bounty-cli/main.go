package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"bountychain/cmd/internal/passphrase"
	"bountychain/crypto"
)

const (
	gatewayEnv       = "BOUNTY_GATEWAY_URL"
	keyPassphraseEnv = "BOUNTY_KEY_PASSPHRASE"
	defaultGateway   = "http://127.0.0.1:8080"
)

// keystoreStrength is lowered by tests to keep key generation fast.
var keystoreStrength = crypto.StandardKeystore

// newPassphraseSource is swapped by tests.
var newPassphraseSource = func() *passphrase.Source {
	return passphrase.NewSource(keyPassphraseEnv, "wallet")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	gateway, args, err := applyGlobalFlags(args, os.LookupEnv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}
	cli := &cli{client: newClient(gateway), stdout: stdout, stderr: stderr}

	command, rest := args[0], args[1:]
	switch command {
	case "generate-key":
		return cli.generateKey(rest)
	case "address":
		return cli.address(rest)
	case "create":
		return cli.create(rest)
	case "solve":
		return cli.solve(rest)
	case "puzzle":
		return cli.puzzle(rest)
	case "puzzles":
		return cli.puzzles(rest)
	case "solution":
		return cli.solution(rest)
	case "treasury":
		return cli.treasury(rest)
	case "balance":
		return cli.balance(rest)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		printUsage(stderr)
		return 2
	}
}

// applyGlobalFlags strips --gateway from args. The flag wins over the
// environment, which wins over the default.
func applyGlobalFlags(args []string, lookup func(string) (string, bool)) (string, []string, error) {
	gateway := defaultGateway
	if value, ok := lookup(gatewayEnv); ok && strings.TrimSpace(value) != "" {
		gateway = strings.TrimSpace(value)
	}
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--gateway":
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--gateway requires a value")
			}
			gateway = strings.TrimSpace(args[i+1])
			i++
		case strings.HasPrefix(arg, "--gateway="):
			gateway = strings.TrimSpace(strings.TrimPrefix(arg, "--gateway="))
		default:
			rest = append(rest, arg)
		}
	}
	if gateway == "" {
		return "", nil, fmt.Errorf("gateway URL cannot be empty")
	}
	return strings.TrimRight(gateway, "/"), rest, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: bounty-cli [--gateway URL] <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  generate-key --out <keystore>                    Create a new wallet keystore")
	fmt.Fprintln(w, "  address --key <keystore>                         Print the wallet address")
	fmt.Fprintln(w, "  create --key <keystore> --number N --reward R    Post N with reward R")
	fmt.Fprintln(w, "  solve --key <keystore> --number N --a A --b B    Submit factors A and B for N")
	fmt.Fprintln(w, "  puzzle <number>                                  Show a puzzle")
	fmt.Fprintln(w, "  puzzles [--status open|solved] [--limit L]       List indexed puzzles")
	fmt.Fprintln(w, "  solution <number>                                Show a recorded solution")
	fmt.Fprintln(w, "  treasury                                         Show the treasury total")
	fmt.Fprintln(w, "  balance <address>                                Show account balances")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "The gateway defaults to %s or $%s. Keystores are unlocked with $%s or an interactive prompt.\n",
		defaultGateway, gatewayEnv, keyPassphraseEnv)
}
