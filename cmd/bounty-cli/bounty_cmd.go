package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"bountychain/core/types"
	"bountychain/crypto"
)

type cli struct {
	client *client
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "Error: %v\n", err)
	var gwErr *gatewayError
	if errors.As(err, &gwErr) && len(gwErr.Receipt) > 0 && string(gwErr.Receipt) != "null" {
		c.printJSON(gwErr.Receipt)
	}
	return 1
}

func (c *cli) printJSON(raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(c.stdout, string(raw))
		return
	}
	fmt.Fprintln(c.stdout, buf.String())
}

func (c *cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) generateKey(args []string) int {
	fs := c.newFlagSet("generate-key")
	out := fs.String("out", "wallet.keystore", "path of the keystore to create")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pass, err := newPassphraseSource().Get()
	if err != nil {
		return c.fail(err)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return c.fail(err)
	}
	if err := crypto.SaveToKeystore(*out, key, pass, keystoreStrength); err != nil {
		return c.fail(fmt.Errorf("save keystore: %w", err))
	}
	fmt.Fprintf(c.stdout, "Saved keystore to %s\n", *out)
	fmt.Fprintln(c.stdout, key.PubKey().Address().String())
	return 0
}

func (c *cli) loadKey(path string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--key is required")
	}
	pass, err := newPassphraseSource().Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("unlock keystore %s: %w", path, err)
	}
	return key, nil
}

func (c *cli) address(args []string) int {
	fs := c.newFlagSet("address")
	keyPath := fs.String("key", "", "wallet keystore")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	key, err := c.loadKey(*keyPath)
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintln(c.stdout, key.PubKey().Address().String())
	return 0
}

// signAndSubmit fills in the chain id and the sender's next nonce, signs tx and
// posts it to the gateway.
func (c *cli) signAndSubmit(key *crypto.PrivateKey, tx *types.Transaction) int {
	treasury, err := c.client.treasury()
	if err != nil {
		return c.fail(fmt.Errorf("fetch chain id: %w", err))
	}
	account, err := c.client.account(key.PubKey().Address().String())
	if err != nil {
		return c.fail(fmt.Errorf("fetch nonce: %w", err))
	}
	tx.ChainID = treasury.ChainID
	tx.Nonce = account.Nonce
	if err := tx.Sign(key.PrivateKey); err != nil {
		return c.fail(fmt.Errorf("sign transaction: %w", err))
	}
	receipt, err := c.client.submit(tx)
	if err != nil {
		return c.fail(err)
	}
	c.printJSON(receipt)
	return 0
}

func (c *cli) create(args []string) int {
	fs := c.newFlagSet("create")
	keyPath := fs.String("key", "", "wallet keystore")
	number := fs.Uint64("number", 0, "number to factor")
	rewardRaw := fs.String("reward", "", "reward to escrow, in base units")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	reward, ok := new(big.Int).SetString(strings.ReplaceAll(strings.TrimSpace(*rewardRaw), "_", ""), 10)
	if !ok || reward.Sign() < 0 {
		return c.fail(fmt.Errorf("invalid reward %q", *rewardRaw))
	}
	key, err := c.loadKey(*keyPath)
	if err != nil {
		return c.fail(err)
	}
	return c.signAndSubmit(key, &types.Transaction{
		Type:   types.TxTypeCreateProblem,
		Number: *number,
		Reward: reward,
	})
}

func (c *cli) solve(args []string) int {
	fs := c.newFlagSet("solve")
	keyPath := fs.String("key", "", "wallet keystore")
	number := fs.Uint64("number", 0, "number being factored")
	a := fs.Uint64("a", 0, "first factor")
	b := fs.Uint64("b", 0, "second factor")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	key, err := c.loadKey(*keyPath)
	if err != nil {
		return c.fail(err)
	}
	return c.signAndSubmit(key, &types.Transaction{
		Type:   types.TxTypeTrySolve,
		Number: *number,
		A:      *a,
		B:      *b,
	})
}

func parseNumberArg(args []string) (uint64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one number")
	}
	return strconv.ParseUint(strings.TrimSpace(args[0]), 10, 64)
}

func (c *cli) query(path string) int {
	payload, err := c.client.get(path)
	if err != nil {
		return c.fail(err)
	}
	c.printJSON(payload)
	return 0
}

func (c *cli) puzzle(args []string) int {
	number, err := parseNumberArg(args)
	if err != nil {
		return c.fail(err)
	}
	return c.query(fmt.Sprintf("/v1/puzzles/%d", number))
}

func (c *cli) solution(args []string) int {
	number, err := parseNumberArg(args)
	if err != nil {
		return c.fail(err)
	}
	return c.query(fmt.Sprintf("/v1/solutions/%d", number))
}

func (c *cli) puzzles(args []string) int {
	fs := c.newFlagSet("puzzles")
	status := fs.String("status", "", "open or solved")
	limit := fs.Int("limit", 0, "maximum results")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	query := url.Values{}
	if s := strings.TrimSpace(*status); s != "" {
		query.Set("status", s)
	}
	if *limit > 0 {
		query.Set("limit", strconv.Itoa(*limit))
	}
	path := "/v1/puzzles"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return c.query(path)
}

func (c *cli) treasury(args []string) int {
	if len(args) != 0 {
		return c.fail(fmt.Errorf("treasury takes no arguments"))
	}
	return c.query("/v1/treasury")
}

func (c *cli) balance(args []string) int {
	if len(args) != 1 {
		return c.fail(fmt.Errorf("expected exactly one address"))
	}
	addr, err := crypto.ParseAccount(args[0])
	if err != nil {
		return c.fail(err)
	}
	return c.query("/v1/accounts/" + crypto.FromArray(addr).String())
}
