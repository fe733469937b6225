package main

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/curve"
)

var (
	keyFlag = &cli.StringFlag{
		Name:     "key",
		Usage:    "BLS private key (hex)",
		EnvVars:  []string{"BLS_PRIVATE_KEY"},
		Required: true,
	}
	messageFlag = &cli.StringFlag{
		Name:     "message",
		Usage:    "message to sign or verify (0x-prefixed hex)",
		Required: true,
	}
	hashModeFlag = &cli.StringFlag{
		Name:    "hash-mode",
		Usage:   "hash-to-curve mode: rfc9380 or keccak",
		Value:   curve.HashRFC9380.String(),
		EnvVars: []string{"BLS_HASH_MODE"},
	}
)

func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:   "keygen",
		Usage:  "Generate a BLS key pair with its proof of possession",
		Flags:  []cli.Flag{hashModeFlag},
		Action: generateKeys,
	}
}

func PopCommand() *cli.Command {
	return &cli.Command{
		Name:   "pop",
		Usage:  "Print the proof of possession for a private key",
		Flags:  []cli.Flag{keyFlag, hashModeFlag},
		Action: proveKey,
	}
}

func SignCommand() *cli.Command {
	return &cli.Command{
		Name:   "sign",
		Usage:  "Sign a message with a BLS private key",
		Flags:  []cli.Flag{keyFlag, messageFlag, hashModeFlag},
		Action: signMessage,
	}
}

func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify a BLS signature",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "public-key", Usage: "compressed G2 public key (hex)", Required: true},
			&cli.StringFlag{Name: "signature", Usage: "compressed G1 signature (hex)", Required: true},
			messageFlag,
			hashModeFlag,
		},
		Action: verifySignature,
	}
}

func schemeFrom(c *cli.Context) (*bls.Scheme, error) {
	mode, err := curve.ParseHashMode(c.String(hashModeFlag.Name))
	if err != nil {
		return nil, err
	}
	return bls.NewScheme(mode), nil
}

func keyFrom(c *cli.Context) (*bls.PrivateKey, error) {
	sk, err := bls.PrivateKeyFromHex(c.String(keyFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return sk, nil
}

func generateKeys(c *cli.Context) error {
	scheme, err := schemeFrom(c)
	if err != nil {
		return err
	}
	kp, err := bls.GenerateKeyPair(rand.Reader)
	if err != nil {
		return err
	}
	defer kp.Destroy()
	pop, err := scheme.ProofOfPossession(kp.PrivateKey())
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "private_key: %s\n", hexutil.Encode(kp.PrivateKey().Bytes()))
	fmt.Fprintf(w, "public_key:  %s\n", hexutil.Encode(kp.PublicKey().Bytes()))
	fmt.Fprintf(w, "operator_id: %s\n", kp.OperatorID().Hex())
	fmt.Fprintf(w, "pop:         %s\n", hexutil.Encode(pop.Bytes()))
	return nil
}

func proveKey(c *cli.Context) error {
	scheme, err := schemeFrom(c)
	if err != nil {
		return err
	}
	sk, err := keyFrom(c)
	if err != nil {
		return err
	}
	defer sk.Zeroize()
	pop, err := scheme.ProofOfPossession(sk)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, hexutil.Encode(pop.Bytes()))
	return nil
}

func signMessage(c *cli.Context) error {
	scheme, err := schemeFrom(c)
	if err != nil {
		return err
	}
	sk, err := keyFrom(c)
	if err != nil {
		return err
	}
	defer sk.Zeroize()
	msg, err := hexutil.Decode(c.String(messageFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	sig, err := scheme.Sign(sk, msg)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, hexutil.Encode(sig.Bytes()))
	return nil
}

func verifySignature(c *cli.Context) error {
	scheme, err := schemeFrom(c)
	if err != nil {
		return err
	}
	msg, err := hexutil.Decode(c.String(messageFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	pk, err := hexutil.Decode(c.String("public-key"))
	if err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}
	sig, err := hexutil.Decode(c.String("signature"))
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	ok, err := scheme.VerifyEncoded(sig, pk, msg)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("signature does not verify")
	}
	fmt.Fprintln(c.App.Writer, "valid")
	return nil
}
