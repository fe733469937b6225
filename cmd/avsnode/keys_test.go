package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"avsnode"}, args...))
	return out.String(), err
}

func parseKeygen(t *testing.T, out string) map[string]string {
	t.Helper()
	fields := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		k, v, ok := strings.Cut(line, ":")
		require.True(t, ok, line)
		fields[k] = strings.TrimSpace(v)
	}
	return fields
}

func TestKeyCommands(t *testing.T) {
	for _, mode := range []string{"rfc9380", "keccak"} {
		t.Run(mode, func(t *testing.T) {
			out, err := runApp(t, "keygen", "--hash-mode", mode)
			require.NoError(t, err)
			keys := parseKeygen(t, out)
			require.Contains(t, keys, "private_key")
			require.Contains(t, keys, "public_key")

			pop, err := runApp(t, "pop", "--key", keys["private_key"], "--hash-mode", mode)
			require.NoError(t, err)
			assert.Equal(t, keys["pop"], strings.TrimSpace(pop))

			msg := hexutil.Encode([]byte("hello quorum"))
			sig, err := runApp(t, "sign", "--key", keys["private_key"], "--message", msg, "--hash-mode", mode)
			require.NoError(t, err)
			sig = strings.TrimSpace(sig)

			out, err = runApp(t, "verify", "--public-key", keys["public_key"], "--signature", sig, "--message", msg, "--hash-mode", mode)
			require.NoError(t, err)
			assert.Equal(t, "valid", strings.TrimSpace(out))

			other := hexutil.Encode([]byte("something else"))
			_, err = runApp(t, "verify", "--public-key", keys["public_key"], "--signature", sig, "--message", other, "--hash-mode", mode)
			assert.Error(t, err)
		})
	}
}

func TestKeyCommands_BadInput(t *testing.T) {
	_, err := runApp(t, "sign", "--key", "0x1234", "--message", "0x00")
	assert.Error(t, err)

	_, err = runApp(t, "keygen", "--hash-mode", "sha3")
	assert.Error(t, err)
}
