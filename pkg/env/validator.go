package env

import (
	"net/url"
	"regexp"
	"strconv"
)

var (
	ethAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	privateKeyPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)
	bytes32Pattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

func IsEmpty(value string) bool {
	return value == ""
}

// Ethereum Address
func IsValidEthAddress(address string) bool {
	return ethAddressPattern.MatchString(address)
}

// ECDSA Private Key, with or without 0x prefix
func IsValidPrivateKey(privateKey string) bool {
	return privateKeyPattern.MatchString(privateKey)
}

// IsValidBytes32 accepts 0x-prefixed 32-byte hex such as operator ids.
func IsValidBytes32(value string) bool {
	return bytes32Pattern.MatchString(value)
}

// Port number
func IsValidPort(port string) bool {
	p, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return p >= 1024 && p <= 65535
}

// IsValidURL accepts http(s) endpoints.
func IsValidURL(rawURL string) bool {
	return hasScheme(rawURL, "http", "https")
}

// IsValidWSURL accepts websocket endpoints.
func IsValidWSURL(rawURL string) bool {
	return hasScheme(rawURL, "ws", "wss")
}

// IsValidRedisURL accepts redis:// and rediss:// connection strings.
func IsValidRedisURL(rawURL string) bool {
	return hasScheme(rawURL, "redis", "rediss")
}

func hasScheme(rawURL string, schemes ...string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}
