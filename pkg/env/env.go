// Package env reads typed settings from the process environment. Missing or
// malformed values fall back to the default and are reported on stdout,
// since the logger is usually not built yet when configuration loads.
package env

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"
)

func lookup[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		fmt.Printf("Environment variable %s not found, using default value: %v\n", key, defaultValue)
		return defaultValue
	}
	v, err := parse(value)
	if err != nil {
		fmt.Printf("Environment variable %s is malformed (%v), using default value: %v\n", key, err, defaultValue)
		return defaultValue
	}
	return v
}

func GetEnvString(key, defaultValue string) string {
	return lookup(key, defaultValue, func(s string) (string, error) { return s, nil })
}

func GetEnvBool(key string, defaultValue bool) bool {
	return lookup(key, defaultValue, strconv.ParseBool)
}

func GetEnvInt(key string, defaultValue int) int {
	return lookup(key, defaultValue, strconv.Atoi)
}

func GetEnvUint64(key string, defaultValue uint64) uint64 {
	return lookup(key, defaultValue, func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	})
}

// GetEnvBigInt parses a base-10 integer such as a wei amount.
func GetEnvBigInt(key string, defaultValue *big.Int) *big.Int {
	return lookup(key, defaultValue, func(s string) (*big.Int, error) {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("not a base-10 integer")
		}
		return v, nil
	})
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return lookup(key, defaultValue, time.ParseDuration)
}
