package config

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/promptgenie/internal/keys"
)

// maxNumberedKeys bounds the scan for <base>_1 .. <base>_N.
const maxNumberedKeys = 64

// CredentialsFromEnv collects API keys for rotation. Numbered variables
// (<base>_1, <base>_2, ...) come first in numeric order, gaps allowed, then
// the bare <base> variable if it holds a key not already collected. Each
// credential is labelled with its variable name.
func CredentialsFromEnv(base string) []keys.Credential {
	if base == "" {
		return nil
	}

	var creds []keys.Credential
	seen := map[string]bool{}
	add := func(name string) {
		v := os.Getenv(name)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		creds = append(creds, keys.Credential{Key: v, Label: name})
	}

	for i := 1; i <= maxNumberedKeys; i++ {
		add(fmt.Sprintf("%s_%d", base, i))
	}
	add(base)
	return creds
}
