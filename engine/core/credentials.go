package core

import (
	"errors"
	"os"
)

// APIKeyEnv is the environment variable holding the model API credential.
const APIKeyEnv = "FLOWGENT_API_KEY"

// ErrMissingAPIKey is returned when neither an explicit key nor the
// environment provides a credential.
var ErrMissingAPIKey = errors.New(
	"missing API credential: pass one explicitly or set " + APIKeyEnv,
)

// ResolveAPIKey resolves the credential for a flow run. An explicit value
// always wins over the environment; neither source mutates process state.
func ResolveAPIKey(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if key := os.Getenv(APIKeyEnv); key != "" {
		return key, nil
	}
	return "", ErrMissingAPIKey
}
