package oneapi

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nebulaops/vnetctl/pkg/constants"
	"github.com/nebulaops/vnetctl/pkg/errors"
)

// ResolveCredential turns the configured auth value into a session
// string. The value may be the credential itself ("user:password") or
// the path of a file holding one. An empty value falls back to the
// ONE_AUTH environment variable and then to ~/.one/one_auth, matching
// the frontend CLI tools.
func ResolveCredential(value string) (string, error) {
	if value == "" {
		value = os.Getenv(constants.EnvAuth)
	}
	if value == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", &errors.AuthenticationError{Message: "cannot locate home directory", Err: err}
		}
		value = filepath.Join(home, constants.DefaultAuthFile)
	}

	// Inline credentials always contain the user:password separator.
	if strings.ContainsRune(value, ':') {
		return strings.TrimSpace(value), nil
	}

	data, err := os.ReadFile(value)
	if err != nil {
		return "", &errors.AuthenticationError{
			Message: "cannot read auth file " + value,
			Err:     err,
		}
	}

	credential := strings.TrimSpace(string(data))
	if !strings.ContainsRune(credential, ':') {
		return "", &errors.AuthenticationError{
			Message: "auth file " + value + " does not contain a user:password credential",
		}
	}
	return credential, nil
}
