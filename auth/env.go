package auth

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s.
//
// Semantics:
//   - `$VAR` and `${VAR}` are expanded via os.ExpandEnv.
//   - `${VAR}` with VAR unset fails with ErrMissingEnv naming every missing variable.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	const dollar = "\x00QUERYKIT_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(match[1]); !ok {
			missing[match[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(keys, ", "))
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, dollar, "$"), nil
}

// EnvToken is a token template expanded against the environment on every
// call, e.g. "${API_TOKEN}".
type EnvToken string

// Token expands the template strictly.
func (e EnvToken) Token(ctx context.Context) (string, error) {
	tok, err := ExpandEnvStrict(string(e))
	if err != nil {
		return "", err
	}
	return StaticToken(tok).Token(ctx)
}
