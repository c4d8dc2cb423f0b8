// Package secrets resolves the secret references a workflow declares into values.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zulandar/praktika/internal/workflow"
)

// ErrSecretNotFound is returned when no resolver knows a secret.
var ErrSecretNotFound = errors.New("secrets: not found")

// Resolver looks up a secret value by name.
type Resolver interface {
	Resolve(name string) (string, error)
}

// EnvVar returns the environment variable a secret is read from:
// "clickhouse_github_secret_key.clickhouse-app-id" becomes
// "CLICKHOUSE_GITHUB_SECRET_KEY_CLICKHOUSE_APP_ID".
func EnvVar(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// EnvResolver reads secrets from environment variables named by EnvVar.
type EnvResolver struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

func (r EnvResolver) Resolve(name string) (string, error) {
	lookup := r.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvVar(name)); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s (env %s)", ErrSecretNotFound, name, EnvVar(name))
}

// DirResolver reads secrets from files named after the secret inside Dir.
// Trailing newlines are trimmed.
type DirResolver struct {
	Dir string
}

func (r DirResolver) Resolve(name string) (string, error) {
	if r.Dir == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	data, err := os.ReadFile(filepath.Join(r.Dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s (dir %s)", ErrSecretNotFound, name, r.Dir)
		}
		return "", fmt.Errorf("secrets: read %s: %w", name, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Chain tries each resolver in order and returns the first value found.
type Chain []Resolver

func (c Chain) Resolve(name string) (string, error) {
	for _, r := range c {
		v, err := r.Resolve(name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

// New returns the default chain: environment first, then dir when set.
func New(dir string) Resolver {
	chain := Chain{EnvResolver{}}
	if dir != "" {
		chain = append(chain, DirResolver{Dir: dir})
	}
	return chain
}

// ResolveAll resolves every secret the workflow declares. Missing secrets are
// reported together.
func ResolveAll(r Resolver, w *workflow.Config) (map[string]string, error) {
	values := make(map[string]string, len(w.Secrets))
	var errs []error
	for _, s := range w.Secrets {
		v, err := r.Resolve(s.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[s.Name] = v
	}
	if err := errors.Join(errs...); err != nil {
		return values, fmt.Errorf("secrets: workflow %q: %w", w.Name, err)
	}
	return values, nil
}
