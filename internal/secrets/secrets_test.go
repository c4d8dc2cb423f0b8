package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/praktika/internal/workflow"
)

func TestEnvVar(t *testing.T) {
	tests := map[string]string{
		"dockerhub_robot_password":                       "DOCKERHUB_ROBOT_PASSWORD",
		"clickhouse_github_secret_key.clickhouse-app-id": "CLICKHOUSE_GITHUB_SECRET_KEY_CLICKHOUSE_APP_ID",
		"Mixed.Case9":                                    "MIXED_CASE9",
	}
	for in, want := range tests {
		if got := EnvVar(in); got != want {
			t.Errorf("EnvVar(%q) = %q, want %q", in, got, want)
		}
	}
}

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestEnvResolver(t *testing.T) {
	r := EnvResolver{Lookup: fakeEnv(map[string]string{"DOCKERHUB_ROBOT_PASSWORD": "hunter2", "EMPTY": ""})}

	v, err := r.Resolve("dockerhub_robot_password")
	if err != nil || v != "hunter2" {
		t.Errorf("Resolve = %q, %v; want hunter2, nil", v, err)
	}
	if _, err := r.Resolve("empty"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("empty value error = %v, want ErrSecretNotFound", err)
	}
	if _, err := r.Resolve("missing"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("missing error = %v, want ErrSecretNotFound", err)
	}
}

func TestDirResolver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app-key"), []byte("-----BEGIN KEY-----\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := DirResolver{Dir: dir}

	v, err := r.Resolve("app-key")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v != "-----BEGIN KEY-----" {
		t.Errorf("value = %q, want trailing newline trimmed", v)
	}
	if _, err := r.Resolve("../etc/passwd"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("path traversal error = %v, want ErrSecretNotFound", err)
	}
	if _, err := (DirResolver{}).Resolve("app-key"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("empty dir error = %v, want ErrSecretNotFound", err)
	}
}

func TestChain_Order(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "token"), []byte("from-file"), 0o600)
	os.WriteFile(filepath.Join(dir, "other"), []byte("file-only"), 0o600)

	c := Chain{
		EnvResolver{Lookup: fakeEnv(map[string]string{"TOKEN": "from-env"})},
		DirResolver{Dir: dir},
	}
	if v, _ := c.Resolve("token"); v != "from-env" {
		t.Errorf("token = %q, want from-env (env first)", v)
	}
	if v, _ := c.Resolve("other"); v != "file-only" {
		t.Errorf("other = %q, want file-only", v)
	}
	if _, err := c.Resolve("nope"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("nope error = %v, want ErrSecretNotFound", err)
	}
}

func TestResolveAll(t *testing.T) {
	w := &workflow.Config{
		Name: "PR",
		Secrets: []workflow.Secret{
			{Name: "a"}, {Name: "b"}, {Name: "c"},
		},
	}
	r := EnvResolver{Lookup: fakeEnv(map[string]string{"A": "1"})}

	values, err := ResolveAll(r, w)
	if err == nil {
		t.Fatal("expected error for missing secrets")
	}
	if values["a"] != "1" {
		t.Errorf("a = %q, want 1", values["a"])
	}
	for _, name := range []string{"env B", "env C"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not report %s", err.Error(), name)
		}
	}
	if !errors.Is(err, ErrSecretNotFound) {
		t.Error("joined error should match ErrSecretNotFound")
	}
}
