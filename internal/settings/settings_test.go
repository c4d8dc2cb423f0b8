package settings

import (
	"errors"
	"strings"
	"testing"
)

func TestDefault_Values(t *testing.T) {
	s := Default()

	checks := []struct {
		name, got, want string
	}{
		{"S3ArtifactPath", s.S3ArtifactPath, "clickhouse-builds/artifacts"},
		{"CacheS3Path", s.CacheS3Path, "clickhouse-builds/ci_ch_cache"},
		{"HTMLS3Path", s.HTMLS3Path, "clickhouse-builds/artifacts/reports"},
		{"DockerhubUsername", s.DockerhubUsername, "robotclickhouse"},
		{"DockerhubSecret", s.DockerhubSecret, "dockerhub_robot_password"},
		{"CIDBName", s.CIDBName, "default"},
		{"CIDBTableName", s.CIDBTableName, "checks"},
		{"SecretGHAppID", s.SecretGHAppID, "clickhouse_github_secret_key.clickhouse-app-id"},
		{"SecretGHAppPEMKey", s.SecretGHAppPEMKey, "clickhouse_github_secret_key.clickhouse-app-key"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if s.InstallPythonReqsForNativeJobs {
		t.Error("InstallPythonReqsForNativeJobs = true, want false")
	}
	if len(s.CIConfigRunsOn) != 1 || s.CIConfigRunsOn[0] != RunnerLabels.CIServices {
		t.Errorf("CIConfigRunsOn = %v, want [%s]", s.CIConfigRunsOn, RunnerLabels.CIServices)
	}
	if got := s.S3BucketToHTTPEndpoint["clickhouse-builds"]; got != "clickhouse-builds.s3.amazonaws.com" {
		t.Errorf("endpoint for clickhouse-builds = %q", got)
	}
}

func TestDefault_IndependentCopies(t *testing.T) {
	a := Default()
	a.CIConfigRunsOn[0] = "mutated"
	a.S3BucketToHTTPEndpoint["clickhouse-builds"] = "mutated"

	b := Default()
	if b.CIConfigRunsOn[0] != RunnerLabels.CIServices {
		t.Errorf("CIConfigRunsOn leaked mutation: %v", b.CIConfigRunsOn)
	}
	if b.S3BucketToHTTPEndpoint["clickhouse-builds"] == "mutated" {
		t.Error("S3BucketToHTTPEndpoint leaked mutation")
	}
}

func TestClone(t *testing.T) {
	a := Default()
	b := a.Clone()
	b.CIConfigRunsOn = append(b.CIConfigRunsOn[:0], "other")
	b.S3BucketToHTTPEndpoint["x"] = "y"

	if a.CIConfigRunsOn[0] != RunnerLabels.CIServices {
		t.Errorf("clone shares runs_on slice: %v", a.CIConfigRunsOn)
	}
	if _, ok := a.S3BucketToHTTPEndpoint["x"]; ok {
		t.Error("clone shares endpoint map")
	}
}

func TestHTTPURL(t *testing.T) {
	s := Default()
	tests := []struct {
		name string
		path string
		want string
	}{
		{"report", "clickhouse-builds/artifacts/reports/run/PullRequestCI.html",
			"https://clickhouse-builds.s3.amazonaws.com/artifacts/reports/run/PullRequestCI.html"},
		{"s3 scheme", "s3://clickhouse-builds/ci_ch_cache/a.json",
			"https://clickhouse-builds.s3.amazonaws.com/ci_ch_cache/a.json"},
		{"bucket only", "clickhouse-builds", "https://clickhouse-builds.s3.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.HTTPURL(tt.path)
			if err != nil {
				t.Fatalf("HTTPURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("HTTPURL(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestHTTPURL_UnknownBucket(t *testing.T) {
	_, err := Default().HTTPURL("other-bucket/key")
	if !errors.Is(err, ErrUnknownBucket) {
		t.Errorf("error = %v, want ErrUnknownBucket", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}

	s := Default()
	s.CIDBTableName = ""
	s.CIConfigRunsOn = nil
	s.HTMLS3Path = "unknown-bucket/reports"
	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"ci_db_table_name is required", "ci_config_runs_on", "unknown-bucket"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err.Error(), want)
		}
	}
}

func TestDockersAndSecrets(t *testing.T) {
	d := Dockers()
	if len(d) != 1 || d[0].Name != StyleImage {
		t.Fatalf("Dockers() = %+v, want one %s image", d, StyleImage)
	}
	if len(d[0].Platforms) != 2 {
		t.Errorf("style image platforms = %v, want amd64 and arm64", d[0].Platforms)
	}
	if got := len(Secrets()); got != 3 {
		t.Errorf("len(Secrets()) = %d, want 3", got)
	}
}
