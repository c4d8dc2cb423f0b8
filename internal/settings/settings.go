// Package settings holds the process-wide CI constants: storage paths, credentials
// identifiers, CI database names and feature flags.
package settings

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	S3ArtifactPath = "clickhouse-builds/artifacts"
	CacheS3Path    = "clickhouse-builds/ci_ch_cache"
	HTMLS3Path     = "clickhouse-builds/artifacts/reports"

	DockerhubUsername = "robotclickhouse"
	DockerhubSecret   = "dockerhub_robot_password"

	CIDBName      = "default"
	CIDBTableName = "checks"

	SecretGHAppID     = "clickhouse_github_secret_key.clickhouse-app-id"
	SecretGHAppPEMKey = "clickhouse_github_secret_key.clickhouse-app-key"

	InstallPythonReqsForNativeJobs = false
)

// ErrUnknownBucket is returned when an S3 path names a bucket without an HTTP endpoint.
var ErrUnknownBucket = errors.New("settings: unknown bucket")

// Settings is the flat settings record. Values returned by Default are independent
// copies; mutating one never affects another.
type Settings struct {
	S3ArtifactPath         string            `yaml:"s3_artifact_path"`
	CIConfigRunsOn         []string          `yaml:"ci_config_runs_on"`
	CacheS3Path            string            `yaml:"cache_s3_path"`
	HTMLS3Path             string            `yaml:"html_s3_path"`
	S3BucketToHTTPEndpoint map[string]string `yaml:"s3_bucket_to_http_endpoint"`

	DockerhubUsername string `yaml:"dockerhub_username"`
	DockerhubSecret   string `yaml:"dockerhub_secret"`

	CIDBName      string `yaml:"ci_db_name"`
	CIDBTableName string `yaml:"ci_db_table_name"`

	SecretGHAppID     string `yaml:"secret_gh_app_id"`
	SecretGHAppPEMKey string `yaml:"secret_gh_app_pem_key"`

	InstallPythonReqsForNativeJobs bool `yaml:"install_python_reqs_for_native_jobs"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		S3ArtifactPath: S3ArtifactPath,
		CIConfigRunsOn: []string{RunnerLabels.CIServices},
		CacheS3Path:    CacheS3Path,
		HTMLS3Path:     HTMLS3Path,
		S3BucketToHTTPEndpoint: map[string]string{
			"clickhouse-builds": "clickhouse-builds.s3.amazonaws.com",
		},
		DockerhubUsername:              DockerhubUsername,
		DockerhubSecret:                DockerhubSecret,
		CIDBName:                       CIDBName,
		CIDBTableName:                  CIDBTableName,
		SecretGHAppID:                  SecretGHAppID,
		SecretGHAppPEMKey:              SecretGHAppPEMKey,
		InstallPythonReqsForNativeJobs: InstallPythonReqsForNativeJobs,
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	s.CIConfigRunsOn = slices.Clone(s.CIConfigRunsOn)
	s.S3BucketToHTTPEndpoint = maps.Clone(s.S3BucketToHTTPEndpoint)
	return s
}

// SplitS3Path splits "bucket/key/..." into its bucket and key.
func SplitS3Path(p string) (bucket, key string) {
	p = strings.TrimPrefix(p, "s3://")
	bucket, key, _ = strings.Cut(strings.Trim(p, "/"), "/")
	return bucket, key
}

// HTTPURL maps an S3 path to its public HTTPS URL.
func (s Settings) HTTPURL(s3Path string) (string, error) {
	bucket, key := SplitS3Path(s3Path)
	endpoint, ok := s.S3BucketToHTTPEndpoint[bucket]
	if !ok || endpoint == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}
	if key == "" {
		return "https://" + endpoint, nil
	}
	return "https://" + endpoint + "/" + key, nil
}

// Validate checks that all names and paths are set and that every S3 path
// resolves to an HTTP endpoint.
func (s Settings) Validate() error {
	var errs []error
	required := []struct {
		name, value string
	}{
		{"s3_artifact_path", s.S3ArtifactPath},
		{"cache_s3_path", s.CacheS3Path},
		{"html_s3_path", s.HTMLS3Path},
		{"dockerhub_username", s.DockerhubUsername},
		{"dockerhub_secret", s.DockerhubSecret},
		{"ci_db_name", s.CIDBName},
		{"ci_db_table_name", s.CIDBTableName},
		{"secret_gh_app_id", s.SecretGHAppID},
		{"secret_gh_app_pem_key", s.SecretGHAppPEMKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}
	if len(s.CIConfigRunsOn) == 0 {
		errs = append(errs, errors.New("ci_config_runs_on needs at least one runner label"))
	}
	for _, p := range []string{s.S3ArtifactPath, s.CacheS3Path, s.HTMLS3Path} {
		if p == "" {
			continue
		}
		if _, err := s.HTTPURL(p); err != nil {
			errs = append(errs, fmt.Errorf("path %q: %w", p, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("settings: validation failed: %w", err)
	}
	return nil
}
