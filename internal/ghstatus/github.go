package ghstatus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v68/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/zulandar/praktika/internal/config"
	"github.com/zulandar/praktika/internal/secrets"
)

// ErrNoCredentials is returned by FromConfig when neither a GitHub App
// installation nor a token is available.
var ErrNoCredentials = errors.New("ghstatus: no github credentials")

// GitHubPoster sets commit statuses through the GitHub REST API.
type GitHubPoster struct {
	client  *github.Client
	owner   string
	repo    string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGitHubPoster returns a Poster for owner/repo. Updates are limited to one
// per second with a small burst to stay clear of secondary rate limits.
func NewGitHubPoster(client *github.Client, owner, repo string, logger *zap.Logger) *GitHubPoster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubPoster{
		client:  client,
		owner:   owner,
		repo:    repo,
		limiter: rate.NewLimiter(rate.Limit(1), 5),
		logger:  logger,
	}
}

// Post creates a commit status with the Mergeable Check context on sha.
func (p *GitHubPoster) Post(ctx context.Context, sha string, st Status) error {
	if sha == "" {
		return fmt.Errorf("ghstatus: commit sha is required")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("ghstatus: %w", err)
	}
	status := &github.RepoStatus{
		State:       github.Ptr(st.State),
		Description: github.Ptr(truncate(st.Description, maxDescription)),
		Context:     github.Ptr(Context),
	}
	if st.TargetURL != "" {
		status.TargetURL = github.Ptr(st.TargetURL)
	}
	if _, _, err := p.client.Repositories.CreateStatus(ctx, p.owner, p.repo, sha, status); err != nil {
		return fmt.Errorf("ghstatus: set %s on %s/%s@%s: %w", st.State, p.owner, p.repo, sha, err)
	}
	p.logger.Info("commit status set",
		zap.String("repo", p.owner+"/"+p.repo),
		zap.String("sha", sha),
		zap.String("state", st.State),
	)
	return nil
}

// NewTokenClient returns a client authenticated with a personal or workflow token.
func NewTokenClient(ctx context.Context, token, apiURL string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return withAPIURL(github.NewClient(oauth2.NewClient(ctx, ts)), apiURL)
}

// NewAppClient returns a client authenticated as a GitHub App installation.
func NewAppClient(appID, installationID int64, privateKey []byte, apiURL string) (*github.Client, error) {
	tr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("ghstatus: app transport: %w", err)
	}
	if apiURL != "" {
		tr.BaseURL = strings.TrimRight(apiURL, "/")
	}
	return withAPIURL(github.NewClient(&http.Client{Transport: tr}), apiURL)
}

func withAPIURL(c *github.Client, apiURL string) (*github.Client, error) {
	if apiURL == "" {
		return c, nil
	}
	c, err := c.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("ghstatus: api url %q: %w", apiURL, err)
	}
	return c, nil
}

// FromConfig builds a Poster for the configured repository. A GitHub App is
// used when an installation id is set, its id and key read through r under the
// secret names from settings. Otherwise the token in cfg.GitHub.TokenEnv is used.
func FromConfig(ctx context.Context, cfg *config.Config, r secrets.Resolver, logger *zap.Logger) (Poster, error) {
	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		return nil, fmt.Errorf("%w: repo.owner and repo.name are not set", ErrNoCredentials)
	}
	if cfg.GitHub.InstallationID > 0 {
		rawID, err := r.Resolve(cfg.Settings.SecretGHAppID)
		if err != nil {
			return nil, fmt.Errorf("ghstatus: app id: %w", err)
		}
		appID, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ghstatus: app id %q: %w", rawID, err)
		}
		key, err := r.Resolve(cfg.Settings.SecretGHAppPEMKey)
		if err != nil {
			return nil, fmt.Errorf("ghstatus: app key: %w", err)
		}
		client, err := NewAppClient(appID, cfg.GitHub.InstallationID, []byte(key), cfg.GitHub.APIURL)
		if err != nil {
			return nil, err
		}
		return NewGitHubPoster(client, cfg.Repo.Owner, cfg.Repo.Name, logger), nil
	}
	token := strings.TrimSpace(os.Getenv(cfg.GitHub.TokenEnv))
	if token == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrNoCredentials, cfg.GitHub.TokenEnv)
	}
	client, err := NewTokenClient(ctx, token, cfg.GitHub.APIURL)
	if err != nil {
		return nil, err
	}
	return NewGitHubPoster(client, cfg.Repo.Owner, cfg.Repo.Name, logger), nil
}
