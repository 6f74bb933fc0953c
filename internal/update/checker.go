package update

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"releasecheck/internal/debug"
	apperrors "releasecheck/internal/errors"
)

// Default repository settings used when nothing else is configured.
const (
	DefaultRepoOwner      = "156966qq"
	DefaultRepoName       = "luohua-wuqing-ks-script"
	DefaultCurrentVersion = "v0.0.1"
	DefaultScriptFile     = "test-update.js"

	// RecentReleaseCount is how many entries of the release list are reported.
	RecentReleaseCount = 3
)

// Config identifies what is being checked. It is passed by value and never
// modified after the Checker is built.
type Config struct {
	Owner          string
	Repo           string
	CurrentVersion string
	ScriptFile     string
}

// FullName returns "owner/repo".
func (c Config) FullName() string {
	return c.Owner + "/" + c.Repo
}

// NewReleaseURL is the page where a maintainer creates the first release.
func (c Config) NewReleaseURL() string {
	return fmt.Sprintf("https://github.com/%s/%s/releases/new", c.Owner, c.Repo)
}

// Decision is the outcome of a completed check.
type Decision struct {
	HasUpdate      bool   `json:"hasUpdate"`
	CurrentVersion string `json:"currentVersion,omitempty"`
	LatestVersion  string `json:"latestVersion,omitempty"`
	UpdateURL      string `json:"updateUrl,omitempty"`
	ReleaseNotes   string `json:"releaseNotes,omitempty"`
	PublishedAt    string `json:"publishedAt,omitempty"`
}

// Step names one stage of the check sequence.
type Step int

const (
	StepRepository Step = iota + 1
	StepReleases
	StepLatest
)

// String returns a short label for the step.
func (s Step) String() string {
	switch s {
	case StepRepository:
		return "repository"
	case StepReleases:
		return "releases"
	case StepLatest:
		return "latest"
	default:
		return "unknown"
	}
}

// Reporter receives progress events while a check runs.
type Reporter interface {
	CheckStarted(cfg Config)
	StepStarted(step Step)
	RepositoryFetched(info *RepoInfo)
	ReleasesListed(total int, recent []ReleaseInfo)
	NoReleases(cfg Config)
	LatestReleaseFetched(release *ReleaseInfo)
	VersionsCompared(current string, release *ReleaseInfo, result int)
	StepFailed(step Step, err error)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) CheckStarted(Config) {}
func (NopReporter) StepStarted(Step) {}
func (NopReporter) RepositoryFetched(*RepoInfo) {}
func (NopReporter) ReleasesListed(int, []ReleaseInfo) {}
func (NopReporter) NoReleases(Config) {}
func (NopReporter) LatestReleaseFetched(*ReleaseInfo) {}
func (NopReporter) VersionsCompared(string, *ReleaseInfo, int) {}
func (NopReporter) StepFailed(Step, error) {}

// Checker runs the update check against a release source.
type Checker struct {
	cfg      Config
	source   ReleaseSource
	compare  Comparator
	reporter Reporter
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithReporter sets where progress events go.
func WithReporter(r Reporter) CheckerOption {
	return func(c *Checker) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithComparator overrides the version comparator.
func WithComparator(cmp Comparator) CheckerOption {
	return func(c *Checker) {
		if cmp != nil {
			c.compare = cmp
		}
	}
}

// NewChecker creates a checker for cfg backed by source.
func NewChecker(cfg Config, source ReleaseSource, opts ...CheckerOption) *Checker {
	c := &Checker{
		cfg:      cfg,
		source:   source,
		compare:  CompareVersions,
		reporter: NopReporter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check verifies the repository is reachable, that it has releases, and
// compares the current version with the latest release. Steps run in order
// and the first failure ends the check with a structured error; no partial
// decision is returned.
func (c *Checker) Check(ctx context.Context) (*Decision, error) {
	log := debug.L().With(zap.String("repo", c.cfg.FullName()))
	c.reporter.CheckStarted(c.cfg)

	c.reporter.StepStarted(StepRepository)
	info, err := c.source.FetchRepository(ctx, c.cfg.Owner, c.cfg.Repo)
	if err != nil {
		log.Debug("repository step failed", zap.Error(err))
		c.reporter.StepFailed(StepRepository, err)
		return nil, apperrors.New(apperrors.CodeRepoUnavailable, "fetch repository", err)
	}
	c.reporter.RepositoryFetched(info)

	c.reporter.StepStarted(StepReleases)
	releases, err := c.source.ListReleases(ctx, c.cfg.Owner, c.cfg.Repo)
	if err != nil {
		log.Debug("releases step failed", zap.Error(err))
		c.reporter.StepFailed(StepReleases, err)
		return nil, apperrors.New(apperrors.CodeReleaseListFailed, "list releases", err)
	}
	if len(releases) == 0 {
		c.reporter.NoReleases(c.cfg)
		return nil, apperrors.New(apperrors.CodeNoReleases, fmt.Sprintf("no releases found for %s", c.cfg.FullName()), nil)
	}
	recent := releases
	if len(recent) > RecentReleaseCount {
		recent = recent[:RecentReleaseCount]
	}
	c.reporter.ReleasesListed(len(releases), recent)

	c.reporter.StepStarted(StepLatest)
	latest, err := c.source.FetchLatestRelease(ctx, c.cfg.Owner, c.cfg.Repo)
	if err != nil {
		log.Debug("latest step failed", zap.Error(err))
		c.reporter.StepFailed(StepLatest, err)
		if IsNotFound(err) {
			return nil, apperrors.New(apperrors.CodeNoLatestRelease, "latest release not found", err)
		}
		return nil, apperrors.New(apperrors.CodeLatestReleaseFailed, "fetch latest release", err)
	}
	if latest == nil || strings.TrimSpace(latest.TagName) == "" {
		err := fmt.Errorf("latest release: %w", ErrMissingTagName)
		log.Debug("latest step failed", zap.Error(err))
		c.reporter.StepFailed(StepLatest, err)
		return nil, apperrors.New(apperrors.CodeLatestReleaseFailed, "fetch latest release", err)
	}
	c.reporter.LatestReleaseFetched(latest)

	result := c.compare(c.cfg.CurrentVersion, latest.TagName)
	log.Debug("versions compared",
		zap.String("current", c.cfg.CurrentVersion),
		zap.String("latest", latest.TagName),
		zap.Int("result", result),
	)
	c.reporter.VersionsCompared(c.cfg.CurrentVersion, latest, result)

	if result < 0 {
		return &Decision{
			HasUpdate:      true,
			CurrentVersion: c.cfg.CurrentVersion,
			LatestVersion:  latest.TagName,
			UpdateURL:      latest.HTMLURL,
			ReleaseNotes:   latest.Body,
			PublishedAt:    latest.PublishedAt,
		}, nil
	}
	return &Decision{HasUpdate: false}, nil
}
