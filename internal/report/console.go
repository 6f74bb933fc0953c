// Package report renders update check progress and results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"releasecheck/internal/update"
)

const (
	// DefaultWidth is the wrap width for release notes.
	DefaultWidth = 80

	listBodyLimit   = 50
	updateNoteLimit = 150
)

// Console writes human-readable check output to a writer. It implements
// update.Reporter.
type Console struct {
	w           io.Writer
	st          styles
	renderNotes func(string) string
}

var _ update.Reporter = (*Console)(nil)

type consoleSettings struct {
	format string
	width  int
}

// Option configures a Console.
type Option func(*consoleSettings)

// WithFormat selects release-note rendering: rich, light, dark, or plain.
func WithFormat(format string) Option {
	return func(s *consoleSettings) {
		s.format = format
	}
}

// WithWidth sets the wrap width for release notes.
func WithWidth(width int) Option {
	return func(s *consoleSettings) {
		if width > 0 {
			s.width = width
		}
	}
}

// New creates a Console writing to w.
func New(w io.Writer, opts ...Option) *Console {
	settings := consoleSettings{format: "rich", width: DefaultWidth}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Console{
		w:           w,
		st:          newStyles(),
		renderNotes: buildMarkdownRenderer(settings.format, settings.width),
	}
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.w, format, args...)
}

func (c *Console) println(s string) {
	_, _ = fmt.Fprintln(c.w, s)
}

func (c *Console) field(name, value string) {
	c.printf("  %s %s\n", c.st.label.Render(name+":"), value)
}

// CheckStarted prints the check header.
func (c *Console) CheckStarted(cfg update.Config) {
	c.println(c.st.title.Render("Checking for updates"))
	c.field("Repository", cfg.FullName())
	c.field("Current version", cfg.CurrentVersion)
	c.println("")
}

// StepStarted announces a step.
func (c *Console) StepStarted(step update.Step) {
	var text string
	switch step {
	case update.StepRepository:
		text = "Fetching repository info..."
	case update.StepReleases:
		text = "Listing releases..."
	case update.StepLatest:
		text = "Fetching latest release..."
	default:
		text = step.String() + "..."
	}
	c.println(c.st.step.Render(fmt.Sprintf("[%d/3] %s", int(step), text)))
}

// RepositoryFetched prints repository metadata.
func (c *Console) RepositoryFetched(info *update.RepoInfo) {
	if info == nil {
		return
	}
	description := strings.TrimSpace(info.Description)
	if description == "" {
		description = "(no description)"
	}
	visibility := "public"
	if info.Private {
		visibility = "private"
	}
	c.field("Name", info.FullName)
	c.field("Description", description)
	c.field("Visibility", visibility)
	c.field("Stars", fmt.Sprintf("%d", info.StargazersCount))
	c.field("Forks", fmt.Sprintf("%d", info.ForksCount))
	c.println("")
}

// ReleasesListed prints the release count and the most recent entries.
func (c *Console) ReleasesListed(total int, recent []update.ReleaseInfo) {
	c.printf("  Found %d release(s)\n", total)
	for i, rel := range recent {
		name := strings.TrimSpace(rel.Name)
		if name == "" {
			name = "(untitled)"
		}
		c.printf("  %d. %s %s\n", i+1, c.st.step.Render(rel.TagName), name)
		c.printf("     %s %s\n", c.st.label.Render("Published:"), rel.PublishedAt)
		if body := clip(singleLine(rel.Body), listBodyLimit); body != "" {
			c.printf("     %s %s\n", c.st.label.Render("Notes:"), body)
		}
	}
	c.println("")
}

// NoReleases explains how to publish the first release.
func (c *Console) NoReleases(cfg update.Config) {
	c.println(c.st.warning.Render("  No releases found for " + cfg.FullName()))
	c.println("  Create the first release at:")
	c.println("    " + c.st.link.Render(cfg.NewReleaseURL()))
	c.println("  Use a tag such as v1.0.0 so versions can be compared.")
	c.println("")
}

// LatestReleaseFetched prints the latest release summary.
func (c *Console) LatestReleaseFetched(release *update.ReleaseInfo) {
	if release == nil {
		return
	}
	name := strings.TrimSpace(release.Name)
	if name == "" {
		name = "(untitled)"
	}
	c.field("Tag", release.TagName)
	c.field("Title", name)
	c.field("Published", release.PublishedAt)
	c.println("")
}

// VersionsCompared prints the comparison outcome.
func (c *Console) VersionsCompared(current string, release *update.ReleaseInfo, result int) {
	if release == nil {
		return
	}
	switch {
	case result < 0:
		c.println(c.st.success.Render(fmt.Sprintf("Update available: %s -> %s", current, release.TagName)))
		if notes := clip(release.Body, updateNoteLimit); notes != "" {
			c.println(c.st.label.Render("Release notes:"))
			c.println(c.renderNotes(notes))
		}
		c.printf("%s %s\n", c.st.label.Render("Release page:"), c.st.link.Render(release.HTMLURL))
	case result == 0:
		c.println(c.st.success.Render(fmt.Sprintf("Already up to date (%s)", current)))
	default:
		c.println(c.st.warning.Render(fmt.Sprintf(
			"Current version %s is newer than the latest release %s", current, release.TagName)))
	}
	c.println("")
}

// StepFailed prints guidance for the failed step.
func (c *Console) StepFailed(step update.Step, err error) {
	switch step {
	case update.StepRepository:
		c.println(c.st.failure.Render("  Cannot access the repository"))
		c.printf("  %s %v\n", c.st.label.Render("Error:"), err)
		c.println("  Possible causes:")
		c.println("    - the repository does not exist or the name is misspelled")
		c.println("    - the repository is private")
		c.println("    - the network or GitHub API is unreachable")
	case update.StepLatest:
		if update.IsNotFound(err) {
			c.println(c.st.failure.Render("  No latest release available (HTTP 404)"))
			c.println("  Possible causes:")
			c.println("    - no release has been published yet (drafts and pre-releases do not count)")
			c.println("    - the latest release was deleted")
			c.println("    - the token or repository permissions do not allow reading releases")
			break
		}
		c.println(c.st.failure.Render("  Failed to fetch the latest release"))
		c.printf("  %s %v\n", c.st.label.Render("Error:"), err)
	default:
		c.println(c.st.failure.Render("  Failed to list releases"))
		c.printf("  %s %v\n", c.st.label.Render("Error:"), err)
	}
	c.println("")
}
