package report

import (
	"fmt"
	"strings"
	"time"

	apperrors "releasecheck/internal/errors"
	"releasecheck/internal/history"
	"releasecheck/internal/update"
)

// Summary prints the closing section of a completed check.
func (c *Console) Summary(cfg update.Config, d *update.Decision) {
	c.println(c.st.title.Render("Summary"))
	c.println("  " + c.st.success.Render("Update check completed"))
	c.field("Current version", cfg.CurrentVersion)
	if d != nil && d.HasUpdate {
		c.field("Latest version", d.LatestVersion)
		c.field("Download", c.st.link.Render(d.UpdateURL))
	} else {
		c.field("Status", "no update needed")
	}
	c.println("")
}

// Failure prints the check error and a troubleshooting checklist.
func (c *Console) Failure(err error) {
	c.println(c.st.failure.Render("Update check failed"))
	if err != nil {
		c.printf("  %s %v\n", c.st.label.Render("Reason:"), err)
		if code := apperrors.CodeOf(err); code != apperrors.CodeUnknown {
			c.printf("  %s %s\n", c.st.label.Render("Code:"), code)
		}
		if kind := update.FailureKind(err); kind != apperrors.CodeUnknown {
			c.printf("  %s %s\n", c.st.label.Render("Cause:"), kind)
		}
	}
	c.println("  Please check:")
	c.println("    1. the owner and repository names are correct")
	c.println("    2. at least one release has been published")
	c.println("    3. the network can reach api.github.com")
	c.println("")
}

// Download prints a fetched file's size and preview.
func (c *Console) Download(dl *update.Download) {
	if dl == nil {
		return
	}
	c.println(c.st.success.Render("Download succeeded"))
	c.field("URL", dl.URL)
	c.field("Size", fmt.Sprintf("%d characters", dl.Size))
	c.field("Preview", dl.Preview)
	c.println("")
}

// DownloadFailed reports a failed download. The check result is unaffected.
func (c *Console) DownloadFailed(err error) {
	c.println(c.st.warning.Render("Download failed"))
	c.printf("  %s %v\n", c.st.label.Render("Error:"), err)
	c.println("")
}

// DownloadSkipped notes that the operator declined the download.
func (c *Console) DownloadSkipped() {
	c.println(c.st.dim.Render("Download skipped"))
}

// History prints stored check records, newest first.
func (c *Console) History(records []history.Record) {
	if len(records) == 0 {
		c.println(c.st.dim.Render("No checks recorded yet"))
		return
	}
	c.println(c.st.title.Render("Recent checks"))
	for _, r := range records {
		c.printf("  %s  %s  %s\n",
			c.st.dim.Render(r.CheckedAt.Local().Format(time.DateTime)),
			r.Repo,
			historyOutcome(r))
	}
}

func historyOutcome(r history.Record) string {
	switch {
	case r.Outcome != history.OutcomeOK:
		return "failed (" + strings.TrimSpace(r.Outcome) + ")"
	case r.HasUpdate:
		return fmt.Sprintf("%s -> %s", r.CurrentVersion, r.LatestVersion)
	default:
		return r.CurrentVersion + " up to date"
	}
}
