// Package update checks a GitHub repository for a newer release.
//
// This package handles:
//   - Querying the GitHub releases API (repository, release list, latest release)
//   - Comparing version strings such as "v1.2.3"
//   - Deciding whether an update is available
//   - Downloading a file from the raw-content host
//
// The package is isolated from console concerns. Progress is delivered to a
// Reporter and the result is a Decision value the caller can present however
// it wants.
//
// Example usage:
//
//	client := update.NewClient()
//	checker := update.NewChecker(update.Config{
//	    Owner:          update.DefaultRepoOwner,
//	    Repo:           update.DefaultRepoName,
//	    CurrentVersion: update.DefaultCurrentVersion,
//	}, client)
//	decision, err := checker.Check(ctx)
//	if err != nil {
//	    // errors.CodeOf(err) tells which step failed
//	}
//	if decision.HasUpdate {
//	    // offer the download
//	}
package update
