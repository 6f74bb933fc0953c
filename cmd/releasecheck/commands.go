package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"releasecheck/internal/config"
	"releasecheck/internal/debug"
	apperrors "releasecheck/internal/errors"
	"releasecheck/internal/history"
	"releasecheck/internal/report"
	"releasecheck/internal/update"
)

const downloadPrompt = "Download test file? (y/n) "

type jsonFailure struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Cause string `json:"cause,omitempty"`
}

func newJSONFailure(err error) jsonFailure {
	f := jsonFailure{Error: err.Error(), Code: string(apperrors.CodeOf(err))}
	if kind := update.FailureKind(err); kind != apperrors.CodeUnknown {
		f.Cause = string(kind)
	}
	return f
}

// runCheck is phase one: run the checker and report its decision. When an
// update is found it continues into the optional download.
func runCheck(ctx context.Context, opts runtimeOptions, s streams) int {
	client := update.NewClient(
		update.WithBaseURL(opts.apiBaseURL),
		update.WithTimeout(opts.timeout),
		update.WithUserAgent(userAgent()),
	)

	var console *report.Console
	var reporter update.Reporter = update.NopReporter{}
	if !opts.jsonOutput {
		console = newConsole(s.out, opts)
		reporter = console
	}

	checker := update.NewChecker(opts.check, client,
		update.WithReporter(reporter),
		update.WithComparator(update.ComparatorFor(opts.compareMode)),
	)
	decision, err := checker.Check(ctx)
	recordCheck(ctx, opts, decision, err, s.errOut)

	if opts.jsonOutput {
		if err != nil {
			writeJSON(s.out, newJSONFailure(err))
			return 1
		}
		writeJSON(s.out, decision)
		return 0
	}

	if err != nil {
		console.Failure(err)
		return 1
	}
	console.Summary(opts.check, decision)

	if !decision.HasUpdate {
		return 0
	}
	if !wantsDownload(opts, s) {
		console.DownloadSkipped()
		return 0
	}
	// A failed download is reported but the completed check still exits 0.
	if dl, err := fetchTestFile(ctx, opts); err != nil {
		console.DownloadFailed(err)
	} else {
		console.Download(dl)
	}
	return 0
}

// runDownload is phase two on its own.
func runDownload(ctx context.Context, opts runtimeOptions, s streams) int {
	dl, err := fetchTestFile(ctx, opts)
	if opts.jsonOutput {
		if err != nil {
			writeJSON(s.out, newJSONFailure(err))
			return 1
		}
		writeJSON(s.out, dl)
		return 0
	}

	console := newConsole(s.out, opts)
	if err != nil {
		console.DownloadFailed(err)
		return 1
	}
	console.Download(dl)
	return 0
}

func runHistory(ctx context.Context, opts runtimeOptions, s streams) int {
	path, err := resolveHistoryPath(opts)
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return 1
	}
	store, err := history.Open(ctx, path)
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	records, err := store.Recent(ctx, opts.historyLimit)
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return 1
	}
	if opts.jsonOutput {
		if records == nil {
			records = []history.Record{}
		}
		writeJSON(s.out, records)
		return 0
	}
	newConsole(s.out, opts).History(records)
	return 0
}

func wantsDownload(opts runtimeOptions, s streams) bool {
	if opts.assumeYes {
		return true
	}
	if opts.noPrompt {
		return false
	}
	return confirm(s.in, s.out, downloadPrompt)
}

func fetchTestFile(ctx context.Context, opts runtimeOptions) (*update.Download, error) {
	fetcher := update.NewFetcher(
		update.WithFetcherTimeout(opts.timeout),
		update.WithFetcherUserAgent(userAgent()),
	)
	url := update.RawContentURL(opts.rawBaseURL, opts.check.Owner, opts.check.Repo, opts.rawBranch, opts.rawPath)
	dl, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeDownloadFailed, "download "+url, err)
	}
	return dl, nil
}

// recordCheck stores the outcome when history is enabled. Storage problems
// never change the check result.
func recordCheck(ctx context.Context, opts runtimeOptions, decision *update.Decision, checkErr error, errOut io.Writer) {
	if !opts.historyEnabled {
		return
	}
	path, err := resolveHistoryPath(opts)
	if err == nil {
		var store *history.Store
		store, err = history.Open(ctx, path)
		if err == nil {
			_, err = store.Add(ctx, history.FromCheck(opts.check, decision, checkErr, time.Now()))
			_ = store.Close()
		}
	}
	if err != nil {
		debug.L().Warn("record check failed", zap.Error(err))
		_, _ = fmt.Fprintf(errOut, "Warning: could not record check history: %v\n", err)
	}
}

func resolveHistoryPath(opts runtimeOptions) (string, error) {
	if opts.historyPath != "" {
		return opts.historyPath, nil
	}
	return config.DefaultHistoryPath()
}

func newConsole(w io.Writer, opts runtimeOptions) *report.Console {
	return report.New(w,
		report.WithFormat(opts.outputFormat),
		report.WithWidth(opts.outputWidth),
	)
}

// userAgent identifies this build to GitHub.
func userAgent() string {
	return "releasecheck/" + Version
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		debug.L().Warn("encode json output failed", zap.Error(err))
	}
}
