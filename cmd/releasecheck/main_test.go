package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"releasecheck/internal/config"
	"releasecheck/internal/update"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

type fakeGitHub struct {
	releases   string
	latest     string
	latestCode int
	readmeCode int
	readmeHits atomic.Int32

	mu         sync.Mutex
	userAgents map[string]string
}

func (gh *fakeGitHub) userAgent(path string) string {
	gh.mu.Lock()
	defer gh.mu.Unlock()
	return gh.userAgents[path]
}

func newFakeGitHub(t *testing.T, latestTag string) (*fakeGitHub, *httptest.Server) {
	t.Helper()
	release := `{"tag_name":"` + latestTag + `","name":"Release ` + latestTag + `","body":"Fixes and improvements","html_url":"https://github.com/owner/repo/releases/tag/` + latestTag + `","published_at":"2024-03-01T00:00:00Z"}`
	gh := &fakeGitHub{
		releases:   "[" + release + "]",
		latest:     release,
		latestCode: http.StatusOK,
		readmeCode: http.StatusOK,
		userAgents: map[string]string{},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gh.mu.Lock()
		gh.userAgents[r.URL.Path] = r.Header.Get("User-Agent")
		gh.mu.Unlock()
		switch r.URL.Path {
		case "/repos/owner/repo":
			_, _ = w.Write([]byte(`{"full_name":"owner/repo","description":"demo","stargazers_count":3,"forks_count":1}`))
		case "/repos/owner/repo/releases":
			_, _ = w.Write([]byte(gh.releases))
		case "/repos/owner/repo/releases/latest":
			w.WriteHeader(gh.latestCode)
			if gh.latestCode == http.StatusOK {
				_, _ = w.Write([]byte(gh.latest))
			} else {
				_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			}
		case "/owner/repo/main/README.md":
			gh.readmeHits.Add(1)
			w.WriteHeader(gh.readmeCode)
			_, _ = w.Write([]byte("# Demo\nThis is the readme."))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return gh, server
}

func runForTest(t *testing.T, server *httptest.Server, stdin string, extra ...string) (int, string, string) {
	t.Helper()
	cleanup := config.ResetForTesting(t)
	t.Cleanup(cleanup)

	args := []string{}
	cmd := ""
	if len(extra) > 0 && !strings.HasPrefix(extra[0], "-") {
		cmd, extra = extra[0], extra[1:]
		args = append(args, cmd)
	}
	args = append(args,
		"--owner", "owner",
		"--repo", "repo",
		"--current-version", "v0.0.1",
		"--api-url", server.URL,
		"--raw-url", server.URL,
		"--output-format", "plain",
	)
	args = append(args, extra...)

	var out, errOut bytes.Buffer
	code := run(context.Background(), args, streams{in: strings.NewReader(stdin), out: &out, errOut: &errOut})
	return code, out.String(), errOut.String()
}

func TestRunCheckUpdateAndDownload(t *testing.T) {
	gh, server := newFakeGitHub(t, "v1.0.0")

	code, out, errOut := runForTest(t, server, "Y\n")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut)
	}
	for _, want := range []string{
		"Update available: v0.0.1 -> v1.0.0",
		"Found 1 release(s)",
		downloadPrompt,
		"Download succeeded",
		"# Demo This is the readme.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if gh.readmeHits.Load() != 1 {
		t.Errorf("readme fetched %d times, want 1", gh.readmeHits.Load())
	}
}

func TestRunCheckDeclinedDownload(t *testing.T) {
	gh, server := newFakeGitHub(t, "v1.0.0")

	code, out, _ := runForTest(t, server, "n\n")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "Download skipped") {
		t.Errorf("expected skipped download, got:\n%s", out)
	}
	if gh.readmeHits.Load() != 0 {
		t.Error("readme should not be fetched when declined")
	}
}

func TestRunCheckEOFSkipsDownload(t *testing.T) {
	gh, server := newFakeGitHub(t, "v1.0.0")

	if code, _, _ := runForTest(t, server, ""); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gh.readmeHits.Load() != 0 {
		t.Error("readme should not be fetched on EOF")
	}
}

func TestRunCheckDownloadFailureKeepsExitZero(t *testing.T) {
	gh, server := newFakeGitHub(t, "v1.0.0")
	gh.readmeCode = http.StatusNotFound

	code, out, _ := runForTest(t, server, "", "--yes")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0 after failed download", code)
	}
	if !strings.Contains(out, "Download failed") {
		t.Errorf("expected download failure report, got:\n%s", out)
	}
	if strings.Contains(out, downloadPrompt) {
		t.Error("--yes should not prompt")
	}
}

func TestRunCheckUpToDateDoesNotPrompt(t *testing.T) {
	gh, server := newFakeGitHub(t, "v0.0.1")

	code, out, _ := runForTest(t, server, "y\n")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if strings.Contains(out, downloadPrompt) {
		t.Errorf("no prompt expected when up to date:\n%s", out)
	}
	if !strings.Contains(out, "no update needed") {
		t.Errorf("expected up-to-date summary:\n%s", out)
	}
	if gh.readmeHits.Load() != 0 {
		t.Error("readme should not be fetched when up to date")
	}
}

func TestRunCheckFailures(t *testing.T) {
	t.Run("no releases", func(t *testing.T) {
		gh, server := newFakeGitHub(t, "v1.0.0")
		gh.releases = "[]"

		code, out, _ := runForTest(t, server, "")
		if code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
		for _, want := range []string{"No releases found for owner/repo", "Update check failed", "Please check:"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q\n%s", want, out)
			}
		}
	})

	t.Run("latest not found", func(t *testing.T) {
		gh, server := newFakeGitHub(t, "v1.0.0")
		gh.latestCode = http.StatusNotFound

		code, out, _ := runForTest(t, server, "")
		if code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
		if !strings.Contains(out, "No latest release available (HTTP 404)") {
			t.Errorf("expected 404 guidance:\n%s", out)
		}
	})

	t.Run("unknown repository", func(t *testing.T) {
		_, server := newFakeGitHub(t, "v1.0.0")
		cleanup := config.ResetForTesting(t)
		t.Cleanup(cleanup)

		var out, errOut bytes.Buffer
		code := run(context.Background(), []string{
			"--owner", "someone", "--repo", "missing", "--api-url", server.URL, "--output-format", "plain",
		}, streams{in: strings.NewReader(""), out: &out, errOut: &errOut})
		if code != 1 {
			t.Fatalf("exit code = %d, want 1", code)
		}
		if !strings.Contains(out.String(), "Cannot access the repository") {
			t.Errorf("expected repository guidance:\n%s", out.String())
		}
	})
}

func TestRunCheckJSON(t *testing.T) {
	_, server := newFakeGitHub(t, "v1.0.0")

	code, out, _ := runForTest(t, server, "", "--json")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var decision update.Decision
	if err := json.Unmarshal([]byte(out), &decision); err != nil {
		t.Fatalf("output is not a JSON decision: %v\n%s", err, out)
	}
	want := update.Decision{
		HasUpdate:      true,
		CurrentVersion: "v0.0.1",
		LatestVersion:  "v1.0.0",
		UpdateURL:      "https://github.com/owner/repo/releases/tag/v1.0.0",
		ReleaseNotes:   "Fixes and improvements",
		PublishedAt:    "2024-03-01T00:00:00Z",
	}
	if decision != want {
		t.Errorf("decision = %+v, want %+v", decision, want)
	}
}

func TestRunCheckJSONFailure(t *testing.T) {
	gh, server := newFakeGitHub(t, "v1.0.0")
	gh.releases = "[]"

	code, out, _ := runForTest(t, server, "", "--json")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	var failure jsonFailure
	if err := json.Unmarshal([]byte(out), &failure); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if failure.Code != "no_releases" {
		t.Errorf("code = %q", failure.Code)
	}
}

func TestRunCheckJSONFailureCause(t *testing.T) {
	gh, server := newFakeGitHub(t, "v1.0.0")
	gh.latestCode = http.StatusInternalServerError

	code, out, _ := runForTest(t, server, "", "--json")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	var failure jsonFailure
	if err := json.Unmarshal([]byte(out), &failure); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if failure.Code != "latest_release_failed" || failure.Cause != "http_status" {
		t.Errorf("failure = %+v", failure)
	}
}

func TestRunCheckSendsUserAgent(t *testing.T) {
	gh, server := newFakeGitHub(t, "v1.0.0")

	code, _, errOut := runForTest(t, server, "y\n")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut)
	}
	want := "releasecheck/" + Version
	for _, path := range []string{
		"/repos/owner/repo",
		"/repos/owner/repo/releases",
		"/repos/owner/repo/releases/latest",
		"/owner/repo/main/README.md",
	} {
		if got := gh.userAgent(path); got != want {
			t.Errorf("User-Agent for %s = %q, want %q", path, got, want)
		}
	}
}

func TestRecordAndListHistory(t *testing.T) {
	_, server := newFakeGitHub(t, "v1.0.0")
	dbPath := filepath.Join(t.TempDir(), "history.db")

	if code, _, errOut := runForTest(t, server, "", "--no-prompt", "--record", "--history-path", dbPath); code != 0 {
		t.Fatalf("check exit code = %d, stderr: %s", code, errOut)
	}

	code, out, errOut := runForTest(t, server, "", "history", "--history-path", dbPath)
	if code != 0 {
		t.Fatalf("history exit code = %d, stderr: %s", code, errOut)
	}
	if !strings.Contains(out, "owner/repo") || !strings.Contains(out, "v0.0.1 -> v1.0.0") {
		t.Errorf("history output missing record:\n%s", out)
	}
}

func TestRunDownloadCommand(t *testing.T) {
	gh, server := newFakeGitHub(t, "v1.0.0")

	code, out, _ := runForTest(t, server, "", "download")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "Size: 26 characters") {
		t.Errorf("unexpected download output:\n%s", out)
	}

	gh.readmeCode = http.StatusInternalServerError
	if code, _, _ := runForTest(t, server, "", "download"); code != 1 {
		t.Fatalf("failed standalone download exit code = %d, want 1", code)
	}
}

func TestRunUsageErrors(t *testing.T) {
	_, server := newFakeGitHub(t, "v1.0.0")

	if code, _, errOut := runForTest(t, server, "", "publish"); code != 1 || !strings.Contains(errOut, "unknown command") {
		t.Errorf("unknown command: code=%d stderr=%s", code, errOut)
	}
	if code, _, errOut := runForTest(t, server, "", "--compare-mode", "calver"); code != 1 || !strings.Contains(errOut, "compare-mode") {
		t.Errorf("bad compare mode: code=%d stderr=%s", code, errOut)
	}
	if code, out, _ := runForTest(t, server, "", "--version"); code != 0 || !strings.Contains(out, "releasecheck version") {
		t.Errorf("--version: code=%d out=%s", code, out)
	}
}

func TestParseArgsCommandPlacement(t *testing.T) {
	cleanup := config.ResetForTesting(t)
	t.Cleanup(cleanup)

	var errOut bytes.Buffer
	opts, err := parseArgs([]string{"--limit", "3", "history"}, &errOut)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.command != cmdHistory || opts.historyLimit != 3 {
		t.Errorf("opts = %+v", opts)
	}

	opts, err = parseArgs([]string{"download", "--branch", "dev"}, &errOut)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.command != cmdDownload || opts.rawBranch != "dev" {
		t.Errorf("opts = %+v", opts)
	}

	if _, err := parseArgs([]string{"check", "extra"}, &errOut); err == nil {
		t.Error("expected error for extra positional argument")
	}
}

func TestParseArgsFlagsOverrideConfig(t *testing.T) {
	cleanup := config.ResetForTesting(t)
	t.Cleanup(cleanup)
	t.Setenv("RC_CURRENT_VERSION", "v5.0.0")

	var errOut bytes.Buffer
	opts, err := parseArgs(nil, &errOut)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.check.CurrentVersion != "v5.0.0" {
		t.Errorf("env value not used: %q", opts.check.CurrentVersion)
	}
	if opts.check.Owner != update.DefaultRepoOwner || opts.command != cmdCheck {
		t.Errorf("defaults not applied: %+v", opts)
	}

	opts, err = parseArgs([]string{"--current-version", "v6.0.0", "--compare-mode", "semver"}, &errOut)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.check.CurrentVersion != "v6.0.0" || opts.compareMode != "semver" {
		t.Errorf("flags did not override: %+v", opts)
	}
}

func TestParseArgsConfigBackedLimitAndWidth(t *testing.T) {
	cleanup := config.ResetForTesting(t)
	t.Cleanup(cleanup)
	t.Setenv("RC_HISTORY_LIMIT", "3")
	t.Setenv("RC_OUTPUT_WIDTH", "120")

	var errOut bytes.Buffer
	opts, err := parseArgs([]string{"history"}, &errOut)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.historyLimit != 3 || opts.outputWidth != 120 {
		t.Errorf("config values not applied: limit=%d width=%d", opts.historyLimit, opts.outputWidth)
	}

	opts, err = parseArgs([]string{"history", "--limit", "7"}, &errOut)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.historyLimit != 7 {
		t.Errorf("--limit did not override: %d", opts.historyLimit)
	}
}
