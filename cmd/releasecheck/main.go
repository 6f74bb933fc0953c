package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"releasecheck/internal/config"
	"releasecheck/internal/debug"
	"releasecheck/internal/update"
)

const (
	cmdCheck    = "check"
	cmdDownload = "download"
	cmdHistory  = "history"
)

// streams bundles the process I/O so commands can be driven from tests.
type streams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], streams{in: os.Stdin, out: os.Stdout, errOut: os.Stderr})
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, s streams) (code int) {
	defer func() {
		if r := recover(); r != nil {
			debug.L().Error("unexpected panic", zap.Any("panic", r), zap.Stack("stack"))
			_, _ = fmt.Fprintf(s.errOut, "Error: unexpected failure: %v\n", r)
			code = 1
		}
	}()

	if err := config.Initialize(); err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error initializing config: %v\n", err)
		return 1
	}

	opts, err := parseArgs(args, s.errOut)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return 1
	}
	if opts.showVersion {
		printVersion(s.out)
		return 0
	}

	if opts.debug {
		if err := debug.Init(true); err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Warning: debug log unavailable: %v\n", err)
		} else {
			defer debug.Close()
			if path, err := debug.GetLogPath(); err == nil {
				_, _ = fmt.Fprintf(s.errOut, "Debug log: %s\n", path)
			}
		}
	}

	switch opts.command {
	case cmdDownload:
		return runDownload(ctx, opts, s)
	case cmdHistory:
		return runHistory(ctx, opts, s)
	default:
		return runCheck(ctx, opts, s)
	}
}

type runtimeOptions struct {
	command     string
	showVersion bool
	debug       bool

	check       update.Config
	compareMode string
	apiBaseURL  string
	timeout     time.Duration

	rawBaseURL string
	rawBranch  string
	rawPath    string

	outputFormat string
	outputWidth  int
	jsonOutput   bool
	assumeYes    bool
	noPrompt     bool

	historyEnabled bool
	historyPath    string
	historyLimit   int
}

// flagConfigKeys maps flags that mirror a config key. Explicitly set flags are
// applied as overrides, the top layer of the config precedence.
var flagConfigKeys = map[string]string{
	"owner":           config.KeyOwner,
	"repo":            config.KeyRepo,
	"current-version": config.KeyCurrentVersion,
	"compare-mode":    config.KeyCompareMode,
	"api-url":         config.KeyAPIBaseURL,
	"timeout":         config.KeyAPITimeout,
	"raw-url":         config.KeyRawBaseURL,
	"branch":          config.KeyRawBranch,
	"file":            config.KeyRawPath,
	"output-format":   config.KeyOutputFormat,
	"json":            config.KeyOutputJSON,
	"record":          config.KeyHistoryEnabled,
	"history-path":    config.KeyHistoryPath,
	"limit":           config.KeyHistoryLimit,
}

func parseArgs(args []string, errOut io.Writer) (runtimeOptions, error) {
	var opts runtimeOptions

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		opts.command = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("releasecheck", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		_, _ = fmt.Fprintln(errOut, "Usage: releasecheck [check|download|history] [flags]")
		fs.PrintDefaults()
	}

	versionFlag := fs.Bool("version", false, "Print version information and exit")
	debugFlag := fs.Bool("debug", false, "Write a debug log to ~/.releasecheck/debug.log")
	yesFlag := fs.Bool("yes", false, "Download the test file without asking when an update is found")
	noPromptFlag := fs.Bool("no-prompt", false, "Never ask to download the test file")

	fs.String("owner", config.GetString(config.KeyOwner), "Repository owner")
	fs.String("repo", config.GetString(config.KeyRepo), "Repository name")
	fs.String("current-version", config.GetString(config.KeyCurrentVersion), "Version to compare against the latest release")
	fs.String("compare-mode", config.GetString(config.KeyCompareMode), "Version comparison (lenient, semver)")
	fs.String("api-url", config.GetString(config.KeyAPIBaseURL), "GitHub API base URL")
	fs.Duration("timeout", config.GetDuration(config.KeyAPITimeout), "Per-request timeout")
	fs.String("raw-url", config.GetString(config.KeyRawBaseURL), "Raw content base URL for the test download")
	fs.String("branch", config.GetString(config.KeyRawBranch), "Branch for the test download")
	fs.String("file", config.GetString(config.KeyRawPath), "File path for the test download")
	fs.String("output-format", config.GetString(config.KeyOutputFormat), "Release notes style (rich, light, plain)")
	fs.Bool("json", config.GetBool(config.KeyOutputJSON), "Print results as JSON")
	fs.Bool("record", config.GetBool(config.KeyHistoryEnabled), "Record the check in the local history database")
	fs.String("history-path", config.GetString(config.KeyHistoryPath), "History database path")
	fs.Int("limit", config.GetInt(config.KeyHistoryLimit), "Number of entries shown by the history command")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if fs.NArg() > 0 {
		if opts.command != "" || fs.NArg() > 1 {
			return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		}
		opts.command = fs.Arg(0)
	}
	if opts.command == "" {
		opts.command = cmdCheck
	}
	switch opts.command {
	case cmdCheck, cmdDownload, cmdHistory:
	default:
		return opts, fmt.Errorf("unknown command %q (want check, download, or history)", opts.command)
	}

	opts.showVersion = *versionFlag
	if opts.showVersion {
		return opts, nil
	}

	if err := config.ApplyOverrides(collectOverrides(fs)); err != nil {
		return opts, err
	}
	if err := config.Validate(); err != nil {
		return opts, err
	}

	opts.debug = *debugFlag
	opts.assumeYes = *yesFlag
	opts.noPrompt = *noPromptFlag

	opts.check = update.Config{
		Owner:          config.GetString(config.KeyOwner),
		Repo:           config.GetString(config.KeyRepo),
		CurrentVersion: config.GetString(config.KeyCurrentVersion),
		ScriptFile:     config.GetString(config.KeyScriptFile),
	}
	opts.compareMode = config.GetString(config.KeyCompareMode)
	opts.apiBaseURL = config.GetString(config.KeyAPIBaseURL)
	opts.timeout = config.GetDuration(config.KeyAPITimeout)
	opts.rawBaseURL = config.GetString(config.KeyRawBaseURL)
	opts.rawBranch = config.GetString(config.KeyRawBranch)
	opts.rawPath = config.GetString(config.KeyRawPath)
	opts.outputFormat = config.GetString(config.KeyOutputFormat)
	opts.outputWidth = config.GetInt(config.KeyOutputWidth)
	opts.jsonOutput = config.GetBool(config.KeyOutputJSON)
	opts.historyEnabled = config.GetBool(config.KeyHistoryEnabled)
	opts.historyPath = config.GetString(config.KeyHistoryPath)
	opts.historyLimit = config.GetInt(config.KeyHistoryLimit)
	return opts, nil
}

func collectOverrides(fs *flag.FlagSet) map[string]any {
	overrides := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		key, ok := flagConfigKeys[f.Name]
		if !ok {
			return
		}
		if getter, ok := f.Value.(flag.Getter); ok {
			overrides[key] = getter.Get()
		}
	})
	return overrides
}
