// Command golf-eval evaluates one solution file locally and prints the
// verdict, score and validation report as JSON.
//
//	golf-eval -code solution.py -tests tests.json
//	golf-eval -lang javascript -code sol.js -tests tests.json -timeout 20s
//
// Without -tests only the score and validation report are printed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golfjudge/internal/judge/sandbox"
	"golfjudge/internal/judge/sandbox/engine"
	"golfjudge/internal/judge/sandbox/profile"
	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/sandbox/runner"
	"golfjudge/internal/judge/sandbox/suite"
	"golfjudge/internal/judge/scoring"
	"golfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	exitPassed = 0
	exitFailed = 1
	exitUsage  = 2
)

type options struct {
	language  string
	codePath  string
	testsPath string
	timeout   time.Duration
	helper    string
	logLevel  string
}

type report struct {
	Language   string                   `json:"language"`
	Evaluation *result.EvaluationResult `json:"evaluation,omitempty"`
	Score      scoring.Score            `json:"score"`
	Validation scoring.Validation       `json:"validation"`
}

// evaluatorFactory builds the evaluation service; tests swap it out.
type evaluatorFactory func(opts options) (sandbox.Service, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, newEvaluator))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, factory evaluatorFactory) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return exitUsage
	}
	if err := logger.Init(logger.Config{Level: opts.logLevel, Format: "console", OutputPath: "stderr", ErrorPath: "stderr"}); err != nil {
		fmt.Fprintf(stderr, "init logger failed: %v\n", err)
		return exitFailed
	}
	defer func() {
		_ = logger.Sync()
	}()

	code, err := os.ReadFile(opts.codePath)
	if err != nil {
		fmt.Fprintf(stderr, "read code failed: %v\n", err)
		return exitUsage
	}
	if opts.language == "" {
		lang, ok := scoring.LanguageForFile(opts.codePath)
		if !ok {
			fmt.Fprintf(stderr, "cannot infer language from %s, pass -lang\n", opts.codePath)
			return exitUsage
		}
		opts.language = lang
	}

	out := report{
		Language:   opts.language,
		Score:      scoring.CalculateScore(string(code), opts.language),
		Validation: scoring.Validate(string(code), opts.language),
	}
	exit := exitPassed

	if opts.testsPath != "" {
		raw, err := os.ReadFile(opts.testsPath)
		if err != nil {
			fmt.Fprintf(stderr, "read tests failed: %v\n", err)
			return exitUsage
		}
		tests, err := suite.Parse(raw)
		if err != nil {
			fmt.Fprintf(stderr, "parse tests failed: %v\n", err)
			return exitUsage
		}
		svc, err := factory(opts)
		if err != nil {
			fmt.Fprintf(stderr, "init evaluator failed: %v\n", err)
			return exitFailed
		}
		if opts.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.timeout)
			defer cancel()
		}
		evaluation := svc.Evaluate(ctx, sandbox.Request{
			ID:       "local",
			Language: opts.language,
			Code:     string(code),
			Suite:    tests,
		})
		logger.Debug(ctx, "evaluation finished",
			zap.String("status", string(evaluation.Status)),
			zap.Int("cases", len(evaluation.TestResults)),
		)
		out.Evaluation = &evaluation
		if !evaluation.Passed() {
			exit = exitFailed
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "write report failed: %v\n", err)
		return exitFailed
	}
	return exit
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("golf-eval", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.language, "lang", "", "Language id; inferred from the code file extension when empty")
	fs.StringVar(&opts.codePath, "code", "", "Path to the solution source")
	fs.StringVar(&opts.testsPath, "tests", "", "Path to the JSON test suite")
	fs.DurationVar(&opts.timeout, "timeout", 0, "Overall evaluation deadline")
	fs.StringVar(&opts.helper, "helper", "", "Path to sandbox-init; \"-\" runs without the limit helper")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.codePath == "" {
		fmt.Fprintln(stderr, "-code is required")
		fs.Usage()
		return options{}, fmt.Errorf("missing -code")
	}
	return opts, nil
}

func newEvaluator(opts options) (sandbox.Service, error) {
	registry, err := profile.NewRegistry(profile.DefaultProfiles())
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine(engine.Config{HelperPath: opts.helper})
	return sandbox.NewEvaluator(sandbox.Config{}, registry, runner.NewRunner(eng)), nil
}
