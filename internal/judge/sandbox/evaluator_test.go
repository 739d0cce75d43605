package sandbox

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"golfjudge/internal/judge/sandbox/profile"
	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/sandbox/runner"
	"golfjudge/internal/judge/sandbox/spec"
	"golfjudge/internal/judge/sandbox/suite"
)

type fakeRunner struct {
	compile   runner.CompileResult
	statuses  map[string]result.Status
	ran       []string
	compiled  int
	sources   []string
	dirs      []string
	panicOn   string
	durations float64
	memory    map[string]int64
	onRun     func(testName string)
}

func (f *fakeRunner) Compile(ctx context.Context, prep runner.Prepared) runner.CompileResult {
	f.compiled++
	f.dirs = append(f.dirs, prep.Paths.Dir)
	return f.compile
}

func (f *fakeRunner) Run(ctx context.Context, prep runner.Prepared, tc suite.TestCase, testName string) result.ExecutionOutcome {
	if testName == f.panicOn {
		panic("runner bug")
	}
	f.ran = append(f.ran, testName)
	if f.onRun != nil {
		f.onRun(testName)
	}
	f.dirs = append(f.dirs, prep.Paths.Dir)
	if data, err := os.ReadFile(prep.Paths.Source); err == nil {
		f.sources = append(f.sources, string(data))
	}
	status := result.StatusPassed
	if s, ok := f.statuses[testName]; ok {
		status = s
	}
	return result.ExecutionOutcome{
		TestName:             testName,
		Status:               status,
		ExecutionTimeSeconds: f.durations,
		MemoryUsageBytes:     f.memory[testName],
	}
}

type recordingReporter struct {
	updates []ProgressUpdate
}

func (r *recordingReporter) ReportProgress(ctx context.Context, update ProgressUpdate) error {
	r.updates = append(r.updates, update)
	return nil
}

func mustSuite(t *testing.T, text string) suite.Suite {
	t.Helper()
	s, err := suite.Parse([]byte(text))
	if err != nil {
		t.Fatalf("parse suite: %v", err)
	}
	return s
}

func newTestEvaluator(t *testing.T, r runner.Runner) (*Evaluator, string) {
	t.Helper()
	root := t.TempDir()
	return NewEvaluator(Config{WorkRoot: root}, profile.DefaultRegistry(), r), root
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace root not empty: %d entries", len(entries))
	}
}

const threeGroups = `{
	"train": [{"input": 1, "output": 2}, {"input": 2, "output": 3}],
	"test": [{"input": 3, "output": 4}],
	"extra": [{"input": 4, "output": 5}]
}`

func TestEvaluateUnsupportedLanguage(t *testing.T) {
	for _, lang := range []string{"cobol", "", "Python"} {
		fr := &fakeRunner{}
		ev, root := newTestEvaluator(t, fr)
		res := ev.Evaluate(context.Background(), Request{Language: lang, Code: "x", Suite: mustSuite(t, threeGroups)})
		if res.Status != result.StatusError || res.ErrorMessage != "Unsupported language: "+lang {
			t.Fatalf("%q: result = %+v", lang, res)
		}
		if len(res.TestResults) != 0 || res.TestResults == nil {
			t.Fatalf("%q: test results = %v", lang, res.TestResults)
		}
		if fr.compiled != 0 || len(fr.ran) != 0 {
			t.Fatalf("%q: runner invoked", lang)
		}
		assertEmptyDir(t, root)
	}
}

func TestEvaluateAllPassed(t *testing.T) {
	fr := &fakeRunner{durations: 0.25, memory: map[string]int64{"train_1": 300, "test_0": 700, "extra_0": 100}}
	ev, root := newTestEvaluator(t, fr)
	rep := &recordingReporter{}
	ev.SetProgressReporter(rep)

	res := ev.Evaluate(context.Background(), Request{ID: "e1", Language: "python", Code: "def solve(x): return x + 1", Suite: mustSuite(t, threeGroups)})
	if res.Status != result.StatusPassed {
		t.Fatalf("status = %v (%s)", res.Status, res.ErrorMessage)
	}
	want := []string{"train_0", "train_1", "test_0", "extra_0"}
	if strings.Join(fr.ran, ",") != strings.Join(want, ",") {
		t.Fatalf("ran = %v", fr.ran)
	}
	if res.TotalExecutionTimeSeconds != 1.0 || res.MaxMemoryUsageBytes != 700 {
		t.Fatalf("aggregates = %v / %v", res.TotalExecutionTimeSeconds, res.MaxMemoryUsageBytes)
	}
	if fr.compiled != 0 {
		t.Fatal("python must not compile")
	}
	if !strings.Contains(fr.sources[0], "b64decode") {
		t.Fatal("python source should be wrapped before writing")
	}
	last := rep.updates[len(rep.updates)-1]
	if last.DoneTests != 4 || last.TotalTests != 4 || last.EvaluationID != "e1" {
		t.Fatalf("last progress = %+v", last)
	}
	assertEmptyDir(t, root)
}

func TestEvaluateFailFast(t *testing.T) {
	for _, status := range []result.Status{result.StatusFailed, result.StatusError} {
		fr := &fakeRunner{statuses: map[string]result.Status{"train_1": status}}
		ev, root := newTestEvaluator(t, fr)
		res := ev.Evaluate(context.Background(), Request{Language: "python", Code: "def f(x): return x", Suite: mustSuite(t, threeGroups)})
		if res.Status != status {
			t.Fatalf("status = %v, want %v", res.Status, status)
		}
		if len(res.TestResults) != 2 || res.TestResults[1].TestName != "train_1" {
			t.Fatalf("results = %+v", res.TestResults)
		}
		if len(fr.ran) != 2 {
			t.Fatalf("cases after the failure ran: %v", fr.ran)
		}
		assertEmptyDir(t, root)
	}
}

func TestEvaluateCompileFailure(t *testing.T) {
	fr := &fakeRunner{compile: runner.CompileResult{OK: false, Output: "solution.cpp:1:1: error: expected unqualified-id"}}
	ev, root := newTestEvaluator(t, fr)
	res := ev.Evaluate(context.Background(), Request{Language: "cpp", Code: "int main( {", Suite: mustSuite(t, threeGroups)})
	if res.Status != result.StatusError || !strings.HasPrefix(res.ErrorMessage, "Compilation failed:") {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "expected unqualified-id") {
		t.Fatalf("compiler output missing: %q", res.ErrorMessage)
	}
	if len(fr.ran) != 0 || len(res.TestResults) != 0 {
		t.Fatalf("tests ran after compile failure: %v", fr.ran)
	}
	assertEmptyDir(t, root)
}

func TestEvaluateCompiledPassthrough(t *testing.T) {
	fr := &fakeRunner{compile: runner.CompileResult{OK: true}}
	ev, _ := newTestEvaluator(t, fr)
	code := "fn main() { println!(\"1\"); }"
	res := ev.Evaluate(context.Background(), Request{Language: "rust", Code: code, Suite: mustSuite(t, `{"t": [{"input": 1, "output": 1}]}`)})
	if res.Status != result.StatusPassed || fr.compiled != 1 {
		t.Fatalf("result = %+v, compiled %d", res, fr.compiled)
	}
	if fr.sources[0] != code {
		t.Fatalf("compiled languages run unwrapped, got %q", fr.sources[0])
	}
	for _, d := range fr.dirs {
		if d != fr.dirs[0] {
			t.Fatal("one evaluation must use one workspace")
		}
	}
}

func TestEvaluateSkipsMalformedGroups(t *testing.T) {
	fr := &fakeRunner{}
	ev, _ := newTestEvaluator(t, fr)
	s := mustSuite(t, `{"meta": "v1", "train": [{"input": 1, "output": 2}]}`)
	res := ev.Evaluate(context.Background(), Request{Language: "python", Code: "def f(x): return x", Suite: s})
	if res.Status != result.StatusPassed || len(res.TestResults) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestEvaluateRecoversPanic(t *testing.T) {
	fr := &fakeRunner{panicOn: "train_1"}
	ev, root := newTestEvaluator(t, fr)
	res := ev.Evaluate(context.Background(), Request{Language: "python", Code: "def f(x): return x", Suite: mustSuite(t, threeGroups)})
	if res.Status != result.StatusError || !strings.Contains(res.ErrorMessage, "runner bug") {
		t.Fatalf("result = %+v", res)
	}
	if len(res.TestResults) != 1 {
		t.Fatalf("outcomes before the fault should be kept: %+v", res.TestResults)
	}
	assertEmptyDir(t, root)
}

func TestEvaluateCancelled(t *testing.T) {
	fr := &fakeRunner{}
	ev, _ := newTestEvaluator(t, fr)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := ev.Evaluate(ctx, Request{Language: "python", Code: "def f(x): return x", Suite: mustSuite(t, threeGroups)})
	if res.Status != result.StatusError || res.ErrorMessage != result.CancelledMessage || len(fr.ran) != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestEvaluateCancelledDuringRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fr := &fakeRunner{
		statuses: map[string]result.Status{"train_1": result.StatusFailed},
		onRun: func(name string) {
			if name == "train_1" {
				cancel()
			}
		},
	}
	ev, _ := newTestEvaluator(t, fr)
	res := ev.Evaluate(ctx, Request{Language: "python", Code: "def f(x): return x", Suite: mustSuite(t, threeGroups)})
	if res.Status != result.StatusError || res.ErrorMessage != result.CancelledMessage {
		t.Fatalf("result = %+v", res)
	}
	if len(res.TestResults) != 2 || len(fr.ran) != 2 {
		t.Fatalf("ran = %v, outcomes = %d", fr.ran, len(res.TestResults))
	}
}

type echoEngine struct{ stdout string }

func (e echoEngine) Run(ctx context.Context, runSpec spec.RunSpec) result.RunResult {
	return result.RunResult{Stdout: e.stdout}
}

func TestEvaluateCaseWithoutOutputFails(t *testing.T) {
	ev, _ := newTestEvaluator(t, runner.NewRunner(echoEngine{stdout: "2\n"}))
	res := ev.Evaluate(context.Background(), Request{
		Language: "python",
		Code:     "def f(x): return x*2",
		Suite:    mustSuite(t, `{"train":[{"input":1,"output":2},{"input":2}]}`),
	})
	if res.Status != result.StatusError || len(res.TestResults) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if last := res.TestResults[1]; last.TestName != "train_1" || last.Status != result.StatusError {
		t.Fatalf("outcome = %+v", last)
	}
}

func TestEvaluationResultJSON(t *testing.T) {
	fr := &fakeRunner{statuses: map[string]result.Status{"train_0": result.StatusFailed}}
	ev, _ := newTestEvaluator(t, fr)
	res := ev.Evaluate(context.Background(), Request{Language: "python", Code: "def f(x): return x", Suite: mustSuite(t, threeGroups)})
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["status"] != "failed" {
		t.Fatalf("status field = %v", decoded["status"])
	}
	if _, ok := decoded["test_results"].([]any); !ok {
		t.Fatalf("test_results = %v", decoded["test_results"])
	}
}

func TestEvaluateMissingDependencies(t *testing.T) {
	ev := NewEvaluator(Config{}, nil, nil)
	res := ev.Evaluate(context.Background(), Request{Language: "python"})
	if res.Status != result.StatusError {
		t.Fatalf("result = %+v", res)
	}
}
