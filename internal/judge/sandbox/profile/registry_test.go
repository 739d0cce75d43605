package profile

import (
	"reflect"
	"strings"
	"testing"
	"time"

	appErr "golfjudge/pkg/errors"
)

func TestDefaultRegistryLanguages(t *testing.T) {
	r := DefaultRegistry()
	want := []string{"cpp", "go", "java", "javascript", "python", "rust"}
	if got := r.IDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
}

func TestGetUnsupported(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.Get("cobol")
	if !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
	if err.Error() != "Unsupported language: cobol" {
		t.Fatalf("message = %q", err.Error())
	}
	if r.Supports("cobol") || !r.Supports("rust") {
		t.Fatal("Supports mismatch")
	}
	if _, err := r.Get(""); !appErr.Is(err, appErr.ValidationFailed) {
		t.Fatalf("empty id should be a validation error, got %v", err)
	}
}

func TestCommandExpansion(t *testing.T) {
	r := DefaultRegistry()
	dir := "/tmp/eval 1"

	cases := []struct {
		lang        string
		wantCompile []string
		wantRun     []string
	}{
		{
			lang:    "python",
			wantRun: []string{"python3", "/tmp/eval 1/solution.py"},
		},
		{
			lang:    "javascript",
			wantRun: []string{"node", "--max-old-space-size=256", "/tmp/eval 1/solution.js"},
		},
		{
			lang:        "cpp",
			wantCompile: []string{"g++", "-o", "/tmp/eval 1/solution", "/tmp/eval 1/solution.cpp", "-std=c++17"},
			wantRun:     []string{"/tmp/eval 1/solution"},
		},
		{
			lang:        "java",
			wantCompile: []string{"javac", "/tmp/eval 1/Main.java"},
			wantRun:     []string{"java", "-Xmx256m", "-cp", "/tmp/eval 1", "Main"},
		},
		{
			lang:        "go",
			wantCompile: []string{"go", "build", "-o", "/tmp/eval 1/solution", "/tmp/eval 1/solution.go"},
			wantRun:     []string{"/tmp/eval 1/solution"},
		},
		{
			lang:        "rust",
			wantCompile: []string{"rustc", "/tmp/eval 1/solution.rs", "-o", "/tmp/eval 1/solution"},
			wantRun:     []string{"/tmp/eval 1/solution"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.lang, func(t *testing.T) {
			p, err := r.Get(tc.lang)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			paths := p.PathsFor(dir)
			if got := p.CompileCommand(paths); !reflect.DeepEqual(got, tc.wantCompile) {
				t.Fatalf("compile = %q, want %q", got, tc.wantCompile)
			}
			if p.Compiled() != (tc.wantCompile != nil) {
				t.Fatalf("Compiled() = %v", p.Compiled())
			}
			if got := p.RunCommand(paths); !reflect.DeepEqual(got, tc.wantRun) {
				t.Fatalf("run = %q, want %q", got, tc.wantRun)
			}
		})
	}
}

func TestProfileDefaults(t *testing.T) {
	r := DefaultRegistry()
	p, _ := r.Get("java")
	if p.Timeout != 15*time.Second {
		t.Fatalf("java timeout = %v", p.Timeout)
	}
	if p.EntryPoint != DefaultEntryPoint {
		t.Fatalf("entry point = %q", p.EntryPoint)
	}
	if p.CompileLimits.CPUTimeSeconds != compileCPUSeconds || p.CompileLimits.MemoryBytes != 0 {
		t.Fatalf("compile limits = %+v", p.CompileLimits)
	}
	py, _ := r.Get("python")
	if py.Limits.MemoryBytes != 256*1024*1024 || py.Limits.CPUTimeSeconds != 30 || py.Limits.Processes != 10 {
		t.Fatalf("python limits = %+v", py.Limits)
	}
}

func TestEnvironExpandsPlaceholders(t *testing.T) {
	p, _ := DefaultRegistry().Get("go")
	env := p.Environ(p.PathsFor("/work"))
	found := false
	for _, kv := range env {
		if kv == "GOCACHE=/work/.gocache" {
			found = true
		}
	}
	if !found {
		t.Fatalf("GOCACHE not expanded in %v", env[len(env)-3:])
	}
	rust, _ := DefaultRegistry().Get("rust")
	if rust.Environ(rust.PathsFor("/work")) != nil {
		t.Fatal("profiles without env inherit the parent environment")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	cases := []struct {
		name     string
		profiles []LanguageProfile
		wantCode appErr.ErrorCode
	}{
		{"missing id", []LanguageProfile{{Extension: ".py", Interpreter: "python3"}}, appErr.ValidationFailed},
		{"missing extension", []LanguageProfile{{ID: "py", Interpreter: "python3"}}, appErr.ValidationFailed},
		{"no run command", []LanguageProfile{{ID: "py", Extension: ".py"}}, appErr.InvalidParams},
		{"bad quoting", []LanguageProfile{{ID: "py", Extension: ".py", RunCmdTpl: `python3 "{source}`}}, appErr.InvalidParams},
		{"duplicate", []LanguageProfile{
			{ID: "py", Extension: ".py", Interpreter: "python3"},
			{ID: "py", Extension: ".py", Interpreter: "python3"},
		}, appErr.InvalidParams},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.profiles)
			if appErr.GetCode(err) != tc.wantCode {
				t.Fatalf("code = %v, want %v (err %v)", appErr.GetCode(err), tc.wantCode, err)
			}
		})
	}
}

func TestMergeOverrides(t *testing.T) {
	timeoutOff := int64(0)
	empty := ""
	profiles := Merge(DefaultProfiles(), []Override{
		{ID: "python", Interpreter: "pypy3", TimeoutSeconds: 2.5, Limits: &LimitOverride{Processes: &timeoutOff}},
		{ID: "cpp", CompileCmd: &empty, RunCmd: "tcc -run {source}"},
		{ID: "ruby", Extension: ".rb", Interpreter: "ruby"},
		{Interpreter: "ignored"},
	})
	r, err := NewRegistry(profiles)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	py, _ := r.Get("python")
	if got := py.RunCommand(py.PathsFor("/w")); !reflect.DeepEqual(got, []string{"pypy3", "/w/solution.py"}) {
		t.Fatalf("python run = %v", got)
	}
	if py.Timeout != 2500*time.Millisecond || py.Limits.Processes != 0 || py.Limits.MemoryBytes == 0 {
		t.Fatalf("python override = %+v", py)
	}

	cpp, _ := r.Get("cpp")
	if cpp.Compiled() {
		t.Fatal("cpp compile step should be removed")
	}
	if got := strings.Join(cpp.RunCommand(cpp.PathsFor("/w")), " "); got != "tcc -run /w/solution.cpp" {
		t.Fatalf("cpp run = %q", got)
	}

	rb, err := r.Get("ruby")
	if err != nil {
		t.Fatalf("ruby: %v", err)
	}
	if rb.Limits.MemoryBytes == 0 {
		t.Fatal("new languages start from default limits")
	}
	if len(r.IDs()) != 7 {
		t.Fatalf("ids = %v", r.IDs())
	}
}
