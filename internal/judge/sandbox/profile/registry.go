package profile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golfjudge/internal/judge/sandbox/spec"
	appErr "golfjudge/pkg/errors"

	"github.com/google/shlex"
)

// Registry is the immutable language table. It is safe for concurrent reads.
type Registry struct {
	languages map[string]LanguageProfile
	ids       []string
}

// NewRegistry validates the profiles and parses their command templates.
func NewRegistry(profiles []LanguageProfile) (*Registry, error) {
	r := &Registry{languages: make(map[string]LanguageProfile, len(profiles))}
	for _, p := range profiles {
		if p.ID == "" {
			return nil, appErr.ValidationError("language.id", "required")
		}
		if _, dup := r.languages[p.ID]; dup {
			return nil, appErr.Newf(appErr.InvalidParams, "duplicate language profile: %s", p.ID)
		}
		prepared, err := prepare(p)
		if err != nil {
			return nil, err
		}
		r.languages[p.ID] = prepared
		r.ids = append(r.ids, p.ID)
	}
	sort.Strings(r.ids)
	return r, nil
}

// DefaultRegistry builds the registry from DefaultProfiles.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultProfiles())
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the profile for a language key.
func (r *Registry) Get(id string) (LanguageProfile, error) {
	if id == "" {
		return LanguageProfile{}, appErr.ValidationError("language", "required")
	}
	p, ok := r.languages[id]
	if !ok {
		return LanguageProfile{}, appErr.UnsupportedLanguage(id)
	}
	return p, nil
}

// Supports reports whether id has a profile.
func (r *Registry) Supports(id string) bool {
	_, ok := r.languages[id]
	return ok
}

// IDs lists the supported language keys in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func prepare(p LanguageProfile) (LanguageProfile, error) {
	if p.Extension == "" {
		return p, appErr.ValidationError(p.ID+".extension", "required")
	}
	if p.SourceBase == "" {
		p.SourceBase = DefaultSourceBase
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultRunTimeout
	}
	if p.EntryPoint == "" {
		p.EntryPoint = DefaultEntryPoint
	}
	if p.CompileLimits.IsZero() {
		p.CompileLimits = spec.ResourceLimit{CPUTimeSeconds: compileCPUSeconds}
	}

	runTpl := p.RunCmdTpl
	if runTpl == "" {
		if p.Interpreter == "" {
			return p, appErr.Newf(appErr.InvalidParams, "language %s needs a run command or interpreter", p.ID)
		}
		runTpl = p.Interpreter + " " + PlaceholderSource
	}
	runArgs, err := splitTemplate(runTpl)
	if err != nil {
		return p, appErr.Wrapf(err, appErr.InvalidParams, "invalid run command for %s", p.ID)
	}
	p.runArgs = runArgs
	p.RunCmdTpl = runTpl

	if strings.TrimSpace(p.CompileCmdTpl) != "" {
		compileArgs, err := splitTemplate(p.CompileCmdTpl)
		if err != nil {
			return p, appErr.Wrapf(err, appErr.InvalidParams, "invalid compile command for %s", p.ID)
		}
		p.compileArgs = compileArgs
	}
	p.Env = append([]string(nil), p.Env...)
	return p, nil
}

func splitTemplate(tpl string) ([]string, error) {
	args, err := shlex.Split(tpl)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, appErr.ValidationError("command", "empty")
	}
	return args, nil
}

// DefaultProfiles is the built-in language table.
//
// Multi-threaded runtimes (node, the JVM, Go binaries) count every thread
// against RLIMIT_NPROC, and node and the JVM reserve far more address space
// than they use, so those profiles relax the matching limits. Node and the
// JVM get the memory ceiling as a heap flag instead.
func DefaultProfiles() []LanguageProfile {
	defaults := spec.DefaultLimits()
	threaded := spec.ResourceLimit{MemoryBytes: defaults.MemoryBytes, CPUTimeSeconds: defaults.CPUTimeSeconds}
	reserving := spec.ResourceLimit{CPUTimeSeconds: defaults.CPUTimeSeconds}
	heapMiB := defaults.MemoryBytes >> 20
	return []LanguageProfile{
		{
			ID:          "python",
			Name:        "Python 3",
			Extension:   ".py",
			Interpreter: "python3",
			Timeout:     10 * time.Second,
			Env:         []string{"PYTHONDONTWRITEBYTECODE=1", "PYTHONIOENCODING=utf-8"},
			Limits:      defaults,
		},
		{
			ID:          "javascript",
			Name:        "JavaScript (Node.js)",
			Extension:   ".js",
			Interpreter: "node",
			RunCmdTpl:   fmt.Sprintf("node --max-old-space-size=%d {source}", heapMiB),
			Timeout:     10 * time.Second,
			Limits:      reserving,
		},
		{
			ID:            "cpp",
			Name:          "C++17",
			Extension:     ".cpp",
			CompileCmdTpl: "g++ -o {output} {source} -std=c++17",
			RunCmdTpl:     "{output}",
			Timeout:       10 * time.Second,
			Limits:        defaults,
		},
		{
			ID:            "java",
			Name:          "Java",
			Extension:     ".java",
			SourceBase:    DefaultClassName,
			ClassName:     DefaultClassName,
			CompileCmdTpl: "javac {source}",
			RunCmdTpl:     fmt.Sprintf("java -Xmx%dm -cp {dir} {classname}", heapMiB),
			Timeout:       15 * time.Second,
			Limits:        reserving,
		},
		{
			ID:            "go",
			Name:          "Go",
			Extension:     ".go",
			CompileCmdTpl: "go build -o {output} {source}",
			RunCmdTpl:     "{output}",
			Timeout:       10 * time.Second,
			Env:           []string{"GOCACHE={dir}/.gocache", "GOTOOLCHAIN=local", "CGO_ENABLED=0"},
			Limits:        threaded,
		},
		{
			ID:            "rust",
			Name:          "Rust",
			Extension:     ".rs",
			CompileCmdTpl: "rustc {source} -o {output}",
			RunCmdTpl:     "{output}",
			Timeout:       15 * time.Second,
			Limits:        defaults,
		},
	}
}
