// Package profile holds the immutable per-language execution profiles.
package profile

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"golfjudge/internal/judge/sandbox/spec"
)

// Placeholders accepted in command templates and environment entries.
const (
	PlaceholderSource    = "{source}"
	PlaceholderOutput    = "{output}"
	PlaceholderDir       = "{dir}"
	PlaceholderClassName = "{classname}"
)

const (
	DefaultSourceBase = "solution"
	DefaultOutputBase = "solution"
	DefaultEntryPoint = "solve"
	DefaultClassName  = "Main"
	CompileTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Second
	compileCPUSeconds = 30
)

// LanguageProfile describes how one language is compiled and run.
type LanguageProfile struct {
	ID        string
	Name      string
	Extension string
	// SourceBase is the file name without extension; class-based languages
	// need it to match the entry class.
	SourceBase string
	ClassName  string
	// Interpreter runs the source directly when RunCmdTpl is empty.
	Interpreter   string
	CompileCmdTpl string
	RunCmdTpl     string
	Timeout       time.Duration
	Env           []string
	// EntryPoint is the function the harness calls when the submission
	// declares it.
	EntryPoint    string
	Limits        spec.ResourceLimit
	CompileLimits spec.ResourceLimit

	compileArgs []string
	runArgs     []string
}

// Paths are the concrete values substituted into templates.
type Paths struct {
	Source    string
	Output    string
	Dir       string
	ClassName string
}

// Compiled reports whether the language has a compile step.
func (p LanguageProfile) Compiled() bool {
	return len(p.compileArgs) > 0
}

// SourceFile returns the source file name inside a workspace.
func (p LanguageProfile) SourceFile() string {
	return p.SourceBase + p.Extension
}

// PathsFor lays out the artifact paths inside the workspace dir.
func (p LanguageProfile) PathsFor(dir string) Paths {
	return Paths{
		Source:    filepath.Join(dir, p.SourceFile()),
		Output:    filepath.Join(dir, DefaultOutputBase),
		Dir:       dir,
		ClassName: p.ClassName,
	}
}

// CompileCommand expands the compile template; nil when not compiled.
func (p LanguageProfile) CompileCommand(paths Paths) []string {
	if !p.Compiled() {
		return nil
	}
	return expandArgs(p.compileArgs, paths)
}

// RunCommand expands the run template.
func (p LanguageProfile) RunCommand(paths Paths) []string {
	return expandArgs(p.runArgs, paths)
}

// Environ returns the child environment, or nil to inherit the parent's.
func (p LanguageProfile) Environ(paths Paths) []string {
	if len(p.Env) == 0 {
		return nil
	}
	env := os.Environ()
	for _, kv := range p.Env {
		env = append(env, expand(kv, paths))
	}
	return env
}

func expandArgs(tpl []string, paths Paths) []string {
	out := make([]string, len(tpl))
	for i, arg := range tpl {
		out[i] = expand(arg, paths)
	}
	return out
}

func expand(s string, paths Paths) string {
	if !strings.Contains(s, "{") {
		return s
	}
	r := strings.NewReplacer(
		PlaceholderSource, paths.Source,
		PlaceholderOutput, paths.Output,
		PlaceholderDir, paths.Dir,
		PlaceholderClassName, paths.ClassName,
	)
	return r.Replace(s)
}
