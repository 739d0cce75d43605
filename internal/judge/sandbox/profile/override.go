package profile

import (
	"time"

	"golfjudge/internal/judge/sandbox/spec"
)

// Override adjusts a built-in profile or declares a new one. It is read from
// configuration once, before the registry is built.
type Override struct {
	ID             string         `yaml:"id"`
	Name           string         `yaml:"name"`
	Extension      string         `yaml:"extension"`
	SourceBase     string         `yaml:"sourceBase"`
	ClassName      string         `yaml:"className"`
	Interpreter    string         `yaml:"interpreter"`
	CompileCmd     *string        `yaml:"compileCmd"`
	RunCmd         string         `yaml:"runCmd"`
	TimeoutSeconds float64        `yaml:"timeoutSeconds"`
	Env            []string       `yaml:"env"`
	EntryPoint     string         `yaml:"entryPoint"`
	Limits         *LimitOverride `yaml:"limits"`
}

// LimitOverride replaces individual limits; nil keeps the base value and
// zero disables the limit.
type LimitOverride struct {
	MemoryBytes    *int64 `yaml:"memoryBytes"`
	CPUTimeSeconds *int64 `yaml:"cpuTimeSeconds"`
	Processes      *int64 `yaml:"processes"`
}

// Merge applies overrides on top of base by language id, appending
// languages that are not in base.
func Merge(base []LanguageProfile, overrides []Override) []LanguageProfile {
	out := make([]LanguageProfile, len(base))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.ID] = i
	}
	for _, o := range overrides {
		if o.ID == "" {
			continue
		}
		i, ok := index[o.ID]
		if !ok {
			out = append(out, LanguageProfile{ID: o.ID, Limits: spec.DefaultLimits()})
			i = len(out) - 1
			index[o.ID] = i
		}
		out[i] = o.apply(out[i])
	}
	return out
}

func (o Override) apply(p LanguageProfile) LanguageProfile {
	if o.Name != "" {
		p.Name = o.Name
	}
	if o.Extension != "" {
		p.Extension = o.Extension
	}
	if o.SourceBase != "" {
		p.SourceBase = o.SourceBase
	}
	if o.ClassName != "" {
		p.ClassName = o.ClassName
	}
	if o.Interpreter != "" {
		p.Interpreter = o.Interpreter
		if o.RunCmd == "" && p.CompileCmdTpl == "" {
			p.RunCmdTpl = ""
		}
	}
	if o.CompileCmd != nil {
		p.CompileCmdTpl = *o.CompileCmd
	}
	if o.RunCmd != "" {
		p.RunCmdTpl = o.RunCmd
	}
	if o.TimeoutSeconds > 0 {
		p.Timeout = time.Duration(o.TimeoutSeconds * float64(time.Second))
	}
	if len(o.Env) > 0 {
		p.Env = append(append([]string(nil), p.Env...), o.Env...)
	}
	if o.EntryPoint != "" {
		p.EntryPoint = o.EntryPoint
	}
	if o.Limits != nil {
		if o.Limits.MemoryBytes != nil {
			p.Limits.MemoryBytes = *o.Limits.MemoryBytes
		}
		if o.Limits.CPUTimeSeconds != nil {
			p.Limits.CPUTimeSeconds = *o.Limits.CPUTimeSeconds
		}
		if o.Limits.Processes != nil {
			p.Limits.Processes = *o.Limits.Processes
		}
	}
	return p
}
