// Package scoring computes code-golf scores: the UTF-8 byte length of the
// submitted source, plus a few diagnostics.
package scoring

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	appErr "golfjudge/pkg/errors"
)

// MethodByteLength is the only scoring method.
const MethodByteLength = "byte_length"

// Score describes the size of one submission. Lower is better.
type Score struct {
	ByteLength int `json:"byte_length"`
	CharLength int `json:"char_length"`
	LineCount  int `json:"line_count,omitempty"`
	// EffectiveByteLength ignores blank and comment lines; python only.
	EffectiveByteLength int    `json:"effective_byte_length,omitempty"`
	Score               int    `json:"score"`
	Language            string `json:"language"`
	Method              string `json:"scoring_method"`
}

// CalculateScore scores code written in language.
func CalculateScore(code, language string) Score {
	s := Score{
		ByteLength: len(code),
		CharLength: utf8.RuneCountInString(code),
		Score:      len(code),
		Language:   language,
		Method:     MethodByteLength,
	}
	if strings.EqualFold(language, "python") {
		lines := strings.Split(strings.TrimSpace(code), "\n")
		s.LineCount = len(lines)
		effective := make([]string, 0, len(lines))
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
				effective = append(effective, trimmed)
			}
		}
		s.EffectiveByteLength = len(strings.Join(effective, "\n"))
	}
	return s
}

var extensionLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".cpp":  "cpp",
	".cc":   "cpp",
	".java": "java",
	".go":   "go",
	".rs":   "rust",
}

// LanguageForFile guesses the language key from a file extension.
func LanguageForFile(path string) (string, bool) {
	lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// FileScore is a Score for a file on disk.
type FileScore struct {
	Score
	Path      string `json:"file_path"`
	SizeBytes int64  `json:"file_size_bytes"`
	Extension string `json:"file_extension"`
}

// CalculateFile reads and scores a source file.
func CalculateFile(path string) (FileScore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileScore{}, appErr.Wrapf(err, appErr.NotFound, "file not found: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileScore{}, appErr.Wrapf(err, appErr.InvalidParams, "read %s", path)
	}
	lang, ok := LanguageForFile(path)
	if !ok {
		lang = "unknown"
	}
	return FileScore{
		Score:     CalculateScore(string(data), lang),
		Path:      path,
		SizeBytes: info.Size(),
		Extension: filepath.Ext(path),
	}, nil
}

// Validation lists blocking issues and advisory warnings.
type Validation struct {
	Valid    bool     `json:"is_valid"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}

// Validate checks a submission's format before it is evaluated.
func Validate(code, language string) Validation {
	v := Validation{Issues: []string{}, Warnings: []string{}}
	if strings.TrimSpace(code) == "" {
		v.Issues = append(v.Issues, "code must not be empty")
	}
	if strings.EqualFold(language, "python") {
		if strings.Count(code, `"""`)%2 != 0 || strings.Count(code, `'''`)%2 != 0 {
			v.Issues = append(v.Issues, "unbalanced triple-quoted string")
		}
		if n := trailingBlankLines(code); n > 2 {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%d trailing blank lines can be removed", n))
		}
		if strings.Contains(code, "\t") && strings.Contains(code, "  ") {
			v.Warnings = append(v.Warnings, "mixed tabs and spaces")
		}
	}
	v.Valid = len(v.Issues) == 0
	return v
}

func trailingBlankLines(code string) int {
	lines := strings.Split(code, "\n")
	n := 0
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			break
		}
		n++
	}
	return n
}

// Comparison is the size difference between two submissions.
type Comparison struct {
	ScoreA             Score   `json:"code1"`
	ScoreB             Score   `json:"code2"`
	Improvement        int     `json:"improvement"`
	ImprovementPercent float64 `json:"improvement_percent"`
	// Better is 1 when the first submission is strictly shorter, else 2.
	Better int `json:"better_submission"`
}

// Compare scores two submissions in the same language.
func Compare(first, second, language string) Comparison {
	a, b := CalculateScore(first, language), CalculateScore(second, language)
	c := Comparison{ScoreA: a, ScoreB: b, Improvement: a.Score - b.Score, Better: 2}
	if a.Score > 0 {
		c.ImprovementPercent = float64(c.Improvement) / float64(a.Score) * 100
	}
	if a.Score < b.Score {
		c.Better = 1
	}
	return c
}
