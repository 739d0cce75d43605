package scoring

import (
	"os"
	"path/filepath"
	"testing"

	appErr "golfjudge/pkg/errors"
)

func TestCalculateScore(t *testing.T) {
	code := "# comment\ndef f(x):\n\n    return 'é'\n"
	s := CalculateScore(code, "python")
	if s.ByteLength != len(code) || s.Score != s.ByteLength {
		t.Fatalf("byte length = %d score = %d", s.ByteLength, s.Score)
	}
	if s.CharLength != s.ByteLength-1 {
		t.Fatalf("char length = %d", s.CharLength)
	}
	if s.LineCount != 4 {
		t.Fatalf("line count = %d", s.LineCount)
	}
	if want := len("def f(x):\nreturn 'é'"); s.EffectiveByteLength != want {
		t.Fatalf("effective = %d, want %d", s.EffectiveByteLength, want)
	}
	if s.Method != MethodByteLength {
		t.Fatalf("method = %q", s.Method)
	}

	js := CalculateScore("f=x=>x*2", "javascript")
	if js.Score != 8 || js.LineCount != 0 || js.EffectiveByteLength != 0 {
		t.Fatalf("javascript score = %+v", js)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name         string
		code         string
		lang         string
		valid        bool
		wantWarnings int
	}{
		{"empty", "   \n", "python", false, 0},
		{"empty cpp", "", "cpp", false, 0},
		{"unbalanced quotes", "s = \"\"\"abc", "python", false, 0},
		{"trailing blanks", "x=1\n\n\n\n", "python", true, 1},
		{"mixed indent", "if 1:\n\tx=1\n  y=2", "python", true, 1},
		{"clean", "f=lambda x:x*2", "python", true, 0},
		{"other languages skip python checks", "s = \"\"\"", "javascript", true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Validate(tc.code, tc.lang)
			if v.Valid != tc.valid {
				t.Fatalf("valid = %v, issues %v", v.Valid, v.Issues)
			}
			if len(v.Warnings) != tc.wantWarnings {
				t.Fatalf("warnings = %v", v.Warnings)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	c := Compare("def f(x): return x*2", "f=lambda x:x*2", "python")
	if c.Improvement != 6 || c.Better != 2 {
		t.Fatalf("comparison = %+v", c)
	}
	if c.ImprovementPercent != 30 {
		t.Fatalf("percent = %v", c.ImprovementPercent)
	}
	if tie := Compare("ab", "cd", "python"); tie.Better != 2 || tie.Improvement != 0 {
		t.Fatalf("tie = %+v", tie)
	}
	if empty := Compare("", "x", "python"); empty.ImprovementPercent != 0 || empty.Better != 1 {
		t.Fatalf("empty = %+v", empty)
	}
}

func TestCalculateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solution.rs")
	if err := os.WriteFile(path, []byte("fn main(){}"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs, err := CalculateFile(path)
	if err != nil {
		t.Fatalf("score file: %v", err)
	}
	if fs.Language != "rust" || fs.SizeBytes != 11 || fs.Score.Score != 11 || fs.Extension != ".rs" {
		t.Fatalf("file score = %+v", fs)
	}

	_, err = CalculateFile(filepath.Join(t.TempDir(), "missing.py"))
	if !appErr.Is(err, appErr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, ok := LanguageForFile("a.txt"); ok {
		t.Fatal(".txt has no language")
	}
}
