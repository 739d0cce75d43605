// Package wrapper turns a bare function submission into a program that reads
// one JSON input on stdin and writes one JSON result line on stdout.
package wrapper

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"text/template"

	appErr "golfjudge/pkg/errors"
)

// Messages written by the harnesses.
const (
	NoFunctionMessage = "No function found in code"
	AmbiguousPrefix   = "Ambiguous entry point"
)

//go:embed harness/*.tmpl
var harnessFS embed.FS

var harnesses = template.Must(template.ParseFS(harnessFS, "harness/*.tmpl"))

// harnessByLanguage maps language ids to their harness template. Languages
// not listed run exactly as submitted.
var harnessByLanguage = map[string]string{
	"python":     "python.py.tmpl",
	"javascript": "node.js.tmpl",
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Wraps reports whether the language gets a harness.
func Wraps(languageID string) bool {
	_, ok := harnessByLanguage[languageID]
	return ok
}

// Wrap returns the program to write into the workspace for languageID.
func Wrap(languageID, source, entryPoint string) (string, error) {
	name, ok := harnessByLanguage[languageID]
	if !ok {
		return source, nil
	}
	if !identifier.MatchString(entryPoint) {
		return "", appErr.Newf(appErr.WrapperError, "invalid entry point name: %q", entryPoint)
	}
	quoted, err := json.Marshal(entryPoint)
	if err != nil {
		return "", appErr.Wrap(err, appErr.WrapperError)
	}

	var buf bytes.Buffer
	err = harnesses.ExecuteTemplate(&buf, name, struct {
		Source     string
		EntryPoint string
	}{
		Source:     base64.StdEncoding.EncodeToString([]byte(source)),
		EntryPoint: string(quoted),
	})
	if err != nil {
		return "", appErr.Wrapf(err, appErr.WrapperError, "render %s harness", languageID)
	}
	return buf.String(), nil
}
