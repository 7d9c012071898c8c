package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dohnagen/sheetgen/internal/document"
)

var whitespace = regexp.MustCompile(`\s+`)

// ExportFilename is the download name for a preset: the name with runs of
// whitespace replaced by underscores, plus ".json".
func ExportFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "preset"
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	return whitespace.ReplaceAllString(name, "_") + ".json"
}

// ExportJSON serialises the preset's document verbatim. With envelope set
// it is wrapped as {schemaVersion, document}, which Import also accepts.
func ExportJSON(p Preset, envelope bool) ([]byte, error) {
	if p.Document == nil {
		return nil, fmt.Errorf("export %q: preset has no document", p.ID)
	}
	var v any = p.Document
	if envelope {
		v = document.Wrap(p.Document)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// ParseFile validates an imported file. Every rejection wraps
// ErrInvalidFile.
func ParseFile(data []byte) (*document.CommissionDocument, document.Format, error) {
	doc, format, err := document.Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidFile, describe(err))
	}
	return doc, format, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, document.ErrMissingName):
		return "missing identity name"
	case errors.Is(err, document.ErrMalformed):
		return "not valid JSON"
	case errors.Is(err, document.ErrNewerSchema):
		return "written by a newer version"
	}
	return err.Error()
}
