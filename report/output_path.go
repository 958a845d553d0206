package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Values holds the variables available for output name template expansion.
type Values struct {
	Name  string // template base name, without extension
	Date  string // run date, 2006-01-02
	Time  string // run time, 15-04-05
	RunID string
}

// BuildOutputPath constructs the artifact path inside dir. With an empty
// name template the default timestamped scheme is used; otherwise the
// template is expanded with sprig functions available and falls back to the
// default scheme when expansion fails.
func BuildOutputPath(dir, baseName, nameTemplate, runID string, now time.Time, transliterate bool, log *zap.Logger) string {
	v := Values{
		Name:  strings.TrimSuffix(filepath.Base(baseName), filepath.Ext(baseName)),
		Date:  now.Format("2006-01-02"),
		Time:  now.Format("15-04-05"),
		RunID: runID,
	}
	if transliterate {
		v.Name = slug.Make(v.Name)
	}

	name := fmt.Sprintf("%s_%s_time_%s", v.Name, v.Date, v.Time)
	if nameTemplate != "" {
		if expanded, err := expandNameTemplate(nameTemplate, v); err != nil {
			log.Warn("Output name template expansion failed, using default name", zap.Error(err))
		} else if expanded != "" {
			name = expanded
		}
	}
	return filepath.Join(dir, cleanFileName(name)+".xml")
}

func expandNameTemplate(text string, v Values) (string, error) {
	tmpl, err := template.New("output_name").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return "", fmt.Errorf("unable to parse output name template: %w", err)
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, v); err != nil {
		return "", fmt.Errorf("unable to expand output name template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// cleanFileName removes path separators from an expanded name so a template
// cannot escape the output directory.
func cleanFileName(in string) string {
	out := strings.TrimLeft(strings.Map(func(sym rune) rune {
		if sym == '/' || sym == '\\' || sym == filepath.Separator {
			return -1
		}
		return sym
	}, in), ".")
	if out == "" {
		out = "_bad_file_name_"
	}
	return out
}
