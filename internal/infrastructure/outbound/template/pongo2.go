package template

import (
	"fmt"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/sophialabs/perfaudit/internal/domain/smoke"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
)

var _ ports.OutcomeRenderer = (*Renderer)(nil)

// maxOutputLines caps how much of a failed child's output is shown.
const maxOutputLines = 20

// Renderer formats smoke outcomes with a Pongo2 (Django/Jinja2-style) template.
type Renderer struct {
	tpl *pongo2.Template
}

// Compile parses source as a Pongo2 template.
func Compile(name, source string) (*Renderer, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile template %q: %w", name, err)
	}
	return &Renderer{tpl: tpl}, nil
}

// Render executes the template for one outcome. The context carries the
// outcome fields plus status (PASS, FAIL or TIMEOUT), a rounded duration
// and details, the lines worth showing for a failure.
func (r *Renderer) Render(o smoke.Outcome) (string, error) {
	ctx := pongo2.Context{
		"id":       o.TestID,
		"passed":   o.Passed,
		"timedOut": o.TimedOut,
		"exitCode": o.ExitCode,
		"status":   status(o),
		"duration": o.Duration.Round(time.Millisecond).String(),
		"error":    o.Err,
		"stdout":   o.Stdout,
		"stderr":   o.Stderr,
		"details":  details(o),
	}

	out, err := r.tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("template render failed: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

func status(o smoke.Outcome) string {
	switch {
	case o.Passed:
		return "PASS"
	case o.TimedOut:
		return "TIMEOUT"
	default:
		return "FAIL"
	}
}

func details(o smoke.Outcome) []string {
	if o.Passed {
		return nil
	}
	var lines []string
	if o.Err != "" {
		lines = append(lines, "error: "+o.Err)
	} else {
		lines = append(lines, fmt.Sprintf("exit code %d", o.ExitCode))
	}
	lines = append(lines, tail(o.Stdout, "stdout| ")...)
	lines = append(lines, tail(o.Stderr, "stderr| ")...)
	return lines
}

func tail(s, prefix string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxOutputLines {
		lines = lines[len(lines)-maxOutputLines:]
	}
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return lines
}
