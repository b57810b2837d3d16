package prompt

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"roastcheck/pkg/types"
)

// Built-in templates. Fields are substituted verbatim.
const (
	factCheckTemplate = "Fact-check the following statement: '{{.TargetMessage}}'. Provide a short response on whether the statement is true or not."
	roastTemplate     = "Generate a harsh roast directed at '{{.TargetUsername}}' who said: '{{.TargetMessage}}'. Provide a short response roasting '{{.TargetUsername}}'."
)

// ErrUnknownTask is returned when no template exists for a task.
var ErrUnknownTask = errors.New("unknown task")

// Template renders a Target into prompt text.
type Template struct {
	task         Task
	tmpl         *template.Template
	sanitizeHTML bool
}

// Option customizes a Template.
type Option func(*Template)

// WithSanitizeHTML replaces angle brackets in both fields with HTML entities
// before rendering.
func WithSanitizeHTML(on bool) Option {
	return func(t *Template) { t.sanitizeHTML = on }
}

// New returns the built-in template for task. A non-empty override replaces the
// built-in text; it uses {{.TargetUsername}} and {{.TargetMessage}} placeholders.
func New(task Task, override string, opts ...Option) (*Template, error) {
	text := override
	if strings.TrimSpace(text) == "" {
		switch task {
		case TaskFactCheck:
			text = factCheckTemplate
		case TaskRoast:
			text = roastTemplate
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownTask, string(task))
		}
	}
	tmpl, err := template.New(string(task)).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", task, err)
	}
	t := &Template{task: task, tmpl: tmpl}
	for _, o := range opts {
		o(t)
	}
	// A reference to an unknown field only fails on execution.
	if _, err := t.Render(types.Target{}); err != nil {
		return nil, err
	}
	return t, nil
}

// Task reports which task the template was built for.
func (t *Template) Task() Task { return t.task }

// Render substitutes the target fields into the template.
func (t *Template) Render(target types.Target) (string, error) {
	if t.sanitizeHTML {
		target.TargetUsername = htmlToString(target.TargetUsername)
		target.TargetMessage = htmlToString(target.TargetMessage)
	}
	var b strings.Builder
	if err := t.tmpl.Execute(&b, target); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.task, err)
	}
	return b.String(), nil
}

// Render is a convenience for rendering a built-in template.
func Render(task Task, target types.Target) (string, error) {
	t, err := New(task, "")
	if err != nil {
		return "", err
	}
	return t.Render(target)
}

var angleReplacer = strings.NewReplacer("<", "&lt;", ">", "&gt;")

func htmlToString(s string) string { return angleReplacer.Replace(s) }
