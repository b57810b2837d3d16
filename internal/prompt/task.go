// Package prompt turns the stdin record into the text sent to the model.
package prompt

import (
	"fmt"
	"strings"
)

// Task selects which prompt template is rendered.
type Task string

const (
	TaskFactCheck Task = "factcheck"
	TaskRoast     Task = "roast"
)

// Tasks lists every supported task in a stable order.
func Tasks() []Task { return []Task{TaskFactCheck, TaskRoast} }

// ParseTask accepts a task name case-insensitively. "fact-check" is accepted
// as an alias for factcheck.
func ParseTask(s string) (Task, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "factcheck", "fact-check":
		return TaskFactCheck, nil
	case "roast":
		return TaskRoast, nil
	default:
		return "", fmt.Errorf("unknown task %q (want factcheck|roast)", s)
	}
}

// Short is the one-line description used by the CLI.
func (t Task) Short() string {
	switch t {
	case TaskFactCheck:
		return "Fact-check a chat message with the local model"
	case TaskRoast:
		return "Roast the author of a chat message with the local model"
	default:
		return string(t)
	}
}

func (t Task) String() string { return string(t) }
