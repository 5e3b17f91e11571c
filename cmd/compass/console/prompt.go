package console

import (
	"strings"

	"github.com/chzyer/readline"
)

const (
	Yes = "y"
	No  = "n"
)

// YesOrNo asks a question with "n" as the default answer.
func YesOrNo(question string) (string, error) {
	return Prompt(question, No, Yes)
}

// Prompt reads one line; when constraints are given the answer must be one of
// them and the first one is used as the default.
func Prompt(question string, constraints ...string) (string, error) {
	var prompt strings.Builder
	prompt.WriteString(question)
	if len(constraints) > 0 {
		prompt.WriteString(" [")
		prompt.WriteString(strings.ToUpper(constraints[0]))
		for _, c := range constraints[1:] {
			prompt.WriteString("/")
			prompt.WriteString(c)
		}
		prompt.WriteString("]:")
	}
	rl, err := readline.New(prompt.String())
	if err != nil {
		return "", err
	}
	defer func() { _ = rl.Close() }()
	response, err := rl.Readline()
	if err != nil {
		return "", err
	}
	return matchAnswer(response, constraints), nil
}

func matchAnswer(response string, constraints []string) string {
	if len(constraints) == 0 {
		return response
	}
	normalized := strings.ToLower(strings.TrimSpace(response))
	for _, c := range constraints {
		if normalized == c {
			return normalized
		}
	}
	return constraints[0]
}
