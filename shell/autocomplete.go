package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string // Available options for this command (e.g., "-depth")
	Args    []string // Possible argument values (for non-option arguments)
}

var commandMetadata = map[string]CommandMetadata{
	"hint": {
		Options: []string{"-depth", "-maxtime", "-log"},
	},
	"aiplay": {
		Options: []string{"-difficulty", "-remote"},
	},
	"autoplay": {
		Options: []string{"-games", "-threads", "-logfile", "-p1", "-p2", "-seeds", "-save"},
		Args:    []string{"stop"},
	},
	"games": {
		Options: []string{"-limit"},
	},
	"save": {
		Options: []string{"-players"},
	},
	"set": {
		Args: optionKeys,
	},
	"shift": {
		Args: []string{"row", "col"},
	},
	"help": {
		Args: []string{"set", "hint", "aiplay", "autoplay", "script"},
	},
}

var commandNames = []string{
	"help", "new", "show", "s", "set", "setboard", "play", "double", "shift",
	"bomb", "moves", "eval", "hint", "aiplay", "export", "save", "load", "games",
	"autoplay", "analyze", "script", "exit",
}

var boolValues = []string{"true", "false"}
var difficulties = []string{"easy", "medium", "hard"}
var remotes = []string{"nats", "lambda"}

// valuesFor returns the values an option or setting can take, if they
// form a short fixed list.
func valuesFor(name string) []string {
	switch name {
	case "difficulty", "p1", "p2":
		return difficulties
	case "remote":
		return remotes
	case "save", "gravity", "wrap", "misere", "double", "shift", "bomb":
		return boolValues
	}
	return nil
}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		// unbalanced quotes
		fields = strings.Fields(text)
	}

	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]

		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}

		// The last field before the one being typed.
		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if strings.HasPrefix(lastCompleteField, "-") {
			completions = valuesFor(strings.TrimPrefix(lastCompleteField, "-"))
		} else if cmdName == "set" && lastCompleteField != "set" {
			completions = valuesFor(lastCompleteField)
		}

		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			// only the part that still needs typing
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}

	return matches, len(prefix)
}
