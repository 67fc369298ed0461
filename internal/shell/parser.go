// Package shell tokenizes the shell-command argument that new-window,
// split-window and run-shell accept (a single string typed at a command
// prompt, or given as a session's default command), the way tmux's
// cmd-string.c turns one line into the argv a pane actually execs.
package shell

import (
	"fmt"
	"log/slog"
	"strings"
)

// ParsedCommand holds the pieces extracted from a raw command string before
// a pane execs it.
type ParsedCommand struct {
	WorkDir  string            // extracted from a leading "cd 'path' && ..."
	ExtraEnv map[string]string // extracted from leading "KEY=VALUE" tokens
	Argv     []string          // the remaining command, tokenized
}

// ParseCommand tokenizes cmd and extracts a leading "cd <dir> &&" and any
// leading "KEY=VALUE" environment assignments (with an optional "env "
// prefix, as in "env FOO=bar prog"), leaving Argv as the command to exec.
// currentWorkDir is used as WorkDir when cmd has no "cd" prefix of its own.
func ParseCommand(cmd string, currentWorkDir string) (ParsedCommand, error) {
	result := ParsedCommand{ExtraEnv: map[string]string{}}

	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		result.WorkDir = currentWorkDir
		return result, nil
	}

	tokens, err := Tokenize(cmd)
	if err != nil {
		return result, err
	}

	tokens = extractCD(tokens, &result)
	tokens = extractEnvVars(tokens, result.ExtraEnv)

	result.Argv = tokens
	if result.WorkDir == "" {
		result.WorkDir = currentWorkDir
	}

	slog.Debug("[shell] parsed command",
		"original", cmd,
		"workDir", result.WorkDir,
		"extraEnv", result.ExtraEnv,
		"argv", result.Argv,
	)
	return result, nil
}

// extractCD recognizes a leading "cd <dir> && ..." (with <dir> as one
// tokenized word, already unquoted by Tokenize) and removes it from tokens,
// recording <dir> as WorkDir. Leaves tokens untouched if the pattern does
// not match at the front.
func extractCD(tokens []string, result *ParsedCommand) []string {
	if len(tokens) < 3 || tokens[0] != "cd" || tokens[2] != "&&" {
		return tokens
	}
	result.WorkDir = tokens[1]
	return tokens[3:]
}

// extractEnvVars strips a leading "env " token (Unix env(1), only when
// followed by an assignment) and any number of leading "KEY=VALUE" tokens,
// recording them into envMap.
func extractEnvVars(tokens []string, envMap map[string]string) []string {
	if len(tokens) == 0 {
		return tokens
	}
	if tokens[0] == "env" {
		if key, _, ok := strings.Cut(peek(tokens, 1), "="); ok && isEnvVarName(key) {
			tokens = tokens[1:]
		}
	}
	for len(tokens) > 0 {
		key, value, ok := strings.Cut(tokens[0], "=")
		if !ok || key == "" || !isEnvVarName(key) {
			break
		}
		envMap[key] = value
		tokens = tokens[1:]
	}
	return tokens
}

func peek(tokens []string, i int) string {
	if i < 0 || i >= len(tokens) {
		return ""
	}
	return tokens[i]
}

// isEnvVarName reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func isEnvVarName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if i == 0 {
			if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_') {
				return false
			}
		} else if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}

// Tokenize splits cmd into argv the way a POSIX shell word-splits a command
// line: single quotes are literal (no escapes inside), double quotes allow
// backslash-escaping of '"', '\\', '$' and '`', and a bare backslash escapes the
// next character outside of quotes. Unquoted runs of whitespace separate
// tokens.
func Tokenize(cmd string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	haveToken := false

	runes := []rune(cmd)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case c == ' ' || c == '\t':
			if haveToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				haveToken = false
			}
			i++
		case c == '\'':
			haveToken = true
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				cur.WriteRune(runes[j])
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("shell: unterminated single quote in %q", cmd)
			}
			i = j + 1
		case c == '"':
			haveToken = true
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				if runes[j] == '\\' && j+1 < len(runes) && strings.ContainsRune(`"\$`+"`", runes[j+1]) {
					cur.WriteRune(runes[j+1])
					j += 2
					continue
				}
				cur.WriteRune(runes[j])
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("shell: unterminated double quote in %q", cmd)
			}
			i = j + 1
		case c == '\\':
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("shell: trailing backslash in %q", cmd)
			}
			haveToken = true
			cur.WriteRune(runes[i+1])
			i += 2
		default:
			haveToken = true
			cur.WriteRune(c)
			i++
		}
	}
	if haveToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
