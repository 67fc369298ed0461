package shell

import "testing"

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		want    []string
		wantErr bool
	}{
		{"simple", "claude --flag", []string{"claude", "--flag"}, false},
		{"single quoted path with spaces", `cd '/home/user/my project' && claude`,
			[]string{"cd", "/home/user/my project", "&&", "claude"}, false},
		{"double quoted with escape", `echo "a \"quoted\" word"`,
			[]string{"echo", `a "quoted" word`}, false},
		{"backslash escape outside quotes", `echo foo\ bar`, []string{"echo", "foo bar"}, false},
		{"empty", "", nil, false},
		{"whitespace only", "   ", nil, false},
		{"unclosed single quote", "cd 'unclosed", nil, true},
		{"unclosed double quote", `echo "unclosed`, nil, true},
		{"trailing backslash", `echo foo\`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.cmd)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Tokenize(%q) error = nil, want error", tt.cmd)
				}
				return
			}
			if err != nil {
				t.Fatalf("Tokenize(%q) error = %v", tt.cmd, err)
			}
			if !equalStringSlice(got, tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.cmd, got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name        string
		cmd         string
		cwd         string
		wantWorkDir string
		wantEnv     map[string]string
		wantArgv    []string
	}{
		{
			name:        "cd and env and quoted exe",
			cmd:         `cd '/home/user/workspace' && CLAUDECODE=1 AGENT_TEAMS=1 '/usr/local/bin/claude' --agent-id tech-architect@team`,
			wantWorkDir: "/home/user/workspace",
			wantEnv:     map[string]string{"CLAUDECODE": "1", "AGENT_TEAMS": "1"},
			wantArgv:    []string{"/usr/local/bin/claude", "--agent-id", "tech-architect@team"},
		},
		{
			name:        "cd with simple command",
			cmd:         `cd '/tmp/workspace' && htop`,
			wantWorkDir: "/tmp/workspace",
			wantEnv:     map[string]string{},
			wantArgv:    []string{"htop"},
		},
		{
			name:        "env vars only",
			cmd:         "FOO=bar BAZ=qux claude",
			cwd:         "/srv/app",
			wantWorkDir: "/srv/app",
			wantEnv:     map[string]string{"FOO": "bar", "BAZ": "qux"},
			wantArgv:    []string{"claude"},
		},
		{
			name:        "no transformation needed",
			cmd:         "vim file.txt",
			wantWorkDir: "",
			wantEnv:     map[string]string{},
			wantArgv:    []string{"vim", "file.txt"},
		},
		{
			name:        "empty falls back to current work dir",
			cmd:         "",
			cwd:         "/home/user",
			wantWorkDir: "/home/user",
			wantEnv:     map[string]string{},
			wantArgv:    nil,
		},
		{
			name:        "env prefix via env(1)",
			cmd:         "env CLAUDECODE=1 claude --resume abc",
			wantWorkDir: "",
			wantEnv:     map[string]string{"CLAUDECODE": "1"},
			wantArgv:    []string{"claude", "--resume", "abc"},
		},
		{
			name:        "env as command name is not stripped",
			cmd:         "env --version",
			wantWorkDir: "",
			wantEnv:     map[string]string{},
			wantArgv:    []string{"env", "--version"},
		},
		{
			name:        "flags are not mistaken for env vars",
			cmd:         "claude --agent-id foo --flag bar",
			wantWorkDir: "",
			wantEnv:     map[string]string{},
			wantArgv:    []string{"claude", "--agent-id", "foo", "--flag", "bar"},
		},
		{
			name:        "env var with empty value",
			cmd:         "FOO= claude",
			wantWorkDir: "",
			wantEnv:     map[string]string{"FOO": ""},
			wantArgv:    []string{"claude"},
		},
		{
			name:        "env var value contains equals",
			cmd:         "FOO=bar=baz claude",
			wantWorkDir: "",
			wantEnv:     map[string]string{"FOO": "bar=baz"},
			wantArgv:    []string{"claude"},
		},
		{
			name:        "cd without && is left as a plain command",
			cmd:         "cd /tmp ; ls",
			wantWorkDir: "",
			wantEnv:     map[string]string{},
			wantArgv:    []string{"cd", "/tmp", ";", "ls"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.cmd, tt.cwd)
			if err != nil {
				t.Fatalf("ParseCommand() error = %v", err)
			}
			if got.WorkDir != tt.wantWorkDir {
				t.Errorf("WorkDir = %q, want %q", got.WorkDir, tt.wantWorkDir)
			}
			if !equalStringMap(got.ExtraEnv, tt.wantEnv) {
				t.Errorf("ExtraEnv = %v, want %v", got.ExtraEnv, tt.wantEnv)
			}
			if !equalStringSlice(got.Argv, tt.wantArgv) {
				t.Errorf("Argv = %v, want %v", got.Argv, tt.wantArgv)
			}
		})
	}
}

func TestIsEnvVarName(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want bool
	}{
		{"uppercase", "FOO", true},
		{"with underscore", "CLAUDE_CODE_VAR", true},
		{"with digits", "VAR123", true},
		{"starts with underscore", "_VAR", true},
		{"lowercase", "foo", true},
		{"mixed case", "myVar", true},
		{"starts with digit", "1VAR", false},
		{"contains hyphen", "MY-VAR", false},
		{"empty", "", false},
		{"contains dot", "MY.VAR", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEnvVarName(tt.s); got != tt.want {
				t.Errorf("isEnvVarName(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func equalStringSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStringMap(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
