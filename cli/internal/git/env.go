package git

import (
	"os"
	"runtime"
)

// minimalEnv is the environment for read-only git subprocesses: no prompts,
// no pager, HOME kept so the user's git config is found.
func minimalEnv() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat",
	}
	if home := os.Getenv("HOME"); home != "" {
		env = append(env, "HOME="+home)
	} else if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			env = append(env, "HOME="+profile)
		}
	}
	return env
}

// commitEnv keeps the caller's environment (hooks, signing agents, identity
// overrides) and only disables the pager and credential prompts.
func commitEnv() []string {
	return append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_PAGER=cat")
}
