package env

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// JavaHome returns $JAVA_HOME, or "" when unset.
func JavaHome() string {
	return os.Getenv("JAVA_HOME")
}

// JDKTool locates a JDK executable such as "javac". $JAVA_HOME/bin wins over PATH.
func JDKTool(name string) (string, error) {
	exe := name
	if runtime.GOOS == "windows" {
		exe += ".exe"
	}
	if home := JavaHome(); home != "" {
		p := filepath.Join(home, "bin", exe)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return exec.LookPath(name)
}
