/*
Package compiler builds the service binaries exercised by the harness's
acceptance tests, efficiently and in a consistent way. Binaries land in a
temporary directory removed by Cleanup.
*/
package compiler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Work describes one binary to build. Target is the directory the build runs
// in (usually the module root); Source is the path of the main package
// relative to Target. If Result is set, the binary path is stored there.
type Work struct {
	Name        string
	Target      string
	Source      string
	Environment []string

	Result *string
}

type builder struct {
	baseDir string
	ldFlags string
}

// Compile builds one binary, returning its path.
func (c *builder) Compile(ctx context.Context, work Work) (string, error) {
	cwd, err := filepath.Abs(work.Target)
	if err != nil {
		return "", err
	}

	goos := runtime.GOOS
	for _, e := range work.Environment {
		if strings.HasPrefix(e, "GOOS=") {
			goos = strings.SplitN(e, "=", 2)[1]
		}
	}

	path := binaryPath(work.Name, c.baseDir, goos)
	goBin := goPath()
	// #nosec - building test binaries is fine
	cmd := exec.CommandContext(ctx, goBin, "build",
		"-ldflags="+c.ldFlags,
		"-o", path,
		work.Source,
	)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	cmd.Env = append(cmd.Env, work.Environment...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	if err != nil {
		return "", err
	}

	if work.Result != nil {
		*work.Result = path
	}
	return path, nil
}

func goPath() string {
	goroot := os.Getenv("GOROOT")
	if goroot == "" {
		return "go"
	}
	return filepath.Join(goroot, "bin", "go")
}

func binaryPath(name, tempDir, goos string) string {
	path := filepath.Join(tempDir, name)
	if goos == "windows" {
		return path + ".exe"
	}
	return path
}
