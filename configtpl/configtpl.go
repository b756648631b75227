/*
Package configtpl materializes configuration files for a service binary under
test.

A template is plain text with ${name} placeholders. Substitution is literal,
single-pass and non-recursive; an unresolved placeholder is an error, because
a config with a raw ${name} in it makes the service fail to start with a far
more confusing message. The rendered result is written to a fresh temporary
file owned by one harness session, and the open descriptor is kept so cleanup
can release it deterministically.
*/
package configtpl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/valyala/fasttemplate"
)

// startTag and endTag delimit placeholders, ${name} style.
const (
	startTag = "${"
	endTag   = "}"
)

// ConfigError reports a template that cannot be rendered: either it failed
// to parse, or substitutions left placeholders unresolved.
type ConfigError struct {
	Template string
	Missing  []string
	Err      error
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("config template %s: unresolved placeholders: %s",
			e.Template, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("config template %s: %v", e.Template, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config is one rendered configuration file. It is created once per harness
// session and removed exactly once during teardown; the file stays on disk
// and readable for the whole life of the process launched against it.
type Config struct {
	Path    string
	Content string

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// Materialize renders the template at templatePath with subs and writes the
// result to a new uniquely named temporary file. Boolean values must already
// be serialized by the caller as the literal strings "true" or "false".
func Materialize(templatePath string, subs map[string]string) (*Config, error) {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config template: %w", err)
	}

	tpl, err := fasttemplate.NewTemplate(string(raw), startTag, endTag)
	if err != nil {
		return nil, &ConfigError{Template: templatePath, Err: err}
	}

	var missing []string
	content := tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		v, ok := subs[tag]
		if !ok {
			missing = append(missing, tag)
			return 0, nil
		}
		return io.WriteString(w, v)
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ConfigError{Template: templatePath, Missing: missing}
	}

	f, err := os.CreateTemp("", "harness-config-")
	if err != nil {
		return nil, fmt.Errorf("failed to create config file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}

	return &Config{
		Path:    f.Name(),
		Content: content,
		file:    f,
	}, nil
}

// Close releases the descriptor and removes the file. Both steps run even if
// the first fails, with the failures joined. A second call is a no-op.
func (c *Config) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if err := c.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close config descriptor: %w", err))
	}
	if err := os.Remove(c.Path); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove config file: %w", err))
	}
	return errors.Join(errs...)
}
