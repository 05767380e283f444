// Package rifle decides which external program opens a file.
package rifle

import (
	"os/exec"
	"path/filepath"
	"strings"

	"dirbuf/internal/config"
	"dirbuf/internal/errors"
	"dirbuf/internal/log"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"
	"github.com/mattn/go-shellwords"
)

type rule struct {
	match   glob.Glob
	mime    string
	command string
}

// Rifle holds ordered open rules; the first matching rule wins.
type Rifle struct {
	rules    []rule
	needMime bool
}

// New compiles rules.
func New(rules []config.Rule) (*Rifle, error) {
	r := &Rifle{}
	for _, cr := range rules {
		if _, err := Split(cr.Command); err != nil {
			return nil, errors.NewConfigError("invalid rifle command", cr.Command, errors.InvalidConfig, err)
		}
		compiled := rule{mime: cr.Mime, command: cr.Command}
		if cr.Match != "" {
			g, err := glob.Compile(cr.Match)
			if err != nil {
				return nil, errors.NewConfigError("invalid rifle pattern", cr.Match, errors.InvalidConfig, err)
			}
			compiled.match = g
		}
		if cr.Mime != "" {
			r.needMime = true
		}
		r.rules = append(r.rules, compiled)
	}
	return r, nil
}

// Resolve returns the command configured for path.
func (r *Rifle) Resolve(path string) (string, bool) {
	if r == nil || len(r.rules) == 0 {
		return "", false
	}

	name := filepath.Base(path)
	var mime string
	if r.needMime {
		if m, err := mimetype.DetectFile(path); err == nil {
			mime = m.String()
		} else {
			log.Debug("mime detection failed", err)
		}
	}

	for _, rl := range r.rules {
		if rl.match != nil && !rl.match.Match(name) {
			continue
		}
		if rl.mime != "" && !strings.HasPrefix(mime, rl.mime) {
			continue
		}
		return rl.command, true
	}
	return "", false
}

// Split breaks a command line into arguments. Single and double quotes
// group words and backslashes escape; variables are not expanded.
func Split(command string) ([]string, error) {
	return shellwords.Parse(command)
}

// Command builds the process that opens path with command. A "{}" in an
// argument is replaced by the path; otherwise the path is appended.
func Command(command, path string) (*exec.Cmd, error) {
	args, err := Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing command %q", command)
	}
	if len(args) == 0 {
		return nil, errors.Newf("empty command for %s", path)
	}
	substituted := false
	for i, a := range args {
		if strings.Contains(a, "{}") {
			args[i] = strings.ReplaceAll(a, "{}", path)
			substituted = true
		}
	}
	if !substituted {
		args = append(args, path)
	}
	return exec.Command(args[0], args[1:]...), nil
}
