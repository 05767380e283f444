package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Rclone drives the rclone command line tool. Every configured rclone
// remote becomes a remote.
type Rclone struct {
	Binary string
}

// NewRclone uses binary, or "rclone" from PATH when empty.
func NewRclone(binary string) *Rclone {
	if binary == "" {
		binary = "rclone"
	}
	return &Rclone{Binary: binary}
}

// Available reports whether the binary can be found.
func (r *Rclone) Available() bool {
	_, err := exec.LookPath(r.Binary)
	return err == nil
}

func (r *Rclone) run(ctx context.Context, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("rclone %s: %w", args[0], err)
		}
		return nil, fmt.Errorf("rclone %s: %w: %s", args[0], err, msg)
	}
	return stdout.Bytes(), nil
}

func (r *Rclone) Remotes(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "listremotes")
	if err != nil {
		return nil, err
	}
	var remotes []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ":")
		if line != "" {
			remotes = append(remotes, line)
		}
	}
	return remotes, nil
}

type lsjsonItem struct {
	Name    string    `json:"Name"`
	Size    int64     `json:"Size"`
	ModTime time.Time `json:"ModTime"`
	IsDir   bool      `json:"IsDir"`
}

func (r *Rclone) List(ctx context.Context, dir string) ([]Entry, error) {
	out, err := r.run(ctx, "lsjson", "--max-depth", "1", "--no-mimetype", dir)
	if err != nil {
		return nil, err
	}
	var items []lsjsonItem
	if err := json.Unmarshal(out, &items); err != nil {
		return nil, fmt.Errorf("rclone lsjson %s: %w", dir, err)
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{Name: item.Name, IsDir: item.IsDir, Size: item.Size, ModTime: item.ModTime})
	}
	return entries, nil
}

func (r *Rclone) Download(ctx context.Context, src, dst string) error {
	_, err := r.run(ctx, "copyto", src, dst)
	return err
}

func (r *Rclone) Move(ctx context.Context, src, dst string, _ bool) error {
	_, err := r.run(ctx, "moveto", src, dst)
	return err
}

func (r *Rclone) Copy(ctx context.Context, src, dst string, _ bool) error {
	_, err := r.run(ctx, "copyto", src, dst)
	return err
}

func (r *Rclone) Delete(ctx context.Context, path string, isDir bool) error {
	if isDir {
		_, err := r.run(ctx, "purge", path)
		return err
	}
	_, err := r.run(ctx, "deletefile", path)
	return err
}
