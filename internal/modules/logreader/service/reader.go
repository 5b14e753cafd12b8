package service

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lsr_dashboard/pkg/tracing"
)

var ErrTimeout = errors.New("remote log retrieval timed out")

// Runner выполняет команду на удалённой машине и отдаёт stdout.
// При отмене ctx процесс обязан быть убит до возврата.
type Runner interface {
	Run(ctx context.Context, target, command string) ([]byte, error)
}

type Config struct {
	Target         string // user@host
	LogPath        string
	Timeout        time.Duration
	MaxStdoutBytes int
}

type Reader struct {
	cfg    Config
	runner Runner
	log    *zap.Logger
}

func NewReader(cfg Config, runner Runner, log *zap.Logger) *Reader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxStdoutBytes <= 0 {
		cfg.MaxStdoutBytes = 256 * 1024
	}
	return &Reader{cfg: cfg, runner: runner, log: log}
}

// Grep последние last строк лога, совпавших с pattern, в порядке файла.
func (r *Reader) Grep(ctx context.Context, pattern string, last int) (text string, err error) {
	span, ctx := tracing.StartSpan(ctx, "logreader.grep", map[string]any{"pattern": pattern, "last": last})
	defer func() {
		tracing.Finish(span, err)
		if err != nil {
			err = fmt.Errorf("Reader.Grep: %w", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	out, err := r.runner.Run(ctx, r.cfg.Target, r.command(pattern, last))
	if ctx.Err() == context.DeadlineExceeded {
		r.log.Warn("log grep timed out", zap.String("pattern", pattern), zap.Duration("timeout", r.cfg.Timeout))
		return "", ErrTimeout
	}
	if err != nil {
		return "", errors.Wrapf(err, "ssh %s", r.cfg.Target)
	}

	if len(out) > r.cfg.MaxStdoutBytes {
		r.log.Warn("log grep output truncated",
			zap.Int("bytes", len(out)), zap.Int("limit", r.cfg.MaxStdoutBytes))
		out = out[len(out)-r.cfg.MaxStdoutBytes:]
	}

	return strings.ToValidUTF8(string(out), "\uFFFD"), nil
}

// command собирает Select-String для PowerShell на стороне моста.
func (r *Reader) command(pattern string, last int) string {
	return fmt.Sprintf(
		`powershell -Command "Select-String -Path '%s' -Pattern '%s' | Select-Object -Last %d | ForEach-Object { $_.Line }"`,
		psQuote(r.cfg.LogPath), psQuote(pattern), last,
	)
}

// psQuote экранирует одинарные кавычки для строки PowerShell в '...'.
func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// SSHRunner запускает системный ssh.
type SSHRunner struct {
	ConnectTimeout time.Duration
}

func (s SSHRunner) Run(ctx context.Context, target, command string) ([]byte, error) {
	connect := int(s.ConnectTimeout / time.Second)
	if connect <= 0 {
		connect = 5
	}

	cmd := exec.CommandContext(ctx, "ssh",
		"-o", fmt.Sprintf("ConnectTimeout=%d", connect),
		"-o", "StrictHostKeyChecking=no",
		"-o", "BatchMode=yes",
		target, command,
	)
	// после kill не ждём вечно на унаследованных пайпах
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), errors.Wrap(err, msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}
