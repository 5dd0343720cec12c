package minify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/conneroisu/jsplus/internal/logging"
	"github.com/conneroisu/jsplus/internal/validation"
)

// TerserTier pipes source through a local terser binary.
type TerserTier struct {
	command     string
	args        []string
	autoInstall bool
	logger      logging.Logger

	installOnce sync.Once
	installErr  error
}

// NewTerserTier creates a terser tier. With autoInstall set, a missing
// binary is installed globally through npm once per process.
func NewTerserTier(logger logging.Logger, autoInstall bool) *TerserTier {
	return &TerserTier{
		command:     "terser",
		args:        []string{"-c", "-m"},
		autoInstall: autoInstall,
		logger:      logger.WithComponent("terser"),
	}
}

func (t *TerserTier) Name() string { return "terser" }

// Minify runs terser with src on stdin.
func (t *TerserTier) Minify(ctx context.Context, src string) (string, error) {
	if err := t.validateCommand(); err != nil {
		return "", fmt.Errorf("command validation failed: %w", err)
	}

	path, err := t.lookPath(ctx)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, t.args...)
	cmd.Stdin = strings.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("terser timed out: %w", ctx.Err())
		}
		return "", fmt.Errorf("terser failed: %w\nOutput: %s", err, stderr.String())
	}

	return stdout.String(), nil
}

func (t *TerserTier) lookPath(ctx context.Context) (string, error) {
	path, err := exec.LookPath(t.command)
	if err == nil || !t.autoInstall {
		return path, err
	}

	t.installOnce.Do(func() {
		t.logger.Info(ctx, "Installing terser", "command", "npm install -g terser")
		out, installErr := exec.CommandContext(ctx, "npm", "install", "-g", "terser").CombinedOutput()
		if installErr != nil {
			t.installErr = fmt.Errorf("npm install failed: %w\nOutput: %s", installErr, out)
		}
	})
	if t.installErr != nil {
		return "", t.installErr
	}

	return exec.LookPath(t.command)
}

func (t *TerserTier) validateCommand() error {
	allowedCommands := map[string]bool{
		"terser": true,
	}

	if err := validation.ValidateCommand(t.command, allowedCommands); err != nil {
		return err
	}

	for _, arg := range t.args {
		if err := validation.ValidateArgument(arg); err != nil {
			return fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}

	return nil
}
