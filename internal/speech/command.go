package speech

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
)

// baseWPM is the speaking rate a multiplier of 1.0 maps to.
const baseWPM = 175

// ErrNoSynthesizer is returned by Detect when no known TTS command exists.
var ErrNoSynthesizer = errors.New("no speech synthesis command found")

// CommandSynthesizer speaks by running a platform TTS command such as say
// or espeak. Cancel kills the running process and, for spd-say, also
// cancels the messages queued in speech-dispatcher.
type CommandSynthesizer struct {
	path   string
	logger *slog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

var _ Synthesizer = (*CommandSynthesizer)(nil)

// NewCommandSynthesizer uses the TTS command at path.
func NewCommandSynthesizer(path string, logger *slog.Logger) *CommandSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSynthesizer{path: path, logger: logger}
}

// Path returns the TTS command in use.
func (c *CommandSynthesizer) Path() string { return c.path }

// Detect returns a synthesiser for the first TTS command found on PATH.
// When command is non-empty only that command is tried.
func Detect(command string, logger *slog.Logger) (*CommandSynthesizer, error) {
	candidates := []string{command}
	if command == "" {
		candidates = platformCommands()
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return NewCommandSynthesizer(path, logger), nil
		}
	}
	return nil, ErrNoSynthesizer
}

func platformCommands() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"say"}
	case "windows":
		return nil
	default:
		return []string{"espeak-ng", "espeak", "spd-say"}
	}
}

// Args builds the argument list for speaking text at rate with the named
// command.
func Args(command, text string, rate float64) []string {
	wpm := strconv.Itoa(int(baseWPM*rate + 0.5))
	switch command {
	case "say":
		return []string{"-r", wpm, text}
	case "spd-say":
		// spd-say takes a relative rate in -100..100
		rel := int((rate - 1) * 100)
		rel = max(-100, min(100, rel))
		return []string{"-w", "-r", strconv.Itoa(rel), text}
	default:
		return []string{"-s", wpm, text}
	}
}

// CancelArgs returns the arguments that flush the command's server-side
// queue, or nil when killing the process is enough. spd-say only hands text
// to speech-dispatcher, which keeps speaking after the client dies.
func CancelArgs(command string) []string {
	if command == "spd-say" {
		return []string{"-C"}
	}
	return nil
}

func (c *CommandSynthesizer) Speak(text string, rate float64) error {
	cmd := exec.Command(c.path, Args(filepath.Base(c.path), text, rate)...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.path, err)
	}
	c.cmd = cmd

	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		if c.cmd == cmd {
			c.cmd = nil
		}
		c.mu.Unlock()
		if err != nil {
			c.logger.Debug("utterance ended", "error", err)
		}
	}()
	return nil
}

func (c *CommandSynthesizer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	if err := c.cmd.Process.Kill(); err != nil {
		c.logger.Debug("failed to cancel utterance", "error", err)
	}
	c.cmd = nil

	// the flush completes before any new utterance can start
	if args := CancelArgs(filepath.Base(c.path)); args != nil {
		if err := exec.Command(c.path, args...).Run(); err != nil {
			c.logger.Debug("failed to flush speech queue", "command", c.path, "error", err)
		}
	}
}
