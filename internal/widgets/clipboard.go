package widgets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

const terminalDevice = "/dev/tty"

// ErrCopyFailed reports that neither the system clipboard nor the terminal
// accepted the text.
var ErrCopyFailed = errors.New("widgets: could not copy to clipboard")

// CopyFailureMessage is shown to the user when copying fails.
const CopyFailureMessage = "Error: Could not automatically copy token."

// CopierConfig wires the clipboard capabilities. Zero values select the
// system clipboard and the controlling terminal.
type CopierConfig struct {
	Supported    func() bool
	WriteSystem  func(text string) error
	OpenTerminal func() (io.WriteCloser, error)
	Getenv       func(key string) string
	Logger       *zap.Logger
}

// Copier places text on the user's clipboard.
type Copier struct {
	supported    func() bool
	writeSystem  func(text string) error
	openTerminal func() (io.WriteCloser, error)
	getenv       func(key string) string
	logger       *zap.Logger
}

// NewCopier constructs a Copier.
func NewCopier(cfg CopierConfig) *Copier {
	copier := &Copier{
		supported:    cfg.Supported,
		writeSystem:  cfg.WriteSystem,
		openTerminal: cfg.OpenTerminal,
		getenv:       cfg.Getenv,
		logger:       cfg.Logger,
	}
	if copier.supported == nil {
		copier.supported = func() bool { return !clipboard.Unsupported }
	}
	if copier.writeSystem == nil {
		copier.writeSystem = clipboard.WriteAll
	}
	if copier.openTerminal == nil {
		copier.openTerminal = func() (io.WriteCloser, error) {
			return os.OpenFile(terminalDevice, os.O_WRONLY, 0)
		}
	}
	if copier.getenv == nil {
		copier.getenv = os.Getenv
	}
	if copier.logger == nil {
		copier.logger = zap.NewNop()
	}
	return copier
}

// Copy tries the system clipboard first and falls back to an OSC 52 escape
// written to the terminal.
func (c *Copier) Copy(text string) error {
	if c.supported() {
		err := c.writeSystem(text)
		if err == nil {
			return nil
		}
		c.logger.Debug("system clipboard rejected text", zap.Error(err))
	}

	if err := c.copyViaTerminal(text); err != nil {
		c.logger.Warn("clipboard copy failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}
	return nil
}

func (c *Copier) copyViaTerminal(text string) error {
	terminal, err := c.openTerminal()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer terminal.Close()

	sequence := osc52(text)
	if c.insideTmux() {
		if _, err := fmt.Fprintf(terminal, "\x1bPtmux;\x1b%s\x1b\\", sequence); err != nil {
			return fmt.Errorf("write tmux passthrough: %w", err)
		}
	}
	if _, err := io.WriteString(terminal, sequence); err != nil {
		return fmt.Errorf("write osc52: %w", err)
	}
	return nil
}

func (c *Copier) insideTmux() bool {
	term := c.getenv("TERM")
	return c.getenv("TMUX") != "" || strings.HasPrefix(term, "tmux") || strings.HasPrefix(term, "screen")
}

// osc52 terminates with BEL, which survives ssh and multiplexers intact.
func osc52(text string) string {
	return fmt.Sprintf("\x1b]52;c;%s\x07", base64.StdEncoding.EncodeToString([]byte(text)))
}
