package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/vrde/trabant/log"
)

const defaultEditor = "vi"

// editSourceCommand is a [tea.ExecCommand] that opens the session source
// in the user's editor until it compiles. The compiled source is left in
// source; clearing the file leaves source empty.
type editSourceCommand struct {
	ctx     context.Context
	session *Session
	logger  log.Logger
	source  string

	stdin          io.Reader
	stdout, stderr io.Writer
}

func (c *editSourceCommand) SetStdin(r io.Reader) { c.stdin = r }
func (c *editSourceCommand) SetStdout(w io.Writer) { c.stdout = w }
func (c *editSourceCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run edits until the source compiles, the file is cleared, or the user
// declines to edit again ([ErrEditDeclined]).
func (c *editSourceCommand) Run() error {
	f, err := os.CreateTemp("", "trabant-repl-*.tpl")
	if err != nil {
		return err
	}

	path := f.Name()
	f.Close()

	defer os.Remove(path)

	content := c.session.Source()
	answers := bufio.NewScanner(c.stdin)

	for {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return err
		}

		data, err := runEditor(c.ctx, c.stdin, c.stdout, c.stderr, path)
		if err != nil {
			return err
		}

		content = string(data)
		if strings.TrimSpace(content) == "" {
			return nil
		}

		_, err = c.session.Compile(c.ctx, content)

		c.logger.TraceContext(c.ctx, "repl edit compiled",
			slog.Int("bytes", len(data)),
			slog.Any("error", err),
		)

		if err == nil {
			c.source = content

			return nil
		}

		fmt.Fprintf(c.stderr, "\n%s\n", err)
		fmt.Fprint(c.stdout, "Edit again? [Y/n] ")

		if !answers.Scan() {
			return ErrEditDeclined
		}

		switch strings.ToLower(strings.TrimSpace(answers.Text())) {
		case "n", "no":
			return ErrEditDeclined
		}
	}
}

// runEditor runs $EDITOR, or vi, on path and returns the file content
// after the editor exits.
func runEditor(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, path string) ([]byte, error) {
	args := strings.Fields(os.Getenv("EDITOR"))
	if len(args) == 0 {
		args = []string{defaultEditor}
	}

	cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = stdin, stdout, stderr

	if err := cmd.Run(); err != nil {
		return nil, err
	}

	return os.ReadFile(path)
}
