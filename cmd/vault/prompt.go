package vault

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads secrets without echo when stdin is a terminal, otherwise one line per
// secret from the command input
type prompter struct {
	cmd      *cobra.Command
	terminal *os.File
	lines    *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	p := &prompter{cmd: cmd}

	if in, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(in.Fd())) {
		p.terminal = in
	} else {
		p.lines = bufio.NewReader(cmd.InOrStdin())
	}

	return p
}

func (p *prompter) secret(prompt string) (string, error) {
	fmt.Fprint(p.cmd.ErrOrStderr(), prompt+": ")

	if p.terminal != nil {
		secret, err := term.ReadPassword(int(p.terminal.Fd()))
		fmt.Fprintln(p.cmd.ErrOrStderr())
		if err != nil {
			return "", errors.Wrap(err, "failed to read secret")
		}
		return string(secret), nil
	}

	line, err := p.lines.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", errors.Wrap(err, "failed to read secret")
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// newPassword prompts twice and requires both entries to match
func (p *prompter) newPassword() (string, error) {
	password, err := p.secret("Vault password")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", errors.New("password must not be empty")
	}

	confirm, err := p.secret("Repeat vault password")
	if err != nil {
		return "", err
	}
	if confirm != password {
		return "", errors.New("passwords do not match")
	}

	return password, nil
}
