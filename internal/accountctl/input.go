package accountctl

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/realmd/internal/server/auth"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPasswordFn is a test seam for term.ReadPassword.
var readPasswordFn = term.ReadPassword

// readPassword returns --password or prompts for it without echo.
func (a *app) readPassword(cmd *cobra.Command) (string, error) {
	if a.password != "" {
		return a.password, nil
	}
	return promptPassword(cmd.ErrOrStderr())
}

func promptPassword(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Enter password: "); err != nil {
		return "", err
	}
	pw, err := readPasswordFn(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func parseLevel(s string) (models.AccountType, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || models.AccountType(n) > models.SecConsole {
		return 0, fmt.Errorf("invalid security level %q", s)
	}
	return models.AccountType(n), nil
}

func issueToken(id uint32, security models.AccountType, secret string, validity time.Duration) (string, error) {
	if validity <= 0 {
		return "", fmt.Errorf("token validity must be positive")
	}
	return auth.GenerateToken(id, security, []byte(secret), validity)
}
