package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/session"
)

var password string

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in to the analysis server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, pw, err := credentials(cmd, args)
		if err != nil {
			return err
		}
		if err := pdfApp.Login(cmd.Context(), username, pw); err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in as %s (%d chats)\n",
			okStyle.Render("✓"), titleStyle.Render(username), len(pdfApp.Chats.Items()))
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create an account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, pw, err := credentials(cmd, args)
		if err != nil {
			return err
		}
		if err := pdfApp.Register(cmd.Context(), username, pw); err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Registration successful! Please login.\n", okStyle.Render("✓"))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear cached chats",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pdfApp.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(cmd.Context()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		user := pdfApp.User()
		if user == nil {
			return errors.New("profile unavailable")
		}
		fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("User  "), user.Username)
		fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("Server"), pdfApp.Client.BaseURL())
		fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("Model "), pdfApp.Model())
		fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("Key   "), session.MaskKey(pdfApp.Session.APIKey()))
		if exp, err := pdfApp.Session.TokenExpiry(); err == nil && !exp.IsZero() {
			fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("Expiry"), humanize.Time(exp))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	}
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

func credentials(cmd *cobra.Command, args []string) (string, string, error) {
	in := bufio.NewReader(cmd.InOrStdin())

	var username string
	if len(args) == 1 {
		username = args[0]
	} else {
		fmt.Fprint(cmd.ErrOrStderr(), "Username: ")
		line, err := readLine(in)
		if err != nil {
			return "", "", err
		}
		username = line
	}
	username = strings.TrimSpace(username)

	pw := password
	if pw == "" {
		var err error
		if pw, err = readSecret(cmd, in, "Password: "); err != nil {
			return "", "", err
		}
	}
	if username == "" || pw == "" {
		return "", "", errors.New("username and password are required")
	}
	return username, pw, nil
}

// readSecret reads without echo from a terminal, or a plain line otherwise
func readSecret(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no input")
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// describe prefers the server's explanation over the transport error
func describe(err error) error {
	if detail := api.Detail(err); detail != "" {
		return errors.New(detail)
	}
	return err
}
