package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fruitsalade/syncsession/internal/account"
	"github.com/fruitsalade/syncsession/internal/retry"
	"github.com/fruitsalade/syncsession/internal/server"
)

// secretEnv supplies the account secret when stdin is not a terminal.
const secretEnv = "SYNCSESSION_SECRET"

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage locally known accounts",
	}
	cmd.AddCommand(accountsListCmd(), accountsAddCmd(), accountsSelectCmd(), accountsRemoveCmd())
	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts; the current one is marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := a.accounts.List(ctx)
			if err != nil {
				return err
			}
			current, err := a.accounts.Current(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No accounts.")
				return nil
			}
			for _, acct := range list {
				mark := " "
				if current != nil && current.Name == acct.Name {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-30s %-8s %s\n", mark, acct.Name, acct.AuthMethod, acct.ServerURL)
			}
			return nil
		},
	}
}

func accountsAddCmd() *cobra.Command {
	var (
		serverURL string
		username  string
		auth      string
		sel       bool
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if serverURL == "" {
				return fmt.Errorf("--server is required")
			}

			// Negotiation gives the canonical URL and, with --auth auto, the method.
			si, err := retry.DoWithResult(ctx, a.retry, func() (*server.Info, error) {
				return a.servers.GetServerInfo(ctx, serverURL)
			})
			if err != nil {
				return err
			}
			method := si.AuthenticationMethod
			if auth != "auto" {
				if method, err = server.ParseAuthenticationMethod(auth); err != nil {
					return err
				}
			}

			acct := account.Account{
				Name:       args[0],
				ServerURL:  si.BaseURL,
				Username:   username,
				AuthMethod: method.String(),
			}
			if method != server.AuthNone {
				if acct.Secret, err = readSecret(method); err != nil {
					return err
				}
			}

			if err := a.accountStore.Add(acct); err != nil {
				return err
			}
			a.sessions.Forget(acct.Name)
			if sel {
				if err := a.accounts.Select(acct.Name); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s, %s)\n", acct.Name, acct.ServerURL, acct.AuthMethod)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "Server URL (scheme optional)")
	cmd.Flags().StringVar(&username, "user", "", "Username")
	cmd.Flags().StringVar(&auth, "auth", "auto", "Authentication method: auto, basic, bearer or none")
	cmd.Flags().BoolVar(&sel, "select", false, "Make the account the selected one")
	return cmd
}

// readSecret prompts for a password or token, falling back to secretEnv
// and then a plain stdin line when not attached to a terminal.
func readSecret(method server.AuthenticationMethod) (string, error) {
	prompt := "Password: "
	if method == server.AuthBearer {
		prompt = "Access token: "
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return string(secret), nil
	}

	if s := os.Getenv(secretEnv); s != "" {
		return s, nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read secret: no terminal, set %s", secretEnv)
	}
	return strings.TrimSpace(line), nil
}

func accountsSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <name>",
		Short: "Select the current account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.accounts.List(cmd.Context())
			if err != nil {
				return err
			}
			known := false
			for _, acct := range list {
				known = known || acct.Name == args[0]
			}
			if !known {
				return fmt.Errorf("unknown account %q", args[0])
			}
			return a.accounts.Select(args[0])
		},
	}
}

func accountsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.accountStore.Remove(args[0]); err != nil {
				return err
			}
			a.sessions.Forget(args[0])
			return nil
		},
	}
}
