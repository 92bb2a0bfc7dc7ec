package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/syncsession/internal/logging"
	"github.com/fruitsalade/syncsession/internal/retry"
	"github.com/fruitsalade/syncsession/internal/server"
)

func serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Inspect a server",
	}

	var discover bool
	info := &cobra.Command{
		Use:   "info <url>",
		Short: "Negotiate version, TLS and authentication method of a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			si, err := retry.DoWithResult(ctx, a.retry, func() (*server.Info, error) {
				return a.servers.GetServerInfo(ctx, args[0])
			})
			if err != nil {
				return err
			}
			printServerInfo(cmd.OutOrStdout(), si)

			if discover && si.AuthenticationMethod == server.AuthBearer {
				oidc, err := server.DiscoverOIDC(ctx, a.client.HTTPClient(), si.BaseURL)
				if err != nil {
					logging.Warn("OpenID discovery failed", logging.Err(err))
					return nil
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "OIDC issuer:     %s\n", oidc.Issuer)
				fmt.Fprintf(out, "Authorization:   %s\n", oidc.AuthorizationEndpoint)
				fmt.Fprintf(out, "Token:           %s\n", oidc.TokenEndpoint)
				if oidc.RegistrationEndpoint != "" {
					fmt.Fprintf(out, "Registration:    %s\n", oidc.RegistrationEndpoint)
				}
			}
			return nil
		},
	}
	info.Flags().BoolVar(&discover, "oidc", true, "Run OpenID discovery for bearer servers")

	cmd.AddCommand(info)
	return cmd
}

func printServerInfo(w io.Writer, si *server.Info) {
	fmt.Fprintf(w, "Base URL:        %s\n", si.BaseURL)
	fmt.Fprintf(w, "Version:         %s", si.Version.String)
	if si.Version.Edition != "" {
		fmt.Fprintf(w, " (%s)", si.Version.Edition)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Secure:          %v\n", si.IsSecureConnection)
	fmt.Fprintf(w, "Authentication:  %s\n", si.AuthenticationMethod)
	if !si.Version.IsSupported() {
		fmt.Fprintf(w, "Warning: server versions below %d.%d are not supported\n",
			server.MinimumSupported.Major, server.MinimumSupported.Minor)
	}
}
