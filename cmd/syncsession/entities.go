package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/syncsession/internal/capability"
	"github.com/fruitsalade/syncsession/internal/remote"
	"github.com/fruitsalade/syncsession/internal/repository"
	"github.com/fruitsalade/syncsession/internal/retry"
	"github.com/fruitsalade/syncsession/internal/sharing"
	"github.com/fruitsalade/syncsession/internal/user"
)

func capabilitiesCmd() *cobra.Command {
	var stored bool
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Show the capabilities of the account's server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, err := a.resolveAccount(ctx)
			if err != nil {
				return err
			}

			var caps *capability.Capability
			if stored {
				caps, err = a.caps.GetStoredCapabilities(ctx, name)
			} else {
				caps, err = retry.DoWithResult(ctx, a.retry, func() (*capability.Capability, error) {
					return a.caps.GetCapabilitiesForAccount(ctx, name)
				})
			}
			if err != nil {
				return err
			}
			if caps == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No stored capabilities for %s.\n", name)
				return nil
			}
			printCapabilities(cmd.OutOrStdout(), caps)
			return nil
		},
	}
	cmd.Flags().BoolVar(&stored, "stored", false, "Read the local cache only")
	return cmd
}

func printCapabilities(w io.Writer, c *capability.Capability) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Account\t%s\n", c.AccountName)
	fmt.Fprintf(tw, "Version\t%d.%d.%d (%s %s)\n", c.VersionMajor, c.VersionMinor, c.VersionMicro, c.VersionString, c.VersionEdition)
	fmt.Fprintf(tw, "Poll interval\t%d\n", c.CorePollInterval)
	fmt.Fprintf(tw, "DAV chunking\t%s\n", c.DavChunkingVersion)
	fmt.Fprintf(tw, "Chunking allowed\t%v\n", c.IsChunkingAllowed())

	flags := []struct {
		name string
		v    capability.BooleanType
	}{
		{"Sharing API", c.FilesSharingAPIEnabled},
		{"Public links", c.FilesSharingPublicEnabled},
		{"Public password enforced", c.FilesSharingPublicPasswordEnforced},
		{"  read-only", c.FilesSharingPublicPasswordEnforcedReadOnly},
		{"  read-write", c.FilesSharingPublicPasswordEnforcedReadWrite},
		{"  upload-only", c.FilesSharingPublicPasswordEnforcedUploadOnly},
		{"Public expiration", c.FilesSharingPublicExpireDateEnabled},
		{"Public expiration enforced", c.FilesSharingPublicExpireDateEnforced},
		{"Public upload", c.FilesSharingPublicUpload},
		{"Multiple public links", c.FilesSharingPublicMultiple},
		{"Public upload-only", c.FilesSharingPublicSupportsUploadOnly},
		{"Resharing", c.FilesSharingResharing},
		{"Federation outgoing", c.FilesSharingFederationOutgoing},
		{"Federation incoming", c.FilesSharingFederationIncoming},
		{"Big file chunking", c.FilesBigFileChunking},
		{"Undelete", c.FilesUndelete},
		{"Versioning", c.FilesVersioning},
	}
	for _, f := range flags {
		fmt.Fprintf(tw, "%s\t%s\n", f.name, f.v)
	}
	if c.FilesSharingPublicExpireDateEnabled.IsTrue() {
		fmt.Fprintf(tw, "Public expiration days\t%d\n", c.FilesSharingPublicExpireDateDays)
	}
}

func quotaCmd() *cobra.Command {
	var stored bool
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show the account's quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, err := a.resolveAccount(ctx)
			if err != nil {
				return err
			}

			var q *user.Quota
			if stored {
				q, err = a.users.GetStoredUserQuota(ctx, name)
			} else {
				q, err = retry.DoWithResult(ctx, a.retry, func() (*user.Quota, error) {
					return a.users.GetUserQuota(ctx, name)
				})
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case q == nil:
				fmt.Fprintf(out, "No stored quota for %s.\n", name)
			case q.IsUnlimited():
				fmt.Fprintf(out, "Used %s, unlimited\n", formatBytes(q.Used))
			case !q.IsKnown():
				fmt.Fprintf(out, "Used %s, limit not available\n", formatBytes(q.Used))
			default:
				fmt.Fprintf(out, "Used %s of %s (%.1f%%), %s free\n",
					formatBytes(q.Used), formatBytes(q.Total()), q.Relative(), formatBytes(q.Available))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stored, "stored", false, "Read the local cache only")
	return cmd
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func userCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Show the user behind the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, err := a.resolveAccount(ctx)
			if err != nil {
				return err
			}
			info, err := retry.DoWithResult(ctx, a.retry, func() (*user.Info, error) {
				return a.users.GetUserInfo(ctx, name)
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", info.ID)
			fmt.Fprintf(out, "Name:    %s\n", info.DisplayName)
			if info.Email != "" {
				fmt.Fprintf(out, "Email:   %s\n", info.Email)
			}
			return nil
		},
	}
}

func avatarCmd() *cobra.Command {
	var (
		size   int
		output string
	)
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Download the account's avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, err := a.resolveAccount(ctx)
			if err != nil {
				return err
			}
			avatar, err := retry.DoWithResult(ctx, a.retry, func() (*user.Avatar, error) {
				return a.users.GetUserAvatar(ctx, name, size)
			})
			if remote.IsNotFound(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no avatar.\n", name)
				return nil
			}
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s, %d bytes, etag %s\n", avatar.MimeType, len(avatar.Data), avatar.ETag)
				return nil
			}
			if err := os.WriteFile(output, avatar.Data, 0600); err != nil {
				return fmt.Errorf("write avatar: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", output, len(avatar.Data))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", remote.DefaultAvatarSize, "Edge length in pixels")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the image to this file")
	return cmd
}

func shareesCmd() *cobra.Command {
	var page, perPage int
	cmd := &cobra.Command{
		Use:   "sharees <search>",
		Short: "Search users, groups and remotes to share with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, err := a.resolveAccount(ctx)
			if err != nil {
				return err
			}
			sharees, err := retry.DoWithResult(ctx, a.retry, func() ([]sharing.Sharee, error) {
				return a.sharees.GetSharees(ctx, name, args[0], page, perPage)
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer tw.Flush()
			for _, s := range sharees {
				exact := ""
				if s.IsExactMatch {
					exact = "exact"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ShareType, s.Label, s.ShareWith, s.AdditionalInfo, exact)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	cmd.Flags().IntVar(&perPage, "per-page", 30, "Results per page")
	return cmd
}

func refreshCmd() *cobra.Command {
	var all bool
	var parallel int
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh cached capabilities and quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var names []string
			if all {
				list, err := a.accounts.List(ctx)
				if err != nil {
					return err
				}
				for _, acct := range list {
					names = append(names, acct.Name)
				}
			} else {
				name, err := a.resolveAccount(ctx)
				if err != nil {
					return err
				}
				names = []string{name}
			}

			err := repository.RefreshAll(ctx, names, a.caps, a.users, parallel)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d account(s).\n", len(names))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Refresh every account")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "Accounts refreshed at once")
	return cmd
}
