package remote

import (
	"context"
	"time"

	"github.com/fruitsalade/syncsession/internal/capability"
)

// Every flag is a *bool so an omitted key decodes to capability.Unknown
// rather than false.
type capabilitiesData struct {
	Version struct {
		Major   int        `json:"major"`
		Minor   int        `json:"minor"`
		Micro   int        `json:"micro"`
		String  string     `json:"string"`
		Edition flexString `json:"edition"`
	} `json:"version"`
	Capabilities struct {
		Core struct {
			PollInterval flexInt `json:"pollinterval"`
		} `json:"core"`
		Dav struct {
			Chunking flexString `json:"chunking"`
		} `json:"dav"`
		FilesSharing struct {
			APIEnabled *bool `json:"api_enabled"`
			Public     struct {
				Enabled  *bool `json:"enabled"`
				Password struct {
					Enforced    *bool `json:"enforced"`
					EnforcedFor struct {
						ReadOnly   *bool `json:"read_only"`
						ReadWrite  *bool `json:"read_write"`
						UploadOnly *bool `json:"upload_only"`
					} `json:"enforced_for"`
				} `json:"password"`
				ExpireDate struct {
					Enabled  *bool   `json:"enabled"`
					Days     flexInt `json:"days"`
					Enforced *bool   `json:"enforced"`
				} `json:"expire_date"`
				Upload             *bool `json:"upload"`
				Multiple           *bool `json:"multiple"`
				SupportsUploadOnly *bool `json:"supports_upload_only"`
			} `json:"public"`
			Resharing  *bool `json:"resharing"`
			Federation struct {
				Outgoing *bool `json:"outgoing"`
				Incoming *bool `json:"incoming"`
			} `json:"federation"`
		} `json:"files_sharing"`
		Files struct {
			BigFileChunking *bool `json:"bigfilechunking"`
			Undelete        *bool `json:"undelete"`
			Versioning      *bool `json:"versioning"`
		} `json:"files"`
	} `json:"capabilities"`
}

func (d *capabilitiesData) toCapability(accountName string) *capability.Capability {
	caps := d.Capabilities
	sharing := caps.FilesSharing
	public := sharing.Public

	c := capability.New(accountName)
	c.VersionMajor = d.Version.Major
	c.VersionMinor = d.Version.Minor
	c.VersionMicro = d.Version.Micro
	c.VersionString = d.Version.String
	c.VersionEdition = string(d.Version.Edition)
	c.CorePollInterval = int(caps.Core.PollInterval)
	c.DavChunkingVersion = string(caps.Dav.Chunking)

	c.FilesSharingAPIEnabled = capability.FromBoolPtr(sharing.APIEnabled)
	c.FilesSharingPublicEnabled = capability.FromBoolPtr(public.Enabled)
	c.FilesSharingPublicPasswordEnforced = capability.FromBoolPtr(public.Password.Enforced)
	c.FilesSharingPublicPasswordEnforcedReadOnly = capability.FromBoolPtr(public.Password.EnforcedFor.ReadOnly)
	c.FilesSharingPublicPasswordEnforcedReadWrite = capability.FromBoolPtr(public.Password.EnforcedFor.ReadWrite)
	c.FilesSharingPublicPasswordEnforcedUploadOnly = capability.FromBoolPtr(public.Password.EnforcedFor.UploadOnly)
	c.FilesSharingPublicExpireDateEnabled = capability.FromBoolPtr(public.ExpireDate.Enabled)
	c.FilesSharingPublicExpireDateDays = int(public.ExpireDate.Days)
	c.FilesSharingPublicExpireDateEnforced = capability.FromBoolPtr(public.ExpireDate.Enforced)
	c.FilesSharingPublicUpload = capability.FromBoolPtr(public.Upload)
	c.FilesSharingPublicMultiple = capability.FromBoolPtr(public.Multiple)
	c.FilesSharingPublicSupportsUploadOnly = capability.FromBoolPtr(public.SupportsUploadOnly)
	c.FilesSharingResharing = capability.FromBoolPtr(sharing.Resharing)
	c.FilesSharingFederationOutgoing = capability.FromBoolPtr(sharing.Federation.Outgoing)
	c.FilesSharingFederationIncoming = capability.FromBoolPtr(sharing.Federation.Incoming)

	c.FilesBigFileChunking = capability.FromBoolPtr(caps.Files.BigFileChunking)
	c.FilesUndelete = capability.FromBoolPtr(caps.Files.Undelete)
	c.FilesVersioning = capability.FromBoolPtr(caps.Files.Versioning)
	return c
}

// GetCapabilities fetches the capabilities of the account's server.
func (c *Client) GetCapabilities(ctx context.Context) (_ *capability.Capability, err error) {
	const op = "get capabilities"
	defer observe(op, time.Now(), &err)

	var data capabilitiesData
	if err := c.getOCS(ctx, op, capabilitiesPath, nil, &data); err != nil {
		return nil, err
	}
	return data.toCapability(c.account.Name), nil
}
