package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/fruitsalade/syncsession/internal/errs"
)

// OIDCConfiguration is the subset of a server's OpenID discovery document
// a client needs to start a bearer login.
type OIDCConfiguration struct {
	Issuer                string
	AuthorizationEndpoint string
	TokenEndpoint         string
	UserInfoEndpoint      string
	RegistrationEndpoint  string
}

// DiscoverOIDC reads {baseURL}/.well-known/openid-configuration. It only
// makes sense for servers that negotiated AuthBearer. Servers commonly
// advertise an issuer that differs from the base URL, so issuer
// verification is relaxed.
func DiscoverOIDC(ctx context.Context, httpClient *http.Client, baseURL string) (*OIDCConfiguration, error) {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}
	ctx = oidc.InsecureIssuerURLContext(ctx, baseURL)

	provider, err := oidc.NewProvider(ctx, baseURL)
	if err != nil {
		return nil, errs.NoConnection("oidc discovery", err)
	}

	var extra struct {
		Issuer               string `json:"issuer"`
		RegistrationEndpoint string `json:"registration_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, errs.Malformed("oidc discovery", err)
	}

	endpoint := provider.Endpoint()
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		return nil, errs.Malformed("oidc discovery", fmt.Errorf("missing authorization or token endpoint"))
	}
	return &OIDCConfiguration{
		Issuer:                extra.Issuer,
		AuthorizationEndpoint: endpoint.AuthURL,
		TokenEndpoint:         endpoint.TokenURL,
		UserInfoEndpoint:      provider.UserInfoEndpoint(),
		RegistrationEndpoint:  extra.RegistrationEndpoint,
	}, nil
}
