package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fruitsalade/syncsession/internal/errs"
)

// OCS v2 endpoints.
const (
	capabilitiesPath = "/ocs/v2.php/cloud/capabilities"
	userPath         = "/ocs/v2.php/cloud/user"
	shareesPath      = "/ocs/v2.php/apps/files_sharing/api/v1/sharees"
	avatarPath       = "/index.php/avatar/"
)

// ocsStatusUnauthorized is the OCS code for rejected credentials.
const ocsStatusUnauthorized = 997

type ocsMeta struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statuscode"`
	Message    string `json:"message"`
}

type ocsEnvelope struct {
	OCS struct {
		Meta ocsMeta         `json:"meta"`
		Data json.RawMessage `json:"data"`
	} `json:"ocs"`
}

// getOCS fetches an OCS endpoint under the account's server and decodes its
// data element into out.
func (c *Client) getOCS(ctx context.Context, op, path string, query map[string]string, out interface{}) error {
	base, err := c.baseURL()
	if err != nil {
		return err
	}

	req := c.request(ctx).
		SetHeader("OCS-APIREQUEST", "true").
		SetHeader("Accept", "application/json").
		SetQueryParam("format", "json").
		SetQueryParams(query)

	res, err := c.get(ctx, op, req, base+path)
	if err != nil {
		return err
	}

	var env ocsEnvelope
	if jsonErr := json.Unmarshal(res.Body(), &env); jsonErr != nil {
		if !isSuccess(res) {
			return statusError(op, res)
		}
		return errs.Malformed(op, jsonErr)
	}

	meta := env.OCS.Meta
	if !isSuccess(res) || (meta.Status != "" && meta.Status != "ok") {
		code := meta.StatusCode
		if code == ocsStatusUnauthorized || res.StatusCode() == http.StatusUnauthorized {
			code = http.StatusUnauthorized
		} else if code == 0 || code == 100 || code == 200 {
			code = res.StatusCode()
		}
		return fmt.Errorf("%s: %w", op, &errs.HTTPError{StatusCode: code, Body: meta.Message})
	}

	if len(env.OCS.Data) == 0 || bytes.Equal(env.OCS.Data, []byte("null")) {
		return errs.Malformed(op, fmt.Errorf("missing ocs data"))
	}
	if err := json.Unmarshal(env.OCS.Data, out); err != nil {
		return errs.Malformed(op, err)
	}
	return nil
}

// flexInt decodes a JSON number or a numeric string. Some servers send
// integer settings as strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		i = int64(fl)
	}
	*f = flexInt(i)
	return nil
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
