package remote

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/fruitsalade/syncsession/internal/user"
)

// DefaultAvatarSize is the avatar edge length requested when none is given.
const DefaultAvatarSize = 128

type userData struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display-name"`
	Email       flexString `json:"email"`
	Quota       *struct {
		Free *flexInt `json:"free"`
		Used flexInt  `json:"used"`
	} `json:"quota"`
}

func (c *Client) getUser(ctx context.Context, op string) (*userData, error) {
	var data userData
	if err := c.getOCS(ctx, op, userPath, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetUserInfo fetches the identity of the authenticated user.
func (c *Client) GetUserInfo(ctx context.Context) (_ *user.Info, err error) {
	const op = "get user info"
	defer observe(op, time.Now(), &err)

	data, err := c.getUser(ctx, op)
	if err != nil {
		return nil, err
	}
	if data.ID == "" {
		return nil, errs.Malformed(op, fmt.Errorf("missing user id"))
	}
	name := data.DisplayName
	if name == "" {
		name = data.ID
	}
	return &user.Info{ID: data.ID, DisplayName: name, Email: string(data.Email)}, nil
}

// GetUserQuota fetches the authenticated user's quota. A response without a
// quota, or without a free value, reports user.QuotaUnknown.
func (c *Client) GetUserQuota(ctx context.Context) (_ *user.Quota, err error) {
	const op = "get user quota"
	defer observe(op, time.Now(), &err)

	data, err := c.getUser(ctx, op)
	if err != nil {
		return nil, err
	}
	q := &user.Quota{Available: user.QuotaUnknown}
	if data.Quota != nil {
		q.Used = int64(data.Quota.Used)
		if data.Quota.Free != nil {
			q.Available = int64(*data.Quota.Free)
		}
	}
	return q, nil
}

// GetUserAvatar fetches the user's avatar at size pixels.
func (c *Client) GetUserAvatar(ctx context.Context, size int) (_ *user.Avatar, err error) {
	const op = "get user avatar"
	defer observe(op, time.Now(), &err)

	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultAvatarSize
	}
	userID := c.account.Username
	if strings.TrimSpace(userID) == "" {
		// Bearer and anonymous accounts may carry no username.
		info, err := c.GetUserInfo(ctx)
		if err != nil {
			return nil, err
		}
		userID = info.ID
	}
	u := base + avatarPath + url.PathEscape(userID) + "/" + strconv.Itoa(size)

	res, err := c.get(ctx, op, c.request(ctx), u)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		return nil, statusError(op, res)
	}

	mimeType := res.Header().Get("Content-Type")
	if mt, _, perr := mime.ParseMediaType(mimeType); perr == nil {
		mimeType = mt
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, errs.Malformed(op, fmt.Errorf("unexpected content type %q", mimeType))
	}

	return &user.Avatar{
		Data:     res.Body(),
		MimeType: mimeType,
		ETag:     strings.Trim(res.Header().Get("ETag"), `"`),
	}, nil
}
