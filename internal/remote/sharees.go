package remote

import (
	"context"
	"strconv"
	"time"

	"github.com/fruitsalade/syncsession/internal/sharing"
)

type shareeEntry struct {
	Label string `json:"label"`
	Value struct {
		ShareType      flexInt    `json:"shareType"`
		ShareWith      flexString `json:"shareWith"`
		AdditionalInfo flexString `json:"shareWithAdditionalInfo"`
	} `json:"value"`
}

type shareeBucket struct {
	Users   []shareeEntry `json:"users"`
	Groups  []shareeEntry `json:"groups"`
	Remotes []shareeEntry `json:"remotes"`
}

type shareesData struct {
	Exact shareeBucket `json:"exact"`
	shareeBucket
}

func (b *shareeBucket) appendTo(out []sharing.Sharee, exact bool) []sharing.Sharee {
	for _, group := range [][]shareeEntry{b.Users, b.Groups, b.Remotes} {
		for _, e := range group {
			out = append(out, sharing.Sharee{
				Label:          e.Label,
				ShareType:      sharing.ShareTypeFromValue(int(e.Value.ShareType)),
				ShareWith:      string(e.Value.ShareWith),
				AdditionalInfo: string(e.Value.AdditionalInfo),
				IsExactMatch:   exact,
			})
		}
	}
	return out
}

// GetSharees searches share recipients matching search. Exact matches come
// first.
func (c *Client) GetSharees(ctx context.Context, search string, page, perPage int) (_ []sharing.Sharee, err error) {
	const op = "get sharees"
	defer observe(op, time.Now(), &err)

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 30
	}
	query := map[string]string{
		"itemType": "file",
		"search":   search,
		"page":     strconv.Itoa(page),
		"perPage":  strconv.Itoa(perPage),
	}

	var data shareesData
	if err := c.getOCS(ctx, op, shareesPath, query, &data); err != nil {
		return nil, err
	}

	sharees := data.Exact.appendTo(nil, true)
	sharees = data.shareeBucket.appendTo(sharees, false)
	if sharees == nil {
		sharees = []sharing.Sharee{}
	}
	return sharees, nil
}
