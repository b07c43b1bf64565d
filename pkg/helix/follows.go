package helix

import (
	"context"
	"net/url"
)

// FollowsParams selects follow relationships from a user, to a user, or
// between both.
type FollowsParams struct {
	FromID string
	ToID   string

	// Cap bounds the total records collected; NoCap collects everything.
	// Capping to 1 is the cheap way to read just the follower total.
	Cap int
}

// Validate checks the selector rules before any request.
func (p FollowsParams) Validate() error {
	if p.FromID == "" && p.ToID == "" {
		return &ValidationError{
			Message: "from id, to id, or both must be set",
		}
	}
	return nil
}

// GetUserFollows returns follow relationships together with the
// resource-wide total reported by the server. The total always reflects
// the full relationship count regardless of the cap. Cap must be set: a
// zero Cap collects no records (the zero-request shortcut also skips the
// total), NoCap collects everything.
func (a *API) GetUserFollows(ctx context.Context, p FollowsParams) (Follows, error) {
	if err := p.Validate(); err != nil {
		return Follows{}, err
	}

	params := url.Values{}
	setIf(params, "from_id", p.FromID)
	setIf(params, "to_id", p.ToID)

	result, err := a.collector.Collect(ctx, "users/follows", params, MaxPageSize, p.Cap)
	if err != nil {
		return Follows{}, err
	}

	follows, err := decodeRecords[Follow](result.Records)
	if err != nil {
		return Follows{}, err
	}

	return Follows{
		Total: result.Total,
		Data:  follows,
	}, nil
}
