package helix

import (
	"context"
	"net/url"
)

// GetUsers looks up users by ID, by login name, or both. At least one
// identifier is required and at most 100 may be combined in one call.
func (a *API) GetUsers(ctx context.Context, ids, logins []string) ([]User, error) {
	if len(ids) == 0 && len(logins) == 0 {
		return nil, &ValidationError{
			Message: "a list of user ids, login names, or both is required",
		}
	}
	if len(ids)+len(logins) > MaxIDsPerCall {
		return nil, &ValidationError{
			Message: "the sum total of users looked up in one call is limited to 100",
		}
	}

	params := url.Values{}
	addAll(params, "id", ids)
	addAll(params, "login", logins)

	envelope, err := a.client.Get(ctx, "users", params)
	if err != nil {
		return nil, err
	}
	return decodeRecords[User](envelope.Data)
}
