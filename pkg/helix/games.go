package helix

import (
	"context"
	"net/url"
)

// GamesParams looks up games by ID, name, or IGDB ID. At least one list is
// required; the combined count is limited to 100.
type GamesParams struct {
	IDs     []string
	Names   []string
	IGDBIDs []string
}

// Validate checks the lookup rules before any request.
func (p GamesParams) Validate() error {
	if len(p.IDs) == 0 && len(p.Names) == 0 && len(p.IGDBIDs) == 0 {
		return &ValidationError{
			Message: "a list of game ids, names, or igdb ids is required",
		}
	}
	if len(p.IDs)+len(p.Names)+len(p.IGDBIDs) > MaxIDsPerCall {
		return &ValidationError{
			Message: "the sum total of games looked up in one call is limited to 100",
		}
	}
	return nil
}

// GetGames looks up specific games in a single request.
func (a *API) GetGames(ctx context.Context, p GamesParams) ([]Game, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	addAll(params, "id", p.IDs)
	addAll(params, "name", p.Names)
	addAll(params, "igdb_id", p.IGDBIDs)

	envelope, err := a.client.Get(ctx, "games", params)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Game](envelope.Data)
}

// GetTopGames returns the current top games, most popular first. A zero
// cap collects nothing; pass NoCap to collect everything.
func (a *API) GetTopGames(ctx context.Context, cap int) ([]Game, error) {
	result, err := a.collector.Collect(ctx, "games/top", nil, MaxPageSize, cap)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Game](result.Records)
}
