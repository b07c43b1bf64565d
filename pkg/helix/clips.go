package helix

import (
	"context"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ClipsParams selects clips by exactly one of broadcaster, game, or a list
// of clip IDs, optionally bounded by a creation-time window.
type ClipsParams struct {
	BroadcasterID string
	GameID        string
	ClipIDs       []string

	StartedAt time.Time
	EndedAt   time.Time

	// Cap bounds the total records collected; NoCap collects everything.
	// The API may serve fewer than requested.
	Cap int
}

// Validate checks the selector rules before any request is made.
func (p ClipsParams) Validate() error {
	if err := validation.Validate(p.ClipIDs, validation.Length(0, MaxIDsPerCall)); err != nil {
		return &ValidationError{
			Message: "a maximum of 100 clip ids can be queried in one call",
			Err:     err,
		}
	}
	if countSet(len(p.ClipIDs) > 0, p.BroadcasterID != "", p.GameID != "") != 1 {
		return &ValidationError{
			Message: "exactly one of clip ids, broadcaster id, or game id must be set",
		}
	}
	return nil
}

// GetClips returns clips for the selected broadcaster, game, or IDs.
// Cap must be set: a zero Cap collects nothing, NoCap collects everything.
func (a *API) GetClips(ctx context.Context, p ClipsParams) ([]Clip, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	setIf(params, "broadcaster_id", p.BroadcasterID)
	setIf(params, "game_id", p.GameID)
	addAll(params, "id", p.ClipIDs)
	setTime(params, "started_at", p.StartedAt)
	setTime(params, "ended_at", p.EndedAt)

	result, err := a.collector.Collect(ctx, "clips", params, MaxPageSize, p.Cap)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Clip](result.Records)
}
