package helix

import (
	"context"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// VideosParams selects videos by exactly one of a list of video IDs, a
// user, or a game. Filter and pagination fields only apply to the user and
// game modes; ID lookups return the named videos in a single request.
type VideosParams struct {
	VideoIDs []string
	UserID   string
	GameID   string

	// Language filters by broadcast language (ISO 639-1); only valid
	// together with GameID.
	Language string

	// Period filters by publication window: all, day, month, week.
	Period string

	// Sort orders the result: time, trending, views.
	Sort string

	// Type filters by video type: all, archive, highlight, upload.
	Type string

	// Cap bounds the total records collected; NoCap collects everything.
	Cap int
}

// Validate checks the selector and filter rules before any request.
func (p VideosParams) Validate() error {
	if err := validation.Validate(p.VideoIDs, validation.Length(0, MaxIDsPerCall)); err != nil {
		return &ValidationError{
			Message: "a maximum of 100 video ids can be queried in one call",
			Err:     err,
		}
	}
	if countSet(len(p.VideoIDs) > 0, p.UserID != "", p.GameID != "") != 1 {
		return &ValidationError{
			Message: "exactly one of video ids, user id, or game id must be set",
		}
	}
	if p.Language != "" && p.GameID == "" {
		return &ValidationError{
			Message: "language is only valid together with game id",
		}
	}

	filtered := p.GameID != "" || p.UserID != ""
	for _, rule := range []struct {
		name    string
		value   string
		allowed []interface{}
	}{
		{"period", p.Period, []interface{}{"all", "day", "month", "week"}},
		{"sort", p.Sort, []interface{}{"time", "trending", "views"}},
		{"type", p.Type, []interface{}{"all", "archive", "highlight", "upload"}},
	} {
		if rule.value == "" {
			continue
		}
		if !filtered {
			return &ValidationError{
				Message: rule.name + " is only valid together with game id or user id",
			}
		}
		if err := validation.Validate(rule.value, validation.In(rule.allowed...)); err != nil {
			return &ValidationError{
				Message: "invalid " + rule.name + " value",
				Err:     err,
			}
		}
	}

	if p.Cap != 0 && !filtered {
		return &ValidationError{
			Message: "a record cap is only valid together with game id or user id",
		}
	}
	return nil
}

// GetVideos returns videos for the selected IDs, user, or game. In the
// user and game modes Cap must be set: a zero Cap collects nothing, NoCap
// collects everything. ID lookups ignore Cap.
func (a *API) GetVideos(ctx context.Context, p VideosParams) ([]Video, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	addAll(params, "id", p.VideoIDs)
	setIf(params, "user_id", p.UserID)
	setIf(params, "game_id", p.GameID)
	setIf(params, "language", p.Language)
	setIf(params, "period", p.Period)
	setIf(params, "sort", p.Sort)
	setIf(params, "type", p.Type)

	// ID lookups are a single request; user and game selections paginate.
	if len(p.VideoIDs) > 0 {
		envelope, err := a.client.Get(ctx, "videos", params)
		if err != nil {
			return nil, err
		}
		return decodeRecords[Video](envelope.Data)
	}

	result, err := a.collector.Collect(ctx, "videos", params, MaxPageSize, p.Cap)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Video](result.Records)
}
