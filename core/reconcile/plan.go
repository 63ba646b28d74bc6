package reconcile

import (
	"context"
	"fmt"

	"klaviyo-sync/core/klaviyo"
)

// Plan searches for an existing profile by the payload's email and decides
// between create and update. A payload without email is always a create.
func (e *Engine) Plan(ctx context.Context, payload klaviyo.ProfilePayload) (Action, error) {
	email := ""
	if payload.Attributes.Email != nil {
		email = *payload.Attributes.Email
	}
	if email == "" {
		return Action{Type: ActionCreate}, nil
	}

	matches, err := e.api.SearchProfiles(ctx, email)
	if err != nil {
		return Action{}, fmt.Errorf("search profile: %w", err)
	}
	if len(matches) == 0 || matches[0].ID == "" {
		return Action{Type: ActionCreate, Matches: len(matches)}, nil
	}
	return Action{Type: ActionUpdate, ProfileID: matches[0].ID, Matches: len(matches)}, nil
}

// Apply executes a planned write and returns the resulting profile.
// Callers decide whether to call it; dry runs stop after Plan.
func (e *Engine) Apply(ctx context.Context, action Action, payload klaviyo.ProfilePayload) (klaviyo.Profile, error) {
	switch action.Type {
	case ActionUpdate:
		profile, err := e.api.UpdateProfile(ctx, action.ProfileID, payload)
		if err != nil {
			return klaviyo.Profile{}, fmt.Errorf("update profile %s: %w", action.ProfileID, err)
		}
		if profile.ID == "" {
			profile.ID = action.ProfileID
		}
		return profile, nil
	case ActionCreate:
		profile, err := e.api.CreateProfile(ctx, payload)
		if err != nil {
			return klaviyo.Profile{}, fmt.Errorf("create profile: %w", err)
		}
		return profile, nil
	default:
		return klaviyo.Profile{}, fmt.Errorf("unknown action %q", action.Type)
	}
}
