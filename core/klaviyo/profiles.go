package klaviyo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ProfileType is the JSON:API resource type for profiles.
const ProfileType = "profile"

// Location is the profile address. Absent source fields are sent as null.
type Location struct {
	Address1 *string `json:"address1"`
	Address2 *string `json:"address2"`
	City     *string `json:"city"`
	Region   *string `json:"region"`
	Zip      *string `json:"zip"`
	Country  *string `json:"country"`
}

// ProfileAttributes is the mutable part of a profile. Nil fields are omitted
// so an update never clears values the record did not carry.
type ProfileAttributes struct {
	Email       *string        `json:"email,omitempty"`
	FirstName   *string        `json:"first_name,omitempty"`
	LastName    *string        `json:"last_name,omitempty"`
	PhoneNumber string         `json:"phone_number,omitempty"`
	Location    *Location      `json:"location,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// ProfilePayload is the "data" member of a profile write.
type ProfilePayload struct {
	Type       string            `json:"type"`
	ID         string            `json:"id,omitempty"`
	Attributes ProfileAttributes `json:"attributes"`
}

// Profile is a profile as returned by the API.
type Profile struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Attributes ProfileAttributes `json:"attributes"`
}

type profileDocument struct {
	Data ProfilePayload `json:"data"`
}

type profileResponse struct {
	Data Profile `json:"data"`
}

type profileListResponse struct {
	Data []Profile `json:"data"`
}

// SearchProfiles returns profiles whose email equals email, in API order.
func (c *Client) SearchProfiles(ctx context.Context, email string) ([]Profile, error) {
	query := url.Values{}
	query.Set("filter", fmt.Sprintf("equals(email,'%s')", strings.ReplaceAll(email, "'", `\'`)))

	resp, err := c.Request(ctx, http.MethodGet, "/profiles", nil, query)
	if err != nil {
		return nil, err
	}

	var out profileListResponse
	if err := resp.Decode(&out); err != nil {
		if errors.Is(err, ErrNoContent) {
			return nil, nil
		}
		return nil, err
	}
	return out.Data, nil
}

// CreateProfile creates a profile and returns it with its new id.
func (c *Client) CreateProfile(ctx context.Context, payload ProfilePayload) (Profile, error) {
	payload.Type = ProfileType
	payload.ID = ""
	return c.writeProfile(ctx, http.MethodPost, "/profiles", payload)
}

// UpdateProfile patches the profile with the given id.
func (c *Client) UpdateProfile(ctx context.Context, id string, payload ProfilePayload) (Profile, error) {
	if id == "" {
		return Profile{}, errors.New("klaviyo: update requires a profile id")
	}
	payload.Type = ProfileType
	payload.ID = id
	return c.writeProfile(ctx, http.MethodPatch, "/profiles/"+url.PathEscape(id), payload)
}

func (c *Client) writeProfile(ctx context.Context, method, path string, payload ProfilePayload) (Profile, error) {
	resp, err := c.Request(ctx, method, path, profileDocument{Data: payload}, nil)
	if err != nil {
		return Profile{}, err
	}

	var out profileResponse
	if err := resp.Decode(&out); err != nil {
		if errors.Is(err, ErrNoContent) {
			// Accepted without a body: echo what was sent.
			return Profile{Type: ProfileType, ID: payload.ID, Attributes: payload.Attributes}, nil
		}
		return Profile{}, err
	}
	return out.Data, nil
}

// Check issues a minimal read to verify credentials and connectivity.
func (c *Client) Check(ctx context.Context) error {
	query := url.Values{}
	query.Set("page[size]", "1")
	_, err := c.Request(ctx, http.MethodGet, "/profiles", nil, query)
	return err
}
