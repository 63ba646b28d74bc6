package reconcile

import (
	"context"

	"klaviyo-sync/core/klaviyo"
)

// Mapper converts a record into a profile payload. It must be pure.
type Mapper interface {
	Map(rec Record) klaviyo.ProfilePayload
}

// ProfileAPI is the remote profile store.
type ProfileAPI interface {
	SearchProfiles(ctx context.Context, email string) ([]klaviyo.Profile, error)
	CreateProfile(ctx context.Context, payload klaviyo.ProfilePayload) (klaviyo.Profile, error)
	UpdateProfile(ctx context.Context, id string, payload klaviyo.ProfilePayload) (klaviyo.Profile, error)
}

// Subscriber applies list membership after a successful profile write.
type Subscriber interface {
	Apply(ctx context.Context, profileID string, payload klaviyo.ProfilePayload, status SubscribeStatus) error
}
