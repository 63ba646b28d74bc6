package klaviyo

import (
	"context"
	"net/http"
)

// JobType names a bulk subscription job.
type JobType string

const (
	JobSubscribe   JobType = "profile-subscription-bulk-create-job"
	JobUnsubscribe JobType = "profile-subscription-bulk-delete-job"
)

// Endpoint is the collection path that accepts jobs of this type.
func (t JobType) Endpoint() string {
	return "/" + string(t) + "s"
}

// SubscriptionJob is a bulk create or delete job for a single profile.
type SubscriptionJob struct {
	Type          JobType                  `json:"type"`
	Attributes    SubscriptionJobAttrs     `json:"attributes"`
	Relationships SubscriptionRelationship `json:"relationships"`
}

// SubscriptionJobAttrs wraps the profile entries.
type SubscriptionJobAttrs struct {
	Profiles SubscriptionProfiles `json:"profiles"`
}

// SubscriptionProfiles is the profiles.data array.
type SubscriptionProfiles struct {
	Data []SubscriptionProfile `json:"data"`
}

// SubscriptionProfile is the minimal profile descriptor in a job. ID must be
// empty for delete jobs; the API rejects it there.
type SubscriptionProfile struct {
	Type       string                  `json:"type"`
	ID         string                  `json:"id,omitempty"`
	Attributes SubscriptionProfileAttr `json:"attributes"`
}

// SubscriptionProfileAttr holds the contact points.
type SubscriptionProfileAttr struct {
	Email       *string `json:"email"`
	PhoneNumber string  `json:"phone_number,omitempty"`
}

// SubscriptionRelationship references the target list.
type SubscriptionRelationship struct {
	List RelationshipData `json:"list"`
}

// RelationshipData is a JSON:API relationship linkage.
type RelationshipData struct {
	Data ResourceIdentifier `json:"data"`
}

// ResourceIdentifier is a JSON:API type/id pair.
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type subscriptionDocument struct {
	Data SubscriptionJob `json:"data"`
}

// SubmitSubscriptionJob posts job to its collection endpoint. The API answers
// 202 and runs the job asynchronously.
func (c *Client) SubmitSubscriptionJob(ctx context.Context, job SubscriptionJob) (*Response, error) {
	return c.Request(ctx, http.MethodPost, job.Type.Endpoint(), subscriptionDocument{Data: job}, nil)
}
