package contacts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/metrics"
	"klaviyo-sync/core/reconcile"
)

// ErrMissingProfileID is returned when a subscribe job has no profile to reference.
var ErrMissingProfileID = errors.New("contacts: subscribe requires a profile id")

// JobSubmitter submits bulk subscription jobs.
type JobSubmitter interface {
	SubmitSubscriptionJob(ctx context.Context, job klaviyo.SubscriptionJob) (*klaviyo.Response, error)
}

// SubscriptionManager adds profiles to or removes them from one list.
type SubscriptionManager struct {
	client JobSubmitter
	listID string
	logger *zap.Logger
}

// NewSubscriptionManager creates a manager for listID.
func NewSubscriptionManager(client JobSubmitter, listID string, log *zap.Logger) *SubscriptionManager {
	return &SubscriptionManager{client: client, listID: listID, logger: logger.OrNop(log)}
}

// BuildJob creates the job for status. Subscribe entries carry the profile id
// and the phone when the payload has one; unsubscribe entries carry email
// only, as the delete endpoint rejects an id.
func (m *SubscriptionManager) BuildJob(profileID string, payload klaviyo.ProfilePayload, status reconcile.SubscribeStatus) (klaviyo.SubscriptionJob, error) {
	entry := klaviyo.SubscriptionProfile{
		Type:       klaviyo.ProfileType,
		Attributes: klaviyo.SubscriptionProfileAttr{Email: payload.Attributes.Email},
	}

	var jobType klaviyo.JobType
	switch status {
	case reconcile.Subscribe:
		if profileID == "" {
			return klaviyo.SubscriptionJob{}, ErrMissingProfileID
		}
		jobType = klaviyo.JobSubscribe
		entry.ID = profileID
		entry.Attributes.PhoneNumber = payload.Attributes.PhoneNumber
	case reconcile.Unsubscribe:
		jobType = klaviyo.JobUnsubscribe
	default:
		return klaviyo.SubscriptionJob{}, fmt.Errorf("contacts: no subscription job for status %s", status)
	}

	return klaviyo.SubscriptionJob{
		Type: jobType,
		Attributes: klaviyo.SubscriptionJobAttrs{
			Profiles: klaviyo.SubscriptionProfiles{Data: []klaviyo.SubscriptionProfile{entry}},
		},
		Relationships: klaviyo.SubscriptionRelationship{
			List: klaviyo.RelationshipData{Data: klaviyo.ResourceIdentifier{Type: "list", ID: m.listID}},
		},
	}, nil
}

// Apply builds and submits the job.
func (m *SubscriptionManager) Apply(ctx context.Context, profileID string, payload klaviyo.ProfilePayload, status reconcile.SubscribeStatus) error {
	job, err := m.BuildJob(profileID, payload, status)
	if err != nil {
		return err
	}

	_, err = m.client.SubmitSubscriptionJob(ctx, job)
	metrics.SubscriptionJobs.WithLabelValues(string(job.Type), metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("submit %s: %w", job.Type, err)
	}

	m.logger.Debug("Subscription job accepted",
		zap.String("type", string(job.Type)),
		zap.String("list_id", m.listID),
		zap.String("profile_id", profileID),
	)
	return nil
}
