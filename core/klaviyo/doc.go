// Package klaviyo is the Klaviyo API client used by the sync.
//
// It owns credential lifecycle (static API key or OAuth refresh tokens with
// durable persistence), request authorization, 429 handling and the profile
// and bulk subscription endpoints.
package klaviyo
