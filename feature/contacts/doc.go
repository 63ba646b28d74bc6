// Package contacts syncs customer and contact records into Klaviyo profiles.
//
// It provides the record-to-profile Mapper, the list SubscriptionManager, an
// optional result Journal backed by MySQL, and the HTTP ingestion endpoints.
//
// # Endpoints
//
//   - POST /contacts/records?stream=contacts: reconcile one JSON record
//   - GET  /contacts/state: shared sync state
//
// Streams named customers, customer, contacts or contact are accepted; any
// other stream is rejected.
package contacts
