// Package reconcile keeps remote profiles idempotently in sync with source
// records.
//
// Each record is mapped to a profile payload, matched by email, then either
// created or updated. When a list is configured and the record asks for it,
// list membership follows the profile write.
//
// # Flow
//
// Plan searches and decides; Apply writes. Process chains both and reports a
// Result carrying the final state:
//
//	NEW -> SEARCHING -> FOUND -> UPDATING -> DONE
//	                 -> NOT_FOUND -> CREATING -> DONE
//	any step -> FAILED
//
// A dry run stops after Plan.
//
// # Usage Example
//
//	engine := reconcile.NewEngine(mapper, client, subscriptions, reconcile.Options{}, logger)
//	res := engine.Process(ctx, reconcile.Record{"email": "a@x.com", "name": "Ann Lee"})
//	if res.Err != nil && klaviyo.IsFatal(res.Err) {
//	    // stop the batch
//	}
package reconcile
