// Package loader mounts HTTP features onto the ingestion server.
//
// A Feature names itself, reports whether it should be mounted, and
// registers its routes:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager keeps features in registration order. LoadAll skips disabled
// features and stops at the first one that fails to load, so the server
// never starts with a partial route table.
//
//	mgr := loader.NewManager(logger)
//	mgr.Register(contacts.NewFeature(engine, journal, state, logger))
//	if err := mgr.LoadAll(app); err != nil {
//	    return err
//	}
package loader
