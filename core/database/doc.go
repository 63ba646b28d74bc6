// Package database handles the optional MySQL connection backing the result journal.
//
// It provides a wrapper around GORM to configure MySQL connections from the
// application's configuration. When database.enabled is false the sync never
// dials the database.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logg.Warn("Result journal disabled", zap.Error(err))
//	}
package database
