// Package server holds the HTTP ingestion server configuration.
//
// The serve command exposes the contacts feature over HTTP so an upstream
// pipeline can push records one at a time instead of piping Singer messages.
// This package only defines the settings; routes live in the feature packages.
package server
