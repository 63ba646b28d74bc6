// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so the OAuth credential document can live in
// S3 or a self-hosted MinIO bucket instead of on local disk. Containerized
// runs lose their filesystem between invocations; a bucket keeps the rotated
// refresh token.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it
// easier to mock storage interactions for unit testing (see core/storage/mocks).
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "klaviyo-sync")
package storage
