// Package vault seals provider session blobs with AES-256-GCM before they
// reach durable storage. One symmetric key from configuration; no rotation.
package vault
