// Package storage stores opaque blobs such as organization logos.
//
// # Overview
//
// BlobStore abstracts the backend. The filesystem store serves local
// development and single-node installs; the S3 store serves production and
// also speaks to MinIO through an alternate endpoint with path-style
// addressing.
//
// # Usage
//
//	store, err := storage.New(storage.Config{Type: "filesystem", FilesystemRoot: root})
//	err = store.Put(ctx, fmt.Sprintf("logos/%d.png", orgID), body, "image/png")
//
// # Related Packages
//
//   - pkg/orgs: Logo keys referenced by organizations
//   - pkg/config: Backend selection via RADPOINT_BLOB_* variables
package storage
