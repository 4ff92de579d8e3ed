// Package manifest issues and verifies signed revision manifests: compact
// tokens binding a snapshot revision id to a digest of its payload and its
// entity counts. An enforcement node that fetches a policy revision from a
// shared store verifies the manifest before trusting the payload.
package manifest
