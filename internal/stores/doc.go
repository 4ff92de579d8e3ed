// Package stores holds the Redis-backed persistence used by the engine:
// snapshot revisions of the policy store, keyed by revision id with a
// "latest" pointer. Nothing here is part of the public API.
package stores
