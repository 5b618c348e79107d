// Package cache provides the Redis-backed cache manager used to keep
// embedding vectors across bootcamp runs. Internal; not part of the
// public API.
package cache
