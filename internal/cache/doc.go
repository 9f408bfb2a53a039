// Package cache provides a bounded in-memory LRU cache.
package cache
