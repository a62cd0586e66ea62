// Package store provides durable backends for the license record list.
//
// Three adapters implement license.Store: a JSON file (the default, layout
// compatible with the legacy licenses.json tooling), an in-memory store for
// tests and ephemeral deployments, and a PostgreSQL store for deployments
// that want a transactional backend. All adapters serialize Update so the
// load-inspect-save cycle is a single critical section per store.
package store
