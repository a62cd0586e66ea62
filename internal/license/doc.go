// Package license implements the license record lifecycle: key generation,
// issuance, and device-binding validation.
//
// # Record Model
//
// A license record binds an opaque key to a customer, an expiration instant,
// and a capped, append-only set of device identifiers. Records are persisted
// through the Store interface as a whole list; the package never mutates a
// record except to append a device binding during validation.
//
// # Validation Flow
//
// Validation applies the admission policy in a fixed order, each step
// short-circuiting the next:
//
//	1. Presence of key and device ID
//	2. Record lookup by exact key match
//	3. Expiration check (takes precedence over quota)
//	4. Already-bound short circuit (idempotent, never mutates)
//	5. Device quota check
//	6. Bind and persist (the only mutating path)
//
// The mutating path runs inside Store.Update so the load-check-append-save
// cycle is one critical section; concurrent registrations against the same
// license cannot overrun the device quota.
package license
