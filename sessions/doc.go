// Package sessions implements the user-session core of the voice assistant
// platform: bounded-lifetime session records, the sliding-window conversation
// context, and the Manager that applies every mutation through per-session
// optimistic concurrency.
//
// Layers & Roles
//
//	Manager -> lifecycle rules (create, touch, append-turn, terminate, sweep)
//	Host    -> durability: versioned records keyed by session id
//	wire    -> tagged envelope encoding of the stored record
//
// # Host Interface
//
// A Host stores opaque versioned byte records. CompareAndSwap is the only
// mutation path for an existing record, which gives the Manager per-session
// exclusivity without any cross-session lock: concurrent operations on the
// same id serialize through version conflicts and retry, operations on
// different ids never contend.
//
// Implementations
//
//	memoryhost : in-memory reference used for tests / single-process deployments
//	redishost  : Redis backed implementation for horizontal scale
//
// # Expiry
//
// A session is expired when now − lastActivity exceeds the configured
// timeout; the boundary itself is inclusive (a session touched exactly
// timeout ago is still live). Expiry is enforced on every read path, so
// correctness never depends on sweep timing; the sweep only reclaims records
// eagerly. Host TTLs are a backstop with a deliberate grace factor so the
// logical expiry error, not a bare not-found, is what callers observe.
package sessions
