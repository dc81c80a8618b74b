// Package redishost is the Redis-backed implementation of sessions.Host for
// horizontally scaled deployments. Records live in a hash per session id
// ("v" = version, "d" = envelope bytes); compare-and-swap runs as a Lua
// script so the version check and write are atomic at the key, and keys
// carry a TTL as a backstop against abandoned sessions.
package redishost
