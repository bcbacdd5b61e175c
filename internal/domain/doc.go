// Package domain defines the types and ports shared by the emote service.
//
// Files are split by concept (config.go, emote.go, storage.go, events.go).
// Implementations live under internal/adapter; internal/app orchestrates them.
package domain
