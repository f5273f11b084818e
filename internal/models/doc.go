// Package models defines the domain entities and store contracts for playlist synchronization.
//
// The package contains three categories of types:
//
// 1. Persistent Entities: immutable values whose state transitions return new values
//   - [Playlist] : a tracked remote playlist with its last sync time and item count
//   - [Video] : one item of a playlist, downloaded at most once
//
// 2. Collaborator DTOs: data reported by the remote source
//   - [RemoteVideo] : an item as listed by the fetcher
//   - [PlaylistMetadata] : title and item count of a remote playlist
//
// 3. Ephemeral Results: computed per operation and never persisted
//   - [SyncResult], [SyncAllResult], [PlaylistStats]
//
// Identity and equality of entities is by id only. The [Store] interface defines the shared
// store shape; [PlaylistStore] and [VideoStore] add the entity specific lookups.
package models
