// Package repositories implements persistence for playlists and their videos.
//
// Two backends satisfy [models.PlaylistStore] and [models.VideoStore]:
//   - Snapshot stores ([NewPlaylistSnapshot], [NewVideoSnapshot]) keep the whole table in memory and rewrite a
//     JSON file on every mutation. Files are replaced atomically (temp file + rename). A missing file is an empty
//     store; an unreadable one is logged, moved aside with a ".corrupt-<unix>" suffix, and the store starts empty.
//     When a write fails the in-memory state stays authoritative and [shared.ErrPersistence] is returned.
//   - SQLite repositories ([NewPlaylistRepository], [NewVideoRepository]) store rows with an insertion sequence
//     generated by [NextSequence], which gives both backends the same enumeration order.
//
// [Open] builds the pair selected by [shared.StorageConfig].
package repositories
