// Package server provides the daemon's HTTP API, routing and middleware.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order so the first one added runs outermost.
//
// The [BasicRouter] implementation registers "METHOD /path" patterns on [http.ServeMux] and answers
// unmatched paths and methods with JSON errors.
//
// # Endpoints
//
//   - GET /health : liveness plus yt-dlp availability and version
//   - GET /status : scheduler state and its rendered status lines
//   - GET /playlists : stored playlists with download counts
//   - POST /sync : sync every playlist, or one with ?id=; restricted playlists answer 403, unknown ids 404
//   - GET /metrics : Prometheus exposition of [Metrics]
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
