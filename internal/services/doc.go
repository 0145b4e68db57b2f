// Package services implements the catalog client used to look up tracks.
//
// # Catalog Interface
//
// The workflow depends on [Catalog], which splits a lookup into two calls:
// a client-credentials token exchange followed by a search (or a track lookup) with that token.
// Tokens are never cached; every search exchanges credentials first.
//
// # Spotify Implementation
//
// [SpotifyService] exchanges credentials through [clientcredentials.Config] with HTTP Basic auth and
// calls the Web API search and tracks endpoints with a bearer token.
// An optional [rate.Limiter] paces outbound requests.
//
// # Error Handling
//
// Failures are typed and unwrap to sentinels in the shared package:
//   - [AuthConfigError] : client id or secret missing, no request made ([shared.ErrAuthConfig])
//   - [TokenExchangeError] : token endpoint rejected the credentials ([shared.ErrTokenExchange])
//   - [SearchError] : search or lookup endpoint returned an error ([shared.ErrSearch])
//
// # API Mappings
//
// Responses are decoded into [SpotifyTrack] and mapped to [models.SearchResult].
// Items without an ID or a name are dropped.
package services
