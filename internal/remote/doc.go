// Package remote defines the accounting service capability used by the
// terminal and the access token manager wrapped around it.
//
// The API interface is the raw capability: every data call takes an access
// token and may fail with ErrUnauthorized. Client owns the one cached token
// and retries a call at most once with a fresh token, so callers never see
// an expired token as long as the credentials are still valid.
package remote
