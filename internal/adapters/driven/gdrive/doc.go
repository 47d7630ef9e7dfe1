// Package gdrive implements the remote storage port on the Google
// Drive v3 API.
//
// All requests pass through a token-bucket rate limiter kept well below
// Google's per-user quota, and all API errors are mapped onto the
// domain's remote error sentinels so the core never sees googleapi
// types.
package gdrive
