// Package httpclient builds the HTTP client shared by all virtual users in a
// run and abstracts request body material.
//
// The client returned by [New] is tuned for sustained concurrent load: its
// idle connection pool is sized to the run's user count so connections are
// reused across interaction cycles instead of being redialed.
//
// A [BodySource] yields a fresh reader per request, which lets many virtual
// users replay the same inline or file-backed payload concurrently.
package httpclient
