// ABOUTME: Package doc for client-side credential handling.
// ABOUTME: Describes token storage, lookup order, and expiry inspection.

// Package auth manages the bearer token the client presents on every
// request. Tokens come from the DOCCHAT_TOKEN environment variable or a
// file under the user config directory; a token obtained at login is
// saved to the file so later sessions reuse it. The package inspects
// JWT expiry locally but never verifies signatures; the server is the
// authority and a 401 always wins.
package auth
