// Package tlsutil provides the hardened TLS and HTTP client settings
// shared by all outbound clients (completion, embedding, Redis).
// TLS 1.2+ with AEAD-only cipher suites.
package tlsutil
