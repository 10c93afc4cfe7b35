// Package resolver provides the MX lookup backends: the system resolver
// (optionally tunnelled through SOCKS5) and a direct DNS client that talks
// to a configured server.
package resolver
