// Package netif exposes interface address queries behind the AddrSource
// interface, implemented over netlink in production.
package netif
