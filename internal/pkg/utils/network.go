package utils

import "net"

// IsLocalBind reports whether a listen address only accepts loopback traffic.
// An empty host ("":8088) listens on every interface.
func IsLocalBind(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
