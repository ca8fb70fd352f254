// Package validation guards derived provider endpoints against SSRF.
//
// Endpoint hosts are built from user-supplied values (tenant subdomain,
// optional API domain override), so before any request the derived host is
// checked against private IP ranges, localhost variants, and cloud metadata
// endpoints.
//
// Private endpoints can be allowed for development via the
// QUERYFORGE_ALLOW_PRIVATE environment variable (any value
// strconv.ParseBool accepts) or SetAllowPrivate(true). Cloud metadata
// endpoints stay blocked either way.
package validation

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var allowPrivate atomic.Bool

// privateNetworks holds the reserved ranges a provider endpoint must never
// resolve into: RFC1918 plus link-local, documentation, benchmarking, and
// the IPv6 equivalents. Parsed once at load.
var privateNetworks []*net.IPNet

func init() {
	v, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("QUERYFORGE_ALLOW_PRIVATE")))
	allowPrivate.Store(v)

	for _, cidr := range []string{
		"10.0.0.0/8",      // RFC1918
		"172.16.0.0/12",   // RFC1918
		"192.168.0.0/16",  // RFC1918
		"100.64.0.0/10",   // RFC6598 shared address space
		"169.254.0.0/16",  // RFC3927 link local
		"192.0.0.0/24",    // RFC6890
		"192.0.2.0/24",    // RFC5737 documentation
		"198.18.0.0/15",   // RFC2544 benchmarking
		"198.51.100.0/24", // RFC5737 documentation
		"203.0.113.0/24",  // RFC5737 documentation
		"240.0.0.0/4",     // RFC1112 reserved
		"fc00::/7",        // RFC4193 unique local
		"fe80::/10",       // RFC4291 link local
		"ff00::/8",        // RFC4291 multicast
		"::1/128",         // loopback
		"::/128",          // unspecified
		"100::/64",        // RFC6666 discard prefix
		"2001::/32",       // RFC4380 Teredo
		"2001:10::/28",    // RFC4843 ORCHID
		"2001:db8::/32",   // RFC3849 documentation
	} {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			privateNetworks = append(privateNetworks, network)
		}
	}
}

// SetAllowPrivate permits private and localhost endpoints, for development
// against a local provider stub. Cloud metadata endpoints remain blocked.
func SetAllowPrivate(enabled bool) {
	allowPrivate.Store(enabled)
}

// AllowPrivateEnabled reports whether private endpoints are permitted.
func AllowPrivateEnabled() bool {
	return allowPrivate.Load()
}

// ValidateProviderDomain validates an API domain override. The domain is
// combined with a tenant subdomain into hosts like {sub}.rest.{domain}, so
// it must be a bare DNS name: no scheme, path, port, or IP literal, and not
// somewhere a provider API could never legitimately live.
func ValidateProviderDomain(domain string) error {
	switch {
	case domain == "":
		return fmt.Errorf("provider domain cannot be empty")
	case strings.Contains(domain, "://") || strings.ContainsAny(domain, "/?#@ "):
		return fmt.Errorf("provider domain must be a bare DNS name, got %q", domain)
	case strings.Contains(domain, ":"):
		return fmt.Errorf("provider domain must not include a port, got %q", domain)
	case net.ParseIP(domain) != nil:
		return fmt.Errorf("provider domain must be a DNS name, not an IP address")
	case !allowPrivate.Load() && isLocalhost(domain):
		return fmt.Errorf("localhost provider domains are not allowed")
	case isCloudMetadata(domain):
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}
	return nil
}

// ValidateEndpointURL validates a fully-formed provider endpoint URL:
// https only (http when private endpoints are allowed), a real hostname,
// and nothing that is or resolves to a private, loopback, or metadata
// address.
func ValidateEndpointURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !allowPrivate.Load() {
			return fmt.Errorf("invalid URL scheme: provider endpoints require https")
		}
	default:
		return fmt.Errorf("invalid URL scheme: only https is allowed, got %q", u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must contain a hostname")
	}
	if !allowPrivate.Load() && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not allowed")
	}
	if isCloudMetadata(hostname) {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return validateIPAddress(ip)
	}
	return validateResolvedIPs(hostname)
}

func isLocalhost(hostname string) bool {
	switch h := strings.ToLower(hostname); h {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0", "::":
		return true
	default:
		return strings.HasSuffix(h, ".localhost")
	}
}

func isCloudMetadata(hostname string) bool {
	switch h := strings.ToLower(hostname); h {
	case "169.254.169.254", // AWS, Azure, GCP, DigitalOcean
		"metadata.google.internal",
		"metadata",
		"instance-data",
		"fd00:ec2::254":
		return true
	default:
		return strings.HasSuffix(h, ".metadata.google.internal")
	}
}

func validateIPAddress(ip net.IP) error {
	switch {
	case ip.String() == "169.254.169.254":
		return fmt.Errorf("cloud metadata IP address is not allowed")
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified IP addresses are not allowed")
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		// Blocked even when private IPs are allowed.
		return fmt.Errorf("link-local IP addresses are not allowed")
	case allowPrivate.Load():
		return nil
	case ip.IsLoopback():
		return fmt.Errorf("loopback IP addresses are not allowed")
	case isPrivateIP(ip):
		return fmt.Errorf("private IP addresses are not allowed")
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// validateResolvedIPs resolves a hostname and checks every address it maps
// to. Resolution failure passes: tenant endpoint hosts may not be
// resolvable from the machine running validation.
func validateResolvedIPs(hostname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ips, err := (&net.Resolver{}).LookupIP(ctx, "ip", hostname)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if err := validateIPAddress(ip); err != nil {
			return fmt.Errorf("domain %q resolves to forbidden IP %s: %w", hostname, ip.String(), err)
		}
	}
	return nil
}
