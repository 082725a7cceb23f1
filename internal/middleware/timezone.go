package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

type timezoneContextKey struct{}

var TimezoneKey = timezoneContextKey{}

// TimezoneHeader lets clients pin their zone explicitly.
const TimezoneHeader = "X-Timezone"

// TimeZoneLookup resolves an IANA zone name for an IP address.
type TimeZoneLookup func(ip string) (string, error)

// Timezone stores the caller's IANA zone in the request context. The
// X-Timezone header wins, then the GeoIP lookup, then defaultTZ.
func Timezone(defaultTZ string, lookup TimeZoneLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tz := ResolveTimezone(r, defaultTZ, lookup)
			ctx := context.WithValue(r.Context(), TimezoneKey, tz)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveTimezone returns a loadable zone name for the request.
func ResolveTimezone(r *http.Request, fallback string, lookup TimeZoneLookup) string {
	if fallback == "" || !validZone(fallback) {
		fallback = "UTC"
	}
	if r == nil {
		return fallback
	}
	if tz := strings.TrimSpace(r.Header.Get(TimezoneHeader)); tz != "" && validZone(tz) {
		return tz
	}
	if lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if tz, err := lookup(ip); err == nil && tz != "" && validZone(tz) {
				return tz
			}
		}
	}
	return fallback
}

func validZone(name string) bool {
	_, err := time.LoadLocation(name)
	return err == nil
}

// TimezoneFromContext returns the zone stored by Timezone, or UTC.
func TimezoneFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(TimezoneKey).(string); ok && v != "" {
		return v
	}
	return "UTC"
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
