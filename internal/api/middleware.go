// Package api implements the AVIVA content REST API using chi.
package api

import "net/http"

// NoStore marks every API response as uncacheable so that browsers and
// intermediaries always revalidate content against the server.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
