package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware with the gateway's permissive policy: the checkout
// endpoint is called cross-origin from merchant storefronts, and pre-flight
// OPTIONS must succeed for any of them.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}).Handler
}
