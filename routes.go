package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Unauthenticated banner
	router.HandleFunc("/", helpHandler).Methods(http.MethodGet)

	// Translation endpoints
	router.HandleFunc("/translate", freeTranslateHandler).Methods(http.MethodPost)
	router.HandleFunc("/v1/translate", proTranslateHandler).Methods(http.MethodPost)
	router.HandleFunc("/v2/translate", officialTranslateHandler).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
}
