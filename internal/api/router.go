package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers every route. Request logging runs inside the router
// so metrics are labelled by route template; the rest of the middleware
// chain is applied by the caller.
func NewRouter(
	columns *ColumnHandler,
	filters *FilterHandler,
	validation *ValidationHandler,
	tables *TableHandler,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(LoggingMiddleware()))

	// API v1 routes
	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Column definitions. The fixed reset path is registered before {id}.
	v1.HandleFunc("/columns", columns.ListColumns).Methods(http.MethodGet)
	v1.HandleFunc("/columns", columns.CreateColumn).Methods(http.MethodPost)
	v1.HandleFunc("/columns/reset", columns.ResetColumns).Methods(http.MethodPost)
	v1.HandleFunc("/columns/{id}", columns.UpdateColumn).Methods(http.MethodPut)
	v1.HandleFunc("/columns/{id}", columns.DeleteColumn).Methods(http.MethodDelete)
	v1.HandleFunc("/columns/{id}/toggle", columns.ToggleColumn).Methods(http.MethodPost)

	// Saved filters
	v1.HandleFunc("/filters", filters.ListFilters).Methods(http.MethodGet)
	v1.HandleFunc("/filters", filters.CreateFilter).Methods(http.MethodPost)
	v1.HandleFunc("/filters/reset", filters.ResetFilters).Methods(http.MethodPost)
	v1.HandleFunc("/filters/{id}", filters.UpdateFilter).Methods(http.MethodPut)
	v1.HandleFunc("/filters/{id}", filters.DeleteFilter).Methods(http.MethodDelete)
	v1.HandleFunc("/filters/{id}/toggle", filters.ToggleFilter).Methods(http.MethodPost)

	// Validation
	v1.HandleFunc("/validate/expression", validation.ValidateExpression).Methods(http.MethodPost)
	v1.HandleFunc("/validate/rule", validation.ValidateRule).Methods(http.MethodPost)

	// Evaluated table
	v1.HandleFunc("/table", tables.GetTable).Methods(http.MethodGet)
	v1.HandleFunc("/items/{id}/explain", tables.ExplainItem).Methods(http.MethodGet)

	// Health check endpoints
	router.HandleFunc("/health", tables.Health).Methods(http.MethodGet)
	router.HandleFunc("/ready", tables.Ready).Methods(http.MethodGet)

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	return router
}
