package rest

import (
	"github.com/gorilla/mux"
	"github.com/mailclean/mailclean/pkg/server/web"
)

// SetupRoutes populates the routes for the REST interface
func SetupRoutes(r *mux.Router) {
	// API v1
	r.Path("/v1/sanitize").Handler(
		web.Handler(SanitizeV1)).Name("SanitizeV1").Methods("POST")
	r.Path("/v1/message").Handler(
		web.Handler(MessageV1)).Name("MessageV1").Methods("POST")
	r.Path("/v1/results").Handler(
		web.Handler(ResultListV1)).Name("ResultListV1").Methods("GET")
	r.Path("/v1/results/{id}").Handler(
		web.Handler(ResultShowV1)).Name("ResultShowV1").Methods("GET")
	r.Path("/v1/results/{id}").Handler(
		web.Handler(ResultDeleteV1)).Name("ResultDeleteV1").Methods("DELETE")
	r.Path("/v1/results/{id}/html").Handler(
		web.Handler(ResultHTMLV1)).Name("ResultHTMLV1").Methods("GET")
	r.Path("/v1/policy").Handler(
		web.Handler(PolicyV1)).Name("PolicyV1").Methods("GET")
	r.Path("/v1/monitor/results").Handler(
		web.Handler(MonitorResultsV1)).Name("MonitorResultsV1").Methods("GET")
}
