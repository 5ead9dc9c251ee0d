package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"
)

func router(config *Global) http.Handler {
	router := mux.NewRouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	h := handler{Global: config, router: router}

	GET.HandleFunc("/api/frequencies", h.Frequencies).Name("frequencies")
	GET.HandleFunc("/api/frequencies/statistical", h.StatisticalFrequencies)
	GET.HandleFunc("/api/comparison", h.Comparison).Name("comparison")
	GET.HandleFunc("/api/baseline", h.Baseline).Name("baseline")
	GET.HandleFunc("/api/baseline/projects", h.BaselineProjects)
	GET.HandleFunc("/api/baseline/responses", h.BaselineResponses)
	GET.HandleFunc("/api/baseline/sexes", h.BaselineSexes)

	standard := alice.New(
		// Log all requests to STDOUT
		middleware.GorillaLog(),
	)

	return standard.Then(router)
}
