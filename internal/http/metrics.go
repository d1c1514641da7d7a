package http

import "github.com/prometheus/client_golang/prometheus"

var authOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "registrar_auth_flow_total",
	Help: "Auth flow results by flow name and outcome.",
}, []string{"flow", "outcome"})

func init() {
	prometheus.MustRegister(authOutcomes)
}
