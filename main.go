package main

import (
	"flag"
	"fmt"
	"net/http"

	"github.com/facebookgo/httpdown"
	"github.com/gorilla/mux"
)

// version is stamped at build time:
//
//	go build -ldflags "-X main.version=1.2.3"
var version = "dev"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration load failed")
	}

	flag.IntVar(&cfg.Port, "port", cfg.Port, "bind port")
	flag.IntVar(&cfg.Port, "p", cfg.Port, "bind port (shorthand)")
	flag.Parse()
	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
	}
	hd := &httpdown.HTTP{
		StopTimeout: cfg.StopTimeout,
		KillTimeout: cfg.KillTimeout,
	}

	rl := newRelay(cfg)
	server.Handler = newHandler(rl)
	startMetrics(cfg.MetricsTick)

	logger.Info().Int("port", cfg.Port).Str("version", version).Msg("notir server start")
	if err := httpdown.ListenAndServe(server, hd); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}

	rl.shutdown()
	finalMetrics()
}

func newHandler(rl *relay) http.Handler {
	handler := mux.NewRouter()

	handler.Handle("/single/sub", singleSubHandler{rl}).Methods("GET")
	handler.Handle("/single/pub", singlePubHandler{rl}).Methods("POST")
	handler.Handle("/broad/sub", broadSubHandler{rl}).Methods("GET")
	handler.Handle("/broad/pub", broadPubHandler{rl}).Methods("POST")
	handler.Handle("/health", healthHandler{}).Methods("GET")
	handler.Handle("/version", versionHandler{}).Methods("GET")
	handler.Handle("/connections", connectionsHandler{rl}).Methods("GET")

	// Everything else is the embedded browser client.
	handler.PathPrefix("/").Handler(staticHandler())

	return handler
}
