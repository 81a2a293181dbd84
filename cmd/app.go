// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"freetron/cli/internal/auth"
	"freetron/cli/internal/backend"
	"freetron/cli/internal/config"
	"freetron/cli/internal/endpoints"
	ferrors "freetron/cli/internal/errors"
	"freetron/cli/internal/httperrors"
	"freetron/cli/internal/job"
	"freetron/cli/internal/keychain"
	"freetron/cli/internal/logging"
	"freetron/cli/internal/metrics"
	"freetron/cli/internal/rpc"
	"freetron/cli/internal/transport"
)

// app is everything a command needs to talk to the server.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	ep      endpoints.Endpoints
	km      *keychain.Manager
	session *auth.Session
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	tr      transport.Transport
	via     string
	facade  *rpc.Facade
	api     backend.API
}

func loadConfig(cmd *cobra.Command) (config.Config, *viper.Viper, error) {
	v, err := config.New(flagConfig)
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := config.Read(v, flagConfig != ""); err != nil {
		return config.Config{}, nil, err
	}
	for _, name := range []string{"server", "socket"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return config.Config{}, nil, err
			}
		}
	}
	cfg, err := config.Decode(v)
	return cfg, v, err
}

// newApp loads configuration, restores the session and negotiates a transport.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	log := logging.New(cfg.LogLevel, os.Stderr)

	ep, err := endpoints.Resolve(cfg.Server, cfg.Socket)
	if err != nil {
		return nil, err
	}
	endpoints.SetCurrent(&ep)

	km, err := keychain.GetManager()
	if err != nil {
		return nil, fmt.Errorf("open keychain: %w", err)
	}
	session, err := auth.OpenSession(km, ep.BaseURL)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	opts := transport.Options{
		Client:    &http.Client{Jar: session.Jar()},
		Timeout:   cfg.Timeout,
		UserAgent: "freetron-cli/" + Version,
		Observer:  m,
		Logger:    log,
	}
	var candidates []transport.Candidate
	if ep.Socket != "" {
		candidates = append(candidates, transport.UnixCandidate(ep.Socket, opts))
	}
	if ep.TCP() {
		candidates = append(candidates, transport.HTTPCandidate(ep.BaseURL, opts))
	}
	tr, via, err := transport.Negotiate(candidates...)
	if err != nil {
		httperrors.FormatNetworkError(err, "Connecting to the server", ep.Host())
		return nil, reported(err)
	}
	if via == "unix" {
		if err := session.Rebind(endpoints.SocketBaseURL); err != nil {
			return nil, err
		}
	}
	log.Debug("transport ready", "via", via, "server", ep.Host())

	facade := rpc.New(tr, ep.RPC, rpc.DefaultOperations, rpc.WithLogger(log))
	return &app{
		cfg:     cfg,
		log:     log,
		ep:      ep,
		km:      km,
		session: session,
		reg:     reg,
		metrics: m,
		tr:      tr,
		via:     via,
		facade:  facade,
		api:     backend.New(facade),
	}, nil
}

// policy is the poll policy from configuration.
func (a *app) policy() job.Policy {
	p := job.DefaultPolicy()
	if a.cfg.Poll.Interval > 0 {
		p.PollInterval = a.cfg.Poll.Interval
	}
	p.MaxAttempts = a.cfg.Poll.MaxAttempts
	p.Timeout = a.cfg.Poll.Timeout
	return p
}

// saveSession writes session cookies back; failures are logged only.
func (a *app) saveSession() {
	if err := a.session.Save(); err != nil {
		a.log.Warn("could not save session", "error", err)
	}
}

// fail renders err for the user and marks it as shown.
func (a *app) fail(context string, err error) error {
	if err == nil {
		return nil
	}
	if isNetwork(err) {
		httperrors.FormatNetworkError(err, context, a.ep.Host())
		return reported(err)
	}
	printError(logging.PresentError(context, err))
	return reported(err)
}

func isNetwork(err error) bool {
	if ferrors.Is(err, ferrors.Transport) {
		return true
	}
	var rerr *rpc.Error
	if errors.As(err, &rerr) {
		return rerr.Kind == rpc.KindTransport
	}
	return errors.Is(err, transport.ErrTimeout) || errors.Is(err, transport.ErrNoTransport)
}
