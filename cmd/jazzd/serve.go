// Copyright 2024 The Jazz Authors
// This file is part of Jazz.
//
// Jazz is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Jazz is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Jazz. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jazzdata/jazz/internal/channels/cbash"
	"github.com/jazzdata/jazz/internal/channels/cfile"
	"github.com/jazzdata/jazz/internal/channels/chttp"
	"github.com/jazzdata/jazz/internal/channels/czmq"
	"github.com/jazzdata/jazz/internal/cluster"
	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/httpapi"
	"github.com/jazzdata/jazz/internal/jconfig"
	"github.com/jazzdata/jazz/internal/jlog"
	"github.com/jazzdata/jazz/internal/jmetrics"
	"github.com/jazzdata/jazz/internal/persisted"
	"github.com/jazzdata/jazz/internal/services"
	"github.com/jazzdata/jazz/internal/volatile"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Jazz daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "jazz.conf", "path to the jazz.conf configuration file")
	return cmd
}

// bases is the running set of registered Containers, keyed by base name
// (spec.md §3.3's "base"), satisfying httpapi.Resolver.
type bases struct {
	m map[string]container.Container
}

func (b *bases) ContainerForBase(name string) (container.Container, bool) {
	c, ok := b.m[name]
	return c, ok
}

func (b *bases) register(name string, c container.Container) { b.m[name] = c }

// runServe follows the startup order spec.md §5 and SPEC_FULL.md's ambient
// stack section name: config, logger, metrics, Persisted, Volatile,
// Channels, HTTP front end. Shutdown reverses it.
func runServe(ctx context.Context, configPath string) error {
	f, err := os.Open(configPath)
	if err != nil {
		return err
	}
	cfg, err := jconfig.Load(f)
	f.Close()
	if err != nil {
		return err
	}

	log, err := jlog.New(cfg.LogPath, false)
	if err != nil {
		return err
	}
	defer log.Sync()

	metrics := jmetrics.New()
	svc := services.New(cfg, log, metrics)
	defer svc.Close()

	reg := &bases{m: make(map[string]container.Container)}

	p, err := persisted.Open(persisted.Config{
		Path:       cfg.MDBPersistencePath,
		MapSizeMB:  cfg.MDBEnvSetMapSize / (1 << 20),
		MaxReaders: cfg.MDBEnvSetMaxReaders,
		MaxDBs:     cfg.MDBEnvSetMaxDBs,
		Flags:      uint(cfg.MDBFlags),
		Base:       "lmdb",
		PoolSize:   cfg.OneShotMaxTransactions,
		FailAlloc:  cfg.OneShotErrorBlockKBytes * 1024,
		WarnAlloc:  cfg.OneShotWarnBlockKBytes * 1024,
	}, log)
	if err != nil {
		return err
	}
	defer p.Close()
	reg.register("lmdb", p)

	v, err := volatile.New("ram", 4096, cfg.OneShotMaxTransactions, cfg.OneShotErrorBlockKBytes*1024, cfg.OneShotWarnBlockKBytes*1024)
	if err != nil {
		return err
	}
	reg.register("ram", v)

	if cfg.EnableFileLevel > 0 {
		perm := cfile.Permission(cfg.EnableFileLevel)
		reg.register("file", cfile.New("file", cfg.FileRoot, perm))
	}

	httpChannel := chttp.New("http", 30*time.Second)
	if cfg.EnableHTTPClient {
		reg.register("http", httpChannel)
	}

	table, err := cluster.NewTable(cfg, httpChannel)
	if err != nil {
		return err
	}
	// Built and logged now; forward_get/forward_put/forward_del wiring into
	// httpapi's dispatch path is tracked as follow-up, not yet exercised by
	// any HTTP route.
	_ = cluster.NewDispatcher(table, httpChannel)
	log.Info("cluster table loaded", zap.Int("peers", len(table.Peers)))

	if cfg.EnableZeroMQClient {
		reg.register("0-mq", czmq.New("0-mq"))
	}
	if cfg.EnableBashExec {
		reg.register("bash", cbash.New())
	}

	srv := httpapi.New(reg, log, metrics, httpapi.Config{})
	httpSrv := &http.Server{Addr: cfg.HTTPListenAddr, Handler: srv}

	errCh := make(chan error, 1)
	go func() {
		log.Info("jazzd listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-sigCh:
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
