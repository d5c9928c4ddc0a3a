// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pii-anonymizer/internal/core"
	"pii-anonymizer/internal/web"
)

// fallbackPorts is how many ports after the requested one are tried when it is busy
const fallbackPorts = 10

func newServeCmd(global *globalOptions) *cobra.Command {
	var (
		port   string
		engine string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface and JSON API",
		Long: `Start the web interface for pasting text or uploading files, together with
the JSON API under /api/v1 and Prometheus metrics on /metrics.

When --port is given and busy, the next free port in the following ten is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := global.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = env.logger.Sync() }()

			if cmd.Flags().Changed("engine") {
				env.cfg.Detector.Engine = engine
			}
			if cmd.Flags().Changed("port") {
				p, err := findAvailablePort(port, cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("port validation failed: %w\n"+
						"Troubleshooting: Try a different port with --port <number> or ensure no other services are using it", err)
				}
				env.cfg.Server.Address = ":" + p
			}

			det, err := core.BuildDetector(env.cfg, env.observer)
			if err != nil {
				return err
			}
			anon, err := core.BuildAnonymizer(env.cfg, det, env.observer)
			if err != nil {
				return err
			}

			server, err := web.NewWebServer(web.Options{
				Config:     env.cfg.Server,
				Anonymizer: anon,
				Detector:   det,
				Logger:     env.logger,
				Metrics:    env.metrics,
			})
			if err != nil {
				return err
			}
			defer server.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env.logger.Info("starting pii-anonymizer",
				zap.String("engine", det.Name()),
				zap.String("language", env.cfg.Detector.Language),
				zap.Strings("exclude", env.cfg.Redaction.ExcludeEntities))
			return server.Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default: server.address from config, :8080)")
	cmd.Flags().StringVar(&engine, "engine", "", "Detector engine: patterns or presidio")
	return cmd
}

// findAvailablePort returns requestedPort, or the next free port when it is taken
func findAvailablePort(requestedPort string, stderr io.Writer) (string, error) {
	port, err := validatePort(requestedPort)
	if err != nil {
		return "", err
	}

	if isPortAvailable(port) {
		return strconv.Itoa(port), nil
	}

	for candidate := port + 1; candidate <= port+fallbackPorts && candidate <= 65535; candidate++ {
		if isPortAvailable(candidate) {
			fmt.Fprintf(stderr, "Warning: Port %s is not available, using port %d instead\n", requestedPort, candidate)
			return strconv.Itoa(candidate), nil
		}
	}

	return "", fmt.Errorf("no available ports found in range %d-%d", port, port+fallbackPorts)
}

// validatePort validates that the port string is a valid port number
func validatePort(portStr string) (int, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port format '%s': must be a number", portStr)
	}

	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}

	if port < 1024 && os.Geteuid() != 0 {
		return 0, fmt.Errorf("port %d requires root privileges (ports below 1024 are privileged)", port)
	}

	return port, nil
}

// isPortAvailable checks if a port is available for binding
func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
