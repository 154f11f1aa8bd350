package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"stepup/internal/configuration"
	"stepup/internal/models"
	"stepup/internal/stepup"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// app holds what every subcommand needs once the configuration is loaded.
type app struct {
	config   models.ClientConfiguration
	logger   *zap.Logger
	client   *stepup.AuthClient
	elevator *stepup.Elevator
	session  *sessionFile
}

func newApp() (*app, error) {
	config, err := configuration.ReadClient()
	if err != nil {
		return nil, err
	}

	level, err := zap.ParseAtomicLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = level
	logger, err := logConfig.Build()
	if err != nil {
		return nil, err
	}

	session := &sessionFile{path: config.SessionFile}
	client := stepup.NewAuthClient(stepup.ClientConfig{
		BaseURL:    config.APIURL,
		Timeout:    time.Duration(config.Timeout) * time.Second,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}, session, logger)

	elevator := stepup.NewElevator(client,
		stepup.WithResendThreshold(config.ResendThreshold),
		stepup.WithTokenStore(stepup.NewTokenStore(stepup.SystemClock{})),
		stepup.WithLogger(logger),
	)

	return &app{
		config:   config,
		logger:   logger,
		client:   client,
		elevator: elevator,
		session:  session,
	}, nil
}

func newRootCommand() *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "stepup",
		Short:         "Sign in and perform protected actions with step-up verification",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			a, err = newApp()
			return err
		},
	}

	appFn := func() *app { return a }

	root.AddCommand(
		newLoginCommand(appFn),
		newElevateCommand(appFn),
		newApproveCommand(appFn),
		newDevicesCommand(appFn),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if se, ok := stepup.AsError(err); ok {
			fmt.Fprintln(os.Stderr, se.Message)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
