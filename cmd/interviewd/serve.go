package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/interview-coach/internal/blobstore"
	"github.com/GriffinCanCode/interview-coach/internal/capture"
	"github.com/GriffinCanCode/interview-coach/internal/config"
	"github.com/GriffinCanCode/interview-coach/internal/grpcclient"
	"github.com/GriffinCanCode/interview-coach/internal/resilience"
	"github.com/GriffinCanCode/interview-coach/internal/server"
	"github.com/GriffinCanCode/interview-coach/internal/session"
	"github.com/GriffinCanCode/interview-coach/internal/sessionapi"
	"github.com/GriffinCanCode/interview-coach/internal/speech"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview server",
	Long: `Run the HTTP/WebSocket interview server and the gRPC health service.

Settings come from the environment (HTTP_ADDR, GRPC_ADDR, SESSION_API_URL,
RECORDINGS_DB, CAPTURE_SOURCE, SPEECH_OUTPUT, ...). With --local the
interview backend runs in-process from a built-in or YAML question plan.`,
	RunE: runServe,
}

var (
	localFlag bool
	plansFlag string
)

func init() {
	serveCmd.Flags().BoolVar(&localFlag, "local", false, "Use the in-process session backend instead of SESSION_API_URL")
	serveCmd.Flags().StringVar(&plansFlag, "plans", "", "YAML question plans for --local")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	personas := config.DefaultPersonas()
	if cfg.PersonasFile != "" {
		p, err := config.LoadPersonas(cfg.PersonasFile)
		if err != nil {
			return err
		}
		personas = p
	}

	store, err := blobstore.Open(cfg.RecordingsDB)
	if err != nil {
		return fmt.Errorf("opening recordings: %w", err)
	}
	defer func() { _ = store.Close() }()

	api, breakerState, err := sessionAPI(cfg)
	if err != nil {
		return err
	}

	backend := server.Backend{
		API:             api,
		Store:           store,
		Options:         session.OptionsFromConfig(cfg, personas),
		ResultRetention: cfg.ResultRetention,
	}
	if cfg.CaptureSource == "local" {
		local := capture.LocalConfig{
			SampleRate:           cfg.SampleRate,
			ExcludedAudioDevices: cfg.ExcludedAudioDevices,
			CameraDevice:         cfg.CameraDevice,
			FrameRate:            int(math.Round(cfg.FrameRate)),
			AllowMicrophone:      cfg.AllowMicrophone,
			AllowCamera:          cfg.AllowCamera,
		}
		backend.LocalDevices = func() capture.Devices { return capture.NewLocalDevices(local) }
	}
	if cfg.SpeechOutput == "local" {
		synth, err := speech.NewExecSynthesizer(cfg.TTSCommand)
		if err != nil {
			return err
		}
		backend.LocalSynth = synth
	}
	srv := server.New(backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := server.NewHealth()
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.GRPCAddr, err)
	}
	go func() {
		if err := health.GRPC().Serve(lis); err != nil {
			slog.Error("grpc server error", "error", err)
		}
	}()
	if breakerState != nil {
		go health.Watch(ctx, grpcclient.DefaultHealthCheckInterval, breakerState)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("interview server starting",
			"http", cfg.HTTPAddr, "grpc", cfg.GRPCAddr,
			"capture", cfg.CaptureSource, "speech", cfg.SpeechOutput, "local_backend", localFlag)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	srv.Close(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	health.Stop()
	slog.Info("shutdown complete")
	return nil
}

// sessionAPI returns the interview backend and, for the remote client, its
// breaker state.
func sessionAPI(cfg *config.Config) (sessionapi.API, func() resilience.State, error) {
	if localFlag {
		var plans []sessionapi.Plan
		if plansFlag != "" {
			p, err := sessionapi.LoadPlans(plansFlag)
			if err != nil {
				return nil, nil, err
			}
			plans = p
		}
		return sessionapi.NewLocal(plans...), nil, nil
	}
	var opts []sessionapi.Option
	if cfg.SessionAPIKey != "" {
		opts = append(opts, sessionapi.WithAPIKey(cfg.SessionAPIKey))
	}
	client := sessionapi.NewClient(cfg.SessionAPIURL, cfg.APITimeout, opts...)
	return client, client.BreakerState, nil
}
