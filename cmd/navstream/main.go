package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"navstream/internal/capture"
	"navstream/internal/config"
	"navstream/internal/logging"
	"navstream/internal/publish"
	"navstream/internal/web"
)

type runOptions struct {
	ConfigPath  string
	ReplayPath  string
	ReplaySpeed float64
	ReplayLoop  bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "navstream",
		Short:         "Decode GNSS and AIS receiver streams",
		Long:          "navstream frames and decodes NMEA, AIS, Javad and Unicore receiver streams and publishes the latest navigation data.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newDecodeCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the receiver daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "./navstream.yaml", "path to YAML config")
	cmd.Flags().StringVar(&opts.ReplayPath, "replay", "", "replay a capture log instead of opening live streams")
	cmd.Flags().Float64Var(&opts.ReplaySpeed, "speed", 1, "replay speed multiplier (0 = as fast as possible)")
	cmd.Flags().BoolVar(&opts.ReplayLoop, "loop", false, "restart the replay when it ends")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var opts decodeOptions
	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode a raw byte dump or capture log and print JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := decodeFile(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"protocol": opts.Protocol, "records": n}).Debug("decode done")
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Protocol, "protocol", "p", "nmea", "nmea, ais, javad or unicore")
	cmd.Flags().BoolVar(&opts.Capture, "capture", false, "input is a capture log rather than raw bytes")
	cmd.Flags().StringVar(&opts.Source, "source", "", "with --capture, only decode chunks from this source")
	return cmd
}

func runDaemon(parent context.Context, opts runOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logs := web.NewLogBuffer(cfg.Log.BufferLines)
	closer, err := logging.Apply(logrus.StandardLogger(), cfg.Log, logs)
	if err != nil {
		return err
	}
	defer closer.Close()
	log := logrus.WithField("component", "runtime")

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	status := web.NewStatus()
	hub := web.NewBroadcaster()
	pubs := publish.Multi{hub}
	defer func() { pubs.Close() }()
	if cfg.MQTT.Enable {
		m, err := publish.NewMQTT(publish.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Timeout:     cfg.MQTT.Timeout,
		}, logrus.StandardLogger())
		if err != nil {
			return err
		}
		pubs = append(pubs, m)
	}
	if cfg.UDP.Enable {
		u, err := publish.NewUDP(cfg.UDP.Dest)
		if err != nil {
			return err
		}
		pubs = append(pubs, u)
		log.WithField("dest", cfg.UDP.Dest).Info("udp output enabled")
	}

	var rec *capture.Writer
	if cfg.Capture.Enable && opts.ReplayPath == "" {
		rec, err = capture.CreateWriter(cfg.Capture.Path)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		defer rec.Close()
		log.WithField("path", cfg.Capture.Path).Info("capturing raw input")
	}

	rt, err := newRuntime(cfg, logrus.StandardLogger(), status, pubs, rec)
	if err != nil {
		return err
	}
	rt.startUnicore(ctx)
	defer rt.close()

	if opts.ReplayPath != "" {
		if err := startReplay(ctx, rt, opts); err != nil {
			return err
		}
	} else if err := rt.startStreams(ctx); err != nil {
		return err
	}

	if cfg.Web.Enable {
		go func() {
			err := web.Serve(ctx, cfg.Web.Listen, web.Handler(status, logs, hub))
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("web server stopped")
				cancel()
			}
		}()
		log.WithField("listen", cfg.Web.Listen).Info("web enabled")
	}

	log.Info("navstream starting")
	rt.loop(ctx)
	log.Info("navstream stopping")
	return nil
}

func startReplay(ctx context.Context, rt *runtime, opts runOptions) error {
	f, err := os.Open(opts.ReplayPath)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	recs, err := capture.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("replay %s: %w", opts.ReplayPath, err)
	}
	go func() {
		if err := capture.Play(ctx, recs, opts.ReplaySpeed, opts.ReplayLoop, nil, rt.dispatch); err != nil {
			rt.log.WithError(err).Error("replay failed")
		}
		if !opts.ReplayLoop {
			rt.log.Info("replay finished")
		}
	}()
	return nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logrus.Fatal(err)
	}
}
