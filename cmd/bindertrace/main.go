// Command bindertrace attaches to the Binder ioctl tracer and logs every
// framed record it receives. It never attempts transaction reconstruction
// or Binder object decoding; see bindertrace.Record's doc comment for why.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	bindertrace "github.com/ehrlich-b/go-bindertrace"
	"github.com/ehrlich-b/go-bindertrace/internal/logging"
)

func main() {
	objectPath := flag.String("object", "", "path to the compiled bpf/binder.bpf.c object (default: bpf/binder.bpf.o)")
	mapName := flag.String("map", "", "name of the ring-buffer map to read (default: binder_events_buffer)")
	verbose := flag.Bool("verbose", false, "log every decoded record instead of just periodic metrics")
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	log := logging.NewLogger(logConfig)
	logging.SetDefault(log)

	cfg := bindertrace.DefaultConfig()
	if *objectPath != "" {
		cfg.ObjectPath = *objectPath
	}
	if *mapName != "" {
		cfg.MapName = *mapName
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := bindertrace.NewMetrics()
	observer := bindertrace.NewMetricsObserver(metrics)

	tracer, err := bindertrace.Attach(ctx, cfg, bindertrace.Options{Logger: log, Observer: observer})
	if err != nil {
		log.Error("attach failed", "err", err)
		os.Exit(1)
	}
	defer tracer.Close()

	log.Info("attached", "object", cfg.ObjectPath, "map", cfg.MapName)

	summaryTicker := time.NewTicker(10 * time.Second)
	defer summaryTicker.Stop()

	for {
		select {
		case rec, ok := <-tracer.Events():
			if !ok {
				drainErr(tracer, log)
				return
			}
			if *verbose {
				log.Debug("record",
					"type", rec.Header.Type.String(),
					"pid", rec.Header.Pid,
					"tid", rec.Header.Tid,
					"ts", rec.Header.Timestamp,
					"tail_bytes", len(rec.Tail),
				)
			}
		case <-summaryTicker.C:
			snap := tracer.MetricsSnapshot()
			log.Info(fmt.Sprintf("events=%d invalid=%d truncated=%d drops=%d process_exits=%d",
				snap.TotalEvents, snap.InvalidTransitions, snap.Truncations, snap.Drops, snap.ProcessExits))
		case <-ctx.Done():
			log.Info("shutting down")
			return
		}
	}
}

func drainErr(tracer *bindertrace.Tracer, log *logging.Logger) {
	select {
	case err := <-tracer.Errs():
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("ring buffer closed", "err", err)
		}
	default:
	}
}
