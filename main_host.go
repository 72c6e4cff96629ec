package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kacchi/app"
	"kacchi/hal"
	"kacchi/kacchios/config"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "Path to a JSON boot configuration.")
		hz      = flag.Int("hz", 0, "Auto-tick rate; 0 means ticks only via the shell.")
		ticks   = flag.Uint64("ticks", 0, "Stop auto-ticking after N ticks (0 = no limit).")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error("boot config", "err", err)
		os.Exit(1)
	}

	h := hal.NewHost()
	sys, err := app.New(h, cfg)
	if err != nil {
		log.Error("boot", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		sys.Shell.Run()
		return nil
	})

	if *hz > 0 {
		g.Go(func() error {
			t := time.NewTicker(time.Second / time.Duration(*hz))
			defer t.Stop()
			var n uint64
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					sys.Tick()
					n++
					if *ticks > 0 && n >= *ticks {
						return nil
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("run", "err", err)
		os.Exit(1)
	}
}
