package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Strob0t/CogniChat/internal/config"
)

// runCheck verifies that every dependency the server needs is reachable and
// prints one line per check. It fails if any check fails.
func runCheck(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
	report := func(name string, err error, ok string) bool {
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s\tFAIL\t%v\n", name, err)
			return false
		}
		_, _ = fmt.Fprintf(w, "%s\tok\t%s\n", name, ok)
		return true
	}

	report("config", nil, fmt.Sprintf("store=%s embedding=%s", cfg.Store.Backend, cfg.Embedding.Provider))

	d, err := buildDeps(ctx, cfg)
	if !report("bootstrap", err, "adapters wired") {
		_ = w.Flush()
		return fmt.Errorf("check failed")
	}
	defer d.Close()

	healthy := true
	healthy = report("store", d.store.Ping(ctx), cfg.Store.Backend) && healthy

	vec, err := d.embed.Embed(ctx, "CogniChat bootstrap check")
	if err == nil && len(vec) != d.embed.Dimensions() {
		err = fmt.Errorf("got %d dimensions, want %d", len(vec), d.embed.Dimensions())
	}
	healthy = report("embedder", err, fmt.Sprintf("%d dimensions", d.embed.Dimensions())) && healthy
	healthy = report("identity", d.identity.Health(ctx), cfg.Identity.URL) && healthy

	if d.queue != nil {
		var qerr error
		if !d.queue.IsConnected() {
			qerr = fmt.Errorf("not connected")
		}
		healthy = report("nats", qerr, cfg.NATS.URL) && healthy
	}

	if err := w.Flush(); err != nil {
		return err
	}
	if !healthy {
		return fmt.Errorf("check failed")
	}
	return nil
}
