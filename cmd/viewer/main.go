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

	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/viewer"
)

func main() {
	server := flag.String("s", "http://127.0.0.1:8080", "sync API base URL")
	interval := flag.Int("i", 5, "poll interval (in seconds)")
	flag.Parse()

	code := flag.Arg(0)
	if code == "" {
		fmt.Fprintln(os.Stderr, "usage: viewer [-s url] [-i seconds] PAIR-CODE")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	client := viewer.NewClient(*server)
	ticker := time.NewTicker(time.Duration(*interval) * time.Second)
	defer ticker.Stop()

	for {
		render(ctx, client, code)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func render(ctx context.Context, client *viewer.Client, code string) {
	state, err := client.ShiftState(ctx, code)
	switch {
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrInvalidPairCode):
		fmt.Printf("shift not found for code %q\n", code)
		return
	case err != nil:
		// Transient failure: keep polling, last known state stands.
		fmt.Printf("fetch failed (%v), retrying...\n", err)
		return
	}

	status := "ACTIVE"
	if !state.Active {
		status = "ENDED"
	}
	fmt.Printf("[%s] %s @ %s - %s | locations: %d, photos: %d, notes: %d\n",
		time.Now().Format("15:04:05"), state.StaffName, state.SiteName, status,
		len(state.Locations), len(state.Photos), len(state.Notes))
	if n := len(state.Locations); n > 0 {
		last := state.Locations[n-1]
		fmt.Printf("  last fix: %.5f,%.5f at %s %s\n",
			last.Latitude, last.Longitude, last.Timestamp.Format(time.RFC3339), last.Address)
	}
}
