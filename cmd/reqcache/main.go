// Package main provides a tool to exercise request coalescing against a live URL.
package main

import (
	"context"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bool64/stats"
	"github.com/spf13/cobra"
	"github.com/vearutop/reqcache"
	"github.com/vearutop/reqcache/httptransport"
)

type flags struct {
	concurrency int
	rounds      int
	pause       time.Duration
	ttl         time.Duration
	timeout     time.Duration
	bypass      []string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reqcache",
		Short: "Coalescing request cache load tool",
	}

	root.AddCommand(getCmd())

	return root
}

func getCmd() *cobra.Command {
	f := flags{}

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Send concurrent identical GET requests through a coalescer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], f)
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.concurrency, "concurrency", "c", 10, "concurrent requests per round")
	fl.IntVarP(&f.rounds, "rounds", "r", 1, "number of rounds")
	fl.DurationVar(&f.pause, "pause", time.Second, "pause between rounds")
	fl.DurationVar(&f.ttl, "ttl", 0, "global time to live of responses")
	fl.DurationVar(&f.timeout, "timeout", 10*time.Second, "upstream request timeout")
	fl.StringSliceVar(&f.bypass, "bypass", nil, "URL patterns to bypass cache")

	return cmd
}

func run(cmd *cobra.Command, u string, f flags) error {
	st := &stats.TrackerMock{}

	c, err := reqcache.New(reqcache.Config{
		Name:           "cli",
		Transport:      httptransport.New(&http.Client{Timeout: f.timeout}),
		BypassPatterns: f.bypass,
		GlobalTTL:      f.ttl,
		Stats:          st,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	req := &reqcache.Request{Method: http.MethodGet, URL: u}

	for r := 0; r < f.rounds; r++ {
		if r > 0 {
			time.Sleep(f.pause)
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			failures int
			sources  = map[string]int{}
		)

		wg.Add(f.concurrency)

		for i := 0; i < f.concurrency; i++ {
			go func() {
				defer wg.Done()

				fut := c.Handle(ctx, req)
				_, err := fut.Wait(ctx)

				mu.Lock()
				defer mu.Unlock()

				sources[fut.Source().String()]++

				if err != nil {
					failures++
				}
			}()
		}

		wg.Wait()

		cmd.Printf("round %d: %v, failures: %d\n", r+1, sources, failures)
	}

	values := st.Values()
	names := make([]string, 0, len(values))

	for name := range values {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		cmd.Printf("%s: %v\n", name, values[name])
	}

	return nil
}
