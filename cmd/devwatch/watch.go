package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/pkg/models"
	"github.com/HerbHall/devwatch/pkg/wsclient"
)

func newWatchCmd(configPath *string) *cobra.Command {
	var url, apiURL string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow live device status from a running devwatch server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			settings, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if url == "" {
				url = settings.Client.URL
			}
			if apiURL == "" {
				apiURL = settings.Client.APIURL
			}

			out := cmd.OutOrStdout()
			m := wsclient.New(url,
				wsclient.WithReconnectDelay(settings.Client.ReconnectDelay),
				wsclient.WithLogger(logger.Named("wsclient")),
			)

			httpClient := &http.Client{Timeout: 10 * time.Second}
			resync := func() {
				devices, err := wsclient.FetchDevices(ctx, httpClient, apiURL)
				if err != nil {
					logger.Warn("resync failed", zap.Error(err))
					return
				}
				m.Seed(devices)
				printSnapshot(out, devices)
			}

			// Status callbacks run on the Run goroutine; resyncing there
			// finishes before the first frame is read.
			m.OnStatus(func(s wsclient.Status) {
				fmt.Fprintf(out, "[%s] %s\n", time.Now().Format(time.TimeOnly), s)
				if s == wsclient.StatusConnected {
					resync()
				}
			})
			m.OnUpdate(func(c models.StatusChange) {
				name := c.DeviceID
				if d, ok := m.Device(c.DeviceID); ok {
					name = d.Name
				}
				fmt.Fprintf(out, "[%s] %-24s %s\n", c.LastSeen.Local().Format(time.TimeOnly), name, statusWord(c.IsOnline))
			})

			return m.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "WebSocket URL of the push endpoint (default client.url)")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "base URL of the resync API (default client.api_url)")
	return cmd
}

func printSnapshot(w io.Writer, devices []models.Device) {
	online := 0
	for _, d := range devices {
		if d.IsOnline {
			online++
		}
	}
	fmt.Fprintf(w, "%d devices, %d online\n", len(devices), online)
	for _, d := range devices {
		fmt.Fprintf(w, "  %-24s %-16s %s\n", d.Name, d.Address, statusWord(d.IsOnline))
	}
}

func statusWord(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
