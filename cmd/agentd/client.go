package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"agentd/pkg/types"
)

const defaultDaemonAddr = "http://127.0.0.1:8090"

func daemonClient(cmd *cobra.Command) *resty.Client {
	addr, _ := cmd.Flags().GetString("addr")
	return resty.New().SetBaseURL(normalizeAddr(addr)).SetTimeout(5 * time.Minute)
}

// normalizeAddr turns a listen-style address like ":8090" or "host:8090"
// into a base URL.
func normalizeAddr(addr string) string {
	if addr == "" {
		return defaultDaemonAddr
	}
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		return "http://" + addr
	}
	return addr
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the running daemon a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out types.ChatResponse
			var apiErr types.ErrorResponse
			resp, err := daemonClient(cmd).R().
				SetBody(types.ChatRequest{Query: strings.Join(args, " ")}).
				SetResult(&out).
				SetError(&apiErr).
				Post("/chat")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("daemon: %s (%d)", apiErr.Error, apiErr.Code)
			}
			fmt.Println(out.Response)
			if out.RequiresConfirmation {
				fmt.Printf("warning: response mentions blocked actions %v\n", out.DangerKeywords)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's component status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out types.StatusResponse
			var apiErr types.ErrorResponse
			resp, err := daemonClient(cmd).R().
				SetResult(&out).
				SetError(&apiErr).
				Get("/status")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("daemon: %s (%d)", apiErr.Error, apiErr.Code)
			}
			fmt.Printf("uptime: %ds  resident: %d components, ~%d MB\n",
				out.UptimeSeconds, out.ResidentCount, out.ResidentEstMB)
			for _, c := range out.Components {
				fmt.Printf("  %-18s %-10s idle %4ds  used %d times\n",
					c.Name, c.State, c.IdleSeconds, c.AccessCount)
			}
			if out.System != nil {
				fmt.Printf("host: %s, %d cpus, mem %.0f%% used\n",
					out.System.Platform, out.System.CPUCount, out.System.MemoryUsedPercent)
			}
			return nil
		},
	}
}
