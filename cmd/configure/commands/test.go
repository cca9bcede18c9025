package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/benvon/corsgate/internal/cors"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var gatewayURL, origin, method, headers string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a CORS preflight to a running gateway",
		Long:  "Send an OPTIONS preflight with the given Origin to a gateway and report the CORS response headers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gatewayURL == "" || origin == "" {
				return fmt.Errorf("--url and --origin are required")
			}
			client := &http.Client{Timeout: 10 * time.Second}
			return runPreflight(client, cmd.OutOrStdout(), gatewayURL, origin, method, headers)
		},
	}

	cmd.Flags().StringVar(&gatewayURL, "url", "", "Gateway URL to probe, e.g. http://localhost:8080/api (required)")
	cmd.Flags().StringVar(&origin, "origin", "", "Origin to send (required)")
	cmd.Flags().StringVar(&method, "method", http.MethodGet, "Access-Control-Request-Method to send")
	cmd.Flags().StringVar(&headers, "headers", "", "Access-Control-Request-Headers to send")

	return cmd
}

// runPreflight reports an error when the gateway does not allow origin.
func runPreflight(client *http.Client, out io.Writer, gatewayURL, origin, method, headers string) error {
	req, err := http.NewRequest(http.MethodOptions, gatewayURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(cors.HeaderOrigin, origin)
	req.Header.Set("Access-Control-Request-Method", method)
	if headers != "" {
		req.Header.Set("Access-Control-Request-Headers", headers)
	}

	_, _ = fmt.Fprintf(out, "Testing preflight: OPTIONS %s (Origin: %s)\n", gatewayURL, origin)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
		}
	}()

	_, _ = fmt.Fprintf(out, "Status: %d\n", resp.StatusCode)
	for _, h := range []string{
		cors.HeaderAllowOrigin,
		cors.HeaderAllowMethods,
		cors.HeaderAllowHeaders,
		cors.HeaderAllowCredentials,
		cors.HeaderMaxAge,
		cors.HeaderVary,
	} {
		if v := resp.Header.Get(h); v != "" {
			_, _ = fmt.Fprintf(out, "  %s: %s\n", h, v)
		}
	}

	allowed := resp.Header.Get(cors.HeaderAllowOrigin)
	if resp.StatusCode >= 300 || (allowed != origin && allowed != cors.Wildcard) {
		return fmt.Errorf("origin %s is not allowed by the gateway", origin)
	}
	if headers != "" && !coversHeaders(resp.Header.Get(cors.HeaderAllowHeaders), headers) {
		_, _ = fmt.Fprintf(out, "! Requested headers %q are not all listed in %s\n", headers, cors.HeaderAllowHeaders)
	}
	_, _ = fmt.Fprintln(out, "✓ Preflight allowed")
	return nil
}

func coversHeaders(allowed, requested string) bool {
	set := make(map[string]bool)
	for _, h := range strings.Split(allowed, ",") {
		set[strings.ToLower(strings.TrimSpace(h))] = true
	}
	for _, h := range strings.Split(requested, ",") {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" && !set[h] {
			return false
		}
	}
	return true
}
