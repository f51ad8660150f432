// lanfleetctl is an operator CLI that drives the controller's REST API:
// listing connected agents and issuing sysinfo/software/install/uninstall
// requests against them.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) get(path string, out any) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *client) post(path string, body any) error {
	return c.do(http.MethodPost, path, body, nil)
}

func (c *client) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, string(payload))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:   "lanfleetctl",
		Short: "lanfleetctl — operator CLI for the lanfleet controller",
	}
	root.PersistentFlags().StringVar(&server, "server", envOrDefault("LANFLEETCTL_SERVER", "http://localhost:8080"), "controller REST API base URL")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newListCmd(&server))
	root.AddCommand(newGetCmd(&server))
	root.AddCommand(newSysInfoCmd(&server))
	root.AddCommand(newSoftwareCmd(&server))
	root.AddCommand(newInstallCmd(&server))
	root.AddCommand(newUninstallCmd(&server))

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lanfleetctl %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func newListCmd(server *string) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List currently connected agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Data struct {
					Items []map[string]any `json:"items"`
					Total int              `json:"total"`
					Page  struct {
						Limit  int `json:"limit"`
						Offset int `json:"offset"`
					} `json:"page"`
				} `json:"data"`
			}
			path := fmt.Sprintf("/api/v1/clients?limit=%d&offset=%d", limit, offset)
			if err := newClient(*server).get(path, &resp); err != nil {
				return err
			}
			return printJSON(resp.Data)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of agents to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of agents to skip")

	return cmd
}

func newGetCmd(server *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <client-id>",
		Short: "Show one connected agent's identity and liveness state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Data map[string]any `json:"data"`
			}
			if err := newClient(*server).get("/api/v1/clients/"+args[0], &resp); err != nil {
				return err
			}
			return printJSON(resp.Data)
		},
	}
}

func newSysInfoCmd(server *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sysinfo <client-id>",
		Short: "Request the agent's system inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(*server).post("/api/v1/clients/"+args[0]+"/sysinfo", nil)
		},
	}
}

func newSoftwareCmd(server *string) *cobra.Command {
	return &cobra.Command{
		Use:   "software <client-id>",
		Short: "Request the agent's installed-software list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(*server).post("/api/v1/clients/"+args[0]+"/software", nil)
		},
	}
}

func newInstallCmd(server *string) *cobra.Command {
	var filePath, installArgs string

	cmd := &cobra.Command{
		Use:   "install <client-id>",
		Short: "Push and install a software package on the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(*server).post("/api/v1/clients/"+args[0]+"/install", map[string]string{
				"filePath": filePath,
				"args":     installArgs,
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path on the controller's filesystem to the installer package (required)")
	cmd.Flags().StringVar(&installArgs, "args", "", "silent-install arguments passed to the installer")
	cmd.MarkFlagRequired("file") //nolint:errcheck

	return cmd
}

func newUninstallCmd(server *string) *cobra.Command {
	var name, uninstallCmd string

	cmd := &cobra.Command{
		Use:   "uninstall <client-id>",
		Short: "Trigger an uninstall of a software package on the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(*server).post("/api/v1/clients/"+args[0]+"/uninstall", map[string]string{
				"name":         name,
				"uninstallCmd": uninstallCmd,
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name of the software to uninstall")
	cmd.Flags().StringVar(&uninstallCmd, "uninstall-cmd", "", "uninstall command string reported by the agent's software inventory (required)")
	cmd.MarkFlagRequired("uninstall-cmd") //nolint:errcheck

	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
