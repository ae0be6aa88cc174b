package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/infrastructure/config"
	"github.com/iho/gobooks/internal/infrastructure/logger"
	"github.com/iho/gobooks/internal/infrastructure/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// apiClient talks to the gobooks HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// apiError is a non-2xx API response.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.Status, strings.TrimSpace(e.Body))
}

func (c *apiClient) do(method, path string, query url.Values, body any) ([]byte, error) {
	u := strings.TrimRight(c.baseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &apiError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func newRootCmd() *cobra.Command {
	var (
		baseURL string
		token   string
		timeout time.Duration
	)

	client := &apiClient{}

	rootCmd := &cobra.Command{
		Use:           "gobooks-cli",
		Short:         "GoBooks CLI tool",
		Long:          `A command line interface for the GoBooks ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client.baseURL = baseURL
			client.token = token
			client.http = &http.Client{Timeout: timeout}
		},
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the GoBooks API")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("GOBOOKS_TOKEN"), "Bearer token (defaults to $GOBOOKS_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(
		ledgerCmd(client),
		importCmd("accounts", client, func() any { return &dto.ImportAccountsRequest{} }),
		importCmd("partners", client, func() any { return &dto.ImportPartnersRequest{} }),
		closingCmd(client),
		reportCmd(client),
		migrateCmd(),
	)

	return rootCmd
}

func ledgerCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check that posted debits equal posted credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := client.do(http.MethodGet, "/api/v1/ledger/consistency", nil, nil)
			if err != nil {
				return err
			}

			var report struct {
				TotalDebit  string            `json:"total_debit"`
				TotalCredit string            `json:"total_credit"`
				Unbalanced  []json.RawMessage `json:"unbalanced"`
				Consistent  bool              `json:"consistent"`
			}
			if err := json.Unmarshal(raw, &report); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total debit:  %s\n", report.TotalDebit)
			fmt.Fprintf(out, "Total credit: %s\n", report.TotalCredit)
			if !report.Consistent {
				fmt.Fprintf(out, "Consistency check FAILED: %d unbalanced entries\n", len(report.Unbalanced))
				return errors.New("ledger is inconsistent")
			}
			fmt.Fprintln(out, "Consistency check PASSED")
			return nil
		},
	})

	return cmd
}

// importCmd posts a YAML or JSON file to the resource's import endpoint.
func importCmd(resource string, client *apiClient, newBody func() any) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   resource,
		Short: "Manage " + resource,
	}

	importSub := &cobra.Command{
		Use:   "import <file>",
		Short: "Import " + resource + " from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := newBody()
			if err := readDocument(args[0], body); err != nil {
				return err
			}

			raw, err := client.do(http.MethodPost, "/api/v1/"+resource+"/import", url.Values{"mode": {mode}}, body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	importSub.Flags().StringVar(&mode, "mode", "upsert", "Import mode: upsert or insert_only")

	cmd.AddCommand(importSub)
	return cmd
}

// readDocument decodes a YAML (.yaml, .yml) or JSON file into dst.
func readDocument(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, dst)
	default:
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func closingCmd(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "closing",
		Short: "Year-end closing",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status <year>",
		Short: "Show closing status of a fiscal year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			raw, err := client.do(http.MethodGet, "/api/v1/closing/"+strconv.Itoa(year), nil, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	})

	var (
		req  dto.YearEndClosingRequest
		date string
		memo string
	)
	run := &cobra.Command{
		Use:   "run <year>",
		Short: "Close a fiscal year into retained earnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			if date != "" {
				req.Date = &date
			}
			if memo != "" {
				req.Memo = &memo
			}
			raw, err := client.do(http.MethodPost, "/api/v1/closing/"+strconv.Itoa(year), nil, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	run.Flags().StringVar(&req.RetainedEarningsAccountID, "retained-earnings", "", "Retained earnings account ID")
	run.Flags().BoolVar(&req.GenerateOpening, "opening", false, "Also generate the next year's opening entry")
	run.Flags().StringVar(&date, "date", "", "Closing date (YYYY-MM-DD, defaults to December 31)")
	run.Flags().StringVar(&memo, "memo", "", "Closing entry memo")
	_ = run.MarkFlagRequired("retained-earnings")

	cmd.AddCommand(run)
	return cmd
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil || year < 1 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}

var reportNames = []string{
	"trial-balance", "income-statement", "balance-sheet", "cash-flow", "equity-statement",
	"worksheet", "subledger", "subledger/detail", "ledger", "charts",
}

func reportCmd(client *apiClient) *cobra.Command {
	var (
		from   string
		to     string
		asOf   string
		params map[string]string
	)

	cmd := &cobra.Command{
		Use:       "report <name>",
		Short:     "Build a financial report",
		Long:      "Build a financial report. Names: " + strings.Join(reportNames, ", "),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: reportNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			for k, v := range params {
				query.Set(k, v)
			}
			for k, v := range map[string]string{"from": from, "to": to, "as_of": asOf} {
				if v != "" {
					query.Set(k, v)
				}
			}

			raw, err := client.do(http.MethodGet, "/api/v1/reports/"+args[0], query, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Period end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Balance sheet date (YYYY-MM-DD)")
	cmd.Flags().StringToStringVar(&params, "param", nil, "Extra query parameters, e.g. --param grouping=hierarchy")

	return cmd
}

func migrateCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations against DATABASE_URL",
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load configuration from this env file")

	migrator := func() (*postgres.Migrator, error) {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		cfg, err := config.Load(files...)
		if err != nil {
			return nil, err
		}
		log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Output: os.Stderr})
		return postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}
				return m.Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}
				return m.Down()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			},
		},
	)

	return cmd
}

// printJSON writes raw indented, or verbatim when it is not JSON.
func printJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = w.Write(raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
