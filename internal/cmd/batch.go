package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gatepace/gatepace/internal/config"
	"github.com/gatepace/gatepace/internal/core"
	"github.com/gatepace/gatepace/internal/core/gateway"
	"github.com/gatepace/gatepace/internal/metrics"
	"github.com/gatepace/gatepace/internal/observability"
	"github.com/gatepace/gatepace/internal/output"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Execute queries from a file",
	Long: `Read queries from a JSON Lines file and execute them concurrently.

Each line is one request object:
  {"api": "petstore", "target": "https://api.example.com/pets", "params": {"limit": "10"}}

Blank lines and lines starting with # are skipped. Per-API pacing and
concurrency bounds hold across the whole batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	batchCmd.Flags().Bool("no-cache", false, "Skip cache lookup and write")
	batchCmd.Flags().Bool("failed-only", false, "Only show failed queries")
	batchCmd.Flags().Int("concurrency", 4, "Concurrent queries")
}

// batchRequest is one line of the batch file.
type batchRequest struct {
	API      string            `json:"api"`
	Target   string            `json:"target"`
	Method   string            `json:"method,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	UseCache *bool             `json:"use_cache,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	failedOnly, err := cmd.Flags().GetBool("failed-only")
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	if concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}

	requests, err := readBatchRequests(args[0])
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return errors.New("no requests found in batch file")
	}

	cfg := config.GetConfig()
	if cfg == nil {
		return errors.New("config not loaded")
	}

	ctx := cmd.Context()
	startedAt := time.Now()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	limiter, err := buildLimiter(cfg)
	if err != nil {
		return err
	}
	restoreLimiterState(ctx, db, limiter)
	defer persistLimiterState(ctx, db, limiter)

	g := buildGateway(cfg, db, limiter, metrics.NewCollector())

	results := make([]*core.Result, len(requests))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(concurrency)

	for i, req := range requests {
		i, req := i, req
		grp.Go(func() error {
			useCache := !noCache
			if req.UseCache != nil {
				useCache = *req.UseCache && !noCache
			}
			results[i] = g.Query(grpCtx, gateway.Request{
				API:      req.API,
				Target:   req.Target,
				Method:   req.Method,
				Params:   req.Params,
				Headers:  req.Headers,
				UseCache: useCache,
			})
			return nil
		})
	}
	// Workers never return errors; failures live in the results.
	_ = grp.Wait()

	shown := results
	if failedOnly {
		shown = make([]*core.Result, 0, len(results))
		for _, result := range results {
			if result != nil && !result.Success {
				shown = append(shown, result)
			}
		}
	}

	rendered, err := output.NewFormatter(format).FormatResults(shown)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rendered) != "" {
		fmt.Println(rendered)
	}

	failed := 0
	for _, result := range results {
		if result == nil || !result.Success {
			failed++
		}
	}

	if format != output.FormatJSON {
		observability.Logger().Info("batch finished",
			zap.Int("requests", len(requests)),
			zap.Int("failed", failed),
			zap.Duration("elapsed", time.Since(startedAt)))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(requests))
	}
	return nil
}

func readBatchRequests(path string) ([]batchRequest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer file.Close() // nolint:errcheck // read-only file

	var requests []batchRequest
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var req batchRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, fmt.Errorf("batch file line %d: %w", lineNo, err)
		}
		if strings.TrimSpace(req.API) == "" || strings.TrimSpace(req.Target) == "" {
			return nil, fmt.Errorf("batch file line %d: api and target are required", lineNo)
		}
		requests = append(requests, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	return requests, nil
}
