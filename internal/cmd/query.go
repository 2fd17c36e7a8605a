package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gatepace/gatepace/internal/config"
	"github.com/gatepace/gatepace/internal/core"
	"github.com/gatepace/gatepace/internal/core/gateway"
	"github.com/gatepace/gatepace/internal/metrics"
	"github.com/gatepace/gatepace/internal/observability"
	"github.com/gatepace/gatepace/internal/output"
)

var queryCmd = &cobra.Command{
	Use:   "query <api> <target>",
	Short: "Execute one rate-limited query against a named API",
	Long: `Execute a single query against a registered API, honoring its pacing
configuration, the response cache, and the retry budget.`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringArrayP("param", "P", nil, "request parameter as key=value (repeatable)")
	queryCmd.Flags().StringArrayP("header", "H", nil, "request header as key=value (repeatable)")
	queryCmd.Flags().StringP("method", "X", http.MethodGet, "HTTP method")
	queryCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	queryCmd.Flags().Bool("no-cache", false, "Skip cache lookup and write")
}

func runQuery(cmd *cobra.Command, args []string) error {
	apiName := strings.TrimSpace(args[0])
	target := strings.TrimSpace(args[1])

	params, err := keyValueFlag(cmd, "param")
	if err != nil {
		return err
	}
	headers, err := keyValueFlag(cmd, "header")
	if err != nil {
		return err
	}
	method, err := cmd.Flags().GetString("method")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
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

	result := g.Query(ctx, gateway.Request{
		API:      apiName,
		Target:   target,
		Method:   method,
		Params:   params,
		Headers:  headers,
		UseCache: !noCache,
	})

	rendered, err := output.NewFormatter(format).FormatResults([]*core.Result{result})
	if err != nil {
		return err
	}
	fmt.Println(rendered)

	if format != output.FormatJSON {
		observability.Logger().Info("query finished",
			zap.String("api", apiName),
			zap.Bool("success", result.Success),
			zap.Int("attempts", result.Attempts),
			zap.Duration("elapsed", time.Since(startedAt)))
	}

	if !result.Success {
		return fmt.Errorf("query failed: %s", result.Detail)
	}
	return nil
}

// keyValueFlag parses repeatable key=value flags into a map.
func keyValueFlag(cmd *cobra.Command, name string) (map[string]string, error) {
	values, err := cmd.Flags().GetStringArray(name)
	if err != nil {
		return nil, err
	}
	return parseKeyValues(values)
}

func parseKeyValues(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	parsed := make(map[string]string, len(values))
	for _, value := range values {
		key, val, found := strings.Cut(value, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid key=value pair: %q", value)
		}
		parsed[key] = strings.TrimSpace(val)
	}
	return parsed, nil
}
