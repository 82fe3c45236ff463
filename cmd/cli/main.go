package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nickyhof/ZeroTrustDB"
	"github.com/nickyhof/ZeroTrustDB/audit"
	"github.com/nickyhof/ZeroTrustDB/auth"
	"github.com/nickyhof/ZeroTrustDB/config"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/nickyhof/ZeroTrustDB/db"
	"github.com/spf13/cobra"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

type globals struct {
	configPath string
	color      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "zerotrustdb",
		Short:         "Encrypted table store with verifiable results",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().BoolVar(&g.color, "color", true, "Colorize section headings")

	cmd.AddCommand(
		newDemoCommand(g),
		newLogsCommand(g),
		newTokenCommand(g),
	)
	return cmd
}

func (g *globals) loadConfig() (config.Config, error) {
	if g.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(g.configPath)
}

func (g *globals) heading(w io.Writer, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if g.color {
		text = BoldColor + PromptColor + text + ResetColor
	}
	fmt.Fprintf(w, "\n%s\n", text)
}

func newDemoCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the demonstration workload and print each result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(g, func(engine *db.Engine) error {
				return runDemo(g, engine, cmd.OutOrStdout())
			})
		},
	}
}

func newLogsCommand(g *globals) *cobra.Command {
	var (
		action string
		table  string
		limit  int
		since  time.Duration
		push   bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Run the demonstration workload and print its audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := audit.Filter{Table: table, Limit: limit}
			if action != "" {
				parsed, err := audit.ParseAction(action)
				if err != nil {
					return err
				}
				filter.Action = parsed
			}
			if since > 0 {
				from := time.Now().Add(-since)
				filter.Since = &from
			}

			return withInstance(g, func(instance *ZeroTrustDB.Instance) error {
				engine := instance.DefaultEngine()
				if err := runDemo(g, engine, io.Discard); err != nil {
					return err
				}
				records, err := engine.FindLogs(filter)
				if err != nil {
					return err
				}
				renderLogs(cmd.OutOrStdout(), records)

				if push {
					pushed, err := instance.PushAudit()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "pushed audit ledger to %s at %s\n", instance.Config.Audit.Remote, pushed.Id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Only show records of this action")
	cmd.Flags().StringVar(&table, "table", "", "Only show records touching this table")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many records")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show records from this long ago onwards")
	cmd.Flags().BoolVar(&push, "push", false, "Push the audit ledger to audit.remote afterwards")
	return cmd
}

func newTokenCommand(g *globals) *cobra.Command {
	var (
		role   string
		ttl    time.Duration
		secret string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed role token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			parsed, err := core.ParseRole(role)
			if err != nil {
				return err
			}

			tokenConfig := cfg.TokenConfig()
			if secret != "" {
				tokenConfig.Secret = secret
			}

			token, err := auth.IssueToken(tokenConfig, parsed, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "reader", "Role carried by the token (admin|editor|reader)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime, 0 for no expiry")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret, overrides auth.secret")
	return cmd
}

func withInstance(g *globals, fn func(instance *ZeroTrustDB.Instance) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	instance, err := ZeroTrustDB.Open(cfg)
	if err != nil {
		return err
	}
	defer instance.Close()

	return fn(instance)
}

func withEngine(g *globals, fn func(engine *db.Engine) error) error {
	return withInstance(g, func(instance *ZeroTrustDB.Instance) error {
		return fn(instance.DefaultEngine())
	})
}

func runDemo(g *globals, engine *db.Engine, w io.Writer) error {
	if _, err := engine.CreateTable("users",
		core.IntColumn("user_id"), core.TextColumn("name"), core.IntColumn("age"), core.IntColumn("balance"),
	); err != nil {
		return err
	}
	if _, err := engine.CreateTable("orders",
		core.IntColumn("order_id"), core.IntColumn("user_id"), core.IntColumn("amount"),
	); err != nil {
		return err
	}

	inserts := []struct {
		table  string
		values []any
	}{
		{"users", []any{1, "Alice", 30, 100}},
		{"users", []any{2, "Bob", 25, 200}},
		{"users", []any{3, "Charlie", 35, 150}},
		{"orders", []any{101, 1, 50}},
		{"orders", []any{102, 2, 150}},
		{"orders", []any{103, 4, 30}},
	}
	for _, insert := range inserts {
		if _, err := engine.Insert(insert.table, insert.values...); err != nil {
			return err
		}
	}

	g.heading(w, "SELECT users WHERE balance >= 100")
	result, err := engine.Select("users", core.Where("balance", core.GreaterOrEqual, 100))
	if err != nil {
		return err
	}
	result.Render(w)
	printProofs(w, engine, result)

	g.heading(w, "SELECT users WHERE balance >= 100 (again)")
	result, err = engine.Select("users", core.Where("balance", core.GreaterOrEqual, 100))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "cached: %t\n", result.Cached)

	g.heading(w, "BEGIN; UPDATE users SET balance = 300 WHERE user_id = 1; ROLLBACK")
	if _, err := engine.BeginTransaction(); err != nil {
		return err
	}
	update, err := engine.Update("users", core.Where("user_id", core.Equal, 1), map[string]any{"balance": 300})
	if err != nil {
		return err
	}
	update.Render(w)
	fmt.Fprintf(w, "rolled back: %t\n", engine.Rollback())

	g.heading(w, "SELECT users WHERE balance = 100")
	result, err = engine.Select("users", core.Where("balance", core.Equal, 100))
	if err != nil {
		return err
	}
	result.Render(w)

	g.heading(w, "BEGIN; DELETE FROM users WHERE balance <= 150; COMMIT")
	if _, err := engine.BeginTransaction(); err != nil {
		return err
	}
	deleted, err := engine.Delete("users", core.Where("balance", core.LessOrEqual, 150))
	if err != nil {
		return err
	}
	deleted.Render(w)
	if err := engine.Commit(); err != nil {
		return err
	}

	g.heading(w, "SELECT users WHERE balance <= 150")
	result, err = engine.Select("users", core.Where("balance", core.LessOrEqual, 150))
	if err != nil {
		return err
	}
	result.Render(w)

	g.heading(w, "users INNER JOIN orders ON users.user_id = orders.user_id")
	joined, err := engine.Join("users", "orders", "user_id", "user_id", core.InnerJoin)
	if err != nil {
		return err
	}
	joined.Render(w)
	printProofs(w, engine, joined)

	g.heading(w, "SUM(orders.amount)")
	sum, err := engine.AggregateSum("orders", "amount")
	if err != nil {
		return err
	}
	sum.Render(w)
	fmt.Fprintf(w, "proof verified: %t\n", engine.VerifySum(sum))

	g.heading(w, "Audit log")
	records, err := engine.ViewLogs()
	if err != nil {
		return err
	}
	renderLogs(w, records)
	return nil
}

func printProofs(w io.Writer, engine *db.Engine, result db.QueryResult) {
	for i, row := range result.Rows {
		fmt.Fprintf(w, "  row %d proof %s verified=%t\n", i+1, row.Proof, engine.VerifyRow(row))
	}
	if result.ConditionProof != nil {
		fmt.Fprintf(w, "  condition proof %s\n", result.ConditionProof)
	}
}

func renderLogs(w io.Writer, records []audit.Record) {
	table := db.NewTable(w)
	table.Header([]string{"#", "Time", "Role", "Action", "Tables", "Condition", "Data"})
	for i, record := range records {
		condition := ""
		if record.Condition != nil {
			condition = record.Condition.String()
		}
		table.Row([]string{
			fmt.Sprintf("%d", i+1),
			record.Timestamp.Format(time.RFC3339),
			record.Role.String(),
			string(record.Action),
			strings.Join(record.Tables, ","),
			condition,
			truncate(record.DataHash, 16),
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d record(s)\n", len(records))
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
