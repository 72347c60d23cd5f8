package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kalambet/signalboard/internal/config"
	"github.com/kalambet/signalboard/internal/export"
	"github.com/kalambet/signalboard/internal/model"
)

// --- cluster ---

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Assign posts to keyword clusters",
	Long: `Assign posts to keyword clusters.

Examples:
  signalboard cluster
  signalboard cluster --count 4 --strictness strict`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		strictness, _ := cmd.Flags().GetString("strictness")
		if count < 0 {
			return fmt.Errorf("--count must not be negative")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Clustering posts...")
		resp, err := client.post(cmd.Context(), "/clustering", map[string]any{
			"count":      count,
			"strictness": strictness,
		})
		if err != nil {
			return err
		}

		var result struct {
			Clusters      []model.Cluster `json:"clusters"`
			AssignedPosts int             `json:"assigned_posts"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, c := range result.Clusters {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
				colorize(colorCyan, c.ID), c.Label, c.PostCount, strings.Join(c.TopTerms, ", "))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		printSuccess("Generated %d clusters, %d posts assigned", len(result.Clusters), result.AssignedPosts)
		return nil
	},
}

func init() {
	clusterCmd.Flags().Int("count", 8, "maximum number of clusters (0 selects none)")
	clusterCmd.Flags().String("strictness", "medium", "matching strictness: loose, medium or strict")
}

// --- scenarios ---

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List, generate and review scenarios",
}

var scenariosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		cluster, _ := cmd.Flags().GetString("cluster")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		q := url.Values{}
		if status != "" {
			q.Set("status", status)
		}
		if cluster != "" {
			q.Set("cluster", cluster)
		}
		path := "/scenarios"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var scenarios []model.Scenario
		if err := decodeJSON(resp, &scenarios); err != nil {
			return err
		}
		if len(scenarios) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
			return nil
		}
		return printScenarios(cmd.OutOrStdout(), scenarios)
	},
}

var scenariosGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate scenarios for clusters (all clusters by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		clusters, _ := cmd.Flags().GetStringSlice("cluster")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		// An omitted cluster_ids selects every cluster; an empty one selects none.
		body := map[string]any{}
		if cmd.Flags().Changed("cluster") {
			body["cluster_ids"] = clusters
		}

		printStep("Generating scenarios...")
		resp, err := client.post(cmd.Context(), "/scenarios/generate", body)
		if err != nil {
			return err
		}
		var generated []model.Scenario
		if err := decodeJSON(resp, &generated); err != nil {
			return err
		}
		if err := printScenarios(cmd.OutOrStdout(), generated); err != nil {
			return err
		}
		printSuccess("Generated %d scenarios", len(generated))
		return nil
	},
}

var scenariosStatusCmd = &cobra.Command{
	Use:   "status <scenario-id> <status>",
	Short: `Set a scenario status ("New", "Selected", "In Production", "Published")`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		status, err := model.ParseStatus(args[1])
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/scenarios/"+url.PathEscape(id)+"/status", map[string]string{
			"status": string(status),
		})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Scenario %s is now %s", id, status)
		return nil
	},
}

var scenariosHooksCmd = &cobra.Command{
	Use:   "hooks <scenario-id>",
	Short: "Show hook variations for a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/scenarios/"+url.PathEscape(args[0])+"/hooks")
		if err != nil {
			return err
		}
		var v model.HookVariations
		if err := decodeJSON(resp, &v); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n  %s\n", colorize(colorBold, "Empathy"), v.Empathy)
		fmt.Fprintf(out, "%s\n  %s\n", colorize(colorBold, "Informative"), v.Informative)
		fmt.Fprintf(out, "%s\n  %s\n", colorize(colorBold, "Brand"), v.Brand)
		return nil
	},
}

var scenariosCuratedCmd = &cobra.Command{
	Use:   "curated",
	Short: "Show the curated multi-product scenarios, widest mix first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		minDiversity, _ := cmd.Flags().GetInt("min-diversity")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/scenarios/curated")
		if err != nil {
			return err
		}
		var curated []model.Scenario
		if err := decodeJSON(resp, &curated); err != nil {
			return err
		}

		curated = slices.DeleteFunc(curated, func(s model.Scenario) bool {
			return s.CategoryDiversity < minDiversity
		})
		slices.SortStableFunc(curated, func(a, b model.Scenario) int {
			return b.CategoryDiversity - a.CategoryDiversity
		})

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, s := range curated {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				colorize(colorCyan, s.ID), s.ClusterID, strings.Repeat("*", s.CategoryDiversity),
				truncate(s.Title, 60), strings.Join(s.ProductNames(), ", "))
		}
		return tw.Flush()
	},
}

func printScenarios(w io.Writer, scenarios []model.Scenario) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range scenarios {
		names := make([]string, len(s.Products))
		for i, p := range s.Products {
			names[i] = p.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			colorize(colorCyan, s.ID), s.ClusterID, s.Status, truncate(s.Title, 60), strings.Join(names, ", "))
	}
	return tw.Flush()
}

func init() {
	scenariosListCmd.Flags().String("status", "", "only scenarios in this status")
	scenariosListCmd.Flags().String("cluster", "", "only scenarios for this cluster id")
	scenariosGenerateCmd.Flags().StringSlice("cluster", nil, "cluster id to generate for (repeatable)")
	scenariosCmd.AddCommand(scenariosListCmd)
	scenariosCmd.AddCommand(scenariosGenerateCmd)
	scenariosCmd.AddCommand(scenariosStatusCmd)
	scenariosCmd.AddCommand(scenariosHooksCmd)
	scenariosCuratedCmd.Flags().Int("min-diversity", 0, "hide scenarios rated below this diversity")
	scenariosCmd.AddCommand(scenariosCuratedCmd)
}

// --- export ---

var exportPaths = map[string]string{
	"posts":           "/export/posts.csv",
	"recommendations": "/export/recommendations.csv",
	"logs":            "/export/logs.csv",
}

var exportCmd = &cobra.Command{
	Use:       "export <posts|recommendations|logs>",
	Short:     "Download a CSV export",
	ValidArgs: []string{"posts", "recommendations", "logs"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		cluster, _ := cmd.Flags().GetString("cluster")

		path, err := exportPath(args[0], cluster)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		if output == "" || output == "-" {
			return copyBody(resp, cmd.OutOrStdout())
		}
		f, err := os.Create(output)
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		if err := copyBody(resp, f); err != nil {
			return err
		}
		printSuccess("Exported %s to %s", args[0], output)
		return nil
	},
}

// exportPath resolves an export kind to its API path. cluster narrows a
// posts export.
func exportPath(kind, cluster string) (string, error) {
	path, ok := exportPaths[kind]
	if !ok {
		return "", fmt.Errorf("unknown export %q (want posts, recommendations or logs)", kind)
	}
	if cluster != "" {
		if kind != "posts" {
			return "", fmt.Errorf("--cluster only applies to the posts export")
		}
		path += "?" + url.Values{"cluster": {cluster}}.Encode()
	}
	return path, nil
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file path (default: stdout)")
	exportCmd.Flags().String("cluster", "", "posts export only: restrict to a cluster id")
	exportCmd.Long = fmt.Sprintf(`Download a CSV export.

Default file names used by the dashboard: %s, %s, %s.

Examples:
  signalboard export posts --cluster C001 -o dog_hair.csv
  signalboard export recommendations -o %s`,
		export.PostsFilename, export.RecommendationsFilename, export.LogsFilename, export.RecommendationsFilename)
}

// --- logs ---

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect or clear the activity log",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent activity, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/logs?limit=%d", limit))
		if err != nil {
			return err
		}
		var events []model.LogEvent
		if err := decodeJSON(resp, &events); err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No activity recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range events {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Actor, colorize(colorBold, e.Action), e.Entity, truncate(e.Detail, 80))
		}
		return tw.Flush()
	},
}

var logsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single activity log event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/logs/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var e model.LogEvent
		if err := decodeJSON(resp, &e); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", colorize(colorBold, e.Action), colorize(colorCyan, e.ID))
		fmt.Fprintf(out, "  Time:   %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "  Actor:  %s\n", e.Actor)
		fmt.Fprintf(out, "  Entity: %s\n", e.Entity)
		fmt.Fprintf(out, "  Detail: %s\n", e.Detail)
		return nil
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all activity log events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete the whole activity log. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/logs")
		if err != nil {
			return err
		}
		var result struct {
			Cleared int64 `json:"cleared"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Cleared %d log events", result.Cleared)
		return nil
	},
}

func init() {
	logsListCmd.Flags().Int("limit", 20, "maximum number of events to list")
	logsClearCmd.Flags().Bool("confirm", false, "confirm log deletion")
	logsCmd.AddCommand(logsListCmd)
	logsCmd.AddCommand(logsShowCmd)
	logsCmd.AddCommand(logsClearCmd)
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show scenario statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/stats")
		if err != nil {
			return err
		}
		var s export.Summary
		if err := decodeJSON(resp, &s); err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), s)
		return nil
	},
}

func printSummary(w io.Writer, s export.Summary) {
	fmt.Fprintf(w, "%s %d\n", colorize(colorBold, "Scenarios:"), s.TotalScenarios)
	fmt.Fprintf(w, "%s %.1f\n", colorize(colorBold, "Avg products:"), s.AvgProducts)
	fmt.Fprintf(w, "%s %.1f\n", colorize(colorBold, "Avg diversity:"), s.AvgDiversity)
	fmt.Fprintf(w, "%s %.0f%%\n", colorize(colorBold, "Multi-product:"), s.MultiProductRate*100)
	if len(s.ByCluster) > 0 {
		fmt.Fprintln(w, colorize(colorBold, "By cluster:"))
		for _, c := range s.ByCluster {
			fmt.Fprintf(w, "  %-24s %d\n", c.Name, c.Count)
		}
	}
	if len(s.TopProducts) > 0 {
		fmt.Fprintln(w, colorize(colorBold, "Top products:"))
		for _, c := range s.TopProducts {
			fmt.Fprintf(w, "  %-24s %d\n", c.Name, c.Count)
		}
	}
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configSetCmd.Long = "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", ")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
