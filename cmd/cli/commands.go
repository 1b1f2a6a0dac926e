package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/mauv0809/phasekeeper/internal/progression"
	"github.com/mauv0809/phasekeeper/internal/tournament"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(rulesetsCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(runCmd)

	rulesetsCmd.AddCommand(rulesetsListCmd, rulesetsGetCmd, rulesetsCreateCmd, rulesetsUpdateCmd, rulesetsDeleteCmd, rulesetsAssignCmd)
	for _, cmd := range []*cobra.Command{rulesetsCreateCmd, rulesetsUpdateCmd} {
		cmd.Flags().String("name", "", "Ruleset name")
		cmd.Flags().String("description", "", "Ruleset description")
		cmd.Flags().String("config", "", "Path to a JSON file holding the ruleset config")
		cmd.Flags().Bool("active", true, "Whether the ruleset is active")
	}
	rulesetsCreateCmd.MarkFlagRequired("name")
	rulesetsCreateCmd.MarkFlagRequired("config")

	for _, target := range []string{"phase", "match"} {
		previewCmd.AddCommand(newPreviewCmd(target))
		commitCmd.AddCommand(newCommitCmd(target))
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := doRequest(http.MethodGet, "/health", nil)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lifetime progression counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats map[string]int
		data, err := fetch(http.MethodGet, "/stats", nil, &stats)
		if err != nil {
			return err
		}
		if raw {
			printRaw(data)
			return nil
		}
		rows := make([][]string, 0, len(stats))
		for _, key := range sortedKeys(stats) {
			rows = append(rows, []string{key, strconv.Itoa(stats[key])})
		}
		fmt.Println(renderTable([]string{"Counter", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := doRequest(http.MethodGet, "/metrics", nil)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var rulesetsCmd = &cobra.Command{
	Use:   "rulesets",
	Short: "Manage progression rulesets",
}

var rulesetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rulesets",
	RunE: func(cmd *cobra.Command, args []string) error {
		var rulesets []tournament.Ruleset
		data, err := fetch(http.MethodGet, "/rulesets", nil, &rulesets)
		if err != nil {
			return err
		}
		if raw {
			printRaw(data)
			return nil
		}
		fmt.Println(renderRulesets(rulesets))
		return nil
	},
}

var rulesetsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one ruleset including its config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		data, err := doRequest(http.MethodGet, fmt.Sprintf("/rulesets/%d", id), nil)
		if err != nil {
			return err
		}
		printRaw(data)
		return nil
	},
}

var rulesetsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a ruleset from a config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := rulesetBody(cmd)
		if err != nil {
			return err
		}
		data, err := doRequest(http.MethodPost, "/rulesets", body)
		if err != nil {
			return err
		}
		printRaw(data)
		return nil
	},
}

var rulesetsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update the given fields of a ruleset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		body, err := rulesetBody(cmd)
		if err != nil {
			return err
		}
		data, err := doRequest(http.MethodPatch, fmt.Sprintf("/rulesets/%d", id), body)
		if err != nil {
			return err
		}
		printRaw(data)
		return nil
	},
}

var rulesetsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a ruleset and unlink it from its phases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if _, err := doRequest(http.MethodDelete, fmt.Sprintf("/rulesets/%d", id), nil); err != nil {
			return err
		}
		fmt.Printf("Deleted ruleset %d\n", id)
		return nil
	},
}

var rulesetsAssignCmd = &cobra.Command{
	Use:   "assign <phase-id> <ruleset-id|none>",
	Short: "Point a phase at a ruleset, or clear it with 'none'",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		phaseID, err := parseID(args[0])
		if err != nil {
			return err
		}
		body := map[string]any{"rulesetId": nil}
		if args[1] != "none" {
			rulesetID, err := parseID(args[1])
			if err != nil {
				return err
			}
			body["rulesetId"] = rulesetID
		}
		data, err := doRequest(http.MethodPut, fmt.Sprintf("/phases/%d/ruleset", phaseID), body)
		if err != nil {
			return err
		}
		printRaw(data)
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview progression without side effects",
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit progression decisions as a new run",
}

var progressionCollections = map[string]string{
	"phase": "phases",
	"match": "matches",
}

// progressionPath maps a target kind onto its endpoint.
func progressionPath(target string, id int64, op string) string {
	return fmt.Sprintf("/%s/%d/progression/%s", progressionCollections[target], id, op)
}

func newPreviewCmd(target string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   target + " <id>",
		Short: fmt.Sprintf("Preview progression for a %s", target),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			body, err := progressionBody(cmd, false)
			if err != nil {
				return err
			}
			var preview progression.PreviewResponse
			data, err := fetch(http.MethodPost, progressionPath(target, id, "preview"), body, &preview)
			if err != nil {
				return err
			}
			if raw {
				printRaw(data)
				return nil
			}
			fmt.Println(renderPreview(&preview))
			return nil
		},
	}
	cmd.Flags().Int("step", -1, "Ruleset step index to evaluate")
	return cmd
}

func newCommitCmd(target string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   target + " <id>",
		Short: fmt.Sprintf("Commit progression for a %s", target),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			body, err := progressionBody(cmd, true)
			if err != nil {
				return err
			}
			endpoint := progressionPath(target, id, "commit")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if dryRun {
				endpoint += "?" + url.Values{"dry_run": {"true"}}.Encode()
				var preview progression.PreviewResponse
				data, err := fetch(http.MethodPost, endpoint, body, &preview)
				if err != nil {
					return err
				}
				if raw {
					printRaw(data)
					return nil
				}
				fmt.Println("[Dry Run] Nothing was committed.")
				fmt.Println(renderPreview(&preview))
				return nil
			}

			var commit progression.CommitResponse
			data, err := fetch(http.MethodPost, endpoint, body, &commit)
			if err != nil {
				return err
			}
			if raw {
				printRaw(data)
				return nil
			}
			fmt.Println(renderCommit(&commit))
			return nil
		},
	}
	cmd.Flags().Int("step", -1, "Ruleset step index to evaluate")
	cmd.Flags().Bool("no-auto-assign", false, "Do not place advancing players into target matches")
	cmd.Flags().Bool("dry-run", false, "Only preview what would be committed")
	return cmd
}

var runCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show the persisted decisions of a committed run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var results []tournament.ProgressionResult
		data, err := fetch(http.MethodGet, "/progression/runs/"+url.PathEscape(args[0]), nil, &results)
		if err != nil {
			return err
		}
		if raw {
			printRaw(data)
			return nil
		}
		fmt.Println(renderRun(results))
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// progressionBody builds the request body from the flags the user set.
func progressionBody(cmd *cobra.Command, commit bool) (map[string]any, error) {
	body := map[string]any{}
	if cmd.Flags().Changed("step") {
		step, _ := cmd.Flags().GetInt("step")
		if step < 0 {
			return nil, fmt.Errorf("step must not be negative")
		}
		body["stepIndex"] = step
	}
	if commit {
		noAssign, _ := cmd.Flags().GetBool("no-auto-assign")
		body["autoAssignPlayersToTargetMatches"] = !noAssign
	}
	return body, nil
}

// rulesetBody only includes the flags that were set, so updates stay partial.
func rulesetBody(cmd *cobra.Command) (map[string]any, error) {
	body := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("name") {
		name, _ := flags.GetString("name")
		body["name"] = name
	}
	if flags.Changed("description") {
		description, _ := flags.GetString("description")
		body["description"] = description
	}
	if flags.Changed("active") {
		active, _ := flags.GetBool("active")
		body["isActive"] = active
	}
	if flags.Changed("config") {
		path, _ := flags.GetString("config")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("config file %s is not valid JSON", path)
		}
		body["config"] = json.RawMessage(data)
	}
	return body, nil
}
