package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/foundry/internal/catalog"
	"github.com/alexisbeaulieu97/foundry/internal/fingerprint"
)

func newTasksCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks available in the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func runTasks(cmd *cobra.Command, asJSON bool) error {
	app, err := loadApplication(cmd)
	if err != nil {
		return err
	}

	svc, err := app.newService(fingerprint.NewMemoryStore(), nil, io.Discard)
	if err != nil {
		return err
	}
	groups, err := svc.ListTasks(app.projects)
	if err != nil {
		return err
	}

	if asJSON {
		return renderTasksJSON(cmd.OutOrStdout(), app.manifest.Name, groups)
	}
	return renderTasksTable(cmd.OutOrStdout(), groups)
}

func renderTasksTable(out io.Writer, groups []catalog.PluginTasks) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "PLUGIN\tTASK\tDESCRIPTION")
	for _, group := range groups {
		for _, task := range group.Tasks {
			fmt.Fprintf(writer, "%s\t%s\t%s\n", group.Plugin, task.Name, valueOrFallback(task.Description, "-"))
		}
	}

	return writer.Flush()
}

type tasksJSONPayload struct {
	Version   string                `json:"version"`
	Workspace string                `json:"workspace"`
	Count     int                   `json:"count"`
	Plugins   []catalog.PluginTasks `json:"plugins"`
}

func renderTasksJSON(out io.Writer, workspace string, groups []catalog.PluginTasks) error {
	payload := tasksJSONPayload{
		Version:   "1.0",
		Workspace: workspace,
		Plugins:   groups,
	}
	for _, group := range groups {
		payload.Count += len(group.Tasks)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func valueOrFallback(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
