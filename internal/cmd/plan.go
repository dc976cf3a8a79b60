package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/crewpm/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect process plans",
}

var planParseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a process plan and show its phases and teams",
	Long: `Parse a process plan the way a run would and print the phases, the
job-label groups that become teams, and any lines that were dropped.
Use "-" to read the plan from stdin, for example a run's _roles.md file.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanParse,
}

var planParseYAML bool

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planParseCmd)
	planParseCmd.Flags().BoolVar(&planParseYAML, "yaml", false, "print the parsed plan as YAML")
}

// planDocument is the YAML form of a parsed plan.
type planDocument struct {
	Phases  []planPhaseDoc      `yaml:"phases"`
	Teams   map[string][]string `yaml:"teams"`
	Dropped []plan.DroppedLine  `yaml:"dropped,omitempty"`
}

type planPhaseDoc struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	JobLabel    string `yaml:"job_label"`
	RoleLabel   string `yaml:"role_label,omitempty"`
}

func runPlanParse(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read plan: %w", err)
	}

	p := plan.Parse(string(data))
	validateErr := plan.Validate(p)
	out := cmd.OutOrStdout()

	if planParseYAML {
		doc := planDocument{Teams: make(map[string][]string), Dropped: p.Dropped}
		for _, ph := range p.Phases {
			doc.Phases = append(doc.Phases, planPhaseDoc{
				Name:        ph.Name,
				Description: ph.Description,
				JobLabel:    ph.JobLabel,
				RoleLabel:   ph.RoleLabel,
			})
		}
		for label, group := range p.Groups {
			for _, a := range group {
				doc.Teams[label] = append(doc.Teams[label], a.PhaseName)
			}
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		return validateErr
	}

	_, _ = fmt.Fprintf(out, "Phases (%d):\n", len(p.Phases))
	for i, ph := range p.Phases {
		_, _ = fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, ph.Name, ph.JobLabel)
		if ph.Description != "" {
			_, _ = fmt.Fprintf(out, "     %s\n", ph.Description)
		}
	}
	_, _ = fmt.Fprintf(out, "\nTeams (%d):\n", len(p.JobOrder))
	for _, label := range p.JobOrder {
		_, _ = fmt.Fprintf(out, "  %s: %d phase(s)\n", label, len(p.Groups[label]))
	}
	if len(p.Dropped) > 0 {
		_, _ = fmt.Fprintf(out, "\nDropped lines (%d of %d):\n", len(p.Dropped), p.NonEmptyLines)
		for _, d := range p.Dropped {
			_, _ = fmt.Fprintf(out, "  line %d: %s (%s)\n", d.Line, d.Text, d.Reason)
		}
	}
	return validateErr
}
