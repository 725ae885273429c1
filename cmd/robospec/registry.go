package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"robospec/internal/category"
	"robospec/internal/generator"
)

var prefixFlag string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the Isaac Lab API surface",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known MDP symbol",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range newRegistry(cfg).Load().Sorted() {
			if strings.HasPrefix(name, prefixFlag) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		}
		return nil
	},
}

var registryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show where the API surface came from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newRegistry(cfg).Stats()
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, titleStyle.Render("API surface"))
		fmt.Fprintf(w, "  documents:    %d\n", s.Documents)
		fmt.Fprintf(w, "  headings:     %d\n", s.Headings)
		fmt.Fprintf(w, "  manifest:     %d\n", s.Manifest)
		fmt.Fprintf(w, "  supplemental: %d\n", s.Supplemental)
		fmt.Fprintf(w, "  total:        %d\n", s.Total)
		if s.Total == 0 {
			fmt.Fprintln(w, warnStyle.Render("  no sources available: whitelist check is skipped"))
		}
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List task categories and their fixed settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl := category.Default()
		w := cmd.OutOrStdout()
		for _, key := range tbl.Keys() {
			md, err := tbl.Lookup(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, titleStyle.Render(key))
			fmt.Fprintf(w, "  robot:     %s\n", md.Robot.Name)
			fmt.Fprintf(w, "  framework: %s (%d iterations)\n", md.Framework, md.MaxIterations)
			fmt.Fprintf(w, "  episode:   %gs\n", md.EpisodeLength)
			fmt.Fprintf(w, "  task id:   %s\n", md.TaskID)
			if verbose {
				fmt.Fprintln(w, noteStyle.Render(generator.FormatApproved(md.Approved)))
			}
		}
		fmt.Fprintf(w, "\nrobots: %s\n", strings.Join(tbl.Robots(), ", "))
		return nil
	},
}

func init() {
	registryListCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Only names with this prefix")
	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryStatsCmd)
}
