// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/pkg/types"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "Show the report section set",
	Long: `Sections prints the section set a report run will research, in
declaration order. With --yaml it prints the set in the file format accepted
by --sections-file, which is a convenient starting point for a custom set.
With --prompt it prints the system prompt a section receives for a target.`,
	RunE: runSections,
}

func runSections(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("sections-file")
	if path == "" {
		path = viper.GetString("sections_file")
	}
	set, err := sections.LoadOrDefault(path)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		data, err := set.Marshal()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	if id, _ := cmd.Flags().GetString("prompt"); id != "" {
		spec, err := set.Lookup(types.SectionID(strings.TrimSpace(id)))
		if err != nil {
			return err
		}
		target, _ := cmd.Flags().GetString("target")
		fmt.Fprintln(w, sections.SystemPrompt(spec, target))
		fmt.Fprintf(w, "\nsearch query: %s\n", sections.Query(spec, target))
		return nil
	}

	fmt.Fprintf(w, "%-22s  %-36s  %s\n", "ID", "Title", "Domains")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, spec := range set.Specs() {
		domains := strings.Join(spec.Domains, ",")
		if domains == "" {
			domains = "-"
		}
		fmt.Fprintf(w, "%-22s  %-36s  %s\n", spec.ID, spec.Title, domains)
	}
	fmt.Fprintf(w, "\n%d sections\n", set.Len())
	return nil
}

func init() {
	sectionsCmd.Flags().String("sections-file", "", "YAML file replacing the canonical section set")
	sectionsCmd.Flags().Bool("yaml", false, "print the set as YAML")
	sectionsCmd.Flags().String("prompt", "", "print the system prompt for this section id")
	sectionsCmd.Flags().String("target", "Example Corp", "target company used with --prompt")

	rootCmd.AddCommand(sectionsCmd)
}
