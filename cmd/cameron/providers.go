package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cameroncode/cameroncode/internal/provider"
)

// providersCommand lists the registry and renders manual setup snippets.
func providersCommand() *cobra.Command {
	var officialOnly bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List known API providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadUserProviders()
			fmt.Print(renderProviderTable(provider.List(officialOnly)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&officialOnly, "official", false, "Only list official providers")

	cmd.AddCommand(&cobra.Command{
		Use:   "env <name>",
		Short: "Print shell exports that configure a provider manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loadUserProviders()
			example, err := provider.EnvExample(args[0])
			if err != nil {
				return err
			}
			fmt.Println(example)
			return nil
		},
	})

	return cmd
}

// renderProviderTable formats registry entries as an aligned table.
func renderProviderTable(configs []provider.Config) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tOFFICIAL\tDESCRIPTION")
	for _, cfg := range configs {
		official := ""
		if cfg.Official {
			official = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cfg.Name, cfg.DefaultModel, official, cfg.Description)
	}
	w.Flush()
	return b.String()
}

// currentCommand reports which provider the current environment selects.
func currentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the provider the current environment selects",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadUserProviders()
			info := provider.Detect(provider.OSEnviron())

			fmt.Printf("Provider:  %s (%s)\n", info.DisplayName, info.Name)
			if info.Description != "" {
				fmt.Printf("About:     %s\n", info.Description)
			}
			if info.BaseURL != "" {
				fmt.Printf("Base URL:  %s\n", info.BaseURL)
			}
			if info.Model != "" {
				fmt.Printf("Model:     %s\n", info.Model)
			}
			if info.Official {
				fmt.Println("Official:  yes")
			}
			return nil
		},
	}
}
