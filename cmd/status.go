package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nautiluschat/nautilus/internal/config"
	"github.com/nautiluschat/nautilus/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show nautilus status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s nautilus Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:  %s %s\n", cfgPath, cfgMark)

	catPath := config.CatalogPath()
	_, catErr := os.Stat(catPath)
	catMark := "✗"
	if catErr == nil {
		catMark = "✓"
	}
	fmt.Printf("Servers: %s %s\n", catPath, catMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}
	fmt.Printf("Model:   %s\n\n", cfg.Chat.Model)

	fmt.Println("Providers:")
	for _, spec := range providers.PROVIDERS {
		p := cfg.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		label := spec.Label()
		switch {
		case p.APIKey != "":
			fmt.Printf("  %-20s ✓\n", label)
		case p.APIBase != "":
			fmt.Printf("  %-20s ✓ %s\n", label, p.APIBase)
		default:
			fmt.Printf("  %-20s (not set)\n", label)
		}
	}
	return nil
}
