package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var serversCmd = &cobra.Command{
	Use:   "servers [directory | command args...]",
	Short: "List tool servers and their discovered tools",
	RunE:  runServers,
}

func runServers(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	session, err := openSession(ctx, args)
	if err != nil {
		return err
	}
	defer session.Close()

	reg := session.Registry()
	names := reg.Names()
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Println("No tool servers connected.")
		return nil
	}

	for _, name := range names {
		conn := reg.Get(name)
		fmt.Printf("%s\n", name)
		for _, tool := range conn.Tools() {
			fmt.Printf("  %-24s %s\n", tool.Name, tool.Description)
		}
	}
	return nil
}
