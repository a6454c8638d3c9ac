package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nautiluschat/nautilus/internal/agent"
	"github.com/nautiluschat/nautilus/internal/config"
	"github.com/nautiluschat/nautilus/internal/dependency"
	"github.com/nautiluschat/nautilus/internal/toolserver"
)

var chatMessage string

var chatCmd = &cobra.Command{
	Use:   "chat [directory | command args...]",
	Short: "Chat with tool servers attached",
	Long: `Chat with tool servers attached.

With no arguments, every known server preset and catalog entry is attempted.
With a single directory argument, a filesystem server is rooted there.
With a command and arguments, that single server is launched instead.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

// resolveSpecs maps positional args to the set of servers to launch.
func resolveSpecs(args []string, catalog *config.Catalog) ([]toolserver.NamedSpec, error) {
	switch {
	case len(args) == 0:
		return append(toolserver.DefaultSpecs(), catalogSpecs(catalog)...), nil
	case len(args) == 1:
		info, err := os.Stat(args[0])
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%q is not a directory; pass a directory or a server command with arguments", args[0])
		}
		specs := []toolserver.NamedSpec{toolserver.FilesystemSpec(args[0])}
		specs = append(specs, toolserver.DefaultSpecs()...)
		return append(specs, catalogSpecs(catalog)...), nil
	default:
		name := filepath.Base(args[0])
		return []toolserver.NamedSpec{
			{Name: name, Spec: toolserver.LaunchSpec{Command: args[0], Args: args[1:]}},
		}, nil
	}
}

func catalogSpecs(catalog *config.Catalog) []toolserver.NamedSpec {
	var specs []toolserver.NamedSpec
	for name, entry := range catalog.Servers {
		specs = append(specs, toolserver.NamedSpec{
			Name: name,
			Spec: toolserver.LaunchSpec{
				Command:     entry.Command,
				Args:        entry.Args,
				Env:         entry.Env,
				RequiredEnv: entry.RequiredEnv,
			},
		})
	}
	return specs
}

// openSession loads config and catalog, builds the object graph, and connects
// the servers selected by args. The caller owns the returned session.
func openSession(ctx context.Context, args []string) (*agent.Session, error) {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	catalog, err := config.LoadCatalog(config.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("load server catalog: %w", err)
	}

	specs, err := resolveSpecs(args, catalog)
	if err != nil {
		return nil, err
	}

	container, err := dependency.New(cfg, catalog)
	if err != nil {
		return nil, err
	}

	session := container.Session()
	session.ConnectAll(ctx, specs)
	return session, nil
}

func runChat(_ *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := openSession(ctx, args)
	if err != nil {
		return err
	}
	defer session.Close()

	if chatMessage != "" {
		return runSingleMessage(ctx, session)
	}

	listenForSignals(cancel, session)
	return runInteractive(ctx, session)
}

// runSingleMessage sends one message and prints the response.
func runSingleMessage(ctx context.Context, session *agent.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	answer, err := session.Ask(ctx, chatMessage)
	if err != nil {
		return err
	}
	printResponse(answer)
	return nil
}

// runInteractive reads lines from stdin and answers each in turn. A failed
// query prints one error line and the loop keeps going.
func runInteractive(ctx context.Context, session *agent.Session) error {
	fmt.Printf("%s Interactive mode (type 'quit' or Ctrl+C to exit)\n\n", logo)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")

		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		answer, err := session.Ask(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		printResponse(answer)
	}
}

// listenForSignals closes the session and exits on SIGINT or SIGTERM.
// Cancelling first makes any in-flight query return; Close then waits for
// it before releasing the transports.
func listenForSignals(cancel context.CancelFunc, session *agent.Session) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nGoodbye!")

		cancel()
		_ = session.Close()
		os.Exit(0)
	}()
}

func printResponse(text string) {
	fmt.Printf("\n%s nautilus\n%s\n\n", logo, text)
}
