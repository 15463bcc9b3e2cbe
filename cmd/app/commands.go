package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/dupegraph/internal"
	"github.com/starford/dupegraph/internal/finder"
	"github.com/starford/dupegraph/internal/group"
	"github.com/starford/dupegraph/internal/mcpserver"
	"github.com/starford/dupegraph/internal/models"
)

// settingsFlags override the configured similar.* defaults.
func settingsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:  "similarity",
			Usage: "Minimum pair score in [0.5, 1]",
		},
		&cli.FloatFlag{
			Name:  "grouping",
			Usage: "Score at which a group counts as duplicates, in [0.5, 1]",
		},
		&cli.BoolFlag{
			Name:  "include-unused",
			Usage: "Compare nodes that never reach an output",
		},
		&cli.BoolFlag{
			Name:  "include-organization",
			Usage: "Compare reroute and frame nodes",
		},
	}
}

func settingsFrom(cmd *cli.Command, defaults finder.Settings) finder.Settings {
	st := defaults
	if cmd.IsSet("similarity") {
		st.SimilarityThreshold = cmd.Float("similarity")
	}
	if cmd.IsSet("grouping") {
		st.GroupingThreshold = cmd.Float("grouping")
	}
	if cmd.Bool("include-unused") {
		st.ExcludeUnused = false
	}
	if cmd.Bool("include-organization") {
		st.ExcludeOrganization = false
	}
	return st
}

// withWorkspace opens the configured vault with reports printed to out and
// logs on stderr, runs fn and closes the index.
func withWorkspace(cmd *cli.Command, out io.Writer, fn func(cfg *internal.Config, ws *internal.Workspace) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	ws, err := internal.OpenWorkspace(cfg, logger, finder.WithReporter(finder.WriterReporter{W: out}))
	if err != nil {
		return err
	}
	defer ws.Close()

	return fn(cfg, ws)
}

func kindArg(cmd *cli.Command) (models.Kind, error) {
	if cmd.Args().Len() < 1 {
		return "", fmt.Errorf("kind argument is required")
	}
	return models.ParseKind(cmd.Args().First())
}

func findCommand() *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "List duplicate and similar groups of one kind",
		ArgsUsage: "<kind>",
		Flags: append(settingsFlags(), &cli.BoolFlag{
			Name:  "json",
			Usage: "Print the result set as JSON",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kind, err := kindArg(cmd)
			if err != nil {
				return err
			}
			out := os.Stdout
			return withWorkspace(cmd, out, func(cfg *internal.Config, ws *internal.Workspace) error {
				rs, err := ws.Service.FindSimilar(ctx, kind, settingsFrom(cmd, cfg.Similar))
				if err != nil {
					return err
				}
				if rs.Empty() {
					return nil
				}
				if cmd.Bool("json") {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(rs)
				}
				printGroups(out, "Duplicates", rs.Duplicates)
				printGroups(out, "Similar", rs.Scored)
				return nil
			})
		},
	}
}

func printGroups(w io.Writer, title string, groups []group.Group) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, g := range groups {
		fmt.Fprintf(w, "  %5.1f%%  %s\n", g.Percent(), strings.Join(g.Members, ", "))
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge every duplicate group of one kind onto its first member",
		ArgsUsage: "<kind>",
		Flags:     settingsFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kind, err := kindArg(cmd)
			if err != nil {
				return err
			}
			return withWorkspace(cmd, os.Stdout, func(cfg *internal.Config, ws *internal.Workspace) error {
				_, err := ws.Service.MergeDuplicates(ctx, kind, settingsFrom(cmd, cfg.Similar))
				return err
			})
		},
	}
}

func mergeImagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "merge-images",
		Usage: "Merge images that load the same file",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withWorkspace(cmd, os.Stdout, func(_ *internal.Config, ws *internal.Workspace) error {
				_, err := ws.Service.MergeImages(ctx)
				return err
			})
		},
	}
}

func mergeMeshesCommand() *cli.Command {
	return &cli.Command{
		Name:  "merge-meshes",
		Usage: "Merge meshes with identical geometry and materials",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withWorkspace(cmd, os.Stdout, func(_ *internal.Config, ws *internal.Workspace) error {
				_, err := ws.Service.MergeMeshes(ctx)
				return err
			})
		},
	}
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:      "users",
		Usage:     "Print the tree of resources that reference a resource",
		ArgsUsage: "<kind> <name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kind, err := kindArg(cmd)
			if err != nil {
				return err
			}
			name := cmd.Args().Get(1)
			if name == "" {
				return fmt.Errorf("name argument is required")
			}
			out := os.Stdout
			return withWorkspace(cmd, out, func(_ *internal.Config, ws *internal.Workspace) error {
				tree, err := ws.Service.Users(ctx, kind, name)
				if err != nil {
					return err
				}
				printUsers(out, tree, 0)
				return nil
			})
		},
	}
}

func printUsers(w io.Writer, n *finder.UserNode, depth int) {
	label := fmt.Sprintf("%s %s", n.Kind, n.Name)
	if n.Slot != "" {
		label += " (" + n.Slot + ")"
	}
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), label)
	for _, u := range n.Users {
		printUsers(w, u, depth+1)
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the finder tools over MCP on stdio",
		Action: func(_ context.Context, cmd *cli.Command) error {
			// stdout carries the protocol.
			return withWorkspace(cmd, os.Stderr, func(cfg *internal.Config, ws *internal.Workspace) error {
				return mcpserver.New(ws.Service, cfg.Similar).ServeStdio()
			})
		},
	}
}
