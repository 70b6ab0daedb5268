package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/log"
	"github.com/dukex/flowedit/pkg/render"
	"github.com/urfave/cli/v3"
)

var errMissingFile = errors.New("a flow data file is required")

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "flowedit",
		Usage:                 "Inspect workflow flow data files",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return log.WithLogger(ctx, log.WithModule("cli")), nil
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Aliases:   []string{"v"},
				Usage:     "Check a flow data file and print its statistics",
				ArgsUsage: "<file>",
				Action:    validateAction,
			},
			{
				Name:      "render",
				Aliases:   []string{"r"},
				Usage:     "Render a flow data file as SVG or DOT",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (stdout when empty)",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format (svg, dot)",
						Value: "svg",
					},
					&cli.BoolFlag{
						Name:  "detailed",
						Usage: "Include node type and data in labels",
					},
					&cli.BoolFlag{
						Name:  "horizontal",
						Usage: "Lay the graph out left to right",
						Value: true,
					},
				},
				Action: renderAction,
			},
		},
	}
}

func readDocument(ctx context.Context, command *cli.Command) (graph.Document, error) {
	path := command.Args().First()
	if path == "" {
		return graph.Document{}, errMissingFile
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return graph.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := graph.ParseFlowData(string(content))
	if err != nil {
		return graph.Document{}, err
	}

	log.FromContext(ctx).Debug("Flow data parsed", "file", path, "nodes", len(doc.Nodes), "edges", len(doc.Edges))

	return doc, nil
}

func validateAction(ctx context.Context, command *cli.Command) error {
	doc, err := readDocument(ctx, command)
	if err != nil {
		return err
	}

	if err := graph.Validate(doc); err != nil {
		return err
	}

	stats := doc.Stats()

	_, err = fmt.Fprintf(command.Root().Writer, "valid: %d nodes, %d edges, complexity %d\n",
		stats.NodeCount, stats.EdgeCount, stats.ComplexityScore)

	return err
}

func renderAction(ctx context.Context, command *cli.Command) error {
	doc, err := readDocument(ctx, command)
	if err != nil {
		return err
	}

	opts := render.Options{
		Detailed:    command.Bool("detailed"),
		LeftToRight: command.Bool("horizontal"),
	}

	dot := render.ToDOT(doc, opts)

	var out []byte

	switch command.String("format") {
	case "dot":
		out = []byte(dot)
	case "svg":
		out, err = render.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s", command.String("format"))
	}

	if path := command.String("output"); path != "" {
		if err := os.WriteFile(path, out, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		log.FromContext(ctx).Info("Rendered workflow", "output", path, "format", command.String("format"))

		return nil
	}

	_, err = command.Root().Writer.Write(out)

	return err
}
