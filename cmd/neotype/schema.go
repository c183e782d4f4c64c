package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rlch/neotype"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	// Register store backends.
	_ "github.com/rlch/neotype/databases/neo4j"
)

// Schema command errors.
var (
	ErrNoSchemaFile    = errors.New("no schema file specified (use --schema or .neotype.yaml)")
	ErrNoConnectionURI = errors.New("no connection URI specified (use --uri or .neotype.yaml)")
	ErrSchemaDrift     = errors.New("store schema differs from declared catalog")
)

func schemaCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "schema",
			Aliases: []string{"s"},
			Usage:   "path to yaml type catalog",
		},
		&cli.StringFlag{
			Name:    "uri",
			Usage:   "store connection URI",
			Sources: cli.EnvVars("NEOTYPE_URI"),
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "store username",
			Sources: cli.EnvVars("NEOTYPE_USER"),
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "store password",
			Sources: cli.EnvVars("NEOTYPE_PASS"),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "verbose output",
		},
	}

	return &cli.Command{
		Name:  "schema",
		Usage: "Manage the persisted type catalog",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Persist the declared catalog into the store",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "skip-setup",
						Usage: "mark types provisioned without issuing schema writes",
					},
				}, flags...),
				Action: runSchemaSync,
			},
			{
				Name:   "check",
				Usage:  "Verify the store holds the declared catalog",
				Flags:  flags,
				Action: runSchemaCheck,
			},
		},
	}
}

// loadEnvironment resolves config, schema file, and an open manager from
// flags and the nearest .neotype.yaml.
func loadEnvironment(cmd *cli.Command) (*neotype.Manager, *neotype.SchemaFile, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}

	cfg, configErr := neotype.LoadConfig(wd)
	if configErr != nil {
		cfg = &neotype.Config{}
	}

	schemaPath := cmd.String("schema")
	if schemaPath == "" && cfg.Schema != "" {
		configPath, err := neotype.FindConfig(wd)
		if err == nil {
			schemaPath = filepath.Join(filepath.Dir(configPath), cfg.Schema)
		}
	}

	if schemaPath == "" {
		return nil, nil, ErrNoSchemaFile
	}

	schema, err := neotype.LoadSchemaFile(schemaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", schemaPath, err)
	}

	if cfg.Neo4j == nil {
		cfg.Neo4j = &neotype.Neo4jConfig{}
	}

	if uri := cmd.String("uri"); uri != "" {
		cfg.Neo4j.URI = uri
	}

	if username := cmd.String("username"); username != "" {
		cfg.Neo4j.Username = username
	}

	if password := cmd.String("password"); password != "" {
		cfg.Neo4j.Password = password
	}

	if cfg.Neo4j.URI == "" {
		return nil, nil, ErrNoConnectionURI
	}

	opts := []neotype.ManagerOption{}

	if cmd.Bool("verbose") {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}

		opts = append(opts, neotype.WithLogger(log))
	}

	if cmd.Bool("skip-setup") {
		opts = append(opts, neotype.WithSkipSetup(true))
	}

	manager, err := neotype.Open(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	if err := schema.Apply(manager.Registry()); err != nil {
		_ = manager.Close()

		return nil, nil, err
	}

	return manager, schema, nil
}

func runSchemaSync(ctx context.Context, cmd *cli.Command) error {
	manager, _, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close() }()

	report := newReport(os.Stdout)

	for _, name := range manager.Registry().Names() {
		if err := manager.PersistSchema(ctx, name); err != nil {
			report.failed(name, err)

			return err
		}

		report.synced(name)
	}

	report.summary()

	return nil
}

func runSchemaCheck(ctx context.Context, cmd *cli.Command) error {
	manager, _, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close() }()

	report := newReport(os.Stdout)

	drift := false

	for _, name := range manager.Registry().Names() {
		results, err := manager.Query(ctx,
			fmt.Sprintf("MATCH (t:%s {name: $name}) RETURN count(t) AS present", neotype.TypeCatalogLabel),
			map[string]any{"name": name})
		if err != nil {
			return err
		}

		present := false

		for results.Next() {
			if count, ok := results.Record()["present"].(int64); ok && count > 0 {
				present = true
			}
		}

		if err := results.Err(); err != nil {
			return err
		}

		if present {
			report.present(name)
		} else {
			drift = true

			report.missing(name)
		}
	}

	report.summary()

	if drift {
		return ErrSchemaDrift
	}

	return nil
}
