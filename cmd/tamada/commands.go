package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/tamadze/tamada/config"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	Config string `arg:"" name:"config" help:"Configuration file path." type:"path"`
	Print  bool   `short:"p" help:"Print the expanded configuration (defaults applied, env vars resolved)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	_ = config.LoadDotEnvForConfig(c.Config)

	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	if c.Print {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	fmt.Printf("%s: configuration valid\n", c.Config)
	return nil
}

// SchemaCmd generates a JSON Schema for the configuration file, for
// editor completion and CI validation.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		// Config structs carry yaml tags, not json tags.
		FieldNameTag: "yaml",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.ID = "https://github.com/tamadze/tamada/schemas/config.json"
	schema.Title = "tamada configuration schema"
	schema.Description = "Configuration for the tamada question-answering service"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}

// WarmupCmd wires the full pipeline, primes caches and models, prints
// the report and exits. Useful before swapping a node into a load
// balancer pool.
type WarmupCmd struct {
	JSON bool `help:"Print the warmup report as JSON."`
}

func (c *WarmupCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	cleanup, err := initLogger(cli, cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close(context.Background())

	report := app.pipe.Warmup(ctx, nil)

	if c.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		fmt.Printf("Warmup finished in %.2fs\n", report.TotalTime)
		fmt.Printf("  queries:     %d successful, %d failed\n",
			report.QueriesSuccessful, report.QueriesFailed)
		fmt.Printf("  caches:      %v\n", report.CachesWarmed)
		fmt.Printf("  model load:  %.2fs\n", report.ModelLoadTime)
		fmt.Printf("  detection:   %.2fs\n", report.MultilingualTime)
	}

	if !report.Success {
		return fmt.Errorf("warmup failed: no query returned results")
	}
	return nil
}
