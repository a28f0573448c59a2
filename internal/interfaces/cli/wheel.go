package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	wheelapp "github.com/lawrns/flavatix/internal/application/wheel"
	"github.com/lawrns/flavatix/internal/domain/descriptor"
	domainWheel "github.com/lawrns/flavatix/internal/domain/wheel"
	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres"
	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres/repositories"
	"github.com/lawrns/flavatix/internal/infrastructure/database/redis"
)

// newWheelCommand creates the wheel command group.
func newWheelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wheel",
		Short: "Generate and inspect flavor wheels",
	}
	cmd.AddCommand(newWheelGenerateCommand())
	return cmd
}

type wheelGenerateOptions struct {
	wheelType string
	scopeType string
	userID    string
	itemName  string
	category  string
	tastingID string
	force     bool
	svgPath   string
	inputPath string
}

func newWheelGenerateCommand() *cobra.Command {
	opts := &wheelGenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a wheel for a scope and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWheelGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.wheelType, "type", "t", "combined", "wheel type (aroma, flavor, combined, metaphor)")
	f.StringVarP(&opts.scopeType, "scope", "s", "universal", "scope type (personal, universal, item, category, tasting)")
	f.StringVarP(&opts.userID, "user", "u", "", "user id (required for personal scope)")
	f.StringVar(&opts.itemName, "item", "", "item name (required for item scope)")
	f.StringVar(&opts.category, "category", "", "category name (required for category scope)")
	f.StringVar(&opts.tastingID, "tasting", "", "tasting id (required for tasting scope)")
	f.BoolVar(&opts.force, "force", false, "regenerate even when a cached wheel exists")
	f.StringVar(&opts.svgPath, "svg", "", "also render the wheel as SVG to this file")
	f.StringVar(&opts.inputPath, "input", "", "aggregate a JSON descriptor file instead of querying the database")

	return cmd
}

func runWheelGenerate(cmd *cobra.Command, opts *wheelGenerateOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, logger := cliCtx.Config, cliCtx.Logger

	wheelType, err := domainWheel.ParseWheelType(opts.wheelType)
	if err != nil {
		return err
	}

	// Offline mode: aggregate a descriptor file with no infrastructure.
	if opts.inputPath != "" {
		return runWheelAggregateFile(cliCtx, opts, wheelType)
	}
	scopeType, err := domainWheel.ParseScopeType(opts.scopeType)
	if err != nil {
		return err
	}
	scope := descriptor.Scope{
		Type:     scopeType,
		UserID:   opts.userID,
		ItemName: opts.itemName,
		Category: opts.category,
	}
	if opts.tastingID != "" {
		id, err := uuid.Parse(opts.tastingID)
		if err != nil {
			return fmt.Errorf("invalid tasting id %q", opts.tastingID)
		}
		scope.TastingID = id
	}
	if err := scope.Validate(); err != nil {
		return err
	}

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	cache := redis.NewRedisCache(redisClient, logger, redis.WithDefaultTTL(cfg.Wheel.CacheTTL))

	svc := wheelapp.NewService(
		repositories.NewPostgresDescriptorRepo(conn, logger),
		repositories.NewPostgresWheelRepo(conn, logger),
		cache,
		nil, // exports: not needed for generation
		nil, // events: offline runs do not publish
		nil,
		logger,
		cfg.Wheel,
	)

	result, err := svc.Generate(cmd.Context(), wheelapp.GenerateRequest{
		WheelType:       wheelType,
		Scope:           scope,
		ForceRegenerate: opts.force,
	})
	if err != nil {
		return err
	}

	rec := result.Record
	if cliCtx.OutputJSON {
		if err := cliCtx.PrintResult(result); err != nil {
			return err
		}
	} else {
		fmt.Printf("wheel %s (%s, scope %s)\n", rec.ID, rec.WheelType, rec.ScopeKey)
		fmt.Printf("  descriptors: %d  categories: %d  from_cache: %t\n",
			rec.Data.TotalDescriptors, len(rec.Data.Categories), result.FromCache)
	}

	if opts.svgPath != "" {
		if err := writeSVG(rec.Data, opts.svgPath, cfg.Wheel.SVGSize); err != nil {
			return err
		}
	}

	return nil
}

// runWheelAggregateFile aggregates descriptors read from a JSON file.  Handy
// for golden tests and support work, since it needs no running backend.
func runWheelAggregateFile(cliCtx *CLIContext, opts *wheelGenerateOptions, wheelType domainWheel.WheelType) error {
	raw, err := os.ReadFile(opts.inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.inputPath, err)
	}
	var descriptors []domainWheel.Descriptor
	if err := json.Unmarshal(raw, &descriptors); err != nil {
		return fmt.Errorf("failed to parse %s: %w", opts.inputPath, err)
	}

	filtered := domainWheel.FilterByWheelType(descriptors, wheelType)
	data, err := domainWheel.Aggregate(filtered, wheelType, domainWheel.AggregateOptions{
		MaxDescriptorsPerSubcategory: cliCtx.Config.Wheel.MaxDescriptorsPerSubcategory,
	})
	if err != nil {
		return err
	}

	if cliCtx.OutputJSON {
		if err := cliCtx.PrintResult(data); err != nil {
			return err
		}
	} else {
		fmt.Printf("%s wheel from %s\n", wheelType, opts.inputPath)
		fmt.Printf("  descriptors: %d  categories: %d\n",
			data.TotalDescriptors, len(data.Categories))
	}

	if opts.svgPath != "" {
		return writeSVG(data, opts.svgPath, cliCtx.Config.Wheel.SVGSize)
	}
	return nil
}

func writeSVG(data *domainWheel.FlavorWheelData, path string, size int) error {
	segments, err := domainWheel.LayoutWheel(data, domainWheel.DefaultRingConfig())
	if err != nil {
		return err
	}
	svg := domainWheel.RenderSVG(segments, domainWheel.SVGOptions{Size: size})
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("failed to write SVG: %w", err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
