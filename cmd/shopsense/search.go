package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopsense/backend/config"
	"github.com/shopsense/backend/internal/bootstrap"
	"github.com/shopsense/backend/internal/domain"
	"github.com/shopsense/backend/internal/usecase"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	filters  domain.SearchFilters
	noCache  bool
	noReview bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the marketplace for a natural language request",
		Example: `  shopsense search "I need a durable water bottle"
  shopsense search "standing desk" --max-results 3 --sort price-low`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, opts, strings.Join(args, " "))
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.filters.MinRating, "min-rating", domain.DefaultMinRating, "minimum star rating")
	flags.IntVar(&opts.filters.MinReviews, "min-reviews", domain.DefaultMinReviews, "minimum number of reviews")
	flags.IntVarP(&opts.filters.MaxResults, "max-results", "n", domain.DefaultMaxResults, "number of products to show")
	flags.Float64Var(&opts.filters.PriceMin, "price-min", domain.DefaultPriceMin, "lowest price to show")
	flags.Float64Var(&opts.filters.PriceMax, "price-max", domain.DefaultPriceMax, "highest price to show")
	flags.StringVarP(&opts.filters.SortBy, "sort", "s", domain.DefaultSortBy,
		"result order: relevance, price-low, price-high, rating-high, rating-low, reviews-high, reviews-low")
	flags.BoolVar(&opts.noCache, "no-cache", false, "skip the result cache")
	flags.BoolVar(&opts.noReview, "no-reviews", false, "skip fetching customer reviews")

	return cmd
}

func runSearch(cmd *cobra.Command, root *rootOptions, opts *searchOptions, query string) error {
	if strings.TrimSpace(query) == "" {
		return domain.ErrEmptyQuery
	}
	if !usecase.IsValidSort(opts.filters.SortBy) {
		return fmt.Errorf("unknown sort option %q", opts.filters.SortBy)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.noReview {
		cfg.Search.EnrichReviews = false
	}

	logger := root.logger(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, !opts.noCache, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	filters := opts.filters
	response, err := app.Service.Search(ctx, &domain.SearchRequest{Query: query, Filters: &filters})
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("interrupted")
		}
		return err
	}

	products := usecase.ApplyPresentation(response.Products, filters.WithDefaults())
	return root.printer(cmd.OutOrStdout()).products(products, response.Cached)
}
