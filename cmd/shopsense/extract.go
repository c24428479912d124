package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopsense/backend/internal/infrastructure/amazon"
	"github.com/spf13/cobra"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	var reviews bool

	cmd := &cobra.Command{
		Use:   "extract <file.html>",
		Short: "Extract products or reviews from a saved marketplace page",
		Long: `Extract parses a saved marketplace HTML page with the same rules the
search pipeline uses. Useful for checking markup changes offline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read page: %w", err)
			}

			out := root.printer(cmd.OutOrStdout())
			if reviews {
				return out.reviews(amazon.ExtractReviews(string(html), time.Now()))
			}
			return out.products(amazon.ExtractProducts(string(html)), false)
		},
	}

	cmd.Flags().BoolVarP(&reviews, "reviews", "r", false, "treat the page as a review page")

	return cmd
}
