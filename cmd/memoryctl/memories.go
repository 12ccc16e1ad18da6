package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/goibibo/mem0/client"
)

func memoriesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "memories", Short: "Memory operations"}
	var userID string
	cmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User ID")

	var app string
	var noInfer bool
	add := &cobra.Command{
		Use:   "add TEXT...",
		Short: "Store a memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			api, err := c.client()
			if err != nil {
				return err
			}
			req := client.CreateMemoryRequest{UserID: userID, Text: strings.Join(args, " "), App: app}
			if noInfer {
				infer := false
				req.Infer = &infer
			}
			m, err := api.CreateMemory(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.print(m)
		},
	}
	add.Flags().StringVar(&app, "app", "", "App name (default openmemory)")
	add.Flags().BoolVar(&noInfer, "no-infer", false, "Skip automatic categorization")

	var (
		query, sortColumn, sortDir string
		appIDs, categoryIDs        []string
		semantic, archived         bool
		page, size                 int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "Filter memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			api, err := c.client()
			if err != nil {
				return err
			}
			p, err := api.FilterMemories(cmd.Context(), client.FilterRequest{
				UserID:        userID,
				Page:          &page,
				Size:          &size,
				SearchQuery:   query,
				AppIDs:        appIDs,
				CategoryIDs:   categoryIDs,
				SortColumn:    sortColumn,
				SortDirection: sortDir,
				ShowArchived:  archived,
				Semantic:      semantic,
			})
			if err != nil {
				return err
			}
			return c.print(p)
		},
	}
	list.Flags().StringVarP(&query, "query", "q", "", "Search text")
	list.Flags().BoolVar(&semantic, "semantic", false, "Rank the query by similarity")
	list.Flags().StringSliceVar(&appIDs, "app-id", nil, "App ids")
	list.Flags().StringSliceVar(&categoryIDs, "category-id", nil, "Category ids")
	list.Flags().StringVar(&sortColumn, "sort", "", "memory, app_name or created_at")
	list.Flags().StringVar(&sortDir, "dir", "", "asc or desc")
	list.Flags().BoolVar(&archived, "archived", false, "Include archived memories")
	list.Flags().IntVar(&page, "page", 1, "Page number")
	list.Flags().IntVar(&size, "size", 10, "Page size")

	var limit int
	var threshold float64
	search := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Rank memories by similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			api, err := c.client()
			if err != nil {
				return err
			}
			req := client.SearchRequest{Query: strings.Join(args, " "), UserID: userID, Limit: &limit}
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}
			found, err := api.SearchMemories(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.print(found)
		},
	}
	search.Flags().IntVarP(&limit, "limit", "k", 10, "Maximum results (1-100)")
	search.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity in [0,1]")

	get := &cobra.Command{
		Use:   "get MEMORY_ID",
		Short: "Show a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			m, err := api.GetMemory(cmd.Context(), args[0], "")
			if err != nil {
				return err
			}
			return c.print(m)
		},
	}

	state := &cobra.Command{
		Use:       "state STATE MEMORY_ID...",
		Short:     "Move memories to active, paused, archived or deleted",
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: []string{client.StateActive, client.StatePaused, client.StateArchived, client.StateDeleted},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			api, err := c.client()
			if err != nil {
				return err
			}
			res, err := api.UpdateState(cmd.Context(), userID, args[1:], args[0])
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}

	history := &cobra.Command{
		Use:   "history MEMORY_ID",
		Short: "Show state transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			h, err := api.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(h)
		},
	}

	cmd.AddCommand(add, list, search, get, state, history)
	return cmd
}
