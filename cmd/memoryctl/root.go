package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goibibo/mem0/client"
)

// cli carries the global flags shared by every subcommand.
type cli struct {
	apiURL  string
	timeout time.Duration
	debug   bool
	out     io.Writer
}

func (c *cli) client() (*client.Client, error) {
	opts := []client.Option{client.WithHTTPTimeout(c.timeout)}
	if c.debug {
		opts = append(opts, client.WithDebugLogging(zerolog.New(zerolog.ConsoleWriter{Out: c.out}).With().Timestamp().Logger()))
	}
	return client.New(c.apiURL, opts...)
}

func (c *cli) print(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:           "memoryctl",
		Short:         "CLI client for the OpenMemory REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&c.apiURL, "api", "a", "http://localhost:8765", "OpenMemory base URL")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 15*time.Second, "HTTP timeout per attempt")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "Log HTTP traffic")

	root.AddCommand(
		usersCmd(c),
		memoriesCmd(c),
		appsCmd(c),
		categoriesCmd(c),
		healthCmd(c),
	)
	return root
}

func healthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show service health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			h, err := api.Health(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(h)
		},
	}
}

func categoriesCmd(c *cli) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			list, err := api.ListCategories(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return c.print(list)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Restrict to one user")
	return cmd
}

func usersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "User operations"}

	var name, email string
	create := &cobra.Command{
		Use:   "create USER_ID",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			req := client.CreateUserRequest{UserID: args[0]}
			if name != "" {
				req.Name = &name
			}
			if email != "" {
				req.Email = &email
			}
			u, err := api.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.print(u)
		},
	}
	create.Flags().StringVar(&name, "name", "", "Display name")
	create.Flags().StringVar(&email, "email", "", "Email address")

	get := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			u, err := api.GetUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(u)
		},
	}

	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "List users with memory counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			p, err := api.ListUsers(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return c.print(p)
		},
	}
	list.Flags().IntVar(&page, "page", 1, "Page number")
	list.Flags().IntVar(&size, "size", 10, "Page size")

	cmd.AddCommand(create, get, list)
	return cmd
}

func appsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "apps", Short: "App operations"}

	var userID, name, sortColumn, sortDir string
	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "List apps with usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			p, err := api.ListApps(cmd.Context(), client.ListAppsRequest{
				UserID: userID, Name: name, SortColumn: sortColumn, SortDirection: sortDir, Page: page, PageSize: size,
			})
			if err != nil {
				return err
			}
			return c.print(p)
		},
	}
	list.Flags().StringVarP(&userID, "user", "u", "", "Owner user id")
	list.Flags().StringVar(&name, "name", "", "Name substring")
	list.Flags().StringVar(&sortColumn, "sort", "", "name, memories, memories_accessed or created_at")
	list.Flags().StringVar(&sortDir, "dir", "", "asc or desc")
	list.Flags().IntVar(&page, "page", 1, "Page number")
	list.Flags().IntVar(&size, "size", 10, "Page size")

	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " APP_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := c.client()
				if err != nil {
					return err
				}
				app, err := api.SetAppActive(cmd.Context(), args[0], active)
				if err != nil {
					return err
				}
				return c.print(app)
			},
		}
	}

	cmd.AddCommand(list, setActive("pause", "Stop an app from adding memories", false), setActive("resume", "Let an app add memories again", true))
	return cmd
}

// requireUser fails with a flag hint when the user flag is empty.
func requireUser(userID string) error {
	if userID == "" {
		return fmt.Errorf("--user required")
	}
	return nil
}
