package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ufakz/architectai/internal/config"
	"github.com/ufakz/architectai/internal/domain"
	"github.com/ufakz/architectai/internal/genaiclient"
	"github.com/ufakz/architectai/internal/pipeline"
	"github.com/ufakz/architectai/internal/remotestore"
	"github.com/ufakz/architectai/internal/session"
)

var projectFlag string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "architectai",
		Short: "Turn rough architecture sketches into versioned designs",
		Long: `architectai runs hand-drawn architecture sketches through an AI
pipeline (refined diagram, inferred components, implementation plan) and keeps
every run as an immutable version in a remote repository.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&projectFlag, "project", "", "project location as owner/name")

	root.AddCommand(newProjectCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newSpecCmd())
	root.AddCommand(newStatusCmd())
	return root
}

func buildSession(ctx context.Context) (*session.Session, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	client, err := genaiclient.New(ctx, cfg.Gemini.ImageModel, cfg.Gemini.TextModel)
	if err != nil {
		return nil, nil, fmt.Errorf("init gemini client: %w", err)
	}
	orch := &pipeline.Orchestrator{
		Refiner:      client,
		Analyzer:     client,
		Planner:      client,
		StageTimeout: cfg.Pipeline.StageTimeout,
	}

	gh := remotestore.NewGitHubClient(cfg.GitHub.Token)
	stores, err := storeFactory(cfg, gh)
	if err != nil {
		return nil, nil, err
	}
	return session.New(gh, stores, orch, cfg.GitHub.Owner), cfg, nil
}

func storeFactory(cfg *config.Config, gh *remotestore.GitHubClient) (session.StoreFactory, error) {
	base := func(loc domain.RemoteLocation) (remotestore.Store, error) {
		switch cfg.Store.Backend {
		case "github":
			return gh.Repo(loc.Owner, loc.Name), nil
		case "s3":
			s3cfg := cfg.Store.S3
			s3cfg.Bucket = loc.Name
			return remotestore.NewS3Store(remotestore.S3Config(s3cfg))
		case "postgres":
			pg, err := remotestore.NewPostgresStore(cfg.Store.PostgresDSN)
			if err != nil {
				return nil, err
			}
			return remotestore.NewPrefixStore(pg, loc.Owner+"/"+loc.Name), nil
		}
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return func(loc domain.RemoteLocation) remotestore.Store {
		inner, err := base(loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cached, err := remotestore.NewCachedStore(inner, cfg.Store.CacheSize)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return cached
	}, nil
}

func parseLocation(cfg *config.Config) (domain.RemoteLocation, error) {
	raw := strings.TrimSpace(projectFlag)
	if raw == "" {
		return domain.RemoteLocation{}, fmt.Errorf("--project owner/name is required")
	}
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) == 1 {
		if cfg.GitHub.Owner == "" {
			return domain.RemoteLocation{}, fmt.Errorf("project %q has no owner and GITHUB_OWNER is unset", raw)
		}
		return domain.RemoteLocation{Owner: cfg.GitHub.Owner, Name: parts[0]}, nil
	}
	return domain.RemoteLocation{Owner: parts[0], Name: parts[1]}, nil
}

func openSession(ctx context.Context) (*session.Session, error) {
	s, cfg, err := buildSession(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := parseLocation(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := s.OpenProject(ctx, loc); err != nil {
		return nil, err
	}
	return s, nil
}

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Create, list and inspect projects"}

	var description string
	var public bool
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project and its backing repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			s, _, err := buildSession(ctx)
			if err != nil {
				return err
			}
			visibility := domain.VisibilityPrivate
			if public {
				visibility = domain.VisibilityPublic
			}
			project, err := s.CreateProject(ctx, args[0], description, visibility)
			if err != nil {
				return err
			}
			fmt.Printf("created %s/%s (%s)\n", project.Remote.Owner, project.Remote.Name, project.Remote.URL)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "project description")
	create.Flags().BoolVar(&public, "public", false, "make the repository public")

	list := &cobra.Command{
		Use:   "list",
		Short: "List project repositories",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()
			s, _, err := buildSession(ctx)
			if err != nil {
				return err
			}
			names, err := s.ListProjects(ctx)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "version", Short: "Create and regenerate design versions"}

	create := &cobra.Command{
		Use:   "create <sketch.png> [more sketches...]",
		Short: "Run the pipeline over sketch files as a new version",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			diagrams := make([]domain.Diagram, 0, len(args))
			for i, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				kind := domain.DiagramKindAuxiliary
				if i == 0 {
					kind = domain.DiagramKindPrimary
				}
				name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				diagrams = append(diagrams, domain.Diagram{
					ID:    name,
					Name:  name,
					Kind:  kind,
					Image: raw,
				})
			}
			v, err := s.CreateVersion(ctx, diagrams)
			if err != nil {
				return err
			}
			fmt.Printf("version %d (%s) started\n", v.SequenceNumber, v.ID)
			s.Wait()
			return reportVersion(s, v.ID)
		},
	}

	regenerate := &cobra.Command{
		Use:   "regenerate <version-id>",
		Short: "Re-run the pipeline on an existing version's sketches as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			v, err := s.Regenerate(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("version %d (%s) started\n", v.SequenceNumber, v.ID)
			s.Wait()
			return reportVersion(s, v.ID)
		},
	}

	cmd.AddCommand(create, regenerate)
	return cmd
}

func reportVersion(s *session.Session, id string) error {
	v, ok := s.Version(id)
	if !ok {
		return fmt.Errorf("version %s not found", id)
	}
	switch v.Status {
	case domain.StatusComplete:
		fmt.Printf("version %d complete: %d components\n", v.SequenceNumber, len(v.Specs))
		for _, spec := range v.Specs {
			fmt.Printf("  %s  %s: %s\n", spec.ID, spec.Name, spec.Description)
		}
	case domain.StatusError:
		return fmt.Errorf("version %d failed: %s", v.SequenceNumber, v.ErrorMessage)
	case domain.StatusPending, domain.StatusRefining, domain.StatusSpecifying:
		fmt.Printf("version %d still %s\n", v.SequenceNumber, v.Status)
	}
	return nil
}

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <version-id>",
		Short: "Generate (or print the cached) implementation plan for a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			plan, err := s.GenerateBuildPlan(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(plan)
			return nil
		},
	}
}

func newSpecCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "spec", Short: "Edit component specs"}
	note := &cobra.Command{
		Use:   "note <version-id> <spec-id> <text>",
		Short: "Set the user notes on a component spec",
		Args:  cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			return s.UpdateSpecNote(ctx, args[0], args[1], args[2])
		},
	}
	cmd.AddCommand(note)
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show version counts per status for a project",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			counts := s.StatusCounts()
			statuses := make([]string, 0, len(counts))
			for status := range counts {
				statuses = append(statuses, string(status))
			}
			sort.Strings(statuses)
			for _, status := range statuses {
				fmt.Printf("%-11s %d\n", status, counts[domain.VersionStatus(status)])
			}
			return nil
		},
	}
}
