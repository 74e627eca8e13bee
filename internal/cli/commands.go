package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"animehub/internal/auth"
	"animehub/internal/catalog"
	"animehub/internal/reconcile"
	"animehub/internal/visits"
	"animehub/pkg/models"
)

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", e.cfg.Database.Path)
			return nil
		},
	}
}

func newReconcileCommand(opts *RootOptions) *cobra.Command {
	var animeID string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute status and views for every anime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			rec := reconcile.New(e.db, nil, e.log)
			rec.ZeroTargetOngoing = e.cfg.Reconcile.ZeroTargetOngoing

			if animeID != "" {
				if err := rec.AnimeStatus(ctx, animeID); err != nil {
					return err
				}
				views, found, err := rec.AnimeViews(ctx, animeID)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("anime %s not found", animeID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reconciled %s (views %d)\n", animeID, views)
				return nil
			}

			res, err := reconcile.NewSweeper(rec, e.cfg.Reconcile.LockPath, "", e.log).RunOnce(ctx)
			if errors.Is(err, reconcile.ErrSweepLocked) {
				return fmt.Errorf("%w; is the api server sweeping right now?", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d animes, %d failed, in %s\n",
				res.Animes, res.Failed, res.Duration.Round(time.Millisecond))
			if res.Failed > 0 {
				return fmt.Errorf("%d animes failed to reconcile", res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&animeID, "anime", "", "reconcile a single anime by id")
	return cmd
}

func newVisitsCommand(opts *RootOptions) *cobra.Command {
	var (
		from, to string
		asCSV    bool
	)
	cmd := &cobra.Command{
		Use:   "visits",
		Short: "Show daily visit counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			repo := visits.NewRepo(e.db, e.cfg.Location())
			var items []models.DailyVisit
			if from == "" && to == "" {
				items, err = repo.List(ctx)
			} else {
				if from == "" {
					from = "0000-01-01"
				}
				if to == "" {
					to = "9999-12-31"
				}
				items, err = repo.Range(ctx, from, to)
			}
			if err != nil {
				return err
			}

			if asCSV {
				return visits.WriteCSV(cmd.OutOrStdout(), items)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderVisits(items))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func renderVisits(items []models.DailyVisit) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Date", "Visits"})
	for _, v := range items {
		tw.AppendRow(table.Row{v.Date, strconv.FormatInt(v.Count, 10)})
	}
	tw.AppendFooter(table.Row{"Total", strconv.FormatInt(visits.Total(items), 10)})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}

func newImportCommand(opts *RootOptions) *cobra.Command {
	var mirror bool
	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import animes and episodes from YAML files and the configured mirror",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			var sources []catalog.Source
			for _, path := range args {
				sources = append(sources, catalog.NewFileSource(path))
			}
			if mirror {
				if e.cfg.Catalog.MirrorURL == "" {
					return errors.New("catalog.mirror_url is not configured")
				}
				timeout := time.Duration(e.cfg.Catalog.TimeoutSeconds) * time.Second
				sources = append(sources, catalog.NewMirrorSource(e.cfg.Catalog.MirrorURL, timeout))
			}
			if len(sources) == 0 {
				return errors.New("nothing to import: pass a file or --mirror")
			}

			rec := reconcile.New(e.db, nil, e.log)
			rec.ZeroTargetOngoing = e.cfg.Reconcile.ZeroTargetOngoing
			res, err := catalog.NewImporter(e.db, rec, e.log).Run(ctx, sources...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d animes, %d episodes, %d genre links (%d skipped)\n",
				res.Animes, res.Episodes, res.Genres, res.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&mirror, "mirror", false, "also fetch from catalog.mirror_url")
	return cmd
}

func newPromoteCommand(opts *RootOptions) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Change a user's role; existing tokens are revoked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if err := auth.NewRepo(e.db).SetRole(ctx, args[0], role); err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					return fmt.Errorf("no user with email %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "role to grant (user or admin)")
	return cmd
}
