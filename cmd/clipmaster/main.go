package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipmaster/config"
	"clipmaster/internal/app"
	"clipmaster/internal/download"
	"clipmaster/internal/source"
	"clipmaster/models"
)

var (
	cfgFile string
	verbose bool
	userID  string
)

// @title ClipMaster API
// @version 1.0
// @description Submit videos for highlight extraction, follow their processing and download finished clips.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipmaster",
	Short: "clipmaster - video clip ingestion API",
	Long:  "Accepts uploaded videos and platform links, tracks their processing and serves the finished clips.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		if _, err := config.InitLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CLIPMASTER_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	for _, c := range []*cobra.Command{ingestCmd, listCmd, downloadCmd} {
		c.Flags().StringVar(&userID, "user", "", "owner user id")
		_ = c.MarkFlagRequired("user")
	}
	downloadCmd.Flags().String("out", ".", "directory to write the clip to")
	completeCmd.Flags().String("artifact", "", "URI of the finished clip")
	_ = completeCmd.MarkFlagRequired("artifact")
	completeCmd.Flags().Float64("duration", 0, "clip duration in seconds")
	failCmd.Flags().String("reason", "", "failure reason")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(failCmd)
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, config.FromContext(ctx), config.Log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			config.Log.WithError(err).Warn("Error closing backends")
		}
	}()
	return fn(ctx, a)
}

func owner() (uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --user: %w", err)
	}
	return id, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the health server and the change watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Serve(ctx)
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file or url]",
	Short: "Submit a local video file or a platform link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := owner()
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			in := source.URLInput(args[0])
			if !strings.Contains(args[0], "://") {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				info, err := f.Stat()
				if err != nil {
					return err
				}
				in = source.FileInput(filepath.Base(args[0]), info.Size(), "", f)
			}

			id, err := a.Ingest.Ingest(ctx, user, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's clips, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := owner()
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			clips, err := a.Clips.ListByOwner(ctx, user)
			if err != nil {
				return err
			}
			printClips(cmd.OutOrStdout(), clips)
			return nil
		})
	},
}

func printClips(out io.Writer, clips []models.Clip) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tTITLE")
	for _, c := range clips {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Status, c.CreatedAt.Format("2006-01-02 15:04"), c.Title)
	}
	w.Flush()
}

var downloadCmd = &cobra.Command{
	Use:   "download [clip id]",
	Short: "Save a completed clip as <title>.mp4",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := owner()
		if err != nil {
			return err
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid clip id: %w", err)
		}
		dir, _ := cmd.Flags().GetString("out")

		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			clip, err := a.Clips.Get(ctx, user, id)
			if err != nil {
				return err
			}
			art, err := a.Downloads.Download(ctx, clip)
			if err != nil {
				return err
			}
			defer art.Close()

			path, err := saveArtifact(dir, art)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		})
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete [clip id]",
	Short: "Mark a clip completed with its artifact URI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid clip id: %w", err)
		}
		artifact, _ := cmd.Flags().GetString("artifact")

		var meta models.ClipMetadata
		if cmd.Flags().Changed("duration") {
			d, _ := cmd.Flags().GetFloat64("duration")
			meta.DurationSeconds = &d
		}

		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			clip, err := a.Finalizer.Complete(ctx, id, artifact, meta)
			if err != nil {
				return err
			}
			printClips(cmd.OutOrStdout(), []models.Clip{*clip})
			return nil
		})
	},
}

var failCmd = &cobra.Command{
	Use:   "fail [clip id]",
	Short: "Mark a clip failed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid clip id: %w", err)
		}
		reason, _ := cmd.Flags().GetString("reason")

		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			clip, err := a.Finalizer.Fail(ctx, id, reason)
			if err != nil {
				return err
			}
			printClips(cmd.OutOrStdout(), []models.Clip{*clip})
			return nil
		})
	},
}

// saveArtifact writes art to dir under its file name. An existing file is
// never overwritten and a partial file is removed on failure.
func saveArtifact(dir string, art *download.Artifact) (string, error) {
	path := filepath.Join(dir, art.FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s already exists", path)
		}
		return "", err
	}

	_, err = io.Copy(f, art)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: %w", download.ErrDownloadFailed, err)
	}
	return path, nil
}
