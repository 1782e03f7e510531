package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"expdb/internal/logger"
	"expdb/internal/registry"
)

// batchError reports how many items of a multi-id command failed. Each
// failure has already been printed; the wrapped errors stay reachable through
// errors.Is.
type batchError struct {
	what   string
	failed int
	total  int
	errs   []error
}

func (e *batchError) Error() string {
	return fmt.Sprintf("%d of %d %s failed", e.failed, e.total, e.what)
}

func (e *batchError) Unwrap() []error {
	return e.errs
}

// failure is one failed item as reported in structured output.
type failure struct {
	Item  string `json:"item" yaml:"item"`
	Error string `json:"error" yaml:"error"`
}

// batch collects per-item failures. Text modes print each failure as it is
// recorded; structured modes log it to stderr and attach it to the payload so
// stdout stays a single document.
type batch struct {
	app      *App
	what     string
	total    int
	errs     []error
	failures []failure
}

func (app *App) newBatch(what string, total int) *batch {
	return &batch{app: app, what: what, total: total}
}

func (b *batch) fail(item string, err error) {
	b.errs = append(b.errs, err)
	b.failures = append(b.failures, failure{Item: item, Error: err.Error()})
	if b.app.printer.Structured() {
		logger.NewStyledLogger("expdb").Error("Item failed", "item", item, "error", err)
		return
	}
	b.app.printer.Error(fmt.Sprintf("%s: %v", item, err))
	logger.Debug("Item failed", "item", item, "error", err)
}

// data prints payload, adding the recorded failures under "failed".
func (b *batch) data(payload map[string]any) error {
	if len(b.failures) > 0 {
		payload["failed"] = b.failures
	}
	return b.app.printer.Data(payload)
}

func (b *batch) err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return &batchError{what: b.what, failed: len(b.errs), total: b.total, errs: b.errs}
}

// addQueryCommands adds the read-only list and info commands
func (app *App) addQueryCommands(rootCmd *cobra.Command) {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all experiment ids",
		Long:  `Print the distinct experiment ids found in the configuration collection.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withClient(cmd.Context(), func(client *registry.Client) error {
				ids, err := client.ListIDs(cmd.Context())
				if err != nil {
					return err
				}
				if app.printer.Structured() {
					return app.printer.Data(map[string]any{"experiment_ids": ids})
				}
				if len(ids) == 0 {
					app.printer.Info("No experiments found")
					return nil
				}
				for _, id := range ids {
					app.printer.Println(id)
				}
				return nil
			})
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info [experiment-id ...]",
		Short: "Describe experiments",
		Long: `Print the name, creation time, simulated run time and description of the
given experiments, or of every experiment when no id is given. A failing id
is reported and the remaining ids are still described.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(client *registry.Client) error {
				return app.runInfo(cmd.Context(), client, args)
			})
		},
	}

	rootCmd.AddCommand(listCmd, infoCmd)
}

func (app *App) runInfo(ctx context.Context, client *registry.Client, ids []string) error {
	var (
		summaries []*registry.Summary
		err       error
	)
	if len(ids) == 0 {
		summaries, err = client.DescribeAll(ctx)
	} else {
		summaries, err = client.DescribeMany(ctx, ids)
	}
	failed, err := describeFailures(err)
	if err != nil {
		return err
	}

	b := app.newBatch("experiments", len(summaries)+len(failed))
	for _, f := range failed {
		b.fail(f.ExperimentID, f.Err)
	}
	if app.printer.Structured() {
		if summaries == nil {
			summaries = []*registry.Summary{}
		}
		if err := b.data(map[string]any{"experiments": summaries}); err != nil {
			return err
		}
		return b.err()
	}
	for _, s := range summaries {
		app.printSummary(s)
	}
	return b.err()
}

// describeFailures splits the error of DescribeMany into its per-experiment
// failures. Anything else, such as a failed id listing, is returned as is.
func describeFailures(err error) ([]*registry.DescribeError, error) {
	if err == nil {
		return nil, nil
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return nil, err
	}
	var failed []*registry.DescribeError
	for _, e := range joined.Unwrap() {
		var de *registry.DescribeError
		if !errors.As(e, &de) {
			return nil, err
		}
		failed = append(failed, de)
	}
	return failed, nil
}

func (app *App) printSummary(s *registry.Summary) {
	const width = 18
	app.printer.Heading(s.ExperimentID)
	app.printer.Field("experiment name", s.Name, width)
	app.printer.Field("time created", s.Date+" at "+s.Time, width)
	app.printer.Field("simulated run time", fmt.Sprint(s.LastEmit), width)
	app.printer.Field("description", s.Description, width)
}

// addDeleteCommands adds the destructive delete and purge commands
func (app *App) addDeleteCommands(rootCmd *cobra.Command) {
	var deleteYes, purgeYes bool

	deleteCmd := &cobra.Command{
		Use:   "delete <experiment-id> [experiment-id ...]",
		Short: "Delete experiments",
		Long: `Delete every configuration and history record of the given experiments
after confirmation. Ids without records are ignored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(client *registry.Client) error {
				n, err := client.Delete(cmd.Context(), args, app.confirmer(deleteYes))
				return app.reportDeleted(n, err, map[string]any{"experiment_ids": args})
			})
		},
	}
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking for confirmation")

	purgeCmd := &cobra.Command{
		Use:   "purge [experiment-id ...]",
		Short: "Delete all experiments",
		Long: `Delete every record from the configuration and history collections after
confirmation. Given ids, only those experiments are purged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(client *registry.Client) error {
				if len(args) > 0 {
					n, err := client.Delete(cmd.Context(), args, app.confirmer(purgeYes))
					return app.reportDeleted(n, err, map[string]any{"experiment_ids": args})
				}
				n, err := client.Purge(cmd.Context(), app.confirmer(purgeYes))
				return app.reportDeleted(n, err, map[string]any{"purged": true})
			})
		},
	}
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "Purge without asking for confirmation")

	rootCmd.AddCommand(deleteCmd, purgeCmd)
}

// reportDeleted prints the outcome of a delete or purge. A declined
// confirmation is not a failure.
func (app *App) reportDeleted(n int64, err error, fields map[string]any) error {
	if errors.Is(err, registry.ErrNotConfirmed) {
		app.printer.Warning("Nothing deleted")
		return nil
	}
	if err != nil {
		return err
	}
	if app.printer.Structured() {
		fields["deleted_records"] = n
		return app.printer.Data(fields)
	}
	app.printer.Success(fmt.Sprintf("Deleted %d record(s)", n))
	return nil
}

// addTransferCommands adds the download and upload commands
func (app *App) addTransferCommands(rootCmd *cobra.Command) {
	var dir string
	var newID bool

	downloadCmd := &cobra.Command{
		Use:   "download <experiment-id> [experiment-id ...]",
		Short: "Export experiments to JSON files",
		Long: `Write each experiment to <experiment-id>.json: all history records under
"data" and the configuration record under "environment_config", encoded as
canonical Extended JSON so every value type survives an upload.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(client *registry.Client) error {
				b := app.newBatch("downloads", len(args))
				written := make([]string, 0, len(args))
				for _, id := range args {
					path, err := exportPath(dir, id)
					if err != nil {
						b.fail(id, err)
						continue
					}
					if err := client.ExportToFile(cmd.Context(), id, path); err != nil {
						b.fail(id, err)
						continue
					}
					written = append(written, path)
					if !app.printer.Structured() {
						app.printer.Success(fmt.Sprintf("Downloaded %s to %s", id, path))
					}
				}
				if app.printer.Structured() {
					if err := b.data(map[string]any{"files": written}); err != nil {
						return err
					}
				}
				return b.err()
			})
		},
	}
	downloadCmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the files to")

	uploadCmd := &cobra.Command{
		Use:   "upload <json-file> [json-file ...]",
		Short: "Import experiments from JSON files",
		Long: `Insert the configuration and history records of each file. A file whose
experiment id already exists, or that is malformed, is reported and skipped
without writing anything; the remaining files are still uploaded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd.Context(), func(client *registry.Client) error {
				b := app.newBatch("uploads", len(args))
				uploaded := make(map[string]string, len(args))
				for _, path := range args {
					id, err := client.ImportFromFile(cmd.Context(), path, registry.ImportOptions{NewID: newID})
					if err != nil {
						b.fail(path, err)
						continue
					}
					uploaded[path] = id
					if !app.printer.Structured() {
						app.printer.Success(fmt.Sprintf("Uploaded %s as %s", path, id))
					}
				}
				if app.printer.Structured() {
					if err := b.data(map[string]any{"uploaded": uploaded}); err != nil {
						return err
					}
				}
				return b.err()
			})
		},
	}
	uploadCmd.Flags().BoolVar(&newID, "new-id", false, "Store each file under a freshly generated experiment id")

	rootCmd.AddCommand(downloadCmd, uploadCmd)
}

// exportPath returns the file an experiment is downloaded to. Ids that would
// name a file outside dir are rejected.
func exportPath(dir, id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: experiment id %q cannot be used as a file name", registry.ErrMalformedInput, id)
	}
	return filepath.Join(dir, id+".json"), nil
}
