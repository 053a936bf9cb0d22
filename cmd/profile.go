package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/database"
	"github.com/kozaktomas/facescan/internal/profile"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the reference profile stored in PostgreSQL",
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSON or YAML profile into PostgreSQL",
	Long: `Import reference embeddings from a JSON or YAML profile file into
PostgreSQL. Every label in the file replaces the references stored under
that label; labels not in the file are left alone.

The file maps labels to lists of embeddings:

  alice:
    - [0.12, -0.03, ...]
    - [0.10, -0.01, ...]
  bob:
    - [0.44, 0.21, ...]`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileImport,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List labels stored in PostgreSQL",
	RunE:  runProfileList,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <label>",
	Short: "Delete every reference stored under a label",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	profileImportCmd.Flags().Bool("json", false, "Output as JSON")
	profileListCmd.Flags().Bool("json", false, "Output as JSON")
}

// ImportSummary is the JSON result of profile import
type ImportSummary struct {
	Labels     int `json:"labels"`
	References int `json:"references"`
	Dim        int `json:"dim"`
}

func runProfileImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	p, err := profile.LoadFile(args[0])
	if err != nil {
		return err
	}
	dim, err := profile.Validate(p)
	if err != nil {
		return err
	}

	pool, _, err := openProfileStore(ctx, config.Load())
	if err != nil {
		return err
	}
	defer pool.Close()

	writer, err := database.GetProfileWriter(ctx)
	if err != nil {
		return err
	}

	labels := profile.Labels(p)
	refs := profile.ToReferences(p, filepath.Base(args[0]))
	byLabel := make(map[string][]database.StoredReference, len(labels))
	for _, ref := range refs {
		byLabel[ref.Label] = append(byLabel[ref.Label], ref)
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(labels),
			progressbar.OptionSetDescription("Importing profile"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("labels"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	for _, label := range labels {
		if err := writer.ReplaceLabel(ctx, label, byLabel[label]); err != nil {
			return fmt.Errorf("importing %s: %w", label, err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	summary := ImportSummary{Labels: len(labels), References: len(refs), Dim: dim}
	if jsonOutput {
		return outputJSON(summary)
	}
	fmt.Printf("\nImported %d references for %d labels (dim %d)\n", summary.References, summary.Labels, summary.Dim)
	return nil
}

func runProfileList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	pool, repo, err := openProfileStore(ctx, config.Load())
	if err != nil {
		return err
	}
	defer pool.Close()

	labels, err := repo.ListLabels(ctx)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		if labels == nil {
			labels = []database.LabelSummary{}
		}
		return outputJSON(labels)
	}

	if len(labels) == 0 {
		fmt.Println("No references stored")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tREFERENCES")
	fmt.Fprintln(w, "-----\t----------")
	for _, l := range labels {
		fmt.Fprintf(w, "%s\t%d\n", l.Label, l.References)
	}
	return w.Flush()
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	pool, _, err := openProfileStore(ctx, config.Load())
	if err != nil {
		return err
	}
	defer pool.Close()

	writer, err := database.GetProfileWriter(ctx)
	if err != nil {
		return err
	}
	n, err := writer.DeleteLabel(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d references for %s\n", n, args[0])
	return nil
}
