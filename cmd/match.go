package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/facescan/internal/analyzer"
	"github.com/kozaktomas/facescan/internal/capture"
	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/inference"
	"github.com/kozaktomas/facescan/internal/matcher"
	"github.com/kozaktomas/facescan/internal/overlay"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <image-file|snapshot-url>",
	Short: "Run one detect-and-match pass on a single image",
	Long: `Run one capture-analyze-match pass on an image file or a camera
snapshot URL and print the overlay boxes that the browser would draw.

Examples:
  # Match faces in a photo
  facescan match photo.jpg --profile people.yaml

  # Poll an IP camera snapshot once and print JSON
  facescan match http://camera.local/snapshot.jpg --json

  # Save the frame with boxes drawn on it
  facescan match photo.jpg --output annotated.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("profile", "", "Reference profile file (JSON or YAML)")
	matchCmd.Flags().Float64("threshold", 0, "Match threshold (0 = MATCH_THRESHOLD or 0.6)")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
	matchCmd.Flags().String("output", "", "Write the analyzed frame with boxes drawn to this JPEG file")
}

// MatchOutput is the JSON result of the match command
type MatchOutput struct {
	Source string        `json:"source"`
	Faces  int           `json:"faces"`
	Boxes  []overlay.Box `json:"boxes"`
}

// frameSource picks an HTTP snapshot for URLs and a static frame for files.
func frameSource(arg string, cfg *config.Config) (capture.FrameSource, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return capture.NewHTTPSnapshot(arg, cfg.Inference.Timeout), nil
	}
	data, err := os.ReadFile(arg) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return capture.StaticFrame(data), nil
}

func printMatchTable(boxes []overlay.Box) {
	if len(boxes) == 0 {
		fmt.Println("No faces detected")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tLABEL\tDISTANCE\tCONFIDENCE\tBOX (x,y,w,h)\tSCORE")
	fmt.Fprintln(w, "-\t-----\t--------\t----------\t-------------\t-----")
	for _, b := range boxes {
		fmt.Fprintf(w, "%d\t%s\t%.3f\t%.2f\t%.0f,%.0f,%.0f,%.0f\t%.2f\n",
			b.Index, b.Match.Label, b.Match.Distance, b.Match.Confidence(),
			b.X, b.Y, b.Width, b.Height, b.Score)
	}
	w.Flush()
}

// analyzeOnce takes a single snapshot and runs the detect-and-match pass on
// it. The returned frame is the snapshot the boxes belong to.
func analyzeOnce(ctx context.Context, src capture.FrameSource, a *analyzer.Analyzer, m *matcher.Matcher) ([]byte, []overlay.Box, error) {
	raw, err := src.Snapshot(ctx)
	if errors.Is(err, capture.ErrNotReady) {
		return nil, nil, errors.New("image is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}

	obs, err := a.AnalyzeImage(ctx, raw)
	if errors.Is(err, analyzer.ErrNoFrame) {
		return nil, nil, errors.New("image is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("analysis failed: %w", err)
	}

	matches, err := m.MatchAll(obs)
	if err != nil {
		return nil, nil, fmt.Errorf("matching failed: %w", err)
	}

	opts := a.Options()
	boxes, err := overlay.Project(obs, matches, opts.FrameWidth, opts.FrameHeight)
	if err != nil {
		return nil, nil, err
	}
	return raw, boxes, nil
}

// saveAnnotated scales the analyzed frame the way the analyzer did and
// writes it with the boxes drawn on it.
func saveAnnotated(raw []byte, opts analyzer.Options, boxes []overlay.Box, path string) error {
	frame, err := analyzer.PrepareFrame(raw, opts.FrameWidth, opts.FrameHeight)
	if err != nil {
		return err
	}
	out, err := overlay.AnnotateJPEG(frame, boxes, 3)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	jsonOutput := mustGetBool(cmd, "json")
	if path := mustGetString(cmd, "profile"); path != "" {
		cfg.Profile.Path = path
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		cfg.Match.Threshold = threshold
	}

	src, err := frameSource(args[0], cfg)
	if err != nil {
		return err
	}

	m, err := buildMatcher(ctx, cfg, jsonOutput)
	if err != nil {
		return err
	}

	client := inference.NewClient(cfg.Inference.URL, cfg.Inference.Timeout)
	if err := client.LoadModels(ctx); err != nil {
		return fmt.Errorf("failed to load inference models: %w", err)
	}

	a := analyzer.New(client, analyzer.OptionsFromConfig(cfg.Capture))
	frame, boxes, err := analyzeOnce(ctx, src, a, m)
	if err != nil {
		return err
	}

	if output := mustGetString(cmd, "output"); output != "" {
		if err := saveAnnotated(frame, a.Options(), boxes, output); err != nil {
			return fmt.Errorf("saving annotated frame: %w", err)
		}
		if !jsonOutput {
			fmt.Printf("Annotated frame saved to %s\n", output)
		}
	}

	if jsonOutput {
		return outputJSON(MatchOutput{Source: args[0], Faces: len(boxes), Boxes: boxes})
	}
	printMatchTable(boxes)
	return nil
}
