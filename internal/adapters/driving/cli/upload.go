package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/logger"
)

// previewLength bounds chunk text in table output.
const previewLength = 72

var (
	uploadJSON   bool
	uploadSubmit bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a PDF and print its chunks",
	Long: `Uploads a PDF to the chunking service and prints the chunks it returns.

With --submit the chunks are sent on unchanged for embedding generation.
Progress bars are drawn on stderr when it is a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadJSON, "json", false, "output chunks as JSON")
	uploadCmd.Flags().BoolVar(&uploadSubmit, "submit", false, "submit the chunks for embedding generation")
	rootCmd.AddCommand(uploadCmd)
}

// chunkJSON is the --json form of a chunk.
type chunkJSON struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Source   string         `json:"source,omitempty"`
	Page     int            `json:"page"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func runUpload(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}
	ctx := cmd.Context()

	bar := newProgressBar(cmd.ErrOrStderr(), "Uploading")
	err := pipelineService.Upload(ctx, args[0], func(percent int) {
		bar.set(percent)
	})
	if err != nil {
		bar.abort()
		return fmt.Errorf("upload failed: %w", err)
	}
	bar.finish()

	snap := pipelineService.Snapshot()
	if uploadJSON {
		if err := outputChunksJSON(cmd, snap.Chunks); err != nil {
			return err
		}
	} else {
		outputChunksTable(cmd, snap)
	}

	if !uploadSubmit {
		return nil
	}
	return submit(cmd, len(snap.Chunks), snap.FileName)
}

// submit sends the collection and follows processing progress events.
func submit(cmd *cobra.Command, count int, fileName string) error {
	ctx := cmd.Context()

	bar := newProgressBar(cmd.ErrOrStderr(), "Generating embeddings")
	unsubscribe := pipelineService.Subscribe(func(ev domain.PipelineEvent) {
		switch ev.Kind {
		case domain.EventProcessingProgress, domain.EventProcessingComplete:
			bar.set(ev.Progress)
		}
	})
	defer unsubscribe()

	outcome, err := pipelineService.StartProcessing(ctx)
	if err == nil {
		err = <-outcome
	}
	if err != nil {
		bar.abort()
		return fmt.Errorf("submission failed: %w", err)
	}
	bar.finish()

	logger.Info("submitted %d chunks from %s", count, fileName)
	// Keep stdout clean for --json consumers.
	fmt.Fprintf(cmd.ErrOrStderr(), "Embeddings generated for %s (%d chunks).\n", fileName, count)
	return nil
}

func outputChunksJSON(cmd *cobra.Command, chunks []domain.Chunk) error {
	out := make([]chunkJSON, len(chunks))
	for i := range chunks {
		out[i] = chunkJSON{
			ID:       chunks[i].ID,
			Content:  chunks[i].Content,
			Source:   chunks[i].Metadata.Source,
			Page:     chunks[i].Metadata.Page,
			Metadata: chunks[i].Metadata.Extra,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chunks: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputChunksTable(cmd *cobra.Command, snap domain.PipelineSnapshot) {
	if len(snap.Chunks) == 0 {
		cmd.Println("No chunks returned.")
		return
	}

	cmd.Printf("%s: %d chunks\n\n", snap.FileName, len(snap.Chunks))
	for i := range snap.Chunks {
		// Format: [N] p.PAGE  preview
		cmd.Printf("[%d] p.%d  %s\n", i+1, snap.Chunks[i].Metadata.Page, preview(snap.Chunks[i].Content))
	}
}

// preview flattens whitespace and truncates s for one-line display.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= previewLength {
		return s
	}
	return string(runes[:previewLength-3]) + "..."
}

// progressBar draws percentages on a terminal and is silent otherwise.
type progressBar struct {
	bar *progressbar.ProgressBar
}

func newProgressBar(w io.Writer, description string) *progressBar {
	if !isTerminal(w) {
		return &progressBar{}
	}
	bar := progressbar.NewOptions(
		100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &progressBar{bar: bar}
}

func (p *progressBar) set(percent int) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Set(percent)
}

func (p *progressBar) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

// abort erases the bar so an error message starts on a clean line.
func (p *progressBar) abort() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Clear()
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
