// Command assemble merges PDF and image files into one PDF.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ahmedjamion/pdf-merger/internal/composer"
	"github.com/ahmedjamion/pdf-merger/internal/config"
	"github.com/ahmedjamion/pdf-merger/internal/editor"
	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/preview"
	"github.com/spf13/cobra"
)

type assembleFlags struct {
	output      string
	fileName    string
	pageSize    string
	orientation string
	quality     string
	rotate      []string
	remove      []int
	maxPages    int
	previews    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags assembleFlags
	cmd := &cobra.Command{
		Use:   "assemble [files...]",
		Short: "Merge PDF and image files into one PDF",
		Long: `Validates the given PDF, JPG, PNG and WEBP files, lays their pages out
in order and writes a single PDF. Pages are numbered from 1 across all
accepted files.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output path (default <file-name>.pdf)")
	cmd.Flags().StringVar(&flags.fileName, "file-name", models.DefaultFileName, "document name")
	cmd.Flags().StringVar(&flags.pageSize, "page-size", string(models.PageSizeOriginal), "original, a3, a4, a5, letter, legal, folio, tabloid, executive or b5")
	cmd.Flags().StringVar(&flags.orientation, "orientation", string(models.OrientationAuto), "auto, portrait or landscape")
	cmd.Flags().StringVar(&flags.quality, "quality", string(models.QualityHigh), "image quality: high, medium or low")
	cmd.Flags().StringSliceVar(&flags.rotate, "rotate", nil, "rotate page N by degrees, as N=DEG (repeatable)")
	cmd.Flags().IntSliceVar(&flags.remove, "remove", nil, "drop page N (repeatable)")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "compose only the first N pages")
	cmd.Flags().StringVar(&flags.previews, "previews", "", "also write JPEG previews of the output into this directory")
	return cmd
}

func runAssemble(cmd *cobra.Command, args []string, flags assembleFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := cfg.Log.NewLogger()

	opts := editor.OptionsFromConfig(cfg)
	opts.Logger = logger
	ed := editor.New(opts)
	defer ed.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	payloads, err := readPayloads(args)
	if err != nil {
		return err
	}
	result := ed.AddFiles(ctx, payloads)
	for _, r := range result.Rejected {
		cmd.PrintErrf("skipped %s: %s\n", r.Name, strings.Join(r.Reasons, " "))
	}
	if len(result.Accepted) == 0 {
		return errors.New("no file could be accepted")
	}

	if err := applyPageEdits(ed, flags.rotate, flags.remove); err != nil {
		return err
	}
	if err := applySettings(ed, flags); err != nil {
		return err
	}

	limit := composer.AllPages
	if flags.maxPages > 0 {
		limit = flags.maxPages
	}
	data, err := ed.Compose(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to compose document: %w", err)
	}

	out := flags.output
	if out == "" {
		out = ed.Settings().OutputName()
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	logger.Info("Document written.", "path", out, "bytes", len(data))
	written := len(ed.Pages())
	if limit >= 0 && limit < written {
		written = limit
	}
	cmd.Printf("wrote %s (%d pages from %d files)\n", out, written, len(ed.Files()))

	if flags.previews != "" {
		n, err := writePreviews(ctx, ed, cfg, data, flags.previews)
		if err != nil {
			return err
		}
		cmd.Printf("wrote %d previews to %s\n", n, flags.previews)
	}
	return nil
}

func readPayloads(paths []string) ([]models.Payload, error) {
	payloads := make([]models.Payload, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		payloads = append(payloads, models.NewPayload(filepath.Base(p), "", info.ModTime(), data))
	}
	return payloads, nil
}

// applyPageEdits rotates and removes pages by their 1-based position in the
// initial page list.
func applyPageEdits(ed *editor.Editor, rotate []string, remove []int) error {
	pages := ed.Pages()
	pageID := func(n int) (string, error) {
		if n < 1 || n > len(pages) {
			return "", fmt.Errorf("page %d out of range 1-%d", n, len(pages))
		}
		return pages[n-1].ID, nil
	}

	for _, arg := range rotate {
		num, deg, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("invalid --rotate %q, want N=DEG", arg)
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return fmt.Errorf("invalid --rotate %q: %w", arg, err)
		}
		d, err := strconv.Atoi(strings.TrimSpace(deg))
		if err != nil {
			return fmt.Errorf("invalid --rotate %q: %w", arg, err)
		}
		id, err := pageID(n)
		if err != nil {
			return err
		}
		if err := ed.RotatePage(id, d); err != nil {
			return err
		}
	}
	for _, n := range remove {
		id, err := pageID(n)
		if err != nil {
			return err
		}
		if err := ed.RemovePage(id); err != nil {
			return err
		}
	}
	return nil
}

func applySettings(ed *editor.Editor, flags assembleFlags) error {
	ed.SetFileName(flags.fileName)
	if err := ed.SetPageSize(flags.pageSize); err != nil {
		return err
	}
	if err := ed.SetOrientation(flags.orientation); err != nil {
		return err
	}
	return ed.SetQuality(flags.quality)
}

func writePreviews(ctx context.Context, ed *editor.Editor, cfg *config.Config, pdf []byte, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	handles := ed.ComposedPreview(ctx, pdf, preview.ComposedOptions{
		Scale:    cfg.Preview.FullScale,
		MaxPages: cfg.Preview.FullMaxPages,
	})
	defer func() {
		for _, h := range handles {
			_ = h.Release()
		}
	}()
	for i, h := range handles {
		path := filepath.Join(dir, fmt.Sprintf("page-%03d.jpg", i+1))
		if err := os.WriteFile(path, h.Bytes(), 0o644); err != nil {
			return i, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return len(handles), nil
}
