package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/nutriscan/internal/imageprep"
	"github.com/vbonduro/nutriscan/internal/service"
)

type analyzeOptions struct {
	text  string
	image string
	save  bool
}

func newAnalyzeCmd(configFile *string) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a dish from a description or a photo",
		Example: `  nutriscan analyze --text "masala dosa"
  nutriscan analyze --image lunch.jpg --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.text == "" && opts.image == "" {
				return fmt.Errorf("one of --text or --image is required")
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), *configFile, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.text, "text", "t", "", "Description of the dish")
	cmd.Flags().StringVarP(&opts.image, "image", "i", "", "Path to a photo of the dish")
	cmd.Flags().BoolVarP(&opts.save, "save", "s", false, "Append the result to history")
	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, configFile string, opts analyzeOptions) error {
	a, err := newApp(ctx, configFile, true)
	if err != nil {
		return err
	}
	defer a.close()

	in := service.Input{Text: opts.text}
	if opts.image != "" {
		data, mimeType, err := readPhoto(opts.image, a.cfg.MaxUploadBytes)
		if err != nil {
			return err
		}
		in.Image = base64.StdEncoding.EncodeToString(data)
		in.MIMEType = mimeType
	}

	res, err := a.analysis.Analyze(ctx, in)
	if err != nil {
		return err
	}

	if opts.save {
		item, err := a.history.Save(ctx, res.Record)
		if err != nil {
			return fmt.Errorf("analysis succeeded but was not saved: %w", err)
		}
		a.logger.Debug("saved to history", "id", item.ID)
	}
	return printJSON(out, res)
}

// readPhoto loads a photo from disk, applying the same checks as uploads.
func readPhoto(path string, limit int64) ([]byte, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	if err := imageprep.CheckSize(info.Size(), limit); err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	mimeType, ok := imageprep.DetectMIME(data)
	if !ok {
		return nil, "", fmt.Errorf("%s is not a JPEG, PNG, GIF or WebP image", path)
	}
	return data, mimeType, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
