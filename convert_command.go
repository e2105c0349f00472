package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"wifski/logger"
	"wifski/models"
	"wifski/utils"
)

// optionFlags maps CLI flags onto the form fields the server accepts.
var optionFlags = []struct {
	flag, field, usage string
}{
	{"resize", "resize", "Output size in percent: 100, 75, 50 or 25"},
	{"speed", "speed", "Playback speed multiplier, 0.5 to 5"},
	{"fps", "fps", "Frames per second, 3 to 10"},
	{"quality", "quality", "Quality 0-100; selects the dithering algorithm"},
	{"loop", "loop", "forever, bounce, or a repeat count"},
	{"start", "start_time", "Trim start, HH:MM:SS[.ms] or seconds"},
	{"end", "end_time", "Trim end, HH:MM:SS[.ms] or seconds"},
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var output string
	values := make(map[string]*string, len(optionFlags))

	cmd := &cobra.Command{
		Use:   "convert INPUT",
		Short: "Convert a local video to a GIF without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + ".gif"
			}

			fields := make(map[string]string)
			for _, f := range optionFlags {
				if cmd.Flags().Changed(f.flag) {
					fields[f.field] = *values[f.flag]
				}
			}
			opts := models.ParseForm(fields)

			proc, err := newProcessor(ctx.config)
			if err != nil {
				return err
			}
			res, err := proc.Convert(cmd.Context(), utils.NewRequestID(), input, opts)
			if err != nil {
				return fmt.Errorf("convert %s: %w", input, err)
			}
			if err := os.WriteFile(output, res.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			logger.Infof("Wrote %s (%d bytes)", output, len(res.Data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output GIF path (defaults to INPUT with .gif)")
	for _, f := range optionFlags {
		values[f.flag] = cmd.Flags().String(f.flag, "", f.usage)
	}
	return cmd
}
