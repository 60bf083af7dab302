package main

import (
	"fmt"

	"aerodetect/internal/labelconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	BaseDir string
	Classes map[string]int
	Splits  []string
}

var convertOpts convertOptions

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert <dir>/labels/<split>/<split>_labels.csv files to YOLO label files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd, convertOpts)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertOpts.BaseDir, "dir", "d", ".", "Dataset directory containing labels/<split>/")
	convertCmd.Flags().StringToIntVar(&convertOpts.Classes, "class", labelconv.DefaultClassMap, "Class name to id mapping, e.g. Drone=0,Helicopter=1")
	convertCmd.Flags().StringSliceVar(&convertOpts.Splits, "splits", labelconv.DefaultSplits, "Splits to convert")
}

func runConvert(cmd *cobra.Command, opts convertOptions) error {
	converter := labelconv.NewConverter(opts.BaseDir, opts.Classes)
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	for _, split := range opts.Splits {
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		// The file count is only known once the CSV is read.
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(fmt.Sprintf("🏷️  %s", split)),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionShowCount(),
		)

		var skipped []string
		result, err := converter.ConvertSplit(split, func(f labelconv.LabelFile) {
			for _, label := range f.Skipped {
				skipped = append(skipped, fmt.Sprintf("Skipping unknown label '%s' in file %s", label, f.Image))
			}
			bar.Add(1)
		})
		bar.Finish()
		fmt.Fprintln(stderr)
		if err != nil {
			return err
		}

		for _, msg := range skipped {
			fmt.Fprintf(stderr, "⚠️  %s\n", msg)
		}
		fmt.Fprintf(stdout, "✅ Converted %s_labels.csv to YOLO format in %s (%d files, %d boxes)\n",
			split, converter.SplitDir(split), result.Files, result.Boxes)
	}
	return nil
}
