package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"frameScope/render"
	"frameScope/report"
)

var decodeLayout string

func init() {
	decodeCmd.Flags().StringVar(&decodeLayout, "layout", "table", "text layout (lines|table)")
}

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Render a msgpack report stream as text",
	Long:  `decode reads reports written with "run --format msgpack" from a file or stdin and prints every batch.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		colorMode, _ := cmd.Flags().GetString("color")
		applyColor(colorMode)

		layout, err := render.ParseLayout(decodeLayout)
		if err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return decodeStream(bufio.NewReader(in), &render.TextSink{W: cmd.OutOrStdout(), Layout: layout, Color: !color.NoColor})
	},
}

// decodeStream renders every batch in r until end of input.
func decodeStream(r *bufio.Reader, sink report.Sink) error {
	for batch := 1; ; batch++ {
		if _, err := r.Peek(1); errors.Is(err, io.EOF) {
			return nil
		}
		metrics, err := render.DecodeMetrics(r)
		if err != nil {
			return fmt.Errorf("batch %d: %w", batch, err)
		}
		if err := report.WriteMetrics(metrics, sink); err != nil {
			return err
		}
	}
}
