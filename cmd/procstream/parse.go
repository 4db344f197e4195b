package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/procstream"
	"pkt.systems/procstream/internal/appconfig"
	"pkt.systems/procstream/internal/decoder"
	"pkt.systems/procstream/internal/render"
)

func newParseCmd(cfgPath *string) *cobra.Command {
	var (
		format   string
		chunk    int
		encoding string
		stderr   bool
	)
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Turn a captured output stream into events",
		Long:  "Reads a captured byte stream from file, or stdin when omitted, and prints the events a child process writing it would produce.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("encoding") {
				cfg.Reader.Encoding = encoding
			}
			enc, err := decoder.Lookup(cfg.Reader.Encoding)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("chunk") {
				chunk = cfg.Reader.BufferSize
			}

			var src io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				src = f
			}

			renderer, err := render.New(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			if err := procstream.ReadStream(cmd.Context(), src, renderer.OnOutput,
				procstream.WithStdErr(stderr),
				procstream.WithEncoding(enc),
				procstream.WithBufferSize(chunk),
			); err != nil {
				return err
			}
			return renderer.Err()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", appconfig.FormatJSONL, "output format (console|plain|jsonl)")
	cmd.Flags().IntVar(&chunk, "chunk", 0, "read size, to replay how a pipe splits the stream")
	cmd.Flags().StringVar(&encoding, "encoding", "", "byte encoding of the stream")
	cmd.Flags().BoolVar(&stderr, "stderr", false, "mark events as standard error")
	return cmd
}
