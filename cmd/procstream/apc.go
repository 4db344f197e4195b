package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/procstream"
	"pkt.systems/procstream/schema"
)

func newApcCmd() *cobra.Command {
	var (
		msgType string
		data    string
		newline bool
	)
	cmd := &cobra.Command{
		Use:   "apc",
		Short: "Print an APC frame for a wrapping procstream to pick up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := procstream.FormatApc(procstream.ApcMessage{Type: schema.ApcType(msgType), Data: data})
			if err != nil {
				return err
			}
			if newline {
				frame += "\n"
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), frame)
			return err
		},
	}
	cmd.Flags().StringVar(&msgType, "type", string(schema.ApcInput), "message type")
	cmd.Flags().StringVar(&data, "data", "", "message payload")
	cmd.Flags().BoolVar(&newline, "newline", false, "terminate the frame with a newline")
	return cmd
}
