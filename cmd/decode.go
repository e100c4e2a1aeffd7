package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ninja0404/meme-sniper/internal/decoder"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <log line>",
	Short: "解析一条 ray_log 或 pump.fun 程序日志",
	Example: `  meme-sniper decode "ray_log: A4CWmAAAAAAA..."
  meme-sniper decode "Program data: vdt/007mYe4..."`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := describe(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

type decodedEvent struct {
	Protocol  string            `json:"protocol"`
	Kind      string            `json:"kind"`
	Pre       decoder.Reserves  `json:"pre"`
	Next      decoder.Reserves  `json:"next"`
	AmountOut uint64            `json:"amount_out"`
	Event     decoder.PoolEvent `json:"event"`
}

func describe(line string) ([]byte, error) {
	ev, err := decoder.Decode(line)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(decodedEvent{
		Protocol:  ev.Protocol().String(),
		Kind:      ev.Kind().String(),
		Pre:       ev.Pre(),
		Next:      ev.Next(),
		AmountOut: ev.AmountOut(),
		Event:     ev,
	}, "", "  ")
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
