// Package cmd 命令行入口
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ninja0404/meme-sniper/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:   "meme-sniper",
	Short: "Solana 新池狙击与仓位管理服务",
	Long: `订阅 Raydium 与 pump.fun 的链上日志，按配置过滤新池并自动买入，
对持有的仓位按止盈止损自动卖出，交易同时提交到多个节点，以最先确认的结果为准。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.SetEnvPrefix(envPrefix)
	},
}

var envPrefix string

// Execute 由 main 调用
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", "", "ENV、CONFIG_TYPE、CONFIG_FILE_PATH 等环境变量的前缀")
}
