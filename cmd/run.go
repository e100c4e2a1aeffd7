package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ninja0404/meme-sniper/internal/app"
)

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "启动狙击服务",
	Long: `加载配置后启动数据源、交易主循环、发布器和管理接口，收到 SIGINT/SIGTERM 后优雅退出。

CONFIG_TYPE=MSE 时忽略 --config，改为从 nacos 读取配置。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.New().Start(configPath)
	},
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "./config/config.yaml", "配置文件路径")
	rootCmd.AddCommand(runCmd)
}
