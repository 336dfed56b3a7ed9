// 包 cli：coordconv 命令行，子命令共用 .env 与环境变量配置，命令行参数优先
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"coordconv/internal/config"
	"coordconv/internal/logger"
	"coordconv/internal/migrate"
	"coordconv/internal/store"
	"coordconv/internal/utils"
)

// ErrFilesFailed：至少一个文件转换失败，进程以非零状态退出
var ErrFilesFailed = errors.New("some files failed to convert")

// NewRootCmd：cfg 为 .env 与环境变量合并后的默认值
func NewRootCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "coordconv",
		Short:         "批量转换 GCJ02 / BD09 / WGS84 坐标",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.SetupWriter(cmd.ErrOrStderr())
		},
	}
	cmd.AddCommand(
		newConvertCmd(cfg),
		newColumnsCmd(cfg),
		newPointCmd(cfg),
		newWatchCmd(cfg),
		newDirectionsCmd(),
	)
	return cmd
}

// openHistory：连接 PostgreSQL 并确保表结构；调用方负责关闭返回的 Store
func openHistory(ctx context.Context) (*store.Store, error) {
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate.EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store.AttachDB(db), nil
}
