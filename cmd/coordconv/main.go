// 命令行入口：批量转换表格文件中的坐标；任一文件失败时以状态 1 退出
package main

import (
	"fmt"
	"os"

	"coordconv/internal/cli"
	"coordconv/internal/config"
)

func main() {
	cfg := config.Load()
	if err := cli.NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
