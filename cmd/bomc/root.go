package main

import (
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// cli 收拢命令的输出端与环境，测试中整体替换。
type cli struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	getwd  func() (string, error)
}

func newCLI() *cli {
	return &cli{
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
		getwd:  os.Getwd,
	}
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bomc",
		Short: "抓取 Box Office Mojo 月度票房榜并补全评分与中文片名",
		Long: `bomc 抓取 Box Office Mojo 指定月份的票房前 10，
按年份在 IMDb / 豆瓣检索同名作品补全评分与中文片名，输出 UTF-8 (BOM) CSV。

在线检索失败时使用内置回退数据；仍无结果的字段写 N/A。`,
		// stdout 只允许出现一份 RunReport JSON；错误与用法由调用方输出。
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env 可选
			_ = godotenv.Load()
		},
	}
	cmd.SetOut(c.stdout)
	cmd.SetErr(c.stderr)

	cmd.AddCommand(newRunCmd(c))
	cmd.AddCommand(newInspectCmd(c))
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
