// Package main 提供 peersetd 命令行入口
//
// peersetd 在内存模拟传输上运行一个 peerset 节点，并通过 HTTP 暴露 /metrics，
// 用于观察槽位分配、重拨退避与信誉衰减的实际行为。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	peerset "github.com/dep2p/go-peerset"
	"github.com/dep2p/go-peerset/config"
	utillog "github.com/dep2p/go-peerset/internal/util/logger"
	"github.com/dep2p/go-peerset/pkg/lib/log"
)

var logger = log.Logger("peerset/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖 / 快速测试
//   JSON 配置文件：持久化配置（协议、信誉、退避、模拟传输）
//
// ═══════════════════════════════════════════════════════════════════════════

// cliFlags 命令行参数
type cliFlags struct {
	configFile   string
	preset       string
	protocols    string
	maxIn        int
	maxOut       int
	reserved     string
	reservedOnly bool
	remotePeers  int
	failureRate  float64
	metricsAddr  string
	persist      bool
	dataDir      string
	logFile      string
	fxLog        bool
	showVersion  bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs.StringVar(&f.configFile, "config", "", "配置文件路径")
	fs.StringVar(&f.preset, "preset", "", "预设配置 (test/server)")
	fs.StringVar(&f.protocols, "protocols", "", "通知协议，逗号分隔（默认 "+config.DefaultProtocol+"）")
	fs.IntVar(&f.maxIn, "max-in", -1, "每个协议的入站槽位")
	fs.IntVar(&f.maxOut, "max-out", -1, "每个协议的出站槽位")
	fs.StringVar(&f.reserved, "reserved", "", "保留节点，逗号分隔")
	fs.BoolVar(&f.reservedOnly, "reserved-only", false, "只与保留节点连接")
	fs.IntVar(&f.remotePeers, "remote-peers", -1, "模拟的远端节点数")
	fs.Float64Var(&f.failureRate, "failure-rate", -1, "模拟的打开失败概率 [0, 1]")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "/metrics 监听地址")
	fs.BoolVar(&f.persist, "persist", false, "持久化节点信誉")
	fs.StringVar(&f.dataDir, "data-dir", "", "数据目录")
	fs.StringVar(&f.logFile, "log", "", "日志文件路径")
	fs.BoolVar(&f.fxLog, "fx-log", false, "输出 Fx 依赖注入日志")
	fs.BoolVar(&f.showVersion, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("peersetd", flag.ContinueOnError)
	flags, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if flags.showVersion {
		fmt.Println(peerset.VersionInfo())
		return nil
	}

	// 设置日志
	utillog.Setup(nil)
	logPath := flags.logFile
	if logPath == "" {
		logPath = os.Getenv(config.EnvPrefix + config.EnvLogFile)
	}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // 用户指定的日志路径
		if err != nil {
			fmt.Fprintf(os.Stderr, "警告: 打开日志文件失败: %v\n", err)
		} else {
			defer func() { _ = f.Close() }()
			utillog.SetOutput(f)
		}
	}

	cfg, err := buildConfig(fs, flags, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	logger.Info("启动 peersetd", "version", peerset.Version, "commit", peerset.GitCommit, "buildDate", peerset.BuildDate)

	node, err := peerset.Start(context.Background(),
		peerset.WithConfig(cfg),
		peerset.WithFxLogging(flags.fxLog),
	)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	var srv *http.Server
	if reg := node.Registry(); reg != nil && cfg.Metrics.ListenAddr != "" {
		srv = serveMetrics(cfg.Metrics.ListenAddr, reg)
	}

	printNodeInfo(node)
	fmt.Println("节点已启动，按 Ctrl+C 退出")
	waitForSignal(node)

	fmt.Println("\n正在关闭节点...")
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return nil
}

// serveMetrics 在 addr 上暴露 /metrics
func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标服务退出", "addr", addr, "error", err)
		}
	}()
	logger.Info("指标服务已启动", "addr", addr)
	return srv
}

func printNodeInfo(node *peerset.Node) {
	cfg := node.Config()
	fmt.Println("════════════════════════════════════════════════")
	fmt.Printf("  %s\n", peerset.VersionInfo())
	for _, proto := range node.Protocols() {
		st, err := node.Status(proto)
		if err != nil {
			continue
		}
		fmt.Printf("  协议 %s  in=%d out=%d reservedOnly=%v\n", proto, st.MaxIn, st.MaxOut, st.ReservedOnly)
	}
	fmt.Printf("  模拟远端节点: %d  失败率: %.2f\n", cfg.Transport.RemotePeers, cfg.Transport.OpenFailureRate)
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr != "" {
		fmt.Printf("  指标: http://%s/metrics\n", cfg.Metrics.ListenAddr)
	}
	fmt.Println("════════════════════════════════════════════════")
}

// waitForSignal 等待退出信号或 Fx 关闭信号
func waitForSignal(node *peerset.Node) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("收到退出信号", "signal", sig)
	case sig := <-node.Done():
		logger.Info("Fx 应用请求关闭", "signal", sig.Signal)
	}
}
