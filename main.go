package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"git.fiblab.net/general/common/v2/parallel"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/metrics"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/output"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/task"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/input"
)

var (
	// 本程序监听的HTTP地址（RPC与/metrics），设置为空则不启动服务
	listenAddr = flag.String("listen", ":51102", "RPC and metrics listening address (empty means disabled)")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "econsim")
)

// result 一次运行的结果
type result struct {
	ctx    *task.Context
	report output.Report
	err    error
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	c, err := config.Load(file)
	if err != nil {
		log.Panic(err)
	}
	in, err := input.Init(c.Input)
	if err != nil {
		log.Panicf("input init err: %v", err)
	}
	rcs, err := config.Expand(c)
	if err != nil {
		log.Panic(err)
	}
	log.Infof("%d runs from %d parameter sets", len(rcs), max(len(c.Overrides), 1))

	// 全部运行共享同一份输入，各自生成独立的世界
	contexts := make([]*task.Context, 0, len(rcs))
	for _, rc := range rcs {
		ctx, err := newRun(rc, in)
		if err != nil {
			log.Panicf("run %s/%d init err: %v", rc.Tag, rc.RunIdx, err)
		}
		contexts = append(contexts, ctx)
	}

	server := task.NewServer()
	for _, ctx := range contexts {
		server.Add(ctx)
	}
	if *listenAddr != "" {
		mux := http.NewServeMux()
		server.Register(mux)
		if len(contexts) == 1 {
			contexts[0].Clock().Register(mux)
		}
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*listenAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("http server err: %v", err)
			}
		}()
		log.Infof("listening on %s", *listenAddr)
	}

	// 收到中断信号时在当天结束后停止全部运行
	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := parallel.GoMap(contexts, func(ctx *task.Context) result {
		return run(signalCtx, ctx)
	})
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			log.Errorf("run %s failed: %v", r.ctx.ID(), r.err)
			continue
		}
		log.Infof("run %s (%s) finished at %s: gdp=%.2f unemployment=%.3f gini=%.3f",
			r.ctx.ID(), r.ctx.RuntimeConfig().Tag, r.report.Date.Format(config.DateLayout),
			r.report.GDP, r.report.Unemployment, r.report.Gini)
	}
	if failed > 0 {
		log.Errorf("%d of %d runs failed", failed, len(results))
		os.Exit(1)
	}
}

// newRun 创建一次运行，统计输出带有运行标识
func newRun(rc *config.RuntimeConfig, in *input.Input) (*task.Context, error) {
	entry := log.WithFields(logrus.Fields{"tag": rc.Tag, "idx": rc.RunIdx})
	sinks, err := output.Open(rc.All.Output, entry)
	if err != nil {
		return nil, err
	}
	ctx, err := task.NewContext(rc, in, sinks)
	if err != nil {
		output.CloseAll(sinks)
		return nil, err
	}
	return ctx, nil
}

// run 执行一次运行
// 说明：运行中违反不变量会panic，此处恢复为该运行的错误，不影响其他运行
func run(c context.Context, ctx *task.Context) (res result) {
	res.ctx = ctx
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic: %v", r)
		}
		if res.err != nil {
			metrics.RecordRun("failed")
		} else {
			metrics.RecordRun("ok")
		}
		ctx.CloseSinks()
	}()
	res.report, res.err = ctx.Run(c)
	return
}
