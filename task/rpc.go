package task

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReportProcedure 运行进度查询的RPC路径
const ReportProcedure = "/econsim.task.v1.TaskService/Report"

// Server 运行进度查询服务
// 功能：将同一进程中全部运行的最近月度统计通过RPC接口暴露给外部
type Server struct {
	mu   sync.RWMutex
	runs map[string]*Context
	ids  []string // 加入顺序
}

// NewServer 创建查询服务
func NewServer() *Server {
	return &Server{runs: make(map[string]*Context)}
}

// Add 登记一次运行
func (s *Server) Add(ctx *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[ctx.id]; !ok {
		s.ids = append(s.ids, ctx.id)
	}
	s.runs[ctx.id] = ctx
}

// Register 将查询服务注册到mux
func (s *Server) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(ReportProcedure, connect.NewUnaryHandler(ReportProcedure, s.Report, opts...))
}

// Report 查询运行进度
// 功能：RPC接口，请求中给出run时返回该运行的最近统计，否则返回全部运行的概要
func (s *Server) Report(ctx context.Context, in *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := in.Msg.GetFields()["run"]; ok {
		run, found := s.runs[v.GetStringValue()]
		if !found {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("run not found"))
		}
		res, err := structpb.NewStruct(run.reportMap())
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		return connect.NewResponse(res), nil
	}
	runs := make([]interface{}, 0, len(s.ids))
	for _, id := range s.ids {
		runs = append(runs, s.runs[id].reportMap())
	}
	res, err := structpb.NewStruct(map[string]interface{}{"runs": runs})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(res), nil
}

// reportMap 最近一次月度统计的概要
func (ctx *Context) reportMap() map[string]interface{} {
	r, months := ctx.LastReport()
	date := ""
	if months > 0 {
		date = r.Date.Format(config.DateLayout)
	}
	return map[string]interface{}{
		"run":           ctx.id,
		"tag":           ctx.runtimeConfig.Tag,
		"months":        months,
		"date":          date,
		"gdp":           r.GDP,
		"unemployment":  r.Unemployment,
		"inflation":     r.Inflation,
		"gini":          r.Gini,
		"qli":           r.QLI,
		"vacancy":       r.Vacancy,
		"mortgage_rate": r.MortgageRate,
		"active_loans":  r.ActiveLoans,
		"closed":        ctx.Closed(),
	}
}
