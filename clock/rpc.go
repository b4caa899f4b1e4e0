package clock

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// NowProcedure 时钟查询的RPC路径
const NowProcedure = "/econsim.clock.v1.ClockService/Now"

// Register 将时钟查询服务注册到mux
// 功能：使当前仿真日期可以通过RPC接口被外部访问
func (c *Clock) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(NowProcedure, connect.NewUnaryHandler(NowProcedure, c.Now, opts...))
}

// Now 获取当前仿真时间
// 功能：RPC接口，返回当前日期、步数与季度
func (c *Clock) Now(ctx context.Context, in *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	c.mu.RLock()
	days, step := c.days, c.step
	c.mu.RUnlock()
	s, err := structpb.NewStruct(map[string]interface{}{
		"date":    days.Format("2006-01-02"),
		"step":    step,
		"quarter": quarterOf(days),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(s), nil
}
