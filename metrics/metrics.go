// Prometheus指标：按运行标识记录月度宏观指标与运行状态
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/output"
)

const namespace = "econsim"

var (
	// Month 最近完成的月份序号
	Month = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clock",
			Name:      "month",
			Help:      "Index of the last simulated month",
		},
		[]string{"run"},
	)

	// GDP 区域GDP合计
	GDP = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "economy",
			Name:      "gdp",
			Help:      "Sum of firm revenues in the last month",
		},
		[]string{"run"},
	)

	// Unemployment 失业率
	Unemployment = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "labor",
			Name:      "unemployment_ratio",
			Help:      "Share of employable agents without a job",
		},
		[]string{"run"},
	)

	// MortgageRate 月贷款利率
	MortgageRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bank",
			Name:      "mortgage_rate",
			Help:      "Monthly mortgage rate of the central bank",
		},
		[]string{"run"},
	)

	// ActiveLoans 未还清贷款数
	ActiveLoans = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bank",
			Name:      "active_loans",
			Help:      "Number of loans not yet repaid",
		},
		[]string{"run"},
	)

	// Vacancy 空置率
	Vacancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "housing",
			Name:      "vacancy_ratio",
			Help:      "Share of houses without residents",
		},
		[]string{"run"},
	)

	// RunsTotal 按结果统计的运行数
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "runs_total",
			Help:      "Total number of finished runs by status",
		},
		[]string{"status"},
	)

	// MonthDuration 单月仿真耗时
	MonthDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "month_duration_seconds",
			Help:      "Wall time spent simulating one month",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

// RecordReport 记录一次月度统计
func RecordReport(r output.Report) {
	Month.WithLabelValues(r.Run).Set(float64(r.Month))
	GDP.WithLabelValues(r.Run).Set(r.GDP)
	Unemployment.WithLabelValues(r.Run).Set(r.Unemployment)
	MortgageRate.WithLabelValues(r.Run).Set(r.MortgageRate)
	ActiveLoans.WithLabelValues(r.Run).Set(float64(r.ActiveLoans))
	Vacancy.WithLabelValues(r.Run).Set(r.Vacancy)
}

// RecordRun 记录一次运行结束，status为ok或failed
func RecordRun(status string) {
	RunsTotal.WithLabelValues(status).Inc()
}

// Handler /metrics接口
func Handler() http.Handler {
	return promhttp.Handler()
}
