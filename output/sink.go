package output

import (
	"context"
	"fmt"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"go.mongodb.org/mongo-driver/mongo"
	_ "modernc.org/sqlite"
)

// Sink 月度统计的输出目标
type Sink interface {
	Write(ctx context.Context, r Report) error
	Close() error
}

// LogSink 将月度统计写入日志
type LogSink struct {
	log *logrus.Entry
}

// NewLogSink 创建日志输出，entry为带有运行标识的日志记录器
func NewLogSink(entry *logrus.Entry) *LogSink {
	return &LogSink{log: entry}
}

func (s *LogSink) Write(_ context.Context, r Report) error {
	s.log.Infof(
		"%s GDP: %s (%+.2f%%), price: %.3f, inflation: %.4f, unemployment: %.2f%%, gini: %.3f, qli: %.3f",
		r.Date.Format(config.DateLayout), humanize.Commaf(round(r.GDP)), r.GDPGrowth,
		r.Price, r.Inflation, r.Unemployment*100, r.Gini, r.QLI,
	)
	s.log.Infof(
		"houses vacancy: %.2f%%, price: %s, rent: %.2f, bank balance: %s, deposits: %s, active loans: %d, mortgage: %.4f",
		r.Vacancy*100, humanize.Commaf(round(r.HousePrice)), r.RentPrice,
		humanize.Commaf(round(r.BankBalance)), humanize.Commaf(round(r.Deposits)), r.ActiveLoans, r.MortgageRate,
	)
	if r.FamiliesSubsided > 0 {
		s.log.Infof("policy subsided %d families, applied %s in total", r.FamiliesSubsided, humanize.Commaf(round(r.MoneyAppliedPolicy)))
	}
	return nil
}

func (s *LogSink) Close() error {
	return nil
}

// round 保留两位小数用于日志显示
func round(v float64) float64 {
	return float64(int64(v*100)) / 100
}

// MongoSink 将月度统计写入MongoDB集合，每月一个文档
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSink 连接MongoDB并创建输出
func NewMongoSink(c config.MongoOutput) (*MongoSink, error) {
	if c.URI == "" || c.DB == "" || c.Col == "" {
		return nil, fmt.Errorf("mongo output needs uri, db and col, got %+v", c)
	}
	client := mongoutil.NewClient(c.URI)
	return &MongoSink{client: client, coll: client.Database(c.DB).Collection(c.Col)}, nil
}

func (s *MongoSink) Write(ctx context.Context, r Report) error {
	if _, err := s.coll.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert report of %s: %w", r.Date.Format(config.DateLayout), err)
	}
	return nil
}

func (s *MongoSink) Close() error {
	return s.client.Disconnect(context.Background())
}

// SQLiteSink 将月度统计写入SQLite文件的reports表
type SQLiteSink struct {
	db *sqlx.DB
}

const reportSchema = `
CREATE TABLE IF NOT EXISTS reports (
	run TEXT NOT NULL,
	tag TEXT NOT NULL,
	date TIMESTAMP NOT NULL,
	month INTEGER NOT NULL,
	price REAL, inflation REAL, gdp REAL, gdp_growth REAL, unemployment REAL, average_workers REAL,
	families_wealth REAL, families_savings REAL, median_wealth REAL, gini REAL,
	firms_wealth REAL, firms_profit REAL, qli REAL, commute REAL,
	vacancy REAL, house_price REAL, rent_price REAL, affordable_rent REAL, rent_default REAL,
	bank_balance REAL, deposits REAL, active_loans INTEGER, loan_min REAL, loan_max REAL, loan_mean REAL,
	mortgage_rate REAL,
	families_subsided INTEGER, money_applied_policy REAL, equally REAL, locally REAL, fpm REAL,
	PRIMARY KEY (run, month)
);`

const insertReport = `INSERT INTO reports (
	run, tag, date, month,
	price, inflation, gdp, gdp_growth, unemployment, average_workers,
	families_wealth, families_savings, median_wealth, gini,
	firms_wealth, firms_profit, qli, commute,
	vacancy, house_price, rent_price, affordable_rent, rent_default,
	bank_balance, deposits, active_loans, loan_min, loan_max, loan_mean,
	mortgage_rate,
	families_subsided, money_applied_policy, equally, locally, fpm
) VALUES (
	:run, :tag, :date, :month,
	:price, :inflation, :gdp, :gdp_growth, :unemployment, :average_workers,
	:families_wealth, :families_savings, :median_wealth, :gini,
	:firms_wealth, :firms_profit, :qli, :commute,
	:vacancy, :house_price, :rent_price, :affordable_rent, :rent_default,
	:bank_balance, :deposits, :active_loans, :loan_min, :loan_max, :loan_mean,
	:mortgage_rate,
	:families_subsided, :money_applied_policy, :equally, :locally, :fpm
)`

// NewSQLiteSink 打开或创建SQLite文件并建表
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(reportSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create reports table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(ctx context.Context, r Report) error {
	if _, err := s.db.NamedExecContext(ctx, insertReport, r); err != nil {
		return fmt.Errorf("insert report of %s: %w", r.Date.Format(config.DateLayout), err)
	}
	return nil
}

// Reports 读取某次运行的全部月度统计，按月份排序
func (s *SQLiteSink) Reports(ctx context.Context, run string) ([]Report, error) {
	var res []Report
	if err := s.db.SelectContext(ctx, &res, "SELECT * FROM reports WHERE run = ? ORDER BY month", run); err != nil {
		return nil, fmt.Errorf("select reports of %s: %w", run, err)
	}
	return res, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Open 按输出配置创建全部输出目标，日志输出总是启用
func Open(c config.Output, entry *logrus.Entry) ([]Sink, error) {
	sinks := []Sink{NewLogSink(entry)}
	if c.Mongo != nil {
		s, err := NewMongoSink(*c.Mongo)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if c.SQLite != "" {
		s, err := NewSQLiteSink(c.SQLite)
		if err != nil {
			CloseAll(sinks)
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// CloseAll 关闭全部输出目标，记录但不返回错误
func CloseAll(sinks []Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Warnf("close sink: %v", err)
		}
	}
}
