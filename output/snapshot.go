package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-econ-sim/utils/config"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Snapshot 运行结束时的状态快照
// 功能：汇总区域、银行、企业与家庭的最终状态
// 说明：各字段为structpb可接受的类型（数值统一为float64）
func Snapshot(w *entity.World, bank *ecosim.Central, last Report) (*structpb.Struct, error) {
	regions := lo.Map(w.Regions.Values(), func(r *entity.Region, _ int) interface{} {
		treasure := make(map[string]interface{}, len(entity.TaxKinds))
		for _, k := range entity.TaxKinds {
			treasure[string(k)] = r.CumulativeTreasure[k]
		}
		applied := make(map[string]interface{}, len(r.AppliedTreasure))
		for k, v := range r.AppliedTreasure {
			applied[k] = v
		}
		return map[string]interface{}{
			"id":       string(r.ID),
			"index":    r.Index,
			"pop":      float64(r.Pop),
			"gdp":      r.GDP,
			"treasure": treasure,
			"applied":  applied,
		}
	})
	_, _, mean := bank.LoanStats()
	return structpb.NewStruct(map[string]interface{}{
		"run":     last.Run,
		"tag":     last.Tag,
		"date":    last.Date.Format(config.DateLayout),
		"regions": regions,
		"bank": map[string]interface{}{
			"balance":       bank.Balance,
			"deposits":      bank.TotalDeposits(),
			"outstanding":   bank.OutstandingLoans(),
			"active_loans":  float64(len(bank.ActiveLoans())),
			"mean_loan":     mean,
			"mortgage_rate": bank.MortgageRate,
		},
		"counts": map[string]interface{}{
			"agents":   float64(w.Agents.Len()),
			"families": float64(w.Families.Len()),
			"houses":   float64(w.Houses.Len()),
			"firms":    float64(w.Firms.Len()),
			"deaths":   float64(len(w.Grave)),
		},
		"gdp":          last.GDP,
		"unemployment": last.Unemployment,
		"gini":         last.Gini,
		"qli":          last.QLI,
	})
}

// SaveSnapshot 将状态快照序列化到dir/<run>.pb
// 返回：写入的文件路径
func SaveSnapshot(dir string, w *entity.World, bank *ecosim.Central, last Report) (string, error) {
	s, err := Snapshot(w, bank, last)
	if err != nil {
		return "", fmt.Errorf("failed to build snapshot: %w", err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, last.Run+".pb")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// LoadSnapshot 读取状态快照
func LoadSnapshot(path string) (*structpb.Struct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return s, nil
}
