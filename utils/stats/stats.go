// 统计工具：均值、中位数、分位数、基尼系数
package stats

import (
	"slices"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// Mean 均值，空数组返回0
func Mean(values []float64) float64 {
	m, err := mstats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

// Median 中位数，空数组返回0
func Median(values []float64) float64 {
	m, err := mstats.Median(values)
	if err != nil {
		return 0
	}
	return m
}

// Quantile q分位数（q∈[0,1]），排序后线性插值，空数组返回0
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return SortedQuantile(sorted, q)
}

// SortedQuantile 已排序数组的q分位数
func SortedQuantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := min(max(q, 0), 1) * float64(len(sorted)-1)
	i, j := int(pos), min(int(pos)+1, len(sorted)-1)
	return sorted[i] + (sorted[j]-sorted[i])*(pos-float64(i))
}

// Gini 基尼系数
// 公式：Σ(2i-n-1)x_i / (n Σx_i)，x升序，i从1开始
// 说明：每个值加1e-7避免全零，空数组返回0
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	floats.AddConst(1e-7, sorted)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = float64(2*(i+1) - n - 1)
	}
	return floats.Dot(weights, sorted) / (float64(n) * floats.Sum(sorted))
}
