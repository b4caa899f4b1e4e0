package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v2"
)

// DateLayout 配置中日期的格式
const DateLayout = "2006-01-02"

// RuntimeConfig 运行时配置
// 功能：一次运行使用的配置，参数已应用覆盖值与政策规则
// 说明：每次运行持有独立拷贝，核心组件只读
type RuntimeConfig struct {
	All    Config    // 全部配置
	C      Control   // 全局控制配置
	P      Params    // 本次运行的参数
	Start  time.Time // 开始日期
	Seed   uint64    // 本次运行的随机种子
	Tag    string    // 参数组标签
	RunIdx int       // 参数组内的运行序号
}

// Load 解析YAML配置
// 功能：在默认配置之上严格解码，未出现的字段保持默认值
func Load(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, fmt.Errorf("config file load err: %w", err)
	}
	if err := validate.Struct(c.Control); err != nil {
		return c, fmt.Errorf("invalid control: %w", err)
	}
	if err := validate.Struct(c.Input.Population); err != nil {
		return c, fmt.Errorf("invalid population: %w", err)
	}
	if err := c.Params.Validate(); err != nil {
		return c, err
	}
	if _, err := time.Parse(DateLayout, c.Control.Start); err != nil {
		return c, fmt.Errorf("invalid start date %q: %w", c.Control.Start, err)
	}
	return c, nil
}

// NewRuntimeConfig 根据配置创建一次运行的配置
// 参数：config-原始配置，params-已覆盖的参数，tag-参数组标签，runIdx-运行序号
// 算法说明：
// 1. 解析开始日期
// 2. 基线政策下不预留政策资金（POLICY_COEFFICIENT置0）
// 3. 种子为control.seed加上全局运行序号
func NewRuntimeConfig(config Config, params Params, tag string, runIdx int, seed uint64) (*RuntimeConfig, error) {
	start, err := time.Parse(DateLayout, config.Control.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", config.Control.Start, err)
	}
	if params.Policies == PolicyNone {
		params.PolicyCoefficient = 0
	}
	return &RuntimeConfig{
		All:    config,
		C:      config.Control,
		P:      params,
		Start:  start,
		Seed:   seed,
		Tag:    tag,
		RunIdx: runIdx,
	}, nil
}

// Expand 展开参数扫描
// 功能：每组覆盖值×每次重复运行得到一份运行配置
// 说明：没有覆盖值时只有一组基线参数，标签为baseline
func Expand(c Config) ([]*RuntimeConfig, error) {
	overrides := c.Overrides
	if len(overrides) == 0 {
		overrides = []map[string]interface{}{nil}
	}
	res := make([]*RuntimeConfig, 0, len(overrides)*c.Control.Runs)
	n := uint64(0)
	for i, o := range overrides {
		p, err := ApplyOverride(c.Params, o)
		if err != nil {
			return nil, fmt.Errorf("override %d: %w", i, err)
		}
		tag := "baseline"
		if o != nil {
			tag = fmt.Sprintf("override%d", i)
		}
		for r := 0; r < c.Control.Runs; r++ {
			rc, err := NewRuntimeConfig(c, p, tag, r, c.Control.Seed+n)
			if err != nil {
				return nil, err
			}
			res = append(res, rc)
			n++
		}
	}
	return res, nil
}
