package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 功能：定义数据输入路径的配置结构，支持多种数据源
// 说明：文件优先级高于MongoDB
type InputPath struct {
	DB   string `yaml:"db,omitempty"`   // 数据库名
	Col  string `yaml:"col,omitempty"`  // 集合名
	File string `yaml:"file,omitempty"` // YAML文件路径（优先级高于MongoDB）
}

// GetDb 获取数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// Population 合成人口的规模配置
// 说明：没有外部区域数据时，按Regions个网格生成区域
type Population struct {
	Agents            int `yaml:"agents" validate:"gt=0"`              // 个体数量
	Regions           int `yaml:"regions,omitempty"`                   // 合成区域数量
	Municipalities    int `yaml:"municipalities,omitempty"`            // 合成市数量
	ConsumerFirms     int `yaml:"consumer_firms" validate:"gt=0"`      // 消费品企业数量
	ConstructionFirms int `yaml:"construction_firms" validate:"gte=0"` // 建筑企业数量
}

// Input 指定模拟器所有输入数据的配置项
type Input struct {
	URI        string                     `yaml:"uri,omitempty"`     // MongoDB连接字符串
	Regions    *InputPath                 `yaml:"regions,omitempty"` // 区域数据
	FPM        map[int]map[string]float64 `yaml:"fpm,omitempty"`     // 各年份各市的历史FPM分配额
	Population Population                 `yaml:"population"`        // 合成人口规模
}

// Control 模拟器控制配置
// 功能：定义仿真时间范围、随机种子与运行次数
type Control struct {
	Start     string `yaml:"start"`                      // 开始日期，格式2006-01-02
	TotalDays int    `yaml:"total_days" validate:"gt=0"` // 模拟总天数
	Seed      uint64 `yaml:"seed"`                       // 随机种子，第i次运行使用seed+i
	Runs      int    `yaml:"runs" validate:"gte=1"`      // 每组参数的重复运行次数
}

// MongoOutput MongoDB统计输出
type MongoOutput struct {
	URI string `yaml:"uri"`
	DB  string `yaml:"db"`
	Col string `yaml:"col"`
}

// Output 输出配置
type Output struct {
	Mongo    *MongoOutput `yaml:"mongo,omitempty"`    // 月度统计写入MongoDB
	SQLite   string       `yaml:"sqlite,omitempty"`   // 月度统计写入SQLite文件
	Snapshot string       `yaml:"snapshot,omitempty"` // 运行结束时的状态快照目录
}

// Config YAML配置文件的根结构
type Config struct {
	Input     Input                    `yaml:"input"`               // 输入
	Control   Control                  `yaml:"control"`             // 模拟过程控制
	Params    Params                   `yaml:"params"`              // 模型参数
	Output    Output                   `yaml:"output,omitempty"`    // 输出
	Overrides []map[string]interface{} `yaml:"overrides,omitempty"` // 参数扫描，每项覆盖一部分参数
}

// Default 默认配置
func Default() Config {
	return Config{
		Input: Input{
			Population: Population{
				Agents:            2000,
				Regions:           9,
				Municipalities:    3,
				ConsumerFirms:     40,
				ConstructionFirms: 6,
			},
		},
		Control: Control{
			Start:     "2010-01-01",
			TotalDays: 365 * 10,
			Seed:      0,
			Runs:      1,
		},
		Params: DefaultParams(),
	}
}
