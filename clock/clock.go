package clock

import (
	"fmt"
	"sync"
	"time"
)

// Clock 仿真时钟管理器
// 功能：以天为步长推进仿真日期，判断月、季度、年的边界
// 说明：经济行为全部发生在每月第一天，日步只推进日期；
// 只有运行协程推进时钟，RPC协程通过读锁读取当前日期与步数
type Clock struct {
	Start time.Time // 开始日期
	End   time.Time // 结束日期，模拟区间[Start, End)

	mu   sync.RWMutex
	days time.Time // 当前日期
	step int32     // 当前步数（已模拟天数）
}

// New 根据开始日期与总天数创建时钟
func New(start time.Time, totalDays int) *Clock {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	c := &Clock{
		Start: start,
		End:   start.AddDate(0, 0, totalDays),
	}
	c.Init()
	return c
}

// Init 初始化时钟状态
func (c *Clock) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days = c.Start
	c.step = 0
}

// Tick 推进一天
func (c *Clock) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days = c.days.AddDate(0, 0, 1)
	c.step++
}

// Date 当前日期
func (c *Clock) Date() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.days
}

// Step 当前步数
func (c *Clock) Step() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.step
}

// Finished 是否已到达结束日期
func (c *Clock) Finished() bool {
	return !c.Date().Before(c.End)
}

// Year 当前年份
func (c *Clock) Year() int {
	return c.Date().Year()
}

// Month 当前月份（1-12）
func (c *Clock) Month() int {
	return int(c.Date().Month())
}

// NewMonth 是否为每月第一天
func (c *Clock) NewMonth() bool {
	return c.Date().Day() == 1
}

// NewQuarter 是否为季度第一天（1、4、7、10月1日）
func (c *Clock) NewQuarter() bool {
	return c.NewMonth() && (c.Month()-1)%3 == 0
}

// NewYear 是否为每年第一天
func (c *Clock) NewYear() bool {
	return c.NewMonth() && c.Month() == 1
}

// Quarter 当前季度标签，如Q2_2011
func (c *Clock) Quarter() string {
	return quarterOf(c.Date())
}

func quarterOf(t time.Time) string {
	return fmt.Sprintf("Q%d_%d", (int(t.Month())-1)/3+1, t.Year())
}

// MonthIndex 当前月份序号，用作延迟现金流与政策登记的键
func (c *Clock) MonthIndex() int {
	return MonthIndexOf(c.Date())
}

// MonthIndexOf 日期的月份序号
func MonthIndexOf(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// ElapsedMonths 自from以来经过的月数，按30天一个月向下取整
func (c *Clock) ElapsedMonths(from time.Time) int {
	days := int(c.Date().Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 30
}

// ElapsedDays 自开始以来经过的天数
func (c *Clock) ElapsedDays() int {
	return int(c.Date().Sub(c.Start).Hours() / 24)
}

// String 获取时钟的字符串表示
func (c *Clock) String() string {
	return c.Date().Format("2006-01-02")
}
