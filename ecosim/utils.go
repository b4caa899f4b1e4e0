package ecosim

import (
	"math"
	"time"
)

// futureValue 复利终值：amount*(1+rate)^periods
func futureValue(amount, rate float64, periods int) float64 {
	if periods <= 0 {
		return amount
	}
	return amount * math.Pow(1+rate, float64(periods))
}

// monthsBetween 两个日期之间的月数，按30天一个月向下取整
func monthsBetween(from, to time.Time) int {
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 30
}
