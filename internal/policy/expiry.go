package policy

import (
	"time"

	"fasturl-platform/internal/model"
)

// 过期选项
const (
	OptionOneHour   = "1hour"
	OptionOneDay    = "1day"
	OptionOneWeek   = "1week"
	OptionCustom    = "custom"
	OptionPermanent = "permanent"
)

// DefaultTTL 未选择或选项无法识别时的默认有效期
const DefaultTTL = 7 * 24 * time.Hour

// ComputeExpiry 根据套餐和所选选项计算绝对过期时间，返回 nil 表示永不过期
// 纯函数：选项来自外部调用方，可能超出该套餐提供的范围，此时回退到默认值而不报错
func ComputeExpiry(plan, option string, custom *time.Time, now time.Time) *time.Time {
	switch option {
	case OptionOneHour:
		return ptr(now.Add(time.Hour))
	case OptionOneDay:
		return ptr(now.Add(24 * time.Hour))
	case OptionOneWeek:
		return ptr(now.Add(DefaultTTL))
	case OptionPermanent:
		if plan == model.PlanPremium {
			return nil
		}
		// Free 套餐未开放永久选项，回退到默认有效期
		return ptr(now.Add(DefaultTTL))
	case OptionCustom:
		if plan == model.PlanPremium {
			if custom != nil {
				t := *custom
				return &t
			}
			return nil
		}
		return ptr(now.Add(DefaultTTL))
	default:
		// Premium 用户携带自定义时间时以自定义时间为准
		if plan == model.PlanPremium && custom != nil {
			t := *custom
			return &t
		}
		return ptr(now.Add(DefaultTTL))
	}
}

// Options 返回套餐可选的过期选项，Premium 额外开放自定义时间和永久
func Options(plan string) []string {
	base := []string{OptionOneHour, OptionOneDay, OptionOneWeek}
	if plan == model.PlanPremium {
		return append(base, OptionCustom, OptionPermanent)
	}
	return base
}

func ptr(t time.Time) *time.Time {
	return &t
}
