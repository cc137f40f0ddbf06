package policy

import (
	"testing"
	"time"

	"fasturl-platform/internal/model"

	"github.com/stretchr/testify/assert"
)

// TestComputeExpiry 按套餐与选项的组合逐项校验过期时间
func TestComputeExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	custom := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		plan   string
		option string
		custom *time.Time
		want   *time.Time
	}{
		{"Free 1hour", model.PlanFree, OptionOneHour, nil, ptr(now.Add(time.Hour))},
		{"Free 1day", model.PlanFree, OptionOneDay, nil, ptr(now.Add(24 * time.Hour))},
		{"Free 1week", model.PlanFree, OptionOneWeek, nil, ptr(now.Add(7 * 24 * time.Hour))},
		{"Premium 1hour", model.PlanPremium, OptionOneHour, nil, ptr(now.Add(time.Hour))},
		{"Premium 1day", model.PlanPremium, OptionOneDay, nil, ptr(now.Add(24 * time.Hour))},
		{"Premium permanent", model.PlanPremium, OptionPermanent, nil, nil},
		{"Premium custom 带时间", model.PlanPremium, OptionCustom, &custom, &custom},
		{"Premium custom 无时间", model.PlanPremium, OptionCustom, nil, nil},
		// Free 套餐未开放的选项回退到默认 7 天
		{"Free permanent 回退", model.PlanFree, OptionPermanent, nil, ptr(now.Add(7 * 24 * time.Hour))},
		{"Free custom 回退", model.PlanFree, OptionCustom, &custom, ptr(now.Add(7 * 24 * time.Hour))},
		// 未知选项不报错，走默认路径
		{"Free 未知选项", model.PlanFree, "whatever", nil, ptr(now.Add(7 * 24 * time.Hour))},
		{"Free 空选项", model.PlanFree, "", nil, ptr(now.Add(7 * 24 * time.Hour))},
		{"Premium 空选项无时间", model.PlanPremium, "", nil, ptr(now.Add(7 * 24 * time.Hour))},
		{"Premium 未知选项带时间", model.PlanPremium, "stale-option", &custom, &custom},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeExpiry(tc.plan, tc.option, tc.custom, now)
			if tc.want == nil {
				assert.Nil(t, got, "应为永不过期")
				return
			}
			if assert.NotNil(t, got) {
				assert.True(t, tc.want.Equal(*got), "期望 %v, 实际 %v", tc.want, got)
			}
		})
	}
}

// TestOptions 套餐决定可见的选项集合
func TestOptions(t *testing.T) {
	free := Options(model.PlanFree)
	assert.Equal(t, []string{OptionOneHour, OptionOneDay, OptionOneWeek}, free)

	premium := Options(model.PlanPremium)
	assert.Equal(t, []string{OptionOneHour, OptionOneDay, OptionOneWeek, OptionCustom, OptionPermanent}, premium)
}

// TestComputeExpiry_CustomInstantNotAliased 返回值不应与调用方传入的指针共享
func TestComputeExpiry_CustomInstantNotAliased(t *testing.T) {
	now := time.Now()
	custom := now.Add(48 * time.Hour)
	got := ComputeExpiry(model.PlanPremium, OptionCustom, &custom, now)
	custom = custom.Add(time.Hour)
	assert.True(t, got.Equal(now.Add(48*time.Hour)), "修改调用方的时间不应影响返回值")
}
