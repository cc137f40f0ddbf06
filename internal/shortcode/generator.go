package shortcode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// Charset 包含用于生成短码的所有字符 (base62)
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength 是随机短码的长度
	// 62^7 约 3.5e12，按百万级链接量计算单次碰撞概率约 2.9e-7
	CodeLength = 7
)

// Generator 提供随机短码候选，唯一性由调用方通过存储层保证
type Generator struct{}

// NewGenerator 创建一个新的短码生成器实例
func NewGenerator() *Generator {
	return &Generator{}
}

// Random 使用加密安全的随机数生成器生成一个短码候选
func (g *Generator) Random() (string, error) {
	b := make([]byte, CodeLength)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(Charset))))
		if err != nil {
			return "", err
		}
		b[i] = Charset[num.Int64()]
	}
	return string(b), nil
}

// Normalize 规范化自定义别名：转为小写，[a-z0-9-] 以外的字符统一替换为 '-'
// 同一输入永远得到同一输出，碰撞检查由调用方负责
func Normalize(alias string) string {
	alias = strings.ToLower(alias)
	var b strings.Builder
	b.Grow(len(alias))
	for _, r := range alias {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
