// Package tokenizer 提供 token 计数能力，用于控制提示词的上下文预算.
package tokenizer

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/BaSui01/edurag/types"
)

// Counter 统计文本占用的 token 数.
type Counter interface {
	CountTokens(text string) (int, error)
}

// TiktokenCounter 基于 tiktoken BPE 编码计数.
type TiktokenCounter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktokenCounter 创建计数器，编码表在首次使用时加载.
// model 为空时使用 gpt-3.5-turbo 的编码（cl100k_base）.
func NewTiktokenCounter(model string) *TiktokenCounter {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &TiktokenCounter{model: model}
}

// CountTokens 返回文本的 token 数.
func (c *TiktokenCounter) CountTokens(text string) (int, error) {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			// 未知模型退回通用编码.
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		c.enc, c.err = enc, err
	})
	if c.err != nil {
		return 0, types.NewError(types.ErrConfig, "load token encoding").WithCause(c.err)
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}

// EstimateCounter 以字符数近似 token 数，用于离线环境.
// 英文约 4 字符一个 token，CJK 按每字一个 token 计.
type EstimateCounter struct{}

// CountTokens 返回估算的 token 数.
func (EstimateCounter) CountTokens(text string) (int, error) {
	var ascii, wide int
	for _, r := range text {
		if r < utf8.RuneSelf {
			ascii++
		} else {
			wide++
		}
	}
	n := ascii/4 + wide
	if n == 0 && text != "" {
		n = 1
	}
	return n, nil
}
