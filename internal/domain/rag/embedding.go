package rag

import (
	"math"
	"strings"
	"unicode"
)

// ── Embedder 接口 ──────────────────────────────────────────────

// Embedder 向量生成接口。实现必须是纯函数：
// 相同输入永远产生相同向量。更换实现会使已存向量失效，
// 调用方需要重建索引。
type Embedder interface {
	// Embed 将文本转为定长向量
	Embed(text string) []float64
	// Dims 返回向量维度
	Dims() int
}

// ── 哈希 Embedder 实现 ────────────────────────────────────────

// HashEmbedder 确定性占位 Embedder：词袋特征哈希展开为定长向量，
// 分量非负。词汇有重叠的文本相似度为正，完全无重叠时趋近 0；
// 接入真实模型时替换 Embedder 即可，Store/Search 不受影响。
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder 创建哈希 Embedder
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &HashEmbedder{dims: dims}
}

// Dims 返回向量维度
func (e *HashEmbedder) Dims() int {
	return e.dims
}

// Embed 生成向量：每个 token 按 polyHash(token) mod dims 计入词袋计数，
// 再做 L2 归一化。空文本返回零向量。
func (e *HashEmbedder) Embed(text string) []float64 {
	vec := make([]float64, e.dims)
	for _, token := range tokenize(text) {
		vec[int(polyHash(token)%int64(e.dims))]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// tokenize 小写化后按非字母数字切分
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// polyHash 逐码点多项式哈希（h = h*31 + r，64 位回绕），清符号位保证非负。
func polyHash(text string) int64 {
	var h int64
	for _, r := range text {
		h = (h << 5) - h + int64(r)
	}
	return h &^ (-1 << 63)
}

// ── 相似度 ────────────────────────────────────────────────────

// Cosine 余弦相似度：dot(a,b) / (|a|*|b|)。
// 任一向量模为零时返回 0，不报错。对称：Cosine(a,b) == Cosine(b,a)。
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, x := range a {
		normA += x * x
	}
	for _, y := range b {
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
