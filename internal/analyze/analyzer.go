package analyze

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ── 分析结果类型 ──────────────────────────────────────────────

// Entity 识别出的命名实体（含在原文中的字节位置）
type Entity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Keyword 关键词及其频次得分
type Keyword struct {
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
	Type    string  `json:"type"`
}

// Sentiment 词典法情感判定
type Sentiment struct {
	Sentiment          string  `json:"sentiment"`
	Score              float64 `json:"score"`
	Confidence         float64 `json:"confidence"`
	PositiveIndicators int     `json:"positive_indicators"`
	NegativeIndicators int     `json:"negative_indicators"`
}

// Statistics 文本中的数值模式
type Statistics struct {
	Numbers      []float64 `json:"numbers"`
	Percentages  []string  `json:"percentages"`
	Currencies   []string  `json:"currencies"`
	Measurements []string  `json:"measurements"`
}

// Summary 文本概要统计
type Summary struct {
	WordCount         int     `json:"word_count"`
	CharCount         int     `json:"char_count"`
	SentenceCount     int     `json:"sentence_count"`
	AvgWordLength     float64 `json:"avg_word_length"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	UniqueWords       int     `json:"unique_words"`
	LexicalDiversity  float64 `json:"lexical_diversity"`
}

// Analysis 单段文本的完整分析结果，
// 未启用的维度保持 nil 并在 JSON 中省略。
type Analysis struct {
	TextLength int         `json:"text_length"`
	Language   string      `json:"language"`
	Entities   []Entity    `json:"entities,omitempty"`
	Keywords   []Keyword   `json:"keywords,omitempty"`
	Sentiment  *Sentiment  `json:"sentiment,omitempty"`
	Statistics *Statistics `json:"statistics,omitempty"`
	Summary    *Summary    `json:"summary,omitempty"`
}

// Capabilities 显式声明要执行的分析维度。
type Capabilities struct {
	Entities    bool
	Keywords    bool
	Sentiment   bool
	Statistics  bool
	Summary     bool
	TopKeywords int
}

// DefaultCapabilities 全部维度开启，取 10 个关键词
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Entities:    true,
		Keywords:    true,
		Sentiment:   true,
		Statistics:  true,
		Summary:     true,
		TopKeywords: 10,
	}
}

// ── Analyzer ─────────────────────────────────────────────────

var (
	reEmail       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	reURL         = regexp.MustCompile(`https?://[A-Za-z0-9$\-_@.&+!*(),%/:?#=~]+`)
	reDate        = regexp.MustCompile(`(?i)\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b|\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`)
	rePhone       = regexp.MustCompile(`\b(?:\+?1[-.]?)?\(?[0-9]{3}\)?[-.]?[0-9]{3}[-.]?[0-9]{4}\b`)
	reCurrency    = regexp.MustCompile(`[$£€¥]\s*\d+(?:,\d{3})*(?:\.\d{2})?`)
	reNumber      = regexp.MustCompile(`\b\d+(?:,\d{3})*(?:\.\d+)?\b`)
	rePercentage  = regexp.MustCompile(`\b\d+(?:\.\d+)?%`)
	reMeasurement = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:kg|g|lb|oz|km|m|cm|mm|ft|in|L|ml|gal|GB|MB|KB)\b`)
	reProperNoun  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	reWord        = regexp.MustCompile(`\b\w+\b`)
	reSentenceEnd = regexp.MustCompile(`[.!?]+(?:\s+|$)`)
)

var positiveWords = wordSet(
	"good", "great", "excellent", "amazing", "wonderful", "fantastic",
	"love", "best", "perfect", "beautiful", "awesome", "brilliant",
	"outstanding", "superb", "magnificent", "incredible", "exceptional",
	"positive", "happy", "pleased", "delighted", "satisfied",
)

var negativeWords = wordSet(
	"bad", "terrible", "awful", "horrible", "worst", "hate", "poor",
	"disappointing", "useless", "waste", "broken", "wrong", "failed",
	"negative", "sad", "unhappy", "upset", "angry",
	"frustrated", "dissatisfied",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Analyzer 规则版文本分析器：正则实体、频次关键词、词典情感。
// 不依赖外部模型，分析质量与之相称。
type Analyzer struct{}

// NewAnalyzer 创建分析器
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze 按 caps 声明的维度分析文本
func (a *Analyzer) Analyze(text string, caps Capabilities) *Analysis {
	result := &Analysis{
		TextLength: len(text),
		Language:   "en",
	}

	if caps.Entities {
		result.Entities = a.ExtractEntities(text)
	}
	if caps.Keywords {
		topN := caps.TopKeywords
		if topN <= 0 {
			topN = 10
		}
		result.Keywords = a.ExtractKeywords(text, topN)
	}
	if caps.Sentiment {
		result.Sentiment = a.AnalyzeSentiment(text)
	}
	if caps.Statistics {
		result.Statistics = a.ExtractStatistics(text)
	}
	if caps.Summary {
		result.Summary = a.Summarize(text)
	}
	return result
}

// ExtractEntities 用模式匹配识别邮箱、URL、日期、电话、金额
func (a *Analyzer) ExtractEntities(text string) []Entity {
	entities := []Entity{}
	collect := func(re *regexp.Regexp, label string, confidence float64) {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			entities = append(entities, Entity{
				Text:       text[loc[0]:loc[1]],
				Label:      label,
				Start:      loc[0],
				End:        loc[1],
				Confidence: confidence,
			})
		}
	}

	collect(reEmail, "EMAIL", 0.95)
	collect(reURL, "URL", 0.95)
	collect(reDate, "DATE", 0.85)
	collect(rePhone, "PHONE", 0.85)
	collect(reCurrency, "MONEY", 0.9)

	return entities
}

// ExtractKeywords 以大写开头词组的频次作关键词，降序取前 topN。
// 同分按词典序，保证输出稳定。
func (a *Analyzer) ExtractKeywords(text string, topN int) []Keyword {
	counts := make(map[string]int)
	for _, match := range reProperNoun.FindAllString(text, -1) {
		counts[strings.ToLower(match)]++
	}

	keywords := make([]Keyword, 0, len(counts))
	for word, count := range counts {
		keywords = append(keywords, Keyword{
			Keyword: word,
			Score:   float64(count),
			Type:    "capitalized_word",
		})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Score != keywords[j].Score {
			return keywords[i].Score > keywords[j].Score
		}
		return keywords[i].Keyword < keywords[j].Keyword
	})

	if len(keywords) > topN {
		keywords = keywords[:topN]
	}
	return keywords
}

// AnalyzeSentiment 词典交集法情感：score = (pos-neg)/(pos+neg)，
// ±0.2 为中性区间。
func (a *Analyzer) AnalyzeSentiment(text string) *Sentiment {
	words := make(map[string]struct{})
	for _, w := range reWord.FindAllString(strings.ToLower(text), -1) {
		words[w] = struct{}{}
	}

	positive, negative := 0, 0
	for w := range words {
		if _, ok := positiveWords[w]; ok {
			positive++
		}
		if _, ok := negativeWords[w]; ok {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return &Sentiment{
			Sentiment:  "neutral",
			Score:      0,
			Confidence: 0.5,
		}
	}

	score := float64(positive-negative) / float64(total)
	label := "neutral"
	switch {
	case score > 0.2:
		label = "positive"
	case score < -0.2:
		label = "negative"
	}

	return &Sentiment{
		Sentiment:          label,
		Score:              round3(score),
		Confidence:         math.Min(math.Abs(score)+0.5, 1.0),
		PositiveIndicators: positive,
		NegativeIndicators: negative,
	}
}

// ExtractStatistics 收集文中的数字、百分比、货币、计量
func (a *Analyzer) ExtractStatistics(text string) *Statistics {
	stats := &Statistics{
		Numbers:      []float64{},
		Percentages:  []string{},
		Currencies:   []string{},
		Measurements: []string{},
	}

	for i, match := range reNumber.FindAllString(text, -1) {
		if i >= 20 {
			break
		}
		if n, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64); err == nil {
			stats.Numbers = append(stats.Numbers, n)
		}
	}
	stats.Percentages = append(stats.Percentages, rePercentage.FindAllString(text, -1)...)
	stats.Currencies = append(stats.Currencies, reCurrency.FindAllString(text, -1)...)
	stats.Measurements = append(stats.Measurements, reMeasurement.FindAllString(text, -1)...)

	return stats
}

// Summarize 计算词数、句数、均长与词汇多样性
func (a *Analyzer) Summarize(text string) *Summary {
	words := strings.Fields(text)

	sentenceCount := len(reSentenceEnd.FindAllString(text, -1))
	if sentenceCount == 0 && strings.TrimSpace(text) != "" {
		sentenceCount = 1
	}

	unique := make(map[string]struct{}, len(words))
	totalLen := 0
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
		totalLen += len(w)
	}

	wordCount := len(words)
	divisor := wordCount
	if divisor == 0 {
		divisor = 1
	}
	sentDivisor := sentenceCount
	if sentDivisor == 0 {
		sentDivisor = 1
	}

	return &Summary{
		WordCount:         wordCount,
		CharCount:         len(text),
		SentenceCount:     sentenceCount,
		AvgWordLength:     round2(float64(totalLen) / float64(divisor)),
		AvgSentenceLength: round2(float64(wordCount) / float64(sentDivisor)),
		UniqueWords:       len(unique),
		LexicalDiversity:  round3(float64(len(unique)) / float64(divisor)),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
