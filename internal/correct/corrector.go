package correct

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/otoscribe/otoscribe/internal/dictionary"
	"github.com/otoscribe/otoscribe/internal/observe"
	"github.com/otoscribe/otoscribe/internal/resilience"
	"github.com/otoscribe/otoscribe/pkg/provider/llm"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 4000

	// noOtherCorrections is the placeholder reported when the model's
	// reply has no usable "other corrections" section.
	noOtherCorrections = "特になし"
)

// systemPrompt instructs the model on correction priorities and pins the
// exact section markers the reply parser looks for.
const systemPrompt = `あなたは日本語の音声文字起こしを校正する専門家です。
以下の優先順位で修正を行ってください。

1. 変換辞書のルールは必須です。該当する箇所はすべて変換してください。
2. 句読点の位置、助詞の使い方、敬語の統一に注意し、自然な日本語に校正してください。
3. 表記ゆれと改行を整えてください。

元のニュアンスは保持してください。回答は必ず次の3つのセクションに分け、
この見出しをそのまま使って出力してください。

【修正後のテキスト】
（校正済みの全文）

【適用した辞書ルール】
（適用または確認した辞書ルールを1行ずつ。なければ「なし」）

【その他の修正点】
（文体などその他の修正の要約。なければ「なし」）`

// CorrectionResult is the outcome of one [Corrector.Correct] call.
type CorrectionResult struct {
	// CorrectedText is the final proofread text.
	CorrectedText string `json:"correctedText"`

	// MechanicalText is the intermediate text after the deterministic
	// rule pass, before the LLM pass. Callers may fall back to it
	// explicitly when a retried LLM call keeps failing.
	MechanicalText string `json:"mechanicalText"`

	// AppliedRules lists every substitution, labeled by provenance:
	// "[辞書]" for the mechanical pass, "[LLM]" for model-reported rules.
	AppliedRules []string `json:"appliedRules"`

	// OtherCorrections summarises the model's non-dictionary edits.
	OtherCorrections string `json:"otherCorrections"`

	// Usage is the LLM token accounting for the proofreading call.
	Usage llm.Usage `json:"-"`
}

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithTemperature sets the LLM sampling temperature. Lower values produce
// more deterministic corrections. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(c *Corrector) {
		c.temperature = temp
	}
}

// WithMaxTokens caps the completion length of the proofreading call.
// Default: 4000.
func WithMaxTokens(n int) Option {
	return func(c *Corrector) {
		c.maxTokens = n
	}
}

// WithRetry overrides the retry policy for rate-limited LLM calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Corrector) {
		c.retry = cfg
	}
}

// WithMetrics records per-attempt LLM call latency on the given
// instruments. Default: no recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Corrector) {
		c.metrics = m
	}
}

// Corrector is the top-level correction entry point: it runs the
// deterministic dictionary pass, invokes the LLM proofreading call, and
// merges both into a [CorrectionResult]. It is stateless per request and
// safe for concurrent use.
type Corrector struct {
	store       dictionary.Store
	llm         llm.Provider
	temperature float64
	maxTokens   int
	retry       resilience.RetryConfig
	metrics     *observe.Metrics
}

// NewCorrector constructs a [Corrector] over the given store and LLM
// provider.
func NewCorrector(store dictionary.Store, provider llm.Provider, opts ...Option) *Corrector {
	c := &Corrector{
		store:       store,
		llm:         provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct proofreads rawText against the current dictionary.
//
// The mechanical pass always runs first; its output is embedded in the
// LLM prompt alongside the original so the model can double-check rule
// coverage. A rate-limited LLM call is retried with bounded backoff; any
// other LLM failure surfaces immediately as an API error. The mechanical
// result is never silently returned as a success — callers must see the
// failure and decide.
func (c *Corrector) Correct(ctx context.Context, rawText string) (*CorrectionResult, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, newError(KindValidation, "テキストが見つかりません")
	}

	rules, err := c.store.ListAll(ctx)
	if err != nil {
		return nil, wrapError(KindStorage, "辞書の読み込みに失敗しました", err)
	}

	mech := ApplyRules(rawText, rules)
	slog.Debug("mechanical pass complete",
		"rules_total", len(rules), "rules_fired", len(mech.Applied))

	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
		Messages: []llm.Message{
			{Role: "user", Content: buildUserMessage(rules, mech.Text, rawText)},
		},
	}

	var resp *llm.CompletionResponse
	err = resilience.Retry(ctx, c.retry, llm.IsRateLimited, func() error {
		start := time.Now()
		var callErr error
		resp, callErr = c.llm.Complete(ctx, req)
		if c.metrics != nil {
			c.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
		}
		return callErr
	})
	if err != nil {
		if llm.IsRateLimited(err) {
			return nil, wrapError(KindRateLimit, "リクエスト制限に達しました。しばらく待ってから再試行してください", err)
		}
		return nil, wrapError(KindAPI, "校正中にエラーが発生しました", err)
	}

	sections := parseSections(resp.Content)

	result := &CorrectionResult{
		CorrectedText:    sections.text,
		MechanicalText:   mech.Text,
		OtherCorrections: sections.other,
		Usage:            resp.Usage,
	}
	if result.CorrectedText == "" {
		// Unparseable reply: the mechanical text is the safe default.
		slog.Warn("llm reply had no corrected-text section; using mechanical result")
		result.CorrectedText = mech.Text
	}
	if result.OtherCorrections == "" {
		result.OtherCorrections = noOtherCorrections
	}

	for _, d := range mech.Descriptions() {
		result.AppliedRules = append(result.AppliedRules, "[辞書] "+d)
	}
	for _, r := range sections.rules {
		result.AppliedRules = append(result.AppliedRules, "[LLM] "+r)
	}

	return result, nil
}

// buildUserMessage assembles the user-role prompt: the rendered dictionary
// block, the mechanically corrected text, and the original for rule
// coverage double-checking.
func buildUserMessage(rules []dictionary.Rule, mechText, rawText string) string {
	var sb strings.Builder
	if block := FormatRules(rules); block != "" {
		sb.WriteString(block)
		sb.WriteString("\n")
	}
	sb.WriteString("機械適用後のテキスト：\n")
	sb.WriteString(mechText)
	sb.WriteString("\n\n元のテキスト（辞書ルールの適用漏れ確認用）：\n")
	sb.WriteString(rawText)
	return sb.String()
}

// Section marker patterns. The primary form is the bracketed heading the
// system prompt pins; the numbered form covers models that renumber the
// headings anyway.
var (
	reSecText  = sectionPattern("修正後のテキスト")
	reSecRules = sectionPattern("適用した辞書ルール")
	reSecOther = sectionPattern("その他の修正点")

	// reNextSection matches the start of any section heading, bracketed
	// or numbered.
	reNextSection = regexp.MustCompile(`(?m)^\s*(?:【[^】]+】|[1-3１-３][.．、)）]?\s*(?:修正後のテキスト|適用した辞書ルール|その他の修正点))`)
)

// sectionPattern builds a regexp matching the heading for one section,
// consuming the rest of the heading line.
func sectionPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^\s*(?:【` + label + `】|[1-3１-３][.．、)）]?\s*` + label + `[:：]?)[ \t]*\n?`)
}

// parsedSections holds the three parts of the model reply. Missing
// sections stay empty; the caller substitutes defaults.
type parsedSections struct {
	text  string
	rules []string
	other string
}

// parseSections extracts the three labeled sections from the model reply.
// Parsing is fault-tolerant: a missing section yields its zero value
// rather than an error.
func parseSections(content string) parsedSections {
	var p parsedSections
	p.text = sectionBody(content, reSecText)
	p.other = sectionBody(content, reSecOther)

	for _, line := range strings.Split(sectionBody(content, reSecRules), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-・*"))
		if line == "" || line == "なし" || line == noOtherCorrections {
			continue
		}
		p.rules = append(p.rules, line)
	}
	if p.other == "なし" {
		p.other = ""
	}
	return p
}

// sectionBody returns the trimmed text between the given section heading
// and the next heading (or end of reply). Returns "" when the heading is
// absent.
func sectionBody(content string, heading *regexp.Regexp) string {
	loc := heading.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	rest := content[loc[1]:]
	if next := reNextSection.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return strings.TrimSpace(rest)
}

// String implements fmt.Stringer for logging.
func (r *CorrectionResult) String() string {
	return fmt.Sprintf("corrected %d chars, %d rules applied", len(r.CorrectedText), len(r.AppliedRules))
}
