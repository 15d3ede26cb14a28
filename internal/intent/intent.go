// Package intent classifies user queries into research intents and extracts
// the parameters each intent needs (symbols, fund names, news topics). The
// classifier is a keyword cascade: comparison, mutual fund, news, concept,
// stock, follow-up, then a bare-ticker fallback for short queries.
package intent

import (
	"regexp"
	"strings"
)

// Intent identifies the kind of request a query represents.
type Intent string

const (
	StockAnalysis      Intent = "stock_analysis"
	StockComparison    Intent = "stock_comparison"
	MFAnalysis         Intent = "mf_analysis"
	MFComparison       Intent = "mf_comparison"
	News               Intent = "news"
	ConceptExplanation Intent = "concept_explanation"
	Followup           Intent = "followup"
	Unclear            Intent = "unclear"
	Help               Intent = "help"
	Exit               Intent = "exit"
)

// Result holds the classified intent plus any extracted parameters.
// Only the fields relevant to the intent are populated.
type Result struct {
	Intent   Intent
	Symbol   string   // stock_analysis
	Symbols  []string // stock_comparison
	FundName string   // mf_analysis
	Topic    string   // news
	Concept  string   // concept_explanation
}

// ── Keyword tables ──

var (
	exitCommands = map[string]bool{
		"exit": true, "quit": true, "bye": true, "goodbye": true, "q": true,
	}
	helpCommands = map[string]bool{
		"help": true, "?": true, "commands": true, "how to use": true,
	}

	comparisonKeywords = []string{"compare", "vs", "versus", "difference between", "better"}
	mfKeywords         = []string{"mutual fund", "mf ", " fund", "flexi cap", "large cap",
		"mid cap", "small cap", "elss", "sip", "nav"}
	newsKeywords    = []string{"news", "happening", "latest", "recent", "update"}
	conceptKeywords = []string{"what is", "what's", "what does", "explain", "meaning of",
		"define", "how does", "why is"}
	stockKeywords = []string{"tell me about", "analyze", "analysis", "stock", "share",
		"company", "how is", "price of"}
	followupKeywords = []string{"why", "how come", "what about", "and", "also", "more",
		"their", "its", "this", "that", "it"}

	stockStripPhrases = []string{"TELL ME ABOUT", "ANALYZE", "ANALYSIS OF", "STOCK",
		"SHARE", "COMPANY", "ABOUT", "THE"}
	fundStripPhrases = []string{"tell me about", "analyze", "analysis of", "mutual fund",
		"fund details", "about the", "about"}
	newsStripPhrases = []string{"what's happening with", "news about", "latest on",
		"news on", "updates on", "what is happening"}
	conceptStripPhrases = []string{"what is", "what's", "what does", "explain",
		"meaning of", "define", "mean"}
)

var (
	vsSplitRe    = regexp.MustCompile(`\s+VS\.?\s+`)
	nonSymbolRe  = regexp.MustCompile(`[^\w&]`)
	stripPhraseRe = map[string]*regexp.Regexp{}
)

func init() {
	for _, list := range [][]string{fundStripPhrases, newsStripPhrases, conceptStripPhrases} {
		for _, p := range list {
			if _, ok := stripPhraseRe[p]; !ok {
				stripPhraseRe[p] = regexp.MustCompile("(?i)" + regexp.QuoteMeta(p))
			}
		}
	}
}

// ── Classification ──

// IsExitCommand reports whether the query is an exit command.
func IsExitCommand(query string) bool {
	return exitCommands[strings.ToLower(strings.TrimSpace(query))]
}

// IsHelpCommand reports whether the query is a help command.
func IsHelpCommand(query string) bool {
	return helpCommands[strings.ToLower(strings.TrimSpace(query))]
}

// Classify determines the intent of a query. hasContext indicates whether a
// previous analysis is available for follow-up questions.
//
// Queries of three words or fewer that match no keyword are treated as a bare
// ticker and classified as stock analysis.
func Classify(query string, hasContext bool) Result {
	query = strings.TrimSpace(query)
	lower := strings.ToLower(query)

	if containsAny(lower, comparisonKeywords) {
		if symbols := ExtractComparisonSymbols(query); len(symbols) > 0 {
			return Result{Intent: StockComparison, Symbols: symbols}
		}
	}

	if containsAny(lower, mfKeywords) {
		return Result{Intent: MFAnalysis, FundName: ExtractFundName(query)}
	}

	if containsAny(lower, newsKeywords) {
		return Result{Intent: News, Topic: ExtractNewsTopic(query)}
	}

	if containsAny(lower, conceptKeywords) {
		return Result{Intent: ConceptExplanation, Concept: ExtractConcept(query)}
	}

	if containsAny(lower, stockKeywords) {
		return Result{Intent: StockAnalysis, Symbol: ExtractStockSymbol(query)}
	}

	if hasContext && containsAny(lower, followupKeywords) {
		return Result{Intent: Followup}
	}

	if words := strings.Fields(query); len(words) > 0 && len(words) <= 3 {
		return Result{Intent: StockAnalysis, Symbol: strings.ToUpper(words[0])}
	}

	return Result{Intent: Unclear}
}

// ── Extraction ──

// ExtractComparisonSymbols splits a comparison query into candidate symbols.
// "X vs Y" and "compare X and Y" forms are supported; returns nil when
// neither separator is present.
func ExtractComparisonSymbols(query string) []string {
	upper := strings.ToUpper(query)

	if strings.Contains(upper, " VS ") || strings.Contains(upper, " VS. ") {
		return cleanSymbols(vsSplitRe.Split(upper, -1))
	}

	if strings.Contains(upper, " AND ") {
		return cleanSymbols(strings.Split(upper, " AND "))
	}

	return nil
}

func cleanSymbols(parts []string) []string {
	var symbols []string
	for _, p := range parts {
		if s := CleanSymbol(p); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// ExtractStockSymbol strips common request phrases and returns the first
// remaining token uppercased.
func ExtractStockSymbol(query string) string {
	upper := strings.ToUpper(query)
	for _, phrase := range stockStripPhrases {
		upper = strings.ReplaceAll(upper, phrase, "")
	}
	return CleanSymbol(upper)
}

// ExtractFundName strips common request phrases, leaving the fund name.
func ExtractFundName(query string) string {
	return stripPhrases(query, fundStripPhrases)
}

// ExtractNewsTopic strips common request phrases, leaving the news topic.
func ExtractNewsTopic(query string) string {
	return stripPhrases(query, newsStripPhrases)
}

// ExtractConcept strips question phrases and a trailing question mark,
// leaving the concept name.
func ExtractConcept(query string) string {
	s := stripPhrases(query, conceptStripPhrases)
	return strings.TrimSpace(strings.TrimRight(s, "?"))
}

// CleanSymbol reduces free text to a single ticker: every character outside
// [A-Za-z0-9_&] becomes a space and the first remaining token is uppercased.
func CleanSymbol(text string) string {
	text = nonSymbolRe.ReplaceAllString(text, " ")
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	return strings.ToUpper(words[0])
}

func stripPhrases(query string, phrases []string) string {
	for _, p := range phrases {
		query = stripPhraseRe[p].ReplaceAllString(query, "")
	}
	return strings.TrimSpace(query)
}

func containsAny(query string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(query, k) {
			return true
		}
	}
	return false
}
