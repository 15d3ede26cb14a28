package agent

import "strings"

// ConversationAgent answers concept questions from a built-in explanation
// table and handles unclear queries and follow-ups without external data.
type ConversationAgent struct{}

// NewConversationAgent creates a conversation agent.
func NewConversationAgent() *ConversationAgent {
	return &ConversationAgent{}
}

// conceptExplanations covers the metrics most retail investors ask about.
// Keys are matched as substrings of the lowercased concept.
var conceptExplanations = []struct {
	key  string
	text string
}{
	{"p/e ratio",
		"P/E (Price to Earnings) Ratio shows how much investors pay per rupee of company profits.\n\n" +
			"Example: If a stock costs ₹100 and earns ₹5 per share, P/E = 20.\n\n" +
			"Lower P/E might mean undervalued, higher P/E suggests growth expectations."},
	{"market cap",
		"Market Cap = Stock Price × Total Shares\n\n" +
			"It tells you the total market value of a company.\n\n" +
			"Large Cap (>₹20,000 Cr): Stable, established\n" +
			"Mid Cap (₹5,000-20,000 Cr): Growth potential\n" +
			"Small Cap (<₹5,000 Cr): Higher risk/reward"},
	{"roe",
		"ROE (Return on Equity) = Net Profit / Shareholder Equity × 100\n\n" +
			"It shows how efficiently a company uses investor money.\n\n" +
			"ROE > 15% is generally good. Below 10% suggests inefficiency."},
	{"debt to equity",
		"Debt/Equity shows how much the company has borrowed vs owned.\n\n" +
			"D/E of 0.5 means ₹50 debt for every ₹100 of equity.\n\n" +
			"Lower is safer. Above 1.0 means more debt than equity - higher risk."},
	{"nav",
		"NAV (Net Asset Value) = Total Value of Fund's Holdings / Number of Units\n\n" +
			"It's the per-unit price of a mutual fund.\n\n" +
			"NAV alone doesn't indicate if a fund is cheap or expensive - returns matter more."},
	{"expense ratio",
		"Expense Ratio is the annual fee charged by a mutual fund.\n\n" +
			"If expense ratio is 1%, and you invest ₹1 lakh, ₹1,000/year goes to fees.\n\n" +
			"Lower is better. Direct plans have lower expense ratios than Regular plans."},
}

// ExplainConcept returns a plain-language explanation for a financial
// concept. Unknown concepts get a generic pointer instead of an empty reply.
func (a *ConversationAgent) ExplainConcept(concept string) string {
	lower := strings.ToLower(concept)
	for _, e := range conceptExplanations {
		if strings.Contains(lower, e.key) {
			return e.text
		}
	}
	return "I don't have a detailed explanation for '" + concept + "' yet.\n\n" +
		"You can ask about: P/E ratio, market cap, ROE, debt to equity, NAV, or expense ratio."
}

// Followup answers a follow-up question using the stored context of the last
// analysis. Without richer reasoning it points the user back at a full
// analysis of the referenced subject.
func (a *ConversationAgent) Followup(query string, lastContext map[string]string) string {
	if subject := lastContext["name"]; subject != "" {
		return "We were just discussing " + subject + ". " +
			"For specifics, ask for a full analysis, e.g. \"Tell me about " + subject + "\" " +
			"or \"What's happening with " + subject + "?\""
	}
	return a.Clarify(query)
}

// Clarify handles ambiguous queries by listing example questions.
func (a *ConversationAgent) Clarify(query string) string {
	return "I'm not sure what you're looking for. You can ask me to:\n\n" +
		"• Analyze a stock: \"Tell me about Reliance\" or \"Analyze TCS\"\n" +
		"• Compare stocks: \"Compare Infosys vs TCS\"\n" +
		"• Explain concepts: \"What is P/E ratio?\"\n" +
		"• Get news: \"What's happening with Adani?\"\n" +
		"• Analyze mutual funds: \"Tell me about Parag Parikh Flexi Cap\"\n\n" +
		"What would you like to know?"
}
