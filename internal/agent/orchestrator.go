package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/investez/internal/intent"
	"github.com/seenimoa/investez/pkg/models"
)

// Orchestrator routes user queries to specialist agents based on classified
// intent and maintains cross-turn context for follow-up questions.
type Orchestrator struct {
	mu sync.Mutex

	stock        *StockAgent
	mf           *MFAgent
	news         *NewsAgent
	conversation *ConversationAgent

	session     *models.Conversation // optional; messages are appended when set
	lastContext map[string]string

	logger zerolog.Logger
}

// OrchestratorConfig holds orchestrator dependencies.
type OrchestratorConfig struct {
	Stock        *StockAgent
	MF           *MFAgent
	News         *NewsAgent
	Conversation *ConversationAgent
	Session      *models.Conversation
	Logger       zerolog.Logger
}

// NewOrchestrator creates an orchestrator wired to its specialist agents.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	conv := cfg.Conversation
	if conv == nil {
		conv = NewConversationAgent()
	}
	return &Orchestrator{
		stock:        cfg.Stock,
		mf:           cfg.MF,
		news:         cfg.News,
		conversation: conv,
		session:      cfg.Session,
		lastContext:  map[string]string{},
		logger:       cfg.Logger,
	}
}

// AttachSession sets the conversation that Process appends messages to.
func (o *Orchestrator) AttachSession(session *models.Conversation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session = session
}

// Session returns the attached conversation, or nil.
func (o *Orchestrator) Session() *models.Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Process handles one user query end to end: classify, route, respond, and
// record both turns on the attached session. A panic in any handler is
// converted into an apologetic response rather than crashing the caller.
func (o *Orchestrator) Process(ctx context.Context, query string) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Str("query", query).Msg("query handler panicked")
			resp = &Response{
				Text:  "Sorry, something went wrong while processing your request. Please try again.",
				Agent: AgentSystem,
				Tools: []string{"error"},
			}
		}
		o.record(query, resp)
	}()

	query = strings.TrimSpace(query)

	if intent.IsExitCommand(query) {
		return &Response{Text: "Goodbye! Your conversation has been saved.", Agent: AgentSystem, Tools: []string{}}
	}
	if intent.IsHelpCommand(query) {
		return &Response{Text: helpText, Agent: AgentSystem, Tools: []string{}}
	}

	o.mu.Lock()
	hasContext := len(o.lastContext) > 0
	o.mu.Unlock()

	result := intent.Classify(query, hasContext)
	o.logger.Debug().Str("intent", string(result.Intent)).Str("query", query).Msg("classified query")

	switch result.Intent {
	case intent.StockAnalysis:
		return o.handleStockAnalysis(ctx, result.Symbol)
	case intent.StockComparison:
		return o.handleStockComparison(ctx, result.Symbols)
	case intent.MFAnalysis:
		return o.handleMFAnalysis(ctx, result.FundName)
	case intent.News:
		return o.handleNews(ctx, result.Topic)
	case intent.ConceptExplanation:
		return o.handleConcept(result.Concept)
	case intent.Followup:
		return o.handleFollowup(query)
	default:
		return &Response{Text: o.conversation.Clarify(query), Agent: AgentConversation, Tools: []string{}}
	}
}

// --- Handlers ---

func (o *Orchestrator) handleStockAnalysis(ctx context.Context, symbol string) *Response {
	analysis := o.stock.Analyze(ctx, symbol, true)

	if analysis.Empty() {
		return &Response{
			Text:  "Sorry, I couldn't find data for '" + symbol + "'. Please check the symbol and try again.",
			Agent: AgentStock,
			Tools: []string{},
		}
	}

	name := symbol
	if analysis.Fundamentals != nil && analysis.Fundamentals.Name != "" {
		name = analysis.Fundamentals.Name
	}
	o.setContext(map[string]string{"type": "stock", "symbol": symbol, "name": name})

	return &Response{
		Text:  o.stock.Format(analysis),
		Agent: AgentStock,
		Tools: []string{"get_stock_fundamentals", "get_quote", "search_stock_news"},
	}
}

func (o *Orchestrator) handleStockComparison(ctx context.Context, symbols []string) *Response {
	if len(symbols) < 2 {
		return &Response{
			Text:  "Please specify at least two stocks to compare. Example: 'Compare TCS vs Infosys'",
			Agent: AgentStock,
			Tools: []string{},
		}
	}

	text := o.stock.Compare(ctx, symbols)
	o.setContext(map[string]string{"type": "comparison", "symbols": strings.Join(symbols, ", ")})

	return &Response{Text: text, Agent: AgentStock, Tools: []string{"get_stock_fundamentals"}}
}

func (o *Orchestrator) handleMFAnalysis(ctx context.Context, fundName string) *Response {
	analysis := o.mf.Analyze(ctx, fundName, true)

	if analysis == nil {
		matches := o.mf.Search(ctx, fundName, 5)
		if len(matches) > 0 {
			var b strings.Builder
			b.WriteString("I couldn't find an exact match for '" + fundName + "'. Did you mean:\n")
			for _, m := range matches {
				b.WriteString("• " + m.SchemeName + "\n")
			}
			return &Response{Text: strings.TrimRight(b.String(), "\n"), Agent: AgentMF, Tools: []string{}}
		}
		return &Response{
			Text:  "Sorry, I couldn't find any mutual fund matching '" + fundName + "'.",
			Agent: AgentMF,
			Tools: []string{},
		}
	}

	o.setContext(map[string]string{"type": "mutual_fund", "name": analysis.NAV.SchemeName})

	return &Response{
		Text:  o.mf.Format(analysis),
		Agent: AgentMF,
		Tools: []string{"get_nav", "search_funds"},
	}
}

func (o *Orchestrator) handleNews(ctx context.Context, topic string) *Response {
	// Try as stock news first, then fall back to general market news.
	data := o.news.StockNews(ctx, strings.ToUpper(topic), topic)
	if data == nil {
		data = o.news.MarketNews(ctx)
	}
	if data == nil {
		return &Response{
			Text:  "Sorry, I couldn't fetch news at the moment. Please try again.",
			Agent: AgentNews,
			Tools: []string{},
		}
	}

	return &Response{Text: o.news.Format(data), Agent: AgentNews, Tools: []string{"search_news"}}
}

func (o *Orchestrator) handleConcept(concept string) *Response {
	return &Response{Text: o.conversation.ExplainConcept(concept), Agent: AgentConversation, Tools: []string{}}
}

func (o *Orchestrator) handleFollowup(query string) *Response {
	o.mu.Lock()
	lastContext := make(map[string]string, len(o.lastContext))
	for k, v := range o.lastContext {
		lastContext[k] = v
	}
	o.mu.Unlock()

	return &Response{Text: o.conversation.Followup(query, lastContext), Agent: AgentConversation, Tools: []string{}}
}

// --- Session bookkeeping ---

func (o *Orchestrator) setContext(ctx map[string]string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastContext = ctx
}

// record appends the user query and the assistant response to the attached
// session.
func (o *Orchestrator) record(query string, resp *Response) {
	if resp == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return
	}

	now := time.Now()
	o.session.Append(models.Message{Role: "user", Content: query, Timestamp: now})
	o.session.Append(models.Message{
		Role:      "assistant",
		Content:   resp.Text,
		Agent:     resp.Agent,
		Tools:     resp.Tools,
		Timestamp: now,
	})
}

const helpText = `
InvestEz - Your Investment Research Assistant
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

WHAT YOU CAN ASK:

📈 Stock Analysis
   • "Tell me about Reliance"
   • "Analyze TCS"
   • "How is HDFC Bank doing?"

📊 Compare Stocks
   • "Compare TCS vs Infosys"
   • "Reliance vs HDFC Bank"

💰 Mutual Funds
   • "Tell me about Parag Parikh Flexi Cap"
   • "Analyze HDFC Mid Cap"

📰 News
   • "What's happening with Adani?"
   • "Market news"

❓ Concepts
   • "What is P/E ratio?"
   • "Explain debt to equity"

COMMANDS:
   • help - Show this message
   • exit - Save and exit

Type your question to get started!
`
