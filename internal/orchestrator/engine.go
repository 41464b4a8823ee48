// Package orchestrator runs one conversation turn end to end: persist the
// customer utterance, decide between the scripted flows and the completion
// gateway, interpret directives, extract and reconcile facts, and persist
// exactly one bot reply.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/metrics"
	"chatbot-engine/internal/engine/directive"
	"chatbot-engine/internal/engine/extraction"
	"chatbot-engine/internal/engine/lexicon"
	"chatbot-engine/internal/engine/qualification"
	"chatbot-engine/internal/engine/script"
	"chatbot-engine/internal/gateway"
	"chatbot-engine/internal/models"
	"chatbot-engine/internal/notify"
	"chatbot-engine/internal/store"
)

// Engine is the public surface of the conversation engine.
type Engine interface {
	// StartSession creates a session and produces its welcome message. An
	// empty token gets a generated one.
	StartSession(ctx context.Context, token, customerName string) (*models.Session, *models.Message, error)
	// SubmitUtterance runs one customer turn and returns the bot's reply.
	SubmitUtterance(ctx context.Context, token, text string) (*TurnResult, error)
}

// TurnResult is the outcome of one processed turn.
type TurnResult struct {
	Session   *models.Session
	Customer  models.Message
	Reply     models.Message
	Directive directive.Directive
	// Scripted reports whether the reply came from the deterministic flows
	// rather than the completion gateway.
	Scripted bool
}

// SnapshotCache is the redis-backed turn lock plus knowledge/catalog
// snapshots. Optional: without it every turn reads the store directly and
// concurrent turns are not serialized.
type SnapshotCache interface {
	AcquireTurnLock(ctx context.Context, token string) (bool, error)
	ReleaseTurnLock(ctx context.Context, token string) error
	Knowledge(ctx context.Context) ([]models.KnowledgeEntry, error)
	SetKnowledge(ctx context.Context, entries []models.KnowledgeEntry) error
	Catalogs(ctx context.Context) ([]models.Catalog, error)
	SetCatalogs(ctx context.Context, catalogs []models.Catalog) error
}

// SessionIndexer feeds the dashboard projection. Optional.
type SessionIndexer interface {
	IndexSession(ctx context.Context, sess *models.Session) error
}

// Config carries the orchestration tunables.
type Config struct {
	// HistoryTurns is how many recent messages go to the completion gateway.
	HistoryTurns int
	// ExtractionTurns caps how many customer turns extraction scans.
	ExtractionTurns int
}

// Deps wires the orchestrator's collaborators. Store, Gateway and Lexicon
// are required; the rest degrade to no-ops when nil.
type Deps struct {
	Store    store.Store
	Cache    SnapshotCache
	Gateway  gateway.CompletionGateway
	Notifier notify.Notifier
	Indexer  SessionIndexer
	Lexicon  *lexicon.Tables
	Logger   logger.Logger
}

// Orchestrator is the production Engine.
type Orchestrator struct {
	cfg      Config
	store    store.Store
	cache    SnapshotCache
	gateway  gateway.CompletionGateway
	notifier notify.Notifier
	indexer  SessionIndexer
	lex      *lexicon.Tables
	machine  *qualification.Machine
	logger   logger.Logger
}

var _ Engine = (*Orchestrator)(nil)

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 10
	}
	if cfg.ExtractionTurns <= 0 {
		cfg.ExtractionTurns = 15
	}
	if deps.Lexicon == nil {
		deps.Lexicon = lexicon.MustLoad()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NoOp{}
	}

	return &Orchestrator{
		cfg:      cfg,
		store:    deps.Store,
		cache:    deps.Cache,
		gateway:  deps.Gateway,
		notifier: deps.Notifier,
		indexer:  deps.Indexer,
		lex:      deps.Lexicon,
		machine:  qualification.NewMachine(deps.Lexicon),
		logger:   deps.Logger,
	}
}

func (o *Orchestrator) StartSession(ctx context.Context, token, customerName string) (*models.Session, *models.Message, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		token = uuid.NewString()
	}

	sess := &models.Session{Token: token, CustomerName: strings.TrimSpace(customerName)}
	if err := o.store.CreateSession(ctx, sess); err != nil {
		return nil, nil, apperrors.NewStoreWriteError(err.Error())
	}

	text, kind := script.Welcome()
	welcome := models.Message{
		SessionID: sess.ID,
		Sender:    models.SenderBot,
		Content:   text,
		Kind:      kind,
	}
	if err := o.store.AppendMessage(ctx, &welcome); err != nil {
		return nil, nil, apperrors.NewStoreWriteError(err.Error())
	}

	o.logger.Info("session started", map[string]interface{}{
		"session_id": sess.ID,
		"token":      sess.Token,
	})
	return sess, &welcome, nil
}

func (o *Orchestrator) SubmitUtterance(ctx context.Context, token, text string) (*TurnResult, error) {
	start := time.Now()
	defer func() {
		metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, o.failTurn(apperrors.NewInvalidSessionTokenError("empty token"))
	}
	utterance := strings.TrimSpace(text)
	if utterance == "" {
		return nil, o.failTurn(apperrors.NewEmptyUtteranceError())
	}

	if o.cache != nil {
		acquired, err := o.cache.AcquireTurnLock(ctx, token)
		switch {
		case err != nil:
			// A degraded lock never blocks the conversation.
			o.logger.WithError(err).Warn("turn lock unavailable", map[string]interface{}{"token": token})
		case !acquired:
			return nil, o.failTurn(apperrors.NewTurnInProgressError(token))
		default:
			defer func() {
				if err := o.cache.ReleaseTurnLock(ctx, token); err != nil {
					o.logger.WithError(err).Warn("turn lock release failed", map[string]interface{}{"token": token})
				}
			}()
		}
	}

	sess, created, err := o.loadOrCreate(ctx, token)
	if err != nil {
		return nil, o.failTurn(err)
	}

	var history []models.Message
	if !created {
		history, err = o.store.MessagesBySession(ctx, sess.ID)
		if err != nil {
			return nil, o.failTurn(apperrors.NewStoreReadError(err.Error()))
		}
	}

	customer := models.Message{
		SessionID: sess.ID,
		Sender:    models.SenderCustomer,
		Content:   utterance,
		Kind:      models.KindText,
	}
	if err := o.store.AppendMessage(ctx, &customer); err != nil {
		return nil, o.failTurn(apperrors.NewStoreWriteError(err.Error()))
	}

	// A transferred session belongs to the agent: log the message, remind
	// the customer, touch nothing else.
	if sess.IsTransferred() {
		reply, err := o.reply(ctx, sess, queueReply, models.KindSystem)
		if err != nil {
			return nil, o.failTurn(err)
		}
		return &TurnResult{Session: sess, Customer: customer, Reply: reply, Directive: directive.None}, nil
	}

	raw, kind, scripted, err := o.produceReply(ctx, sess, history, customer, created, utterance)
	if err != nil {
		// Completion failed: apologize, keep all session state untouched.
		metrics.CompletionFailures.Inc()
		o.logger.WithError(err).Error("completion failed, replying with apology", map[string]interface{}{
			"session_id": sess.ID,
		})
		reply, replyErr := o.reply(ctx, sess, apologyReply, models.KindText)
		if replyErr != nil {
			return nil, o.failTurn(replyErr)
		}
		return &TurnResult{Session: sess, Customer: customer, Reply: reply, Directive: directive.None}, nil
	}

	res := directive.Interpret(raw)
	replyText := res.Clean

	// Classify the customer while still unknown. The lazy-create turn is
	// skipped: the welcome question has not been asked yet.
	if !created {
		sess.CustomerType = o.machine.NextCustomerType(sess.CustomerType, utterance)
	}

	allMsgs := append(history, customer)
	switch res.Directive {
	case directive.QualificationComplete:
		facts := extraction.ExtractLead(customerTurns(allMsgs, o.cfg.ExtractionTurns), o.lex)
		countLeadHits(facts)
		mergeLeadFacts(sess, facts)
		if sess.CustomerType == models.CustomerUnknown || sess.CustomerType == "" {
			sess.CustomerType = models.CustomerProspect
		}
		assignCategory(sess, models.CategoryInformation)
		if replyText == "" {
			replyText = qualificationFallbackReply
		}

	case directive.SendCatalog:
		// The listing replaces whatever the model said around the marker.
		assignCategory(sess, models.CategoryCatalog)
		catalogs := o.loadCatalogs(ctx)
		if len(catalogs) == 0 {
			replyText = catalogMissReply
		} else {
			replyText = catalogReply(catalogs)
			kind = models.KindCatalog
		}

	case directive.OrderComplete:
		assignCategory(sess, models.CategoryOrder)
		facts := extraction.ExtractOrder(o.orderWindow(allMsgs), o.lex)
		countOrderHits(facts)
		mergeOrderFacts(sess, facts)
		sess.Status = models.StatusTransferred
		sess.TransferredToAgent = true
		replyText = orderSummary(sess, facts)

	case directive.TransferAgent:
		assignCategory(sess, models.CategoryOrder)
		sess.Status = models.StatusTransferred
		sess.TransferredToAgent = true
		replyText = transferReply
		kind = models.KindSystem

	default:
		assignCategory(sess, o.machine.FallbackCategory(sess.Category, utterance))
	}

	if res.Directive != directive.None {
		metrics.DirectivesFired.WithLabelValues(res.Directive.String()).Inc()
	}

	if err := o.store.UpdateSession(ctx, sess); err != nil {
		return nil, o.failTurn(apperrors.NewStoreWriteError(err.Error()))
	}

	reply, err := o.reply(ctx, sess, replyText, kind)
	if err != nil {
		return nil, o.failTurn(err)
	}

	if sess.IsTransferred() {
		if err := o.notifier.NotifyTransfer(ctx, sess); err != nil {
			o.logger.WithError(err).Warn("transfer notification failed", map[string]interface{}{
				"session_id": sess.ID,
			})
		}
	}
	if o.indexer != nil {
		if err := o.indexer.IndexSession(ctx, sess); err != nil {
			o.logger.WithError(err).Warn("session indexing failed", map[string]interface{}{
				"session_id": sess.ID,
			})
		}
	}

	metrics.TurnsProcessed.WithLabelValues(string(sess.Category)).Inc()
	return &TurnResult{
		Session:   sess,
		Customer:  customer,
		Reply:     reply,
		Directive: res.Directive,
		Scripted:  scripted,
	}, nil
}

// produceReply picks the scripted flows or the completion gateway. The raw
// result may still carry directive markers.
func (o *Orchestrator) produceReply(ctx context.Context, sess *models.Session, history []models.Message, customer models.Message, created bool, utterance string) (raw string, kind models.MessageKind, scripted bool, err error) {
	if created {
		// First contact on an unseen token: the welcome question opens the
		// conversation.
		text, k := script.Welcome()
		return text, k, true, nil
	}

	if r, ok := script.Next(sess, lastBotMessage(history), utterance, o.lex); ok {
		return r.Raw, r.Kind, true, nil
	}

	prompt := buildSystemPrompt(o.loadKnowledge(ctx))
	turns := buildHistory(append(history, customer), o.cfg.HistoryTurns)
	out, err := o.gateway.Complete(ctx, prompt, turns)
	if err != nil {
		return "", models.KindText, false, err
	}
	return out, models.KindText, false, nil
}

func (o *Orchestrator) loadOrCreate(ctx context.Context, token string) (*models.Session, bool, error) {
	sess, err := o.store.SessionByToken(ctx, token)
	if err == nil {
		return sess, false, nil
	}
	if err != store.ErrNotFound {
		return nil, false, apperrors.NewStoreReadError(err.Error())
	}

	sess = &models.Session{Token: token}
	if err := o.store.CreateSession(ctx, sess); err != nil {
		return nil, false, apperrors.NewStoreWriteError(err.Error())
	}
	return sess, true, nil
}

func (o *Orchestrator) reply(ctx context.Context, sess *models.Session, content string, kind models.MessageKind) (models.Message, error) {
	msg := models.Message{
		SessionID: sess.ID,
		Sender:    models.SenderBot,
		Content:   content,
		Kind:      kind,
	}
	if err := o.store.AppendMessage(ctx, &msg); err != nil {
		return models.Message{}, apperrors.NewStoreWriteError(err.Error())
	}
	return msg, nil
}

// loadKnowledge reads the active knowledge base through the snapshot cache
// when present. Failures degrade to an empty knowledge base.
func (o *Orchestrator) loadKnowledge(ctx context.Context) []models.KnowledgeEntry {
	if o.cache != nil {
		if entries, err := o.cache.Knowledge(ctx); err == nil {
			return entries
		}
	}
	entries, err := o.store.ActiveKnowledge(ctx)
	if err != nil {
		o.logger.WithError(err).Warn("knowledge load failed", nil)
		return nil
	}
	if o.cache != nil {
		if err := o.cache.SetKnowledge(ctx, entries); err != nil {
			o.logger.WithError(err).Warn("knowledge snapshot write failed", nil)
		}
	}
	return entries
}

func (o *Orchestrator) loadCatalogs(ctx context.Context) []models.Catalog {
	if o.cache != nil {
		if catalogs, err := o.cache.Catalogs(ctx); err == nil {
			return catalogs
		}
	}
	catalogs, err := o.store.ActiveCatalogs(ctx)
	if err != nil {
		o.logger.WithError(err).Warn("catalog load failed", nil)
		return nil
	}
	if o.cache != nil {
		if err := o.cache.SetCatalogs(ctx, catalogs); err != nil {
			o.logger.WithError(err).Warn("catalog snapshot write failed", nil)
		}
	}
	return catalogs
}

// orderWindow returns the customer turns of the current order flow: turns
// after the bot asked for the establishment, or the most recent customer
// turns when the guided flow never ran.
func (o *Orchestrator) orderWindow(msgs []models.Message) []string {
	askOrigin := script.Text(script.StepAskOrderOrigin)
	startIdx := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == models.SenderBot && msgs[i].Content == askOrigin {
			startIdx = i
			break
		}
	}

	if startIdx >= 0 {
		var turns []string
		for _, m := range msgs[startIdx+1:] {
			if m.Sender == models.SenderCustomer {
				turns = append(turns, m.Content)
			}
		}
		return turns
	}
	return customerTurns(msgs, o.cfg.ExtractionTurns)
}

func (o *Orchestrator) failTurn(err error) error {
	code := "INTERNAL"
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		code = string(stdErr.Code)
	}
	metrics.TurnsFailed.WithLabelValues(code).Inc()
	return err
}

func lastBotMessage(msgs []models.Message) *models.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == models.SenderBot {
			return &msgs[i]
		}
	}
	return nil
}

func customerTurns(msgs []models.Message, max int) []string {
	var turns []string
	for _, m := range msgs {
		if m.Sender == models.SenderCustomer {
			turns = append(turns, m.Content)
		}
	}
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	return turns
}

func countLeadHits(facts extraction.LeadFacts) {
	if facts.Name != "" {
		metrics.ExtractionFieldHits.WithLabelValues("lead_name").Inc()
	}
	if facts.City != "" {
		metrics.ExtractionFieldHits.WithLabelValues("lead_city").Inc()
	}
	if facts.State != "" {
		metrics.ExtractionFieldHits.WithLabelValues("lead_state").Inc()
	}
	if facts.Establishment != "" {
		metrics.ExtractionFieldHits.WithLabelValues("establishment_type").Inc()
	}
}

func countOrderHits(facts extraction.OrderFacts) {
	if facts.Establishment != "" {
		metrics.ExtractionFieldHits.WithLabelValues("order_establishment").Inc()
	}
	if facts.TaxID != "" {
		metrics.ExtractionFieldHits.WithLabelValues("order_tax_id").Inc()
	}
	if facts.Products != "" {
		metrics.ExtractionFieldHits.WithLabelValues("order_products").Inc()
	}
	if facts.DeliveryDate != "" {
		metrics.ExtractionFieldHits.WithLabelValues("order_delivery_date").Inc()
	}
}
