// Package bot wires the Telegram conversation to the content pipeline.
//
// A single dispatch loop long-polls for updates and routes commands, numeric
// replies and inline-button presses through per-state handlers. All handler
// failures funnel through one reporting wrapper so every operation records
// errors and answers the user the same way.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mbarki/trendpilot/internal/fallback"
	"github.com/mbarki/trendpilot/internal/health"
	"github.com/mbarki/trendpilot/internal/linkedin"
	"github.com/mbarki/trendpilot/internal/models"
	"github.com/mbarki/trendpilot/internal/pipeline"
	"github.com/mbarki/trendpilot/internal/ratelimit"
	"github.com/mbarki/trendpilot/internal/session"
	"github.com/mbarki/trendpilot/internal/store"
	"github.com/mbarki/trendpilot/internal/telegram"
	"github.com/mbarki/trendpilot/internal/trends"
)

// Dispatch loop tuning constants
const (
	// SweepInterval is how often expired sessions are cleaned up
	SweepInterval = 5 * time.Minute
	// pollRetryDelay is the pause after a failed getUpdates call
	pollRetryDelay = 5 * time.Second
	// backoffThreshold is the consecutive-failure count that triggers the long pause
	backoffThreshold = 10
	// backoffDelay is the long pause once the threshold is reached
	backoffDelay = 60 * time.Second
	// recentErrorsShown is how many failures /errors reports
	recentErrorsShown = 5
)

// Messenger is the Telegram surface the bot needs.
type Messenger interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Publisher posts finished content to the outbound network.
type Publisher interface {
	PublishPost(ctx context.Context, text string, image []byte) models.PublishResult
}

// Opts holds the bot's collaborators.
type Opts struct {
	Messenger  Messenger
	Sessions   *session.Store
	Limiter    *ratelimit.Limiter
	Monitor    *health.Monitor
	Recorder   *health.Recorder
	TrendStage *trends.Stage
	Pipeline   *pipeline.Pipeline
	Publisher  Publisher
	Archive    store.Store
}

// Option defines a configuration option for the bot.
type Option func(*Opts)

// WithMessenger sets the Telegram surface.
func WithMessenger(m Messenger) Option {
	return func(o *Opts) { o.Messenger = m }
}

// WithSessions sets the session store.
func WithSessions(s *session.Store) Option {
	return func(o *Opts) { o.Sessions = s }
}

// WithLimiter sets the per-user rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *Opts) { o.Limiter = l }
}

// WithMonitor sets the health monitor.
func WithMonitor(m *health.Monitor) Option {
	return func(o *Opts) { o.Monitor = m }
}

// WithRecorder sets the error recorder.
func WithRecorder(r *health.Recorder) Option {
	return func(o *Opts) { o.Recorder = r }
}

// WithTrendStage sets the trend discovery stage.
func WithTrendStage(s *trends.Stage) Option {
	return func(o *Opts) { o.TrendStage = s }
}

// WithPipeline sets the content pipeline.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(o *Opts) { o.Pipeline = p }
}

// WithPublisher sets the outbound publisher.
func WithPublisher(p Publisher) Option {
	return func(o *Opts) { o.Publisher = p }
}

// WithArchive sets the archive store for published posts.
func WithArchive(a store.Store) Option {
	return func(o *Opts) { o.Archive = a }
}

// Bot runs the conversational flow.
type Bot struct {
	tg         Messenger
	sessions   *session.Store
	limiter    *ratelimit.Limiter
	monitor    *health.Monitor
	recorder   *health.Recorder
	trendStage *trends.Stage
	pipeline   *pipeline.Pipeline
	publisher  Publisher
	archive    store.Store
}

// New creates a bot, applying any provided options.
func New(opts ...Option) *Bot {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bot{
		tg:         cfg.Messenger,
		sessions:   cfg.Sessions,
		limiter:    cfg.Limiter,
		monitor:    cfg.Monitor,
		recorder:   cfg.Recorder,
		trendStage: cfg.TrendStage,
		pipeline:   cfg.Pipeline,
		publisher:  cfg.Publisher,
		archive:    cfg.Archive,
	}
}

// Run long-polls for updates until the context is cancelled. Poll failures
// back off; ten consecutive failures trigger a minute-long pause. A periodic
// sweep removes expired sessions.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("Bot dispatch loop starting")

	sweep := time.NewTicker(SweepInterval)
	defer sweep.Stop()

	var offset int64
	consecutiveFailures := 0

	for {
		select {
		case <-ctx.Done():
			slog.Info("Bot dispatch loop stopping")
			return ctx.Err()
		case now := <-sweep.C:
			if removed := b.sessions.SweepExpired(now); removed > 0 {
				slog.Info("Expired sessions swept", "removed", removed)
			}
		default:
		}

		updates, err := b.tg.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			consecutiveFailures++
			delay := pollRetryDelay
			if consecutiveFailures >= backoffThreshold {
				slog.Error("Poll failures exceeded threshold, backing off", "failures", consecutiveFailures)
				delay = backoffDelay
			} else {
				slog.Warn("Poll failed, retrying", "error", err, "failures", consecutiveFailures)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		consecutiveFailures = 0

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate routes one update. Button presses are acknowledged and then
// routed through the same handlers as typed commands.
func (b *Bot) handleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if err := b.tg.AnswerCallbackQuery(ctx, cb.ID); err != nil {
			slog.Warn("Failed to answer callback query", "error", err)
		}
		if cb.Message == nil {
			return
		}
		b.route(ctx, cb.Message.Chat.ID, cb.Data)
	case update.Message != nil:
		b.route(ctx, update.Message.Chat.ID, update.Message.Text)
	}
}

// handler is one user-facing operation. The args string carries whatever
// follows the command.
type handler func(ctx context.Context, chatID int64, args string) error

// reported wraps a handler so any failure is recorded with context and
// answered with a uniform user-facing message.
func (b *Bot) reported(operation string, h handler) handler {
	return func(ctx context.Context, chatID int64, args string) error {
		if err := h(ctx, chatID, args); err != nil {
			b.recorder.Record(err, map[string]string{
				"operation": operation,
				"chat_id":   strconv.FormatInt(chatID, 10),
			})
			b.send(ctx, chatID, "❌ Something went wrong. Please try again, or use /reset to start over.")
		}
		return nil
	}
}

// route dispatches a text input or callback payload to its handler.
func (b *Bot) route(ctx context.Context, chatID int64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.monitor.RecordRequest()
	b.sessions.Touch(chatID)
	slog.Debug("Routing input", "chat_id", chatID, "input", text)

	command, args := splitCommand(text)
	switch command {
	case "/start", "/help":
		b.reported("start", b.handleStart)(ctx, chatID, args)
	case "/scan", "scan":
		b.reported("scan", b.handleScan)(ctx, chatID, args)
	case "/topic":
		b.reported("topic", b.handleTopic)(ctx, chatID, args)
	case "/preview", "preview":
		b.reported("preview", b.handlePreview)(ctx, chatID, args)
	case "/publish", "publish":
		b.reported("publish", b.handlePublish)(ctx, chatID, args)
	case "/reset", "reset":
		b.reported("reset", b.handleReset)(ctx, chatID, args)
	case "/status":
		b.reported("status", b.handleStatus)(ctx, chatID, args)
	case "/errors":
		b.reported("errors", b.handleErrors)(ctx, chatID, args)
	default:
		if strings.HasPrefix(command, "select:") {
			b.reported("selection", b.handleSelection)(ctx, chatID, strings.TrimPrefix(command, "select:"))
			return
		}
		if _, err := strconv.Atoi(command); err == nil {
			b.reported("selection", b.handleSelection)(ctx, chatID, command)
			return
		}
		b.send(ctx, chatID, "🤔 I didn't understand that. Use /help to see available commands.")
	}
}

// splitCommand separates the first token from the rest of the input.
func splitCommand(text string) (string, string) {
	parts := strings.SplitN(text, " ", 2)
	command := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return command, ""
	}
	return command, strings.TrimSpace(parts[1])
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, _ string) error {
	b.sessions.Put(chatID, session.StateIdle, session.Data{})
	welcome := `👋 *Welcome to the Morocco Trend Publisher!*

I help you discover trends and publish professional LinkedIn content.

*Commands:*
/scan - Discover trending topics
/topic <your topic> - Research a custom topic
/preview - Preview the generated post
/publish - Publish to LinkedIn
/reset - Start over
/status - Bot health
/errors - Recent failures

Start with /scan to see what's trending! 🚀`
	return b.tg.SendMessage(ctx, chatID, welcome, nil)
}

// handleScan discovers trends and moves the session to trend selection.
func (b *Bot) handleScan(ctx context.Context, chatID int64, _ string) error {
	if !b.limiter.IsAllowed(chatID) {
		return b.sendRateLimited(ctx, chatID)
	}

	b.send(ctx, chatID, "🔍 Scanning for trends, one moment...")

	found, err := b.trendStage.Discover(ctx)
	if err != nil {
		// Fallback trends were returned; record the source failure and proceed.
		b.recorder.Record(err, map[string]string{
			"operation": "scan",
			"chat_id":   strconv.FormatInt(chatID, 10),
		})
	}
	if len(found) == 0 {
		// Source answered but every candidate was dropped in validation.
		return b.tg.SendMessage(ctx, chatID, "😕 *No Trends Found*\n\nNothing usable is trending right now. Try /scan again in a few minutes, or use `/topic Your custom topic here`.", nil)
	}

	b.sessions.Put(chatID, session.StateTrendSelection, session.Data{Trends: found})
	return b.tg.SendMessage(ctx, chatID, trends.FormatMessage(found), selectionKeyboard(len(found)))
}

// selectionKeyboard renders one numbered button per trend, four per row.
func selectionKeyboard(count int) *telegram.InlineKeyboardMarkup {
	if count == 0 {
		return nil
	}
	var rows [][]telegram.InlineKeyboardButton
	var row []telegram.InlineKeyboardButton
	for i := 1; i <= count; i++ {
		row = append(row, telegram.InlineKeyboardButton{
			Text:         strconv.Itoa(i),
			CallbackData: "select:" + strconv.Itoa(i),
		})
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handleTopic researches a custom topic and generates content for it.
func (b *Bot) handleTopic(ctx context.Context, chatID int64, topic string) error {
	if err := models.ValidateTopic(topic); err != nil {
		b.send(ctx, chatID, fmt.Sprintf("⚠️ %v\n\nUsage: `/topic Your custom topic here`", err))
		return nil
	}
	if !b.limiter.IsAllowed(chatID) {
		return b.sendRateLimited(ctx, chatID)
	}

	b.send(ctx, chatID, fmt.Sprintf("🔬 Researching *%s*, one moment...", topic))

	research, failures := b.pipeline.ResearchTopic(ctx, topic)
	b.recordFailures("topic_research", chatID, failures)

	trend := pipeline.BuildTrendFromResearch(research)
	return b.generateAndPresent(ctx, chatID, trend, &research)
}

// handleSelection resolves a numeric reply against the offered trends.
func (b *Bot) handleSelection(ctx context.Context, chatID int64, args string) error {
	sess, ok := b.sessions.Get(chatID)
	if !ok || sess.State != session.StateTrendSelection {
		b.send(ctx, chatID, "ℹ️ There's no trend list to pick from. Use /scan to discover trends first.")
		return nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 1 || n > len(sess.Data.Trends) {
		b.send(ctx, chatID, fmt.Sprintf("⚠️ Please pick a number between 1 and %d.", len(sess.Data.Trends)))
		return nil
	}

	trend := sess.Data.Trends[n-1]
	slog.Info("Trend selected", "chat_id", chatID, "index", n, "title", trend.Title)
	return b.generateAndPresent(ctx, chatID, trend, nil)
}

// generateAndPresent runs content generation for a trend, renders the image
// and presents the preview. On success the session moves to content_ready.
func (b *Bot) generateAndPresent(ctx context.Context, chatID int64, trend models.Trend, research *models.ResearchResult) error {
	b.send(ctx, chatID, fmt.Sprintf("✍️ Creating content for *%s*...", trend.Title))

	content, failures, err := b.pipeline.GenerateContent(ctx, trend)
	b.recordFailures("content_generation", chatID, failures)
	if err != nil {
		return err
	}

	image := b.pipeline.RenderImage(ctx, trend, content)

	b.sessions.Put(chatID, session.StateContentReady, session.Data{
		SelectedTrend: &trend,
		Content:       &content,
		Research:      research,
		ImageBytes:    image,
	})

	return b.presentContent(ctx, chatID, trend, content, image)
}

// presentContent sends the preview: photo with caption when an image exists,
// plain message otherwise.
func (b *Bot) presentContent(ctx context.Context, chatID int64, trend models.Trend, content models.GeneratedContent, image []byte) error {
	message := pipeline.FormatContentMessage(trend, content)
	keyboard := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{Text: "🚀 Publish", CallbackData: "publish"},
			{Text: "🔄 Start over", CallbackData: "reset"},
		},
	}}

	if len(image) > 0 {
		if err := b.tg.SendPhoto(ctx, chatID, image, message); err != nil {
			slog.Warn("Photo preview failed, sending text only", "error", err)
			return b.tg.SendMessage(ctx, chatID, message, keyboard)
		}
		return b.tg.SendMessage(ctx, chatID, "Ready to go? 👇", keyboard)
	}
	return b.tg.SendMessage(ctx, chatID, message, keyboard)
}

// handlePreview re-presents the generated content without regenerating it.
func (b *Bot) handlePreview(ctx context.Context, chatID int64, _ string) error {
	sess, ok := b.sessions.Get(chatID)
	if !ok || sess.State != session.StateContentReady || sess.Data.Content == nil {
		b.send(ctx, chatID, "ℹ️ No content to preview yet. Use /scan or /topic to create some.")
		return nil
	}
	return b.presentContent(ctx, chatID, *sess.Data.SelectedTrend, *sess.Data.Content, b.ensureImage(ctx, chatID, sess))
}

// ensureImage returns the cached preview image, rendering and caching one
// when it is missing.
func (b *Bot) ensureImage(ctx context.Context, chatID int64, sess session.Session) []byte {
	if len(sess.Data.ImageBytes) > 0 {
		return sess.Data.ImageBytes
	}
	if sess.Data.SelectedTrend == nil || sess.Data.Content == nil {
		return nil
	}
	img := b.pipeline.RenderImage(ctx, *sess.Data.SelectedTrend, *sess.Data.Content)
	b.sessions.CacheImage(chatID, img)
	return img
}

// handlePublish pushes the ready content out. Success resets the session;
// failure preserves it so the user can retry.
func (b *Bot) handlePublish(ctx context.Context, chatID int64, _ string) error {
	sess, ok := b.sessions.Get(chatID)
	if !ok || sess.State != session.StateContentReady || sess.Data.Content == nil {
		b.send(ctx, chatID, "ℹ️ Nothing ready to publish. Use /scan or /topic to create content first.")
		return nil
	}

	b.send(ctx, chatID, "📤 Publishing to LinkedIn...")

	content := *sess.Data.Content
	text := linkedin.FormatPostText(content)
	result := b.publisher.PublishPost(ctx, text, b.ensureImage(ctx, chatID, sess))

	if !result.Success {
		b.recorder.Record(fmt.Errorf("publish failed: %s", result.Message), map[string]string{
			"operation": "publish",
			"chat_id":   strconv.FormatInt(chatID, 10),
		})
		// Session stays content_ready so the user can /publish again.
		b.send(ctx, chatID, "❌ Publishing failed: "+result.Message+"\n\nYour content is still here, try /publish again or /reset.")
		return nil
	}

	b.archivePost(chatID, sess, result)
	b.sessions.Reset(chatID)
	return b.tg.SendMessage(ctx, chatID, fmt.Sprintf("✅ *Published to LinkedIn!*\n\nPost ID: `%s`\n\nUse /scan to find the next trend. 🎉", result.PostID), nil)
}

// archivePost records the published post; archive failures are logged, not
// surfaced to the user.
func (b *Bot) archivePost(chatID int64, sess session.Session, result models.PublishResult) {
	if b.archive == nil {
		return
	}
	rec := models.PostRecord{
		ChatID:         chatID,
		PostID:         result.PostID,
		Time:           time.Now(),
		SourceProvider: sess.Data.Content.SourceProvider,
	}
	if sess.Data.SelectedTrend != nil {
		rec.Title = sess.Data.SelectedTrend.Title
	}
	if err := b.archive.RecordPost(rec); err != nil {
		slog.Error("Failed to archive published post", "error", err)
	}
}

func (b *Bot) handleReset(ctx context.Context, chatID int64, _ string) error {
	b.sessions.Reset(chatID)
	return b.tg.SendMessage(ctx, chatID, "🔄 Session reset. Use /scan to discover trends or /topic for a custom one.", nil)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, _ string) error {
	status := b.monitor.Status()
	emoji := "✅"
	if status.Status == health.StatusDegraded {
		emoji = "⚠️"
	}
	msg := fmt.Sprintf(`%s *Bot Status: %s*

⏱ Uptime: %s
📊 Requests: %d
❗ Errors: %d (%.1f%%)
👥 Active sessions: %d`,
		emoji, status.Status, status.Uptime, status.TotalRequests, status.TotalErrors, status.ErrorRatePercent, b.sessions.Len())
	if status.LastError != nil {
		msg += fmt.Sprintf("\n🕐 Last error: %s", status.LastError.Message)
	}
	return b.tg.SendMessage(ctx, chatID, msg, nil)
}

func (b *Bot) handleErrors(ctx context.Context, chatID int64, _ string) error {
	recent := b.recorder.Recent(recentErrorsShown)
	if len(recent) == 0 {
		return b.tg.SendMessage(ctx, chatID, "✅ No errors recorded. All systems running smoothly!", nil)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚨 *Last %d errors:*\n\n", len(recent)))
	for i := len(recent) - 1; i >= 0; i-- {
		rec := recent[i]
		sb.WriteString(fmt.Sprintf("• `%s` %s\n  _%s_\n", rec.Time.Format("15:04:05"), rec.ErrorType, rec.Message))
	}
	return b.tg.SendMessage(ctx, chatID, sb.String(), nil)
}

// sendRateLimited tells the user how long to wait.
func (b *Bot) sendRateLimited(ctx context.Context, chatID int64) error {
	wait := b.limiter.WaitSeconds(chatID)
	return b.tg.SendMessage(ctx, chatID, fmt.Sprintf("⏳ Slow down! You've hit the rate limit. Try again in %d seconds.", wait), nil)
}

// recordFailures records each provider failure from a chain walk.
func (b *Bot) recordFailures(operation string, chatID int64, failures []fallback.Failure) {
	for _, f := range failures {
		b.recorder.Record(f.Err, map[string]string{
			"operation": operation,
			"provider":  f.Provider,
			"chat_id":   strconv.FormatInt(chatID, 10),
		})
	}
}

// send delivers a plain message, logging delivery failures instead of
// propagating them.
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.tg.SendMessage(ctx, chatID, text, nil); err != nil {
		slog.Warn("Failed to send message", "chat_id", chatID, "error", err)
	}
}
