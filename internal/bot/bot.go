package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"teamload/internal/model"
	"teamload/internal/repository"
	"teamload/internal/service"
)

const cbDonePrefix = "done:"

const (
	menuLabelWeek   = "📋 My week"
	menuLabelTeam   = "👥 Team"
	menuLabelReport = "📊 Report"
	menuLabelHelp   = "ℹ️ Help"
)

// sender is the part of the Telegram API the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Services are the domain services behind the bot commands.
type Services struct {
	Tasks      *service.TaskService
	Members    *service.MemberService
	Categories *service.CategoryService
	Digest     *service.DigestService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api    *tgbotapi.BotAPI
	send   sender
	svc    Services
	chatID int64
	log    *zap.Logger

	mu       sync.Mutex
	links    map[int64]string
	boards   map[int64]*service.Board
	listings map[int64][]string
}

// New connects to Telegram. chatID receives the scheduled digest; zero
// disables it.
func New(token string, chatID int64, svc Services, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, svc, chatID, log)
	b.api = api
	b.log.Info("bot authorized", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(s sender, svc Services, chatID int64, log *zap.Logger) *Bot {
	return &Bot{
		send:     s,
		svc:      svc,
		chatID:   chatID,
		log:      log.Named("bot"),
		links:    make(map[int64]string),
		boards:   make(map[int64]*service.Board),
		listings: make(map[int64][]string),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Warn("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Warn("handle message", zap.Error(err))
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	if msg.IsCommand() {
		b.log.Info("command", zap.Int64("user", msg.From.ID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}
	// Group chats only get the digest and explicit commands.
	if !msg.Chat.IsPrivate() {
		return nil
	}
	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}
	return b.sendText(msg.Chat.ID, "I did not get that. Try /week or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "link":
		return b.handleLink(ctx, msg)
	case "week":
		return b.handleWeek(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "team":
		return b.handleTeam(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelWeek:
		return true, b.handleWeek(ctx, msg)
	case menuLabelTeam:
		return true, b.handleTeam(ctx, msg)
	case menuLabelReport:
		return true, b.handleReport(ctx, msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep an eye on the team's weekly load.</b>\n\n%s", escape(name), helpText)
	return b.sendWithReplyMarkup(msg.Chat.ID, text, mainMenuKeyboard())
}

const helpText = "Commands:\n" +
	"• /link &lt;email&gt; — connect your team account\n" +
	"• /week — your pending tasks this week\n" +
	"• /done &lt;n&gt; — toggle task n of the last /week list\n" +
	"• /team — capacity of every member\n" +
	"• /report — weekly digest now\n" +
	"• /help — this list"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+helpText)
}

func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) error {
	email := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	if email == "" {
		return b.sendText(msg.Chat.ID, "Usage: /link you@example.com")
	}
	member, err := b.svc.Members.LinkTelegram(ctx, email, msg.From.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return b.sendText(msg.Chat.ID, "No member with that email. Sign in to the web app first.")
	}
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not link the account: %s", escape(err.Error())))
	}
	b.setLink(msg.From.ID, member.Email)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Linked to <b>%s</b>.", escape(member.Name)))
}

func (b *Bot) handleWeek(ctx context.Context, msg *tgbotapi.Message) error {
	email, ok := b.getLink(ctx, msg.From.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, "Link your account first: /link you@example.com")
	}
	board := b.boardFor(msg.From.ID, email)
	tasks, err := board.Refresh(ctx)
	if errors.Is(err, service.ErrStaleView) {
		return nil
	}
	if err != nil {
		b.log.Warn("week load incomplete", zap.String("email", email), zap.Error(err))
	}

	pending := service.ActiveOrder(tasks)
	ids := make([]string, len(pending))
	for i, t := range pending {
		ids[i] = t.ID
	}
	b.setListing(msg.From.ID, ids)

	categories := b.svc.Categories.List(ctx)
	text := formatWeek(board.View(), pending, service.PointsTotal(tasks), categories)

	msgOut := tgbotapi.NewMessage(msg.Chat.ID, text)
	msgOut.ParseMode = tgbotapi.ModeHTML
	if len(pending) > 0 {
		msgOut.ReplyMarkup = doneKeyboard(pending)
	}
	_, err = b.send.Send(msgOut)
	return err
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	listing := b.getListing(msg.From.ID)
	n, err := parseIndex(msg.CommandArguments(), len(listing))
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	return b.toggle(ctx, msg.Chat.ID, msg.From.ID, listing[n-1])
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.send.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}
	if !strings.HasPrefix(cb.Data, cbDonePrefix) {
		return nil
	}
	return b.toggle(ctx, cb.Message.Chat.ID, cb.From.ID, strings.TrimPrefix(cb.Data, cbDonePrefix))
}

// toggle flips a task on the user's board and reports the outcome.
func (b *Bot) toggle(ctx context.Context, chatID, userID int64, taskID string) error {
	b.mu.Lock()
	board := b.boards[userID]
	b.mu.Unlock()
	if board == nil {
		return b.sendText(chatID, "Open /week first.")
	}
	op, err := board.Toggle(taskID)
	if errors.Is(err, service.ErrNotOnBoard) {
		return b.sendText(chatID, "That task is no longer on your list. Open /week again.")
	}
	if err != nil {
		return err
	}
	task, err := op.Confirm(ctx)
	if err != nil {
		b.log.Warn("toggle failed", zap.String("id", taskID), zap.Error(err))
		return b.sendText(chatID, "⚠️ Could not save the change, please try again.")
	}
	state := "reopened"
	if task.IsDone {
		state = "done"
	}
	return b.sendText(chatID, fmt.Sprintf("✅ %s: %s", escape(shortTitle(task.Content, 40)), state))
}

func (b *Bot) handleTeam(ctx context.Context, msg *tgbotapi.Message) error {
	members := b.svc.Members.List(ctx)
	tasks := b.svc.Tasks.List(ctx, "")
	forecast := service.CapacityForecast(members, tasks, b.svc.Tasks.CurrentWeek())

	var sb strings.Builder
	sb.WriteString("👥 <b>Team capacity</b>\n")
	if len(forecast) == 0 {
		sb.WriteString("— no members yet\n")
	}
	for _, mc := range forecast {
		sb.WriteString(service.FormatCapacity(mc))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.svc.Digest.WeeklyDigest(ctx)
	if err != nil {
		b.log.Warn("digest incomplete", zap.Error(err))
	}
	return b.sendText(msg.Chat.ID, text)
}

// SendWeeklyDigest posts the digest to the configured chat.
func (b *Bot) SendWeeklyDigest(ctx context.Context) error {
	if b.chatID == 0 {
		return nil
	}
	text, err := b.svc.Digest.WeeklyDigest(ctx)
	if err != nil {
		b.log.Warn("digest incomplete", zap.Error(err))
	}
	return b.sendText(b.chatID, text)
}

// boardFor returns the user's board, moved to the current week.
func (b *Bot) boardFor(userID int64, email string) *service.Board {
	view := service.View{Week: b.svc.Tasks.CurrentWeek(), Owner: email}
	b.mu.Lock()
	defer b.mu.Unlock()
	board, ok := b.boards[userID]
	if !ok {
		board = service.NewBoard(b.svc.Tasks, view)
		b.boards[userID] = board
		return board
	}
	if board.View() != view {
		board.SetView(view)
	}
	return board
}

func (b *Bot) setLink(userID int64, email string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.links[userID] = email
	delete(b.boards, userID)
	delete(b.listings, userID)
}

// getLink resolves the member email of a Telegram user, reading the Members
// table on a cache miss.
func (b *Bot) getLink(ctx context.Context, userID int64) (string, bool) {
	b.mu.Lock()
	email, ok := b.links[userID]
	b.mu.Unlock()
	if ok {
		return email, true
	}
	member, err := b.svc.Members.ByTelegramID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			b.log.Warn("look up linked member", zap.Int64("user", userID), zap.Error(err))
		}
		return "", false
	}
	b.mu.Lock()
	b.links[userID] = member.Email
	b.mu.Unlock()
	return member.Email, true
}

func (b *Bot) setListing(userID int64, ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listings[userID] = ids
}

func (b *Bot) getListing(userID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listings[userID]
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.send.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.send.Send(msg)
	return err
}

func formatWeek(view service.View, pending []model.Task, total int, categories []model.Category) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 <b>Week of %s</b> · %d pts\n", escape(view.Week.String()), total)
	if len(pending) == 0 {
		sb.WriteString("— nothing pending 🎉")
		return sb.String()
	}
	for i, t := range pending {
		sb.WriteString(service.FormatTaskLine(i+1, t, categories))
	}
	return strings.TrimSpace(sb.String())
}

// parseIndex reads a 1-based position into a list of n entries.
func parseIndex(arg string, n int) (int, error) {
	if n == 0 {
		return 0, errors.New("no task list yet, open /week first")
	}
	i, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("pick a number between 1 and %d", n)
	}
	return i, nil
}

func doneKeyboard(tasks []model.Task) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for i, t := range tasks {
		label := fmt.Sprintf("✅ %d · %s", i+1, shortTitle(t.Content, 24))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbDonePrefix+t.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelWeek),
			tgbotapi.NewKeyboardButton(menuLabelTeam),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelReport),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func shortTitle(title string, maxLen int) string {
	title = strings.TrimSpace(title)
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
