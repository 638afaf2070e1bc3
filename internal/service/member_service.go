package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"teamload/internal/model"
	"teamload/internal/repository"
)

// MemberService manages the team roster.
type MemberService struct {
	repo *repository.MemberRepository
	log  *zap.Logger
	now  Clock
}

func NewMemberService(repo *repository.MemberRepository, log *zap.Logger, now Clock) *MemberService {
	if now == nil {
		now = time.Now
	}
	return &MemberService{repo: repo, log: log.Named("member_service"), now: now}
}

// List returns every member. A failed read is logged and yields an empty roster.
func (s *MemberService) List(ctx context.Context) []model.Member {
	members, err := s.repo.List(ctx)
	if err != nil {
		s.log.Warn("list members", zap.Error(err))
		return []model.Member{}
	}
	return members
}

func (s *MemberService) Get(ctx context.Context, email string) (model.Member, error) {
	return s.repo.Get(ctx, normalizeEmail(email))
}

// Register adds a member on first sign-in. Known emails only get their avatar
// refreshed; the stored record is returned with created false.
func (s *MemberService) Register(ctx context.Context, email, name, avatarURL string) (model.Member, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.Member{}, false, invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.Member{}, false, invalid("email", "is not a valid address")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Member{}, false, invalid("name", "is required")
	}
	member := model.Member{
		ID:        email,
		Email:     email,
		Name:      name,
		AvatarURL: avatarURL,
		CreatedAt: s.now().UnixMilli(),
	}
	created, err := s.repo.Register(ctx, member)
	if err != nil {
		return model.Member{}, false, err
	}
	if created {
		s.log.Info("registered member", zap.String("email", email))
		member.MaxPoints = model.DefaultCapacity
		return member, true, nil
	}
	stored, err := s.repo.Get(ctx, email)
	if err != nil {
		return member, false, nil
	}
	return stored, false, nil
}

// Update edits a member profile. Unknown emails are ignored.
func (s *MemberService) Update(ctx context.Context, email string, patch model.MemberPatch) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("email", "is required")
	}
	if patch.Empty() {
		return invalid("fields", "nothing to update")
	}
	if patch.MaxPoints != nil && *patch.MaxPoints < 0 {
		return invalid("maxPoints", "must not be negative")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return invalid("name", "must not be empty")
	}
	return s.repo.UpdateFields(ctx, email, patch)
}

// LinkTelegram connects a Telegram user to a registered member. Unknown emails
// yield repository.ErrNotFound.
func (s *MemberService) LinkTelegram(ctx context.Context, email string, userID int64) (model.Member, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.Member{}, invalid("email", "is required")
	}
	if userID == 0 {
		return model.Member{}, invalid("telegramId", "is required")
	}
	found, err := s.repo.LinkTelegram(ctx, email, userID)
	if err != nil {
		return model.Member{}, err
	}
	if !found {
		return model.Member{}, repository.ErrNotFound
	}
	s.log.Info("linked telegram user", zap.String("email", email), zap.Int64("telegram_id", userID))
	return s.repo.Get(ctx, email)
}

// ByTelegramID returns the member a Telegram user linked to.
func (s *MemberService) ByTelegramID(ctx context.Context, userID int64) (model.Member, error) {
	return s.repo.FindByTelegramID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
