package repository

import (
	"context"

	"go.uber.org/zap"

	"teamload/internal/model"
)

// MemberRepository maps members onto the Members table, keyed by email.
type MemberRepository struct {
	table Table
	log   *zap.Logger
}

func NewMemberRepository(table Table, log *zap.Logger) *MemberRepository {
	return &MemberRepository{table: table, log: log.Named("members")}
}

func (r *MemberRepository) Init(ctx context.Context) error {
	return r.table.EnsureHeader(ctx, MemberHeader)
}

func (r *MemberRepository) List(ctx context.Context) ([]model.Member, error) {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return nil, &StoreReadError{Table: r.table.Name(), Err: err}
	}
	members := make([]model.Member, 0, len(rows))
	for _, row := range rows {
		if cell(row, memberColEmail) == "" {
			continue
		}
		members = append(members, DecodeMember(row))
	}
	return members, nil
}

func (r *MemberRepository) Get(ctx context.Context, email string) (model.Member, error) {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return model.Member{}, &StoreReadError{Table: r.table.Name(), Err: err}
	}
	idx := findRow(rows, email)
	if idx < 0 {
		return model.Member{}, ErrNotFound
	}
	return DecodeMember(rows[idx]), nil
}

// Register appends a new member. For an email that is already registered only
// the avatar is refreshed; name and capacity are left to UpdateFields.
func (r *MemberRepository) Register(ctx context.Context, member model.Member) (created bool, err error) {
	avatar := member.AvatarURL
	found, err := rewriteByID(ctx, r.table, member.Email, func(row []string) []string {
		existing := keepCapacity(row)
		existing.AvatarURL = avatar
		return EncodeMember(existing)
	})
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	if err := r.table.Append(ctx, EncodeMember(member)); err != nil {
		return false, &StoreWriteError{Table: r.table.Name(), Op: "append", Err: err}
	}
	return true, nil
}

// UpdateFields overlays patch onto the stored member. A missing email is a no-op.
func (r *MemberRepository) UpdateFields(ctx context.Context, email string, patch model.MemberPatch) error {
	found, err := rewriteByID(ctx, r.table, email, func(row []string) []string {
		return EncodeMember(patch.Apply(keepCapacity(row)))
	})
	if err != nil {
		return err
	}
	if !found {
		r.log.Debug("update of unknown member ignored", zap.String("email", email))
	}
	return nil
}

// keepCapacity decodes row, leaving an unset capacity unset so the default is
// not written back.
func keepCapacity(row []string) model.Member {
	m := DecodeMember(row)
	if cell(row, memberColMaxPoints) == "" {
		m.MaxPoints = 0
	}
	return m
}

// LinkTelegram stores userID on the member with the given email and clears it
// from any member it was linked to before. found is false for an unknown email.
func (r *MemberRepository) LinkTelegram(ctx context.Context, email string, userID int64) (found bool, err error) {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return false, &StoreReadError{Table: r.table.Name(), Err: err}
	}
	if findRow(rows, email) < 0 {
		return false, nil
	}
	for _, row := range rows {
		m := DecodeMember(row)
		if m.TelegramID != userID || m.Email == email {
			continue
		}
		if _, err := rewriteByID(ctx, r.table, m.Email, func(row []string) []string {
			prev := keepCapacity(row)
			prev.TelegramID = 0
			return EncodeMember(prev)
		}); err != nil {
			return false, err
		}
	}
	return rewriteByID(ctx, r.table, email, func(row []string) []string {
		m := keepCapacity(row)
		m.TelegramID = userID
		return EncodeMember(m)
	})
}

// FindByTelegramID returns the member linked to a Telegram user.
func (r *MemberRepository) FindByTelegramID(ctx context.Context, userID int64) (model.Member, error) {
	members, err := r.List(ctx)
	if err != nil {
		return model.Member{}, err
	}
	for _, m := range members {
		if m.TelegramID == userID {
			return m, nil
		}
	}
	return model.Member{}, ErrNotFound
}
