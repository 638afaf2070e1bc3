package model

// DefaultCapacity is the weekly point budget of a member without maxPoints.
const DefaultCapacity = 15

// Member is a registered team member. The email is the identifier tasks refer to.
type Member struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	MaxPoints int    `json:"maxPoints"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	// TelegramID is the Telegram user linked to this member; zero when unlinked.
	TelegramID int64 `json:"telegramId,omitempty"`
}

// Capacity returns MaxPoints, or DefaultCapacity when unset.
func (m Member) Capacity() int {
	if m.MaxPoints <= 0 {
		return DefaultCapacity
	}
	return m.MaxPoints
}

// MemberPatch carries the profile fields a member may edit.
type MemberPatch struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	MaxPoints *int    `json:"maxPoints,omitempty"`
}

func (p MemberPatch) Empty() bool {
	return p.Name == nil && p.AvatarURL == nil && p.MaxPoints == nil
}

func (p MemberPatch) Apply(m Member) Member {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.AvatarURL != nil {
		m.AvatarURL = *p.AvatarURL
	}
	if p.MaxPoints != nil {
		m.MaxPoints = *p.MaxPoints
	}
	return m
}
