package repository

import (
	"math"
	"strconv"
	"strings"

	"teamload/internal/model"
	"teamload/internal/week"
)

// Boolean cells hold exactly this string when true; anything else is false.
const (
	cellTrue  = "TRUE"
	cellFalse = "FALSE"
)

// fallbackWeek is the week of rows written before workWeek existed.
const fallbackWeek week.Key = "2024-01-01"

// Task columns: A..M.
const (
	taskColID = iota
	taskColMemberID
	taskColContent
	taskColWeight
	taskColIsDone
	taskColCreatedAt
	taskColCategory
	taskColWorkWeek
	taskColNotes
	taskColPriority
	taskColRepeatWeekly
	taskColAssignedTo
	taskColOrder
	taskColumns
)

var TaskHeader = []string{
	"id", "memberId", "content", "weight", "isDone", "createdAt", "category",
	"workWeek", "notes", "priority", "repeatWeekly", "assignedTo", "order",
}

// Member columns: A..F. The email is the row identity.
const (
	memberColEmail = iota
	memberColName
	memberColAvatarURL
	memberColCreatedAt
	memberColMaxPoints
	memberColTelegramID
	memberColumns
)

var MemberHeader = []string{"email", "name", "avatarUrl", "createdAt", "maxPoints", "telegramId"}

const (
	categoryColID = iota
	categoryColName
	categoryColDefaultPoints
)

var CategoryHeader = []string{"id", "name", "defaultPoints"}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseInt(s string, fallback int) int {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fallback
		}
		return int(f)
	}
	return n
}

func parseBool(s string) bool { return s == cellTrue }

func formatBool(b bool) string {
	if b {
		return cellTrue
	}
	return cellFalse
}

// DecodeTask converts a Tasks row. Missing or invalid cells fall back to:
// weight 0, createdAt 0, category "other", workWeek 2024-01-01, priority none,
// order 0, booleans false, assignedTo unset.
func DecodeTask(row []string) model.Task {
	category := cell(row, taskColCategory)
	if category == "" {
		category = model.DefaultCategory
	}
	workWeek := week.Key(cell(row, taskColWorkWeek))
	if workWeek == "" {
		workWeek = fallbackWeek
	}
	createdAt, err := strconv.ParseInt(strings.TrimSpace(cell(row, taskColCreatedAt)), 10, 64)
	if err != nil {
		createdAt = 0
	}
	return model.Task{
		ID:           cell(row, taskColID),
		MemberID:     cell(row, taskColMemberID),
		Content:      cell(row, taskColContent),
		Weight:       parseInt(cell(row, taskColWeight), 0),
		IsDone:       parseBool(cell(row, taskColIsDone)),
		CreatedAt:    createdAt,
		Category:     category,
		WorkWeek:     workWeek,
		Notes:        cell(row, taskColNotes),
		Priority:     model.ParsePriority(cell(row, taskColPriority)),
		RepeatWeekly: parseBool(cell(row, taskColRepeatWeekly)),
		AssignedTo:   cell(row, taskColAssignedTo),
		Order:        parseInt(cell(row, taskColOrder), 0),
	}
}

func EncodeTask(t model.Task) []string {
	row := make([]string, taskColumns)
	row[taskColID] = t.ID
	row[taskColMemberID] = t.MemberID
	row[taskColContent] = t.Content
	row[taskColWeight] = strconv.Itoa(t.Weight)
	row[taskColIsDone] = formatBool(t.IsDone)
	row[taskColCreatedAt] = strconv.FormatInt(t.CreatedAt, 10)
	row[taskColCategory] = t.Category
	row[taskColWorkWeek] = string(t.WorkWeek)
	row[taskColNotes] = t.Notes
	row[taskColPriority] = string(t.Priority)
	row[taskColRepeatWeekly] = formatBool(t.RepeatWeekly)
	row[taskColAssignedTo] = t.AssignedTo
	row[taskColOrder] = strconv.Itoa(t.Order)
	return row
}

// DecodeMember converts a Members row. maxPoints falls back to the default
// capacity when missing, invalid or zero.
func DecodeMember(row []string) model.Member {
	email := cell(row, memberColEmail)
	maxPoints := parseInt(cell(row, memberColMaxPoints), 0)
	if maxPoints <= 0 {
		maxPoints = model.DefaultCapacity
	}
	createdAt, err := strconv.ParseInt(strings.TrimSpace(cell(row, memberColCreatedAt)), 10, 64)
	if err != nil {
		createdAt = 0
	}
	telegramID, err := strconv.ParseInt(strings.TrimSpace(cell(row, memberColTelegramID)), 10, 64)
	if err != nil {
		telegramID = 0
	}
	return model.Member{
		ID:         email,
		Email:      email,
		Name:       cell(row, memberColName),
		AvatarURL:  cell(row, memberColAvatarURL),
		CreatedAt:  createdAt,
		MaxPoints:  maxPoints,
		TelegramID: telegramID,
	}
}

func EncodeMember(m model.Member) []string {
	row := make([]string, memberColumns)
	row[memberColEmail] = m.Email
	row[memberColName] = m.Name
	row[memberColAvatarURL] = m.AvatarURL
	row[memberColCreatedAt] = strconv.FormatInt(m.CreatedAt, 10)
	if m.MaxPoints > 0 {
		row[memberColMaxPoints] = strconv.Itoa(m.MaxPoints)
	}
	if m.TelegramID != 0 {
		row[memberColTelegramID] = strconv.FormatInt(m.TelegramID, 10)
	}
	return row
}

// DecodeCategory converts a Categories row; defaultPoints falls back to 1.
func DecodeCategory(row []string) model.Category {
	points := parseInt(cell(row, categoryColDefaultPoints), 0)
	if points <= 0 {
		points = 1
	}
	return model.Category{
		ID:            cell(row, categoryColID),
		Name:          cell(row, categoryColName),
		DefaultPoints: points,
	}
}

func EncodeCategory(c model.Category) []string {
	return []string{c.ID, c.Name, strconv.Itoa(c.DefaultPoints)}
}
