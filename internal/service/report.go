package service

import (
	"sort"
	"time"

	"teamload/internal/model"
	"teamload/internal/week"
)

// TrendWeeks is the length of the default weekly trend series.
const TrendWeeks = 5

// Usage thresholds for capacity status, in percent.
const (
	warnUsage = 80
	overUsage = 100
)

type CapacityStatus string

const (
	StatusOK   CapacityStatus = "ok"
	StatusWarn CapacityStatus = "warn"
	StatusOver CapacityStatus = "over"
)

// TrendPoint is one week of the trend series.
type TrendPoint struct {
	Week      week.Key `json:"week"`
	Label     string   `json:"label"`
	Total     int      `json:"total"`
	Completed int      `json:"completed"`
}

type CategoryStat struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
	Points     int    `json:"points"`
}

// MemberCapacity is a member's load this week and next against their budget.
type MemberCapacity struct {
	MemberID    string         `json:"memberId"`
	Name        string         `json:"name"`
	CurrentLoad int            `json:"currentLoad"`
	NextLoad    int            `json:"nextLoad"`
	Capacity    int            `json:"capacity"`
	UsageRate   float64        `json:"usageRate"`
	OverLimit   bool           `json:"overLimit"`
	Status      CapacityStatus `json:"status"`
}

type WeekSummary struct {
	Week               week.Key `json:"week"`
	Label              string   `json:"label"`
	Total              int      `json:"total"`
	Pending            int      `json:"pending"`
	Completed          int      `json:"completed"`
	PendingCount       int      `json:"pendingCount"`
	CompletedCount     int      `json:"completedCount"`
	CompletionRate     int      `json:"completionRate"`
	PrevTotal          int      `json:"prevTotal"`
	PrevCompletionRate int      `json:"prevCompletionRate"`
	Delta              int      `json:"delta"`
}

type MemberStat struct {
	MemberID    string `json:"memberId"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Points      int    `json:"points"`
	Count       int    `json:"count"`
	TopCategory string `json:"topCategory"`
}

// MonthlyReport covers the completed tasks created in one calendar month.
type MonthlyReport struct {
	Month          string         `json:"month"`
	TotalPoints    int            `json:"totalPoints"`
	CompletedCount int            `json:"completedCount"`
	Members        []MemberStat   `json:"members"`
	Categories     []CategoryStat `json:"categories"`
}

// StatusFilter selects tasks by completion.
type StatusFilter string

const (
	StatusAll     StatusFilter = "all"
	StatusDone    StatusFilter = "done"
	StatusPending StatusFilter = "pending"
)

func PointsTotal(tasks []model.Task) int {
	total := 0
	for _, t := range tasks {
		total += t.Weight
	}
	return total
}

func CompletedPoints(tasks []model.Task) int {
	total := 0
	for _, t := range tasks {
		if t.IsDone {
			total += t.Weight
		}
	}
	return total
}

// MemberLoad sums the weight of tasks whose assignee (or owner) is memberID.
func MemberLoad(tasks []model.Task, memberID string) int {
	total := 0
	for _, t := range tasks {
		if t.Assignee() == memberID {
			total += t.Weight
		}
	}
	return total
}

func capacityOrDefault(capacity int) int {
	if capacity <= 0 {
		return model.DefaultCapacity
	}
	return capacity
}

// UsageRate is load as a percentage of capacity.
func UsageRate(load, capacity int) float64 {
	return float64(load) / float64(capacityOrDefault(capacity)) * 100
}

func OverLimit(load, capacity int) bool {
	return load > capacityOrDefault(capacity)
}

func StatusOf(load, capacity int) CapacityStatus {
	switch rate := UsageRate(load, capacity); {
	case rate > overUsage:
		return StatusOver
	case rate > warnUsage:
		return StatusWarn
	default:
		return StatusOK
	}
}

// TopCategory returns the category with the largest summed weight. On a tie
// the category seen first wins.
func TopCategory(tasks []model.Task) (string, bool) {
	points := make(map[string]int)
	var seen []string
	for _, t := range tasks {
		if _, ok := points[t.Category]; !ok {
			seen = append(seen, t.Category)
		}
		points[t.Category] += t.Weight
	}
	best, bestPoints := "", -1
	for _, c := range seen {
		if points[c] > bestPoints {
			best, bestPoints = c, points[c]
		}
	}
	return best, len(seen) > 0
}

func WeeklyTrend(weeks []week.Key, all []model.Task) []TrendPoint {
	points := make([]TrendPoint, 0, len(weeks))
	for _, wk := range weeks {
		tasks := InWeek(all, wk)
		points = append(points, TrendPoint{
			Week:      wk,
			Label:     week.Short(wk),
			Total:     PointsTotal(tasks),
			Completed: CompletedPoints(tasks),
		})
	}
	return points
}

// CategoryBreakdown counts tasks and points per known category, followed by
// categories the tasks reference but the list lacks. Sorted by points.
func CategoryBreakdown(tasks []model.Task, categories []model.Category) []CategoryStat {
	index := make(map[string]int, len(categories))
	stats := make([]CategoryStat, 0, len(categories))
	for _, c := range categories {
		index[c.ID] = len(stats)
		stats = append(stats, CategoryStat{CategoryID: c.ID, Name: c.Name})
	}
	for _, t := range tasks {
		i, ok := index[t.Category]
		if !ok {
			i = len(stats)
			index[t.Category] = i
			stats = append(stats, CategoryStat{CategoryID: t.Category, Name: t.Category})
		}
		stats[i].Count++
		stats[i].Points += t.Weight
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Points > stats[j].Points })
	return stats
}

// CapacityForecast reports each member's load in wk and the week after.
func CapacityForecast(members []model.Member, tasks []model.Task, wk week.Key) []MemberCapacity {
	current := InWeek(tasks, wk)
	next := InWeek(tasks, week.Next(wk))
	out := make([]MemberCapacity, 0, len(members))
	for _, m := range members {
		load := MemberLoad(current, m.ID)
		capacity := m.Capacity()
		out = append(out, MemberCapacity{
			MemberID:    m.ID,
			Name:        m.Name,
			CurrentLoad: load,
			NextLoad:    MemberLoad(next, m.ID),
			Capacity:    capacity,
			UsageRate:   UsageRate(load, capacity),
			OverLimit:   OverLimit(load, capacity),
			Status:      StatusOf(load, capacity),
		})
	}
	return out
}

func completionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(completed)/float64(total)*100 + 0.5)
}

// Summarize compares a week's tasks against the previous week's.
func Summarize(wk week.Key, current, previous []model.Task) WeekSummary {
	s := WeekSummary{Week: wk, Label: week.Label(wk)}
	for _, t := range current {
		s.Total += t.Weight
		if t.IsDone {
			s.Completed += t.Weight
			s.CompletedCount++
		} else {
			s.Pending += t.Weight
			s.PendingCount++
		}
	}
	s.CompletionRate = completionRate(s.Completed, s.Total)
	s.PrevTotal = PointsTotal(previous)
	s.PrevCompletionRate = completionRate(CompletedPoints(previous), s.PrevTotal)
	s.Delta = s.Total - s.PrevTotal
	return s
}

// Monthly builds the report for the month containing month, in its location.
// Only completed tasks count.
func Monthly(month time.Time, tasks []model.Task, members []model.Member, categories []model.Category) MonthlyReport {
	y, m, _ := month.Date()
	loc := month.Location()

	var completed []model.Task
	for _, t := range tasks {
		if !t.IsDone {
			continue
		}
		ty, tm, _ := time.UnixMilli(t.CreatedAt).In(loc).Date()
		if ty == y && tm == m {
			completed = append(completed, t)
		}
	}

	report := MonthlyReport{
		Month:          time.Date(y, m, 1, 0, 0, 0, 0, loc).Format("2006-01"),
		TotalPoints:    PointsTotal(completed),
		CompletedCount: len(completed),
		Members:        make([]MemberStat, 0, len(members)),
		Categories:     CategoryBreakdown(completed, categories),
	}
	for _, mem := range members {
		var mine []model.Task
		for _, t := range completed {
			if t.Assignee() == mem.ID {
				mine = append(mine, t)
			}
		}
		top := "-"
		if id, ok := TopCategory(mine); ok {
			top = CategoryName(categories, id)
		}
		report.Members = append(report.Members, MemberStat{
			MemberID:    mem.ID,
			Name:        mem.Name,
			AvatarURL:   mem.AvatarURL,
			Points:      PointsTotal(mine),
			Count:       len(mine),
			TopCategory: top,
		})
	}
	sort.SliceStable(report.Members, func(i, j int) bool { return report.Members[i].Points > report.Members[j].Points })
	return report
}

// FilterTasks keeps tasks matching the category ("" or "all" for any) and status.
func FilterTasks(tasks []model.Task, category string, status StatusFilter) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if category != "" && category != "all" && t.Category != category {
			continue
		}
		switch status {
		case StatusDone:
			if !t.IsDone {
				continue
			}
		case StatusPending:
			if t.IsDone {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// GroupByMember buckets tasks by owner.
func GroupByMember(tasks []model.Task) map[string][]model.Task {
	groups := make(map[string][]model.Task)
	for _, t := range tasks {
		groups[t.MemberID] = append(groups[t.MemberID], t)
	}
	return groups
}

// MemberName resolves a display name, falling back to the raw id.
func MemberName(members []model.Member, id string) string {
	for _, m := range members {
		if m.ID == id && m.Name != "" {
			return m.Name
		}
	}
	return id
}

// CategoryName resolves a display name, falling back to the raw id.
func CategoryName(categories []model.Category, id string) string {
	for _, c := range categories {
		if c.ID == id && c.Name != "" {
			return c.Name
		}
	}
	return id
}
