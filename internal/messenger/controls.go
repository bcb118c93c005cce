package messenger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"taskBot/internal/models/task"
)

const (
	CheckinButtonPrefix = "task_checkin"
	CheckinSelectPrefix = "checkin_select"

	CheckinButtonLabel = "Check-in"
	CheckinPlaceholder = "Choose your check-in status..."
)

func CheckinButtonID(taskID int64) string {
	return CheckinButtonPrefix + ":" + strconv.FormatInt(taskID, 10)
}

func CheckinSelectID(taskID int64) string {
	return CheckinSelectPrefix + ":" + strconv.FormatInt(taskID, 10)
}

// ParseCustomID разбирает "<prefix>:<task id>"
func ParseCustomID(customID string) (prefix string, taskID int64, err error) {
	prefix, raw, ok := strings.Cut(customID, ":")
	if !ok || prefix == "" {
		return "", 0, fmt.Errorf("custom id %q без разделителя", customID)
	}
	taskID, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || taskID <= 0 {
		return "", 0, fmt.Errorf("custom id %q: неверный id задачи", customID)
	}
	return prefix, taskID, nil
}

func CheckinButton(taskID int64) *Button {
	return &Button{CustomID: CheckinButtonID(taskID), Label: CheckinButtonLabel}
}

// меню выбора статуса, порядок вариантов как в task.Choices
func CheckinSelect(taskID int64) *Select {
	options := make([]SelectOption, 0, len(task.Choices))
	for _, c := range task.Choices {
		options = append(options, SelectOption{
			Label:       c.Label(),
			Value:       string(c),
			Description: c.Description(),
		})
	}
	return &Select{
		CustomID:    CheckinSelectID(taskID),
		Placeholder: CheckinPlaceholder,
		Options:     options,
	}
}

var snowflakeRe = regexp.MustCompile(`\d{15,20}`)

// ParseUserIDs достаёт id пользователей из упоминаний и голых чисел, без повторов
func ParseUserIDs(raw string) []int64 {
	seen := make(map[int64]bool)
	ids := []int64{}
	for _, m := range snowflakeRe.FindAllString(raw, -1) {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// ParseChannelID принимает "123" или "<#123>"
func ParseChannelID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "<#") && strings.HasSuffix(s, ">") {
		s = s[2 : len(s)-1]
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("неверный id канала %q", raw)
	}
	return id, nil
}
