package task

import "fmt"

type Choice string

const ChoiceDone Choice = "done"
const ChoiceAlmost Choice = "almost"
const ChoiceNotClose Choice = "not_close"
const ChoiceSkipped Choice = "skipped"

// порядок вариантов в меню чекина
var Choices = []Choice{ChoiceDone, ChoiceAlmost, ChoiceNotClose, ChoiceSkipped}

var choiceLabels = map[Choice]string{
	ChoiceDone:     "Done!",
	ChoiceAlmost:   "Almost done!",
	ChoiceNotClose: "Not close to finishing.",
	ChoiceSkipped:  "Skipped",
}

var choiceDescriptions = map[Choice]string{
	ChoiceDone:     "Everything assigned is finished",
	ChoiceAlmost:   "Worked today, and task is almost done.",
	ChoiceNotClose: "Worked today, but not near completing the task.",
	ChoiceSkipped:  "Didn't do anything today.",
}

var choiceReports = map[Choice]string{
	ChoiceDone:     "did all my work for this task, fully completed!",
	ChoiceAlmost:   "did some work today, and should be done soon!",
	ChoiceNotClose: "did some work today, but probably won't be done soon.",
	ChoiceSkipped:  "didn't do any work today.",
}

func ParseChoice(raw string) (Choice, error) {
	c := Choice(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown check-in choice %q", raw)
	}
	return c, nil
}

func (c Choice) Valid() bool {
	_, ok := choiceLabels[c]
	return ok
}

func (c Choice) Label() string {
	return choiceLabels[c]
}

func (c Choice) Description() string {
	return choiceDescriptions[c]
}

// текст отчёта для канала чекинов
func (c Choice) Report() string {
	if r, ok := choiceReports[c]; ok {
		return r
	}
	return string(c)
}
