package report

import "github.com/doesntneedname/activity-bot/collector"

// Cards with a dedicated place in the primary message.
const (
	SummaryCard    collector.MetricID = 611 // DAU/WAU/MAU and user lifecycle per segment
	PercentageCard collector.MetricID = 610 // current share per segment
)

// Field names as Metabase labels the columns.
const (
	segmentField    = "segment"
	totalSegment    = "Total"
	percentageField = "curr_percentage"
	countField      = "Count"
	runningField    = "Sum of Messages Count"
)

// DefaultCards is the collection order used in production.
var DefaultCards = []collector.MetricID{601, 602, 613, 612, 614, 604, 610, 611, 603, 605}

// Line binds a card to the label it is rendered under and the field its
// value is read from.
type Line struct {
	Card  collector.MetricID
	Label string
	Field string
}

// CountLines are read from the first row of each card, as is.
var CountLines = []Line{
	{Card: 602, Label: "Компании", Field: countField},
	{Card: 604, Label: "Беседы/каналы", Field: countField},
	{Card: 603, Label: "Лички", Field: countField},
	{Card: 605, Label: "Треды", Field: countField},
}

// RunningTotalLines hold ever-growing totals; they are reported as the
// difference to the value cached at the previous publish.
var RunningTotalLines = []Line{
	{Card: 613, Label: "Беседы/каналы", Field: runningField},
	{Card: 612, Label: "Лички", Field: runningField},
	{Card: 614, Label: "Треды", Field: runningField},
}
