package reminder

import (
	"testing"
	"time"

	"uniportal_bot/internal/domain/schedule"

	"github.com/stretchr/testify/assert"
)

func TestMarkerKeys(t *testing.T) {
	s := schedule.ClassSession{Code: " csc301 ", Subject: "Data Structures", Time: "9:00 AM"}
	assert.Equal(t, MarkerKey("class:CSC301@540:Monday:60"), ClassKey(s, 540, time.Monday, 60))

	renamed := s
	renamed.Subject = "Algorithms"
	assert.Equal(t, ClassKey(s, 540, time.Monday, 60), ClassKey(renamed, 540, time.Monday, 60),
		"editing the subject must not change the marker")

	d := schedule.CalendarDate{Year: 2025, Month: time.March, Day: 3}
	assert.Equal(t, MarkerKey("summary:2025-03-03"), SummaryKey(d))
	assert.Equal(t, MarkerKey("exam:abc:5"), ExamKey("abc", 5))
	assert.Equal(t, MarkerKey("maintenance:prune:2025-03-03"), PruneKey(d))
}

func TestIsExamCheckpoint(t *testing.T) {
	for _, d := range []int{40, 20, 10, 5, 2, 1, 0} {
		assert.True(t, IsExamCheckpoint(d), d)
	}
	for _, d := range []int{-1, 3, 4, 6, 39, 41} {
		assert.False(t, IsExamCheckpoint(d), d)
	}
}
