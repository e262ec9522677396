package flow

import (
	"time"

	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/domain"
)

// ActivityLog is the diagnostic event list shown next to the video.
type ActivityLog struct {
	view  domain.LogView
	log   logrus.FieldLogger
	now   func() time.Time
	count int
}

// NewActivityLog creates an activity log rendering into view.
func NewActivityLog(view domain.LogView, log logrus.FieldLogger, now func() time.Time) *ActivityLog {
	if now == nil {
		now = time.Now
	}
	return &ActivityLog{view: view, log: log, now: now}
}

// Add appends an entry.
func (a *ActivityLog) Add(level domain.LogLevel, msg string, data map[string]any) {
	a.count++
	a.view.AppendLog(domain.LogEntry{
		Time:    a.now(),
		Level:   level,
		Message: msg,
		Data:    data,
	})

	entry := a.log.WithFields(logrus.Fields(data))
	if level == domain.LogError {
		entry.Warn(msg)
		return
	}
	entry.Info(msg)
}

// Count returns the number of entries added.
func (a *ActivityLog) Count() int {
	return a.count
}
