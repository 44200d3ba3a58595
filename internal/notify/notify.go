// Package notify holds the sinks that receive new-weather notifications.
package notify

import (
	"context"
	"errors"

	"github.com/i474232898/forecast-sync/internal/logger"
	"github.com/i474232898/forecast-sync/internal/weather"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Discard()
	}
	return &LogNotifier{log: log.WithField("component", "notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, msg weather.Notification) error {
	n.log.WithFields(map[string]interface{}{
		"notification_id": msg.ID.String(),
		"date":            weather.DateTime(msg.Date).Format("2006-01-02"),
		"condition":       string(msg.Condition),
	}).Infof("%s: %s", msg.Title, msg.Text)
	return nil
}

// MultiNotifier fans a notification out to every sink. All sinks are tried;
// the joined error reports those that failed.
type MultiNotifier []weather.Notifier

func (m MultiNotifier) Notify(ctx context.Context, msg weather.Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
