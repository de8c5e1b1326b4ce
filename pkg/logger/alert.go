package logger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"agri-market/pkg/common"

	"go.uber.org/zap/zapcore"
)

// Alerter delivers a formatted alert message to an operator channel.
type Alerter interface {
	Alert(ctx context.Context, message string) error
}

type AlertCore struct {
	core     zapcore.Core
	alerter  Alerter
	minLevel zapcore.Level
	fields   []zapcore.Field
}

func NewAlertCore(core zapcore.Core, alerter Alerter, minLevel zapcore.Level) *AlertCore {
	return &AlertCore{core: core, alerter: alerter, minLevel: minLevel}
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		core:     a.core.With(fields),
		alerter:  a.alerter,
		minLevel: a.minLevel,
		fields:   append(append([]zapcore.Field{}, a.fields...), fields...),
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, a)
	}
	return checkedEntry
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= a.minLevel && shouldSendAlert(fields) {
		all := append(append([]zapcore.Field{}, a.fields...), fields...)
		go a.send(entry, all) // do not block the caller on the alert channel
	}
	return a.core.Write(entry, fields)
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}

func shouldSendAlert(fields []zapcore.Field) bool {
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT && f.Type == zapcore.BoolType && f.Integer == 1 {
			return true
		}
	}
	return false
}

func (a *AlertCore) send(entry zapcore.Entry, fields []zapcore.Field) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.alerter.Alert(ctx, FormatAlert(entry, fields))
}

// FormatAlert renders a log entry and its fields as a plain-text alert.
func FormatAlert(entry zapcore.Entry, fields []zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT {
			continue
		}
		f.AddTo(enc)
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s alert\n\nMessage: %s\n", entry.Level.CapitalString(), entry.Message)
	if len(keys) > 0 {
		sb.WriteString("\nFields:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %v\n", k, enc.Fields[k])
		}
	}
	fmt.Fprintf(&sb, "\nTime: %s", entry.Time.Format("2006-01-02 15:04:05"))
	return sb.String()
}
