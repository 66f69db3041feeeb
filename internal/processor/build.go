package processor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/citymesh/message-gateway/internal/adapter"
	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/model"
)

// BuildSet constructs one HTTP-adapter-backed processor per configured
// channel. Config keys are lowercased channel names ("sms", "digital_mail").
func BuildSet(channels map[string]config.ChannelConfig, store Store, log *zap.Logger) (*Set, error) {
	procs := make([]*Processor, 0, len(channels))
	for key, cc := range channels {
		t, ok := model.ParseMessageType(key)
		if !ok || t == model.TypeMessage {
			return nil, fmt.Errorf("unknown channel in config: %q", key)
		}
		a := adapter.NewHTTPAdapter(t, cc)
		procs = append(procs, New(a, store, cc.Retry, log.With(zap.String("channel", t.String()))))
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no channels configured")
	}
	return NewSet(procs...), nil
}
