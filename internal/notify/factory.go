package notify

import (
	"fmt"
	"sort"

	"github.com/tgifai/crawlwatch/internal/config"
	"github.com/tgifai/crawlwatch/internal/pkg/logs"
)

// New builds a notifier from its config entry.
func New(id string, cfg config.NotifierConfig) (Notifier, error) {
	switch Type(cfg.Type) {
	case Log:
		return NewLogNotifier(id), nil
	case Telegram:
		return NewTelegramNotifier(id, cfg.Config)
	default:
		return nil, fmt.Errorf("unsupported notifier type %q", cfg.Type)
	}
}

// RegisterAll registers every enabled notifier. A notifier that fails to
// build is logged and skipped.
func RegisterAll(r *Registry, cfgs map[string]config.NotifierConfig) int {
	ids := make([]string, 0, len(cfgs))
	for id := range cfgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	n := 0
	for _, id := range ids {
		c := cfgs[id]
		if !c.Enabled {
			continue
		}
		nt, err := New(id, c)
		if err != nil {
			logs.Warn("[notify] skip notifier %s: %v", id, err)
			continue
		}
		r.Register(nt)
		n++
		logs.Info("[notify] notifier %s (%s) registered", id, c.Type)
	}
	return n
}
