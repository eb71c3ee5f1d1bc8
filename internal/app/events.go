package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/linkupcampus/linkup/internal/domain"
	"go.uber.org/zap"
)

// Event describes a marketplace write. It is published on the bus under its
// Action as topic.
type Event struct {
	Action string
	Actor  string
	IP     string
	Target string
	Detail string
	User   *domain.User
}

var listingActions = []string{
	domain.ActionServiceCreate,
	domain.ActionServiceUpdate,
	domain.ActionServiceDelete,
	domain.ActionServiceRate,
}

var auditedActions = append([]string{
	domain.ActionSignup,
	domain.ActionLogin,
	domain.ActionImageUpload,
}, listingActions...)

// Publish emits ev to its subscribers.
func (a *Application) Publish(ev Event) {
	if a.bus == nil {
		return
	}
	a.bus.Publish(ev.Action, ev)
}

func (a *Application) initEvents() {
	a.bus = EventBus.New()

	// synchronous so the next read after a write sees fresh listings
	for _, action := range listingActions {
		if err := a.bus.Subscribe(action, func(ev Event) {
			a.listings.Invalidate()
		}); err != nil {
			zap.S().Errorf("subscribe %s error %s", action, err.Error())
		}
	}

	for _, action := range auditedActions {
		if err := a.bus.SubscribeAsync(action, func(ev Event) {
			a.auditor.Record(ev)
		}, false); err != nil {
			zap.S().Errorf("subscribe %s error %s", action, err.Error())
		}
	}

	if err := a.bus.Subscribe(domain.ActionSignup, func(ev Event) {
		if ev.User == nil || !a.mailer.Enabled() {
			return
		}
		user := *ev.User
		if err := a.pool.Submit(func() {
			if err := a.mailer.SendWelcome(&user); err != nil {
				zap.L().Warn("welcome mail failed", zap.String("email", user.Email), zap.Error(err))
			}
		}); err != nil {
			zap.L().Warn("welcome mail not queued", zap.Error(err))
		}
	}); err != nil {
		zap.S().Errorf("subscribe signup error %s", err.Error())
	}
}
