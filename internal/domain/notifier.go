package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/questx-lab/referral/internal/client"
	"github.com/questx-lab/referral/internal/common"
	"github.com/questx-lab/referral/internal/model"
	"github.com/questx-lab/referral/pkg/pubsub"
	"github.com/questx-lab/referral/pkg/xcontext"
)

// Notifier tells every operator about referral and closure events. It is the
// subscribe handler of the event topics.
type Notifier struct {
	messenger client.Messenger
}

func NewNotifier(messenger client.Messenger) *Notifier {
	return &Notifier{messenger: messenger}
}

func (n *Notifier) Subscribe(ctx context.Context, topic string, pack *pubsub.Pack, t time.Time) {
	text, err := n.format(topic, pack)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot decode %s event: %v", topic, err)
		return
	}

	if text == "" {
		xcontext.Logger(ctx).Debugf("Ignore event of topic %s", topic)
		return
	}

	for _, operatorID := range xcontext.Configs(ctx).Referral.OperatorIDs {
		if _, err := n.messenger.SendMessage(ctx, operatorID, text); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot notify operator %d: %v", operatorID, err)
		}
	}
}

func (n *Notifier) format(topic string, pack *pubsub.Pack) (string, error) {
	switch topic {
	case common.TopicReferralRecorded:
		var event model.ReferralRecordedEvent
		if err := json.Unmarshal(pack.Msg, &event); err != nil {
			return "", err
		}

		quality := "genuine"
		if !event.IsGenuine {
			quality = "suspect"
		}

		return fmt.Sprintf("New referral: %s (%d) referred %s (%d), %s.",
			nameOrUnnamed(event.ReferrerName),
			event.ReferrerID,
			nameOrUnnamed(event.ReferredName),
			event.ReferredID,
			quality,
		), nil

	case common.TopicWeekClosed, common.TopicMonthClosed:
		var event model.ClosureEvent
		if err := json.Unmarshal(pack.Msg, &event); err != nil {
			return "", err
		}

		subject := "Week " + event.Label
		if event.Kind == closureKindMonth {
			subject = event.Label
		}

		return fmt.Sprintf("%s is closed with %d winners at %s (run %s).",
			subject, len(event.Ranking), event.ClosedAt.Format(time.RFC822), event.RunID), nil
	}

	return "", nil
}

func nameOrUnnamed(name string) string {
	if name == "" {
		return "unnamed"
	}

	return name
}
