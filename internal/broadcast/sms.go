package broadcast

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// WinnerTexter sends an SMS to a fixed list of numbers whenever this
// instance declares a winner.
type WinnerTexter struct {
	api    messageCreator
	from   string
	to     []string
	logger *logrus.Entry
}

func NewWinnerTexter(accountSID, authToken, from string, to []string, logger *logrus.Logger) *WinnerTexter {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newWinnerTexter(client.Api, from, to, logger)
}

func newWinnerTexter(api messageCreator, from string, to []string, logger *logrus.Logger) *WinnerTexter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WinnerTexter{
		api:    api,
		from:   from,
		to:     to,
		logger: logger.WithField("component", "sms"),
	}
}

// Attach subscribes the texter to winner declarations on bus
func (w *WinnerTexter) Attach(bus *Bus) SubscriberID {
	origin := bus.Origin()
	return bus.SubscribeFunc(func(evt Event) {
		// other instances text their own declarations
		if evt.Origin != origin {
			return
		}
		w.handle(evt)
	}, EventWinnerDeclared)
}

func (w *WinnerTexter) handle(evt Event) {
	payload, ok := evt.Data.(WinnerDeclared)
	if !ok {
		return
	}

	body := fmt.Sprintf("House Cup: nomination #%d won %s with %d votes.",
		payload.WinnerNominationID, payload.PositionTitle, payload.VoteCount)
	if payload.HouseID != nil {
		body = fmt.Sprintf("House Cup: nomination #%d won %s (house %d) with %d votes.",
			payload.WinnerNominationID, payload.PositionTitle, *payload.HouseID, payload.VoteCount)
	}

	for _, to := range w.to {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(w.from)
		params.SetBody(body)

		if _, err := w.api.CreateMessage(params); err != nil {
			w.logger.WithError(err).WithField("to", to).Warn("error sending winner SMS")
			continue
		}
		w.logger.WithFields(logrus.Fields{
			"to":          to,
			"position_id": payload.PositionID,
		}).Info("winner SMS sent")
	}
}
