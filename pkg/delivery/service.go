// Package delivery pushes built digests to users over direct messages and
// fires scheduled digests on their local time of day.
package delivery

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/slack"
	"github.com/digestkit/digestd/pkg/store"
)

// Messenger is the outbound chat surface one delivery needs: resolve the DM
// channel, then post the rendered digest.
type Messenger interface {
	OpenDM(ctx context.Context, userID string) (string, error)
	PostDigest(ctx context.Context, channelID string, items []models.DigestEntry) (string, error)
}

// MessengerFactory builds a Messenger for a workspace access token.
type MessengerFactory func(token string) Messenger

// Service records at-most-once deliveries per digest.
type Service struct {
	store     *store.Store
	messenger MessengerFactory
	now       func() float64
}

// NewService creates the delivery service. A nil factory uses the Slack
// Web API.
func NewService(st *store.Store, factory MessengerFactory) *Service {
	if factory == nil {
		factory = func(token string) Messenger { return slack.NewClient(token) }
	}
	return &Service{store: st, messenger: factory, now: epochNow}
}

// Deliver posts a digest to the user's DM channel. A digest that already
// has a delivery row reports duplicate with the prior delivery id. A failed
// attempt is recorded and never retried; the next digest gets a fresh id.
func (s *Service) Deliver(ctx context.Context, digestID, teamID, userID string, items []models.DigestEntry) (*models.DeliveryResult, error) {
	existing, err := s.store.GetDeliveryByDigest(ctx, digestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &models.DeliveryResult{Status: "duplicate", DeliveryID: existing.DeliveryID}, nil
	}

	deliveryID := newID("del")
	slackTS, postErr := s.post(ctx, teamID, userID, items)
	record := &models.Delivery{
		DeliveryID:  deliveryID,
		DigestID:    digestID,
		TeamID:      teamID,
		UserID:      userID,
		DeliveredAt: s.now(),
	}
	if postErr != nil {
		record.Status = models.DeliveryStatusFailed
		record.Error = postErr.Error()
	} else {
		record.Status = models.DeliveryStatusDelivered
		record.SlackTS = slackTS
	}
	inserted, err := s.store.InsertDelivery(ctx, record)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Another delivery won the insert between our check and now.
		winner, err := s.store.GetDeliveryByDigest(ctx, digestID)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, fmt.Errorf("delivery for digest %s vanished after conflict", digestID)
		}
		return &models.DeliveryResult{Status: "duplicate", DeliveryID: winner.DeliveryID}, nil
	}
	return &models.DeliveryResult{
		Status:     record.Status,
		DeliveryID: deliveryID,
		SlackTS:    record.SlackTS,
	}, nil
}

// post resolves the workspace token and DM channel and sends the digest.
func (s *Service) post(ctx context.Context, teamID, userID string, items []models.DigestEntry) (string, error) {
	workspace, err := s.store.GetWorkspace(ctx, teamID)
	if err != nil {
		return "", err
	}
	if workspace == nil {
		return "", fmt.Errorf("no workspace installation for team %s", teamID)
	}
	messenger := s.messenger(workspace.AccessToken)
	channelID, err := messenger.OpenDM(ctx, userID)
	if err != nil {
		return "", err
	}
	return messenger.PostDigest(ctx, channelID, items)
}

func newID(prefix string) string {
	id := uuid.New()
	return prefix + "-" + hex.EncodeToString(id[:])
}

func epochNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
