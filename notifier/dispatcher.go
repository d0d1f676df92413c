package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/JokingLove/whale-alert-sync/common/clock"
	"github.com/JokingLove/whale-alert-sync/config"
	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/metrics"
)

// Dispatcher fans newly stored whale transactions out to entitled subscribers.
type Dispatcher struct {
	db       *database.DB
	email    *EmailClient
	feature  string
	location *time.Location
	clock    clock.Clock
}

func NewDispatcher(db *database.DB, cfg config.NotifierConfig, clk clock.Clock) (*Dispatcher, error) {
	location := time.UTC
	if cfg.DefaultTimezone != "" {
		loc, err := time.LoadLocation(cfg.DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("invalid default timezone %q: %w", cfg.DefaultTimezone, err)
		}
		location = loc
	}

	feature := cfg.EntitlementFeature
	if feature == "" {
		feature = database.DefaultEntitlementFeature
	}

	var email *EmailClient
	if cfg.EmailRelayUrl != "" {
		client, err := NewEmailClient(cfg.EmailRelayUrl)
		if err != nil {
			return nil, err
		}
		email = client
	}

	return &Dispatcher{
		db:       db,
		email:    email,
		feature:  feature,
		location: location,
		clock:    clk,
	}, nil
}

// Dispatch writes one in-app notification per matching (subscriber, transaction)
// pair in a single bulk insert and hands email deliveries to the relay. Errors
// of both channels are joined; stored transactions are never touched.
func (d *Dispatcher) Dispatch(ctx context.Context, txs []database.WhaleTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	now := d.clock.Now().In(d.location)
	subs, err := d.db.Subscriptions.QueryActiveEntitledSubscriptions(d.feature, now)
	if err != nil {
		metrics.DispatchErrors.WithLabelValues(string(database.ChannelInApp)).Inc()
		return fmt.Errorf("query subscriptions: %w", err)
	}

	var notifications []*database.Notification
	var deliveries []EmailDelivery
	skippedEmail := 0
	for _, sub := range subs {
		prefs := sub.Preferences.Data()
		if err := ValidateQuietHours(prefs.QuietHours); err != nil {
			log.Warn("ignoring invalid quiet hours", "user", sub.UserID, "err", err)
		}

		for i := range txs {
			tx := &txs[i]
			if !Matches(tx, prefs, now) {
				continue
			}
			title, message := Title(tx), Message(tx)
			data := newNotificationData(tx)

			if prefs.HasChannel(database.ChannelInApp) {
				payload, err := json.Marshal(data)
				if err != nil {
					return fmt.Errorf("marshal notification data: %w", err)
				}
				notifications = append(notifications, &database.Notification{
					UserID:         sub.UserID,
					TransactionRef: tx.Hash,
					Title:          title,
					Message:        message,
					Data:           datatypes.JSON(payload),
				})
			}
			if prefs.HasChannel(database.ChannelEmail) {
				if d.email == nil || sub.Email == "" {
					skippedEmail++
					continue
				}
				deliveries = append(deliveries, EmailDelivery{
					ID:      deliveryID(sub.UserID, tx.Hash),
					UserID:  sub.UserID,
					Email:   sub.Email,
					Title:   title,
					Message: message,
					Data:    data,
				})
			}
		}
	}

	var errs []error
	written, err := d.db.Notifications.StoreNotifications(notifications)
	if err != nil {
		metrics.DispatchErrors.WithLabelValues(string(database.ChannelInApp)).Inc()
		errs = append(errs, fmt.Errorf("store notifications: %w", err))
	} else {
		metrics.NotificationsCreated.WithLabelValues(string(database.ChannelInApp)).Add(float64(written))
	}

	var emailed int
	if len(deliveries) > 0 {
		report, err := d.email.SendEmails(ctx, deliveries)
		if report != nil {
			emailed = report.Accepted
			metrics.NotificationsCreated.WithLabelValues(string(database.ChannelEmail)).Add(float64(report.Accepted))
			for _, r := range report.Rejected {
				log.Warn("email delivery rejected", "id", r.ID, "user", r.UserID, "reason", r.Reason)
			}
			if len(report.Rejected) > 0 {
				metrics.DispatchErrors.WithLabelValues(string(database.ChannelEmail)).Inc()
				errs = append(errs, fmt.Errorf("email relay rejected %d of %d deliveries, first: %s",
					len(report.Rejected), len(deliveries), report.Rejected[0].Reason))
			}
		}
		if err != nil {
			metrics.DispatchErrors.WithLabelValues(string(database.ChannelEmail)).Inc()
			errs = append(errs, fmt.Errorf("send emails: %w", err))
		}
	}

	log.Info("dispatched whale alerts",
		"transactions", len(txs),
		"subscribers", len(subs),
		"in_app", written,
		"email", emailed,
		"email_skipped", skippedEmail)
	return errors.Join(errs...)
}

// Title renders "<amount> <SYMBOL> (<$usd>)".
func Title(tx *database.WhaleTransaction) string {
	return fmt.Sprintf("%s %s ($%s)", formatDecimal(tx.Amount, 4), strings.ToUpper(tx.Symbol), formatDecimal(tx.AmountUsd, 0))
}

// Message renders "<from> → <to> on <Blockchain>".
func Message(tx *database.WhaleTransaction) string {
	return fmt.Sprintf("%s → %s on %s", ownerOrUnknown(tx.FromOwner), ownerOrUnknown(tx.ToOwner), tx.Blockchain.DisplayName())
}

func ownerOrUnknown(owner string) string {
	if owner == "" || strings.EqualFold(owner, "unknown") {
		return "Unknown"
	}
	return owner
}

// formatDecimal rounds to places and groups the integer part by thousands.
func formatDecimal(d decimal.Decimal, places int32) string {
	s := d.Round(places).String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}
