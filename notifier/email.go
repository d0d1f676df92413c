package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	gresty "github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	emailPath          = "/notifications/email"
	maxEmailsPerCall   = 100
	emailRelayTimeout  = 30 * time.Second
	deliveryAccepted   = "accepted"
	reasonMissingReply = "relay returned no result for delivery"
)

// RelayError is a non-2xx answer of the email relay.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("email relay returned %d", e.StatusCode)
	}
	return fmt.Sprintf("email relay returned %d: %s", e.StatusCode, e.Message)
}

// DeliveryRejection is a delivery the relay refused or never reported on.
type DeliveryRejection struct {
	ID     string
	UserID string
	Reason string
}

// EmailReport accounts for every delivery handed to SendEmails.
type EmailReport struct {
	Accepted int
	Rejected []DeliveryRejection
}

// EmailClient hands email deliveries to the relay service owning templates and SMTP.
type EmailClient struct {
	client *gresty.Client
}

func NewEmailClient(baseUrl string) (*EmailClient, error) {
	if baseUrl == "" {
		return nil, fmt.Errorf("email relay url cannot be empty")
	}
	client := gresty.New().
		SetBaseURL(baseUrl).
		SetTimeout(emailRelayTimeout).
		SetHeader("Content-Type", "application/json")
	return &EmailClient{client: client}, nil
}

// SendEmails posts deliveries in chunks and reports, per delivery, whether the
// relay accepted it. The error is set only when a chunk could not be posted;
// the report then still covers the chunks that went through.
func (ec *EmailClient) SendEmails(ctx context.Context, deliveries []EmailDelivery) (*EmailReport, error) {
	report := &EmailReport{}
	for start := 0; start < len(deliveries); start += maxEmailsPerCall {
		chunk := deliveries[start:min(start+maxEmailsPerCall, len(deliveries))]
		results, err := ec.post(ctx, chunk)
		if err != nil {
			return report, errors.Wrapf(err, "send %d of %d email deliveries", len(deliveries)-start, len(deliveries))
		}

		for _, d := range chunk {
			result, ok := results[d.ID]
			switch {
			case !ok:
				report.Rejected = append(report.Rejected, DeliveryRejection{ID: d.ID, UserID: d.UserID, Reason: reasonMissingReply})
			case result.Status != deliveryAccepted:
				report.Rejected = append(report.Rejected, DeliveryRejection{ID: d.ID, UserID: d.UserID, Reason: result.Reason})
			default:
				report.Accepted++
			}
		}
	}
	return report, nil
}

func (ec *EmailClient) post(ctx context.Context, chunk []EmailDelivery) (map[string]EmailResult, error) {
	var resp EmailResponse
	var relayErr relayErrorBody
	res, err := ec.client.R().
		SetContext(ctx).
		SetBody(&EmailRequest{Deliveries: chunk}).
		SetResult(&resp).
		SetError(&relayErr).
		Post(emailPath)
	if err != nil {
		log.Error("email relay request failed", "err", err)
		return nil, err
	}
	if res.IsError() {
		return nil, &RelayError{StatusCode: res.StatusCode(), Message: relayErr.Error}
	}

	results := make(map[string]EmailResult, len(resp.Results))
	for _, r := range resp.Results {
		results[r.ID] = r
	}
	return results, nil
}
