package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/LYTE-studios/werkr-engine/internal/common/config"
	"github.com/LYTE-studios/werkr-engine/internal/common/logger"
	"github.com/LYTE-studios/werkr-engine/internal/common/metrics"
	"github.com/LYTE-studios/werkr-engine/internal/engine"
	"github.com/LYTE-studios/werkr-engine/internal/models"
)

// SESAPI is the slice of the SES client the dispatcher sends through.
type SESAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSAPI is the slice of the SNS client used for broadcast pushes.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ContactResolver maps a worker id to deliverable addresses.
type ContactResolver interface {
	GetWorkerContact(ctx context.Context, workerID uuid.UUID) (*models.WorkerContact, error)
}

// Dispatcher sends worker emails, admin alerts and new-slot broadcasts.
// Admin alerts are deduplicated over a redis window so a flapping external
// service does not flood the inbox.
type Dispatcher struct {
	ses      SESAPI
	sns      SNSAPI
	redis    *redis.Client
	contacts ContactResolver
	cfg      config.NotificationConfig
	log      logger.Logger
}

var _ engine.Notifier = (*Dispatcher)(nil)

func NewDispatcher(sesClient SESAPI, snsClient SNSAPI, rdb *redis.Client, contacts ContactResolver, cfg config.NotificationConfig, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		ses:      sesClient,
		sns:      snsClient,
		redis:    rdb,
		contacts: contacts,
		cfg:      cfg,
		log:      log,
	}
}

func (d *Dispatcher) NotifyUser(ctx context.Context, userID uuid.UUID, title, body string) error {
	if !d.cfg.Email.Enabled {
		return nil
	}
	contact, err := d.contacts.GetWorkerContact(ctx, userID)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("email").Inc()
		return fmt.Errorf("resolving contact for %s: %w", userID, err)
	}
	if err := d.sendEmail(ctx, []string{contact.Email}, title, body); err != nil {
		metrics.NotificationFailures.WithLabelValues("email").Inc()
		return err
	}
	d.log.Debug("user notification sent", map[string]interface{}{
		"user_id": userID.String(),
		"title":   title,
	})
	return nil
}

func (d *Dispatcher) NotifyAdmins(ctx context.Context, title, body string) error {
	if !d.cfg.Email.Enabled || len(d.cfg.AdminEmails) == 0 {
		return nil
	}
	fresh, err := d.claimAlert(ctx, title, body)
	if err != nil {
		d.log.Warn("alert dedup check failed, sending anyway", map[string]interface{}{
			"error": err.Error(),
		})
	} else if !fresh {
		return nil
	}
	if err := d.sendEmail(ctx, d.cfg.AdminEmails, title, body); err != nil {
		metrics.NotificationFailures.WithLabelValues("email").Inc()
		return err
	}
	return nil
}

// claimAlert reserves the alert fingerprint for the dedup window. It returns
// true when this caller won the reservation and should send.
func (d *Dispatcher) claimAlert(ctx context.Context, title, body string) (bool, error) {
	sum := sha256.Sum256([]byte(title + "\x00" + body))
	key := "notify:alert:" + hex.EncodeToString(sum[:8])
	window := time.Duration(d.cfg.AlertDedupMinutes) * time.Minute
	return d.redis.SetNX(ctx, key, 1, window).Result()
}

func (d *Dispatcher) BroadcastNewSlot(ctx context.Context, job *models.Job) error {
	if !d.cfg.Push.Enabled || d.cfg.Push.TopicARN == "" {
		return nil
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":      "slot_opened",
		"jobId":     job.ID.String(),
		"title":     job.Title,
		"startTime": job.StartTime.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = d.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(d.cfg.Push.TopicARN),
		Subject:  aws.String("A slot opened up"),
		Message:  aws.String(string(payload)),
	})
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("push").Inc()
		return fmt.Errorf("publishing slot broadcast: %w", err)
	}
	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, to []string, subject, body string) error {
	_, err := d.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(d.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: to,
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &sestypes.Body{
				Text: &sestypes.Content{
					Data:    aws.String(body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
