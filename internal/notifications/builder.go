package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
)

const visitTimeLayout = "Mon 02 Jan 2006 15:04 MST"

// Builder maps a domain event to the in-app notifications it produces.
// Events without a mapping produce nothing.
type Builder struct {
	repo Repository
}

func NewBuilder(repo Repository) *Builder {
	return &Builder{repo: repo}
}

type recipients []uuid.UUID

func (r *recipients) add(ids ...*uuid.UUID) {
	for _, id := range ids {
		if id == nil || *id == uuid.Nil {
			continue
		}
		dup := false
		for _, existing := range *r {
			if existing == *id {
				dup = true
				break
			}
		}
		if !dup {
			*r = append(*r, *id)
		}
	}
}

type message struct {
	typ   enums.NotificationType
	title string
	body  string
	link  string
}

// Build decodes data according to eventType and returns one notification per
// recipient, tagged with eventID.
func (b *Builder) Build(ctx context.Context, eventType enums.OutboxEventType, eventID uuid.UUID, data json.RawMessage) ([]*models.Notification, error) {
	var (
		to  recipients
		msg message
	)
	switch eventType {
	case enums.EventAppointmentScheduled:
		var p payloads.AppointmentScheduledEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		to.add(&p.ClientID, p.ConciergeID)
		msg = message{
			typ:   enums.NotificationAppointment,
			title: "Visit scheduled",
			body:  fmt.Sprintf("Visit to %s on %s (%d min).", b.propertyTitle(ctx, p.PropertyID), p.ScheduledAt.UTC().Format(visitTimeLayout), p.DurationMinutes),
			link:  "/appointments/" + p.AppointmentID.String(),
		}

	case enums.EventAppointmentReminderDue:
		var p payloads.AppointmentReminderEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		to.add(&p.ClientID, p.ConciergeID)
		msg = message{
			typ:   enums.NotificationAppointment,
			title: "Upcoming visit",
			body:  fmt.Sprintf("Reminder: visit to %s on %s.", b.propertyTitle(ctx, p.PropertyID), p.ScheduledAt.UTC().Format(visitTimeLayout)),
			link:  "/appointments/" + p.AppointmentID.String(),
		}

	case enums.EventAppointmentStatusChanged:
		var p payloads.AppointmentStatusChangedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.To != enums.AppointmentConfirmed && p.To != enums.AppointmentCancelled {
			return nil, nil
		}
		to.add(&p.ClientID, p.ConciergeID)
		msg = message{
			typ:   enums.NotificationAppointment,
			title: "Visit " + string(p.To),
			body:  fmt.Sprintf("The visit to %s on %s was %s.", b.propertyTitle(ctx, p.PropertyID), p.ScheduledAt.UTC().Format(visitTimeLayout), p.To),
			link:  "/appointments/" + p.AppointmentID.String(),
		}

	case enums.EventLeadRegistered:
		var p payloads.LeadRegisteredEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		title := "New lead assigned"
		if p.AssignedToID != nil {
			to.add(p.AssignedToID)
		} else {
			admins, err := b.repo.ActiveAdminIDs(ctx)
			if err != nil {
				return nil, err
			}
			for i := range admins {
				to.add(&admins[i])
			}
			title = "New unassigned lead"
		}
		msg = message{
			typ:   enums.NotificationLead,
			title: title,
			body:  fmt.Sprintf("%s lead registered for %s.", capitalize(string(p.OperationType)), p.ContactName),
			link:  "/leads/" + p.LeadID.String(),
		}

	case enums.EventOfferMade:
		var p payloads.OfferMadeEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		to.add(&p.OwnerID)
		msg = message{
			typ:   enums.NotificationOffer,
			title: "New offer",
			body:  fmt.Sprintf("New %s offer of %s %s on %s.", p.DealType, p.Amount.StringFixed(2), p.Currency, b.propertyTitle(ctx, p.PropertyID)),
			link:  "/offers/" + p.OfferID.String(),
		}

	case enums.EventOfferStatusChanged:
		var p payloads.OfferStatusChangedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		to.add(&p.ClientID)
		msg = message{
			typ:   enums.NotificationOffer,
			title: "Offer " + string(p.To),
			body:  fmt.Sprintf("Your offer on %s is now %s.", b.propertyTitle(ctx, p.PropertyID), p.To),
			link:  "/offers/" + p.OfferID.String(),
		}

	case enums.EventContractSigned:
		var p payloads.ContractSignedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		to.add(&p.OwnerID, &p.ClientID)
		msg = message{
			typ:   enums.NotificationContract,
			title: "Contract signed",
			body:  fmt.Sprintf("The %s contract for %s was signed.", p.ContractType, b.propertyTitle(ctx, p.PropertyID)),
			link:  "/contracts/" + p.ContractID.String(),
		}

	case enums.EventCommissionGenerated:
		var p payloads.CommissionGeneratedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		to.add(&p.UserID)
		msg = message{
			typ:   enums.NotificationCommission,
			title: "Commission generated",
			body: fmt.Sprintf("A commission of %s (%s%%) was generated for the period %s to %s.",
				p.Amount.StringFixed(2), p.Percentage.String(), day(p.PeriodStart), day(p.PeriodEnd)),
			link: "/commissions/" + p.RecordID.String(),
		}

	case enums.EventPaymentRecorded:
		var p payloads.PaymentRecordedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		to.add(&p.UserID)
		msg = message{
			typ:   enums.NotificationPayment,
			title: "Payment recorded",
			body: fmt.Sprintf("A payment of %s covering %s to %s was recorded.",
				p.Amount.StringFixed(2), day(p.PeriodStart), day(p.PeriodEnd)),
			link: "/payments/" + p.PaymentID.String(),
		}

	case enums.EventPropertyStatusChanged:
		var p payloads.PropertyStatusChangedEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		switch p.To {
		case enums.ApprovalApproved, enums.ApprovalRejected, enums.ApprovalChangesRequested:
		default:
			return nil, nil
		}
		to.add(&p.OwnerID)
		body := fmt.Sprintf("%s is now %s.", p.Title, strings.ReplaceAll(string(p.To), "_", " "))
		if note := strings.TrimSpace(p.Note); note != "" {
			body += " Note: " + note
		}
		msg = message{
			typ:   enums.NotificationProperty,
			title: "Listing review",
			body:  body,
			link:  "/properties/" + p.PropertyID.String(),
		}

	default:
		return nil, nil
	}

	out := make([]*models.Notification, 0, len(to))
	for _, userID := range to {
		link := msg.link
		id := eventID
		out = append(out, &models.Notification{
			UserID:  userID,
			Type:    msg.typ,
			Title:   msg.title,
			Message: msg.body,
			Link:    &link,
			EventID: &id,
		})
	}
	return out, nil
}

// propertyTitle falls back to a generic phrase when the listing is gone.
func (b *Builder) propertyTitle(ctx context.Context, id uuid.UUID) string {
	title, err := b.repo.PropertyTitle(ctx, id)
	if err != nil || title == "" {
		return "a property"
	}
	return title
}

func day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
