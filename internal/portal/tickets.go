package portal

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	clog "github.com/charmbracelet/log"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/logging"
	"webHostingPortal/internal/review"
	"webHostingPortal/internal/validate"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// AutoReplyMessage is posted by BulkAutoReply.
const AutoReplyMessage = "Your problem will be solved within a few days."

// Support manages support tickets.
type Support struct {
	tickets  *repository.TicketRepository
	services repository.ServiceRepositoryI
	priority review.Prioritizer
	log      *clog.Logger
}

func NewSupport(tickets *repository.TicketRepository, services repository.ServiceRepositoryI, priority review.Prioritizer) *Support {
	return &Support{tickets: tickets, services: services, priority: priority, log: logging.For("support")}
}

// TicketInput is the new-ticket form.
type TicketInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SubmitResult carries the stored ticket and its computed priority.
type SubmitResult struct {
	Message  string          `json:"message"`
	Ticket   *models.Ticket  `json:"ticket"`
	Priority review.Priority `json:"result"`
}

// Submit files a ticket for the customer. Paying customers are those with a
// non-free service.
func (s *Support) Submit(ctx context.Context, userID, email string, in TicketInput) (*SubmitResult, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	f := validate.Fields{}
	f.Check(validate.MinLen(title, 5), "title", "Title must be at least 5 characters")
	f.Check(validate.MinLen(desc, 20), "description", "Description must be at least 20 characters")
	if !f.Empty() {
		return nil, apperrors.Validation("Validation failed. Please check your input.", f)
	}
	paying, err := s.services.HasPaidService(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to submit the ticket.", err)
	}
	userType := models.UserTypeNonPaying
	if paying {
		userType = models.UserTypePaying
	}
	p, err := s.priority.Prioritize(ctx, review.TicketInput{Title: title, Description: desc, UserType: userType})
	if err != nil {
		return nil, apperrors.Internal("An unexpected error occurred while prioritizing the ticket. Please try again later.", err)
	}
	t, err := s.tickets.Create(ctx, &models.Ticket{
		UserID:         userID,
		UserEmail:      email,
		Title:          title,
		Description:    desc,
		UserType:       userType,
		Priority:       p.Score,
		PriorityReason: p.Reason,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to submit the ticket.", err)
	}
	s.log.Info("ticket submitted", "ticket", t.ID, "priority", p.Score, "userType", userType)
	return &SubmitResult{Message: "Ticket submitted and prioritized successfully!", Ticket: t, Priority: p}, nil
}

func (s *Support) ListOwn(ctx context.Context, userID string) ([]models.Ticket, error) {
	list, err := s.tickets.List(ctx, repository.ListTicketsParams{UserID: userID})
	if err != nil {
		return nil, apperrors.Internal("Failed to load tickets.", err)
	}
	return list, nil
}

func (s *Support) GetOwn(ctx context.Context, userID, id string) (*models.Ticket, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, apperrors.NotFound("Ticket not found.")
	}
	return t, nil
}

// ReplyAsUser adds a customer reply and moves the ticket to In Progress.
func (s *Support) ReplyAsUser(ctx context.Context, userID, authorName, id, message string) (*models.TicketReply, error) {
	if _, err := s.GetOwn(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.reply(ctx, id, models.AuthorUser, authorName, message, models.TicketStatusInProgress)
}

// List returns tickets for the admin desk, optionally filtered by status.
func (s *Support) List(ctx context.Context, statuses []models.TicketStatus) ([]models.Ticket, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, apperrors.Validation("Unknown ticket status.", map[string]string{"status": string(st)})
		}
	}
	list, err := s.tickets.List(ctx, repository.ListTicketsParams{Statuses: statuses})
	if err != nil {
		return nil, apperrors.Internal("Failed to load tickets.", err)
	}
	return list, nil
}

func (s *Support) Get(ctx context.Context, id string) (*models.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load the ticket.", err)
	}
	if t == nil {
		return nil, apperrors.NotFound("Ticket not found.")
	}
	return t, nil
}

func (s *Support) UpdateStatus(ctx context.Context, id string, status models.TicketStatus) error {
	if !status.Valid() {
		return apperrors.Validation("Unknown ticket status.", map[string]string{"status": "Choose Open, In Progress, Answered or Closed."})
	}
	if err := s.tickets.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("Ticket not found.")
		}
		return apperrors.Internal("Failed to update the ticket.", err)
	}
	return nil
}

// ReplyAsAdmin adds a staff reply and marks the ticket Answered.
func (s *Support) ReplyAsAdmin(ctx context.Context, authorName, id, message string) (*models.TicketReply, error) {
	return s.reply(ctx, id, models.AuthorAdmin, authorName, message, models.TicketStatusAnswered)
}

func (s *Support) reply(ctx context.Context, id, author, authorName, message string, status models.TicketStatus) (*models.TicketReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.Validation("Reply cannot be empty.", map[string]string{"message": "Reply cannot be empty."})
	}
	rp, err := s.tickets.AddReply(ctx, &models.TicketReply{TicketID: id, Author: author, AuthorName: authorName, Message: message}, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Ticket not found.")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to post the reply.", err)
	}
	return rp, nil
}

// ClearAll deletes every ticket and reply.
func (s *Support) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.tickets.DeleteAll(ctx)
	if err != nil {
		return 0, apperrors.Internal("Failed to clear tickets.", err)
	}
	s.log.Warn("all tickets cleared", "count", n)
	return n, nil
}

// BulkAutoReply answers every Open or In Progress ticket with the stock
// message from the system bot and returns how many were answered.
func (s *Support) BulkAutoReply(ctx context.Context) (int, error) {
	pending, err := s.tickets.List(ctx, repository.ListTicketsParams{
		Statuses: []models.TicketStatus{models.TicketStatusOpen, models.TicketStatusInProgress},
	})
	if err != nil {
		return 0, apperrors.Internal("Failed to load tickets.", err)
	}
	n := 0
	for _, t := range pending {
		if _, err := s.reply(ctx, t.ID, models.AuthorAdmin, models.SystemBotName, AutoReplyMessage, models.TicketStatusAnswered); err != nil {
			return n, err
		}
		n++
	}
	s.log.Info("bulk auto-reply sent", "count", n)
	return n, nil
}
