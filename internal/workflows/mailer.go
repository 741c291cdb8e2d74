package workflows

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atlas-mind/backend/pkg/logger"
)

// DefaultSubject is used when the generated email carries no subject line.
const DefaultSubject = "Generated Email"

// MailSender delivers a composed email.
type MailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// MailResult reports the email a mail workflow run produced.
type MailResult struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// MailWorkflow generates an email for a project and sends it. Same two
// stages as the doc workflow: fetch the project context, run the agent.
type MailWorkflow struct {
	store  ProjectStore
	gen    Generator
	sender MailSender
}

func NewMailWorkflow(store ProjectStore, gen Generator, sender MailSender) *MailWorkflow {
	return &MailWorkflow{
		store:  store,
		gen:    gen,
		sender: sender,
	}
}

func (w *MailWorkflow) Run(ctx context.Context, projectID, prompt, recipient string) (*MailResult, error) {
	pc, err := fetchContext(w.store, projectID)
	if err != nil {
		return nil, err
	}

	output, err := w.gen.GenerateText(ctx, "", buildAgentPrompt(pc, prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate email: %w", err)
	}

	subject, body := SplitEmail(output)

	if err := w.sender.Send(ctx, recipient, subject, body); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("Email sent",
		zap.String("project_id", projectID),
		zap.String("recipient", recipient),
		zap.String("subject", subject))

	return &MailResult{Recipient: recipient, Subject: subject, Body: body}, nil
}

// SplitEmail separates a generated email into subject and body. The first
// "Subject:" line wins; without one the whole text becomes the body under
// a default subject.
func SplitEmail(text string) (subject, body string) {
	if !strings.Contains(text, "Subject:") {
		return DefaultSubject, text
	}

	rest := strings.TrimSpace(strings.SplitN(text, "Subject:", 2)[1])
	parts := strings.SplitN(rest, "\n", 2)
	subject = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		body = strings.TrimSpace(parts[1])
	}
	return subject, body
}
