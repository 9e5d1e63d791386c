package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bassamadnan/mailagent/drafts"
	"github.com/bassamadnan/mailagent/prompts"
)

var (
	// ErrFormatting means a reply template does not fit the variables supplied
	// to it. It is a configuration defect and is returned as is.
	ErrFormatting   = errors.New("reply template formatting failed")
	ErrMissingInput = errors.New("subject and instructions are required")
)

// Tones offered for reply drafts, in display order.
var Tones = []string{"Professional", "Casual", "Urgent"}

// DefaultReplyInstructions prefills the reply form.
const DefaultReplyInstructions = "Polite and professional."

// Placeholders every auto_reply template must contain.
var replyPlaceholders = []string{"user_instructions", "sender", "subject", "body"}

const newDraftInstruction = "Write a professional email with the following subject and content:\n\n" +
	"Subject: %s\n\nContent: %s\n\nWrite only the email body, no subject line."

// DraftReply generates a reply to an inbox email from the auto_reply template
// and stores it as a draft with subject "Re: <subject>".
func (p *Processor) DraftReply(ctx context.Context, emailID, instructions, tone string) (drafts.Draft, error) {
	email, ok := p.inbox.Get(emailID)
	if !ok {
		return drafts.Draft{}, fmt.Errorf("%w: %s", ErrEmailNotFound, emailID)
	}
	tpl, ok := p.prompts.Get(prompts.KeyAutoReply)
	if !ok {
		return drafts.Draft{}, fmt.Errorf("%w: %s", ErrTemplateMissing, prompts.KeyAutoReply)
	}

	vars := map[string]string{
		"user_instructions": fmt.Sprintf("%s. Tone: %s", instructions, tone),
		"sender":            email.Sender,
		"subject":           email.Subject,
		"body":              email.Body,
	}
	filled, err := FillReplyTemplate(tpl.Template, vars)
	if err != nil {
		return drafts.Draft{}, err
	}

	body := p.model.GenerateText(ctx, filled, "")
	d, err := p.drafts.Create("Re: "+email.Subject, body, email.ID, map[string]any{
		"instructions": instructions,
		"tone":         tone,
	})
	if err != nil {
		return drafts.Draft{}, fmt.Errorf("saving reply draft: %w", err)
	}
	p.log.Info().Str("email_id", email.ID).Str("draft_id", d.ID).Msg("reply draft created")
	return d, nil
}

// NewDraft writes a fresh email from a subject and free-form instructions.
func (p *Processor) NewDraft(ctx context.Context, subject, instructions string) (drafts.Draft, error) {
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(instructions) == "" {
		return drafts.Draft{}, ErrMissingInput
	}
	body := p.model.GenerateText(ctx, fmt.Sprintf(newDraftInstruction, subject, instructions), "")
	d, err := p.drafts.Create(subject, body, "", nil)
	if err != nil {
		return drafts.Draft{}, fmt.Errorf("saving draft: %w", err)
	}
	p.log.Info().Str("draft_id", d.ID).Msg("draft created")
	return d, nil
}

// FillReplyTemplate substitutes {name} placeholders from vars. Every reply
// placeholder must appear in the template, every placeholder in the template
// must have a value, and braces must balance ({{ and }} are literal braces).
// All failures wrap ErrFormatting.
func FillReplyTemplate(template string, vars map[string]string) (string, error) {
	out, used, err := formatNamed(template, vars)
	if err != nil {
		return "", err
	}
	for _, name := range replyPlaceholders {
		if !used[name] {
			return "", fmt.Errorf("%w: template has no {%s} placeholder", ErrFormatting, name)
		}
	}
	return out, nil
}

// formatNamed returns the filled template and the set of fields substituted.
func formatNamed(template string, vars map[string]string) (string, map[string]bool, error) {
	used := make(map[string]bool)
	var sb strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrFormatting, i)
			}
			field := template[i+1 : i+1+end]
			if j := strings.IndexAny(field, "!:"); j >= 0 {
				field = field[:j]
			}
			val, ok := vars[field]
			if !ok {
				return "", nil, fmt.Errorf("%w: no value for placeholder {%s}", ErrFormatting, field)
			}
			used[field] = true
			sb.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", nil, fmt.Errorf("%w: single '}' at offset %d", ErrFormatting, i)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), used, nil
}
