// Package graph implements a Provider that sends messages via the Microsoft Graph API.
package graph

import (
	"github.com/shineum/contact-api/internal/email"
)

// sendMailRequest is the request body for the sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject      string      `json:"subject"`
	Body         messageBody `json:"body"`
	ToRecipients []recipient `json:"toRecipients"`
	ReplyTo      []recipient `json:"replyTo,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

// tokenResponse is the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type graphErrorResponse struct {
	Error graphError `json:"error"`
}

type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a composed message into a sendMail body.
// Contact form messages are always plain text.
func buildSendMailRequest(msg *email.Message) *sendMailRequest {
	to := make([]recipient, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, recipient{EmailAddress: emailAddress{Address: addr}})
	}

	req := &sendMailRequest{
		Message: sendMailMessage{
			Subject: msg.SafeSubject(),
			Body: messageBody{
				ContentType: "text",
				Content:     msg.TextBody,
			},
			ToRecipients: to,
		},
	}
	if msg.ReplyTo != "" {
		req.Message.ReplyTo = []recipient{{EmailAddress: emailAddress{Address: msg.ReplyTo}}}
	}
	return req
}
