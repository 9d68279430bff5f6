// Package mailer is the transactional email collaborator. The board
// server only ever sends one kind of message: an invitation to join a
// board.
package mailer

import (
	"context"
	"log"
)

// Invite carries everything the invitation email needs.
type Invite struct {
	Recipient string
	Sender    string
	BoardName string
}

// Mailer sends a single board invitation.
type Mailer interface {
	SendInvite(ctx context.Context, inv Invite) error
}

// LogMailer is the default implementation: it records the invite in
// the server log instead of sending anything. Deployments wire a real
// sender here.
type LogMailer struct{}

func (LogMailer) SendInvite(_ context.Context, inv Invite) error {
	log.Printf("invite: %s invited %s to board %q", inv.Sender, inv.Recipient, inv.BoardName)
	return nil
}
