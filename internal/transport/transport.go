// Package transport is the interface boundary to the chat transport.
// The engine only ever sees these types; the websocket front in
// internal/server is one implementation.
package transport

import (
	"context"

	"driveport/internal/domain"
)

// Inbound is one chat event. Text and File may both be set (a file
// with a caption); Select carries a destination button press.
type Inbound struct {
	UserID string
	Text   string
	File   *domain.FileDescriptor
	Select string
}

// Button is one selectable destination.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Messenger sends and edits messages for one user. Send returns the
// message ID so progress can be edited in place.
type Messenger interface {
	Send(ctx context.Context, userID, text string) (string, error)
	SendButtons(ctx context.Context, userID, text string, buttons []Button) (string, error)
	Edit(ctx context.Context, userID, messageID, text string) error
}

// Fetcher materializes a transient file reference to a local path. The
// reference is single-use and may have expired.
type Fetcher interface {
	Fetch(ctx context.Context, ref, destPath string) error
}
