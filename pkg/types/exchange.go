// Package types contains the shared data types for the Mantis assistant.
package types

import "time"

// Exchange is one completed conversation turn: the user's input and the
// model's reply. It is appended verbatim to the conversation log and, as a
// derived convenience, recorded in the history index.
type Exchange struct {
	// ID uniquely identifies the exchange in the history index.
	ID string `json:"id"`

	// CreatedAt is when the exchange completed.
	CreatedAt time.Time `json:"created_at"`

	// UserInput is the raw text the user submitted.
	UserInput string `json:"user_input"`

	// Reply is the model's trimmed reply text, including any embedded
	// command marker.
	Reply string `json:"reply"`

	// Directive is the command text extracted from the reply, or empty
	// when the reply carried no command marker.
	Directive string `json:"directive,omitempty"`
}
