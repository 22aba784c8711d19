package ladder

import "errors"

var (
	ErrInvalidName          = errors.New("team name must not be empty")
	ErrTeamNotFound         = errors.New("team not found")
	ErrTeamExists           = errors.New("team already exists")
	ErrAlreadyQueued        = errors.New("team is already queued")
	ErrNotQueued            = errors.New("team is not queued")
	ErrNotCaptain           = errors.New("only the team captain can do that")
	ErrNoCaptain            = errors.New("team has no captain")
	ErrAlreadyMember        = errors.New("user is already on the team")
	ErrNotMember            = errors.New("user is not on the team")
	ErrCannotRemoveCaptain  = errors.New("the captain cannot be removed")
	ErrQueueNotConfigured   = errors.New("queue is not set up for this group")
	ErrConfirmationRequired = errors.New("confirmation required")
)
