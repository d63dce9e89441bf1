package generation

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// QueueGeneration is the River queue reply jobs run on.
const QueueGeneration = "generation"

// GenerateReplyArgs asks a worker to fill in one ai placeholder.
type GenerateReplyArgs struct {
	PlaceholderMessageID uuid.UUID `json:"placeholder_message_id" river:"unique"`
	UserMessageID        uuid.UUID `json:"user_message_id"`
	ChatroomID           uuid.UUID `json:"chatroom_id"`
	UserID               uuid.UUID `json:"user_id"`
	UserText             string    `json:"user_text"`
}

func (GenerateReplyArgs) Kind() string { return "generate_reply" }

// InsertOpts keeps at most one live job per placeholder. Completed jobs are
// left out of the uniqueness states so a stuck placeholder can be re-enqueued.
func (GenerateReplyArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: QueueGeneration,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRetryable,
				rivertype.JobStateRunning,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// SweepOrphansArgs triggers a scan for placeholders whose job was lost.
type SweepOrphansArgs struct{}

func (SweepOrphansArgs) Kind() string { return "sweep_orphans" }
