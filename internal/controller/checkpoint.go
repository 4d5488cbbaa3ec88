package controller

import (
	"encoding/gob"
	"os"

	"github.com/ahaiya/essaydeliberate/internal/valuenet"
	"github.com/ahaiya/essaydeliberate/pkg/errs"
)

// checkpoint is the binary blob written to disk: the next episode index to
// resume from, the policy network's parameters, and the optimizer's moment
// state. The target network is not persisted — it is reconstructed as a
// copy of the loaded policy on load.
type checkpoint struct {
	NextEpisode int
	Policy      *valuenet.Network
	Optimizer   *valuenet.Adam
}

// Save writes a checkpoint to path. Write failures are logged by the
// caller and skipped; they never abort training.
func (c *Controller) Save(path string, nextEpisode int) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.NewControllerError("save", err)
	}
	defer f.Close()

	ck := checkpoint{NextEpisode: nextEpisode, Policy: c.Policy, Optimizer: c.optimizer}
	if err := gob.NewEncoder(f).Encode(ck); err != nil {
		return errs.NewControllerError("save", err)
	}
	return nil
}

// Load reads a checkpoint from path, loading policy_params into both the
// policy and target networks and optimizer_state into the optimizer, and
// returns the next episode index to resume from. Read failures degrade to
// "start fresh": callers should log and continue from episode 0.
func (c *Controller) Load(path string) (nextEpisode int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errs.NewControllerError("load", err)
	}
	defer f.Close()

	var ck checkpoint
	if err := gob.NewDecoder(f).Decode(&ck); err != nil {
		return 0, errs.NewControllerError("load", err)
	}

	c.Policy.CopyFrom(ck.Policy)
	c.Target.CopyFrom(ck.Policy)
	c.optimizer = ck.Optimizer

	return ck.NextEpisode, nil
}
